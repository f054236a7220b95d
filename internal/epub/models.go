package epub

// OPF represents the parsed Open Package Format document
type OPF struct {
	Version       string
	Metadata      Metadata
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string                // manifest IDs in document order
	Spine         []SpineItem
	NCXPath       string
	Bindings      []Binding

	// Spine-level and package-level rendering hints
	PageProgressionDirection string // "ltr", "rtl" or empty
	Rendition                Rendition
}

// Metadata represents the metadata section of the OPF
type Metadata struct {
	Title      string
	Creators   []Creator
	Language   string
	Identifier string
	Publisher  string
}

// Creator represents a creator (author, editor, etc.) of the book
type Creator struct {
	Name string
	Role string // e.g., "aut" for author, "edt" for editor
}

// Rendition holds the package-wide rendition:* properties (EPUB 3).
type Rendition struct {
	Layout string // "reflowable" (default) or "pre-paginated"
	Flow   string // "auto" (default), "paginated", "scrolled-doc", "scrolled-continuous"
	Spread string // "auto", "none", "landscape", "both"
}

// ManifestItem represents an item in the manifest
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef      string
	Linear     bool
	Properties []string // itemref properties, e.g. "page-spread-right"
}

// Binding is an EPUB 3 <bindings> entry: content of MediaType is handled by
// the manifest item Handler.
type Binding struct {
	MediaType string
	Handler   string
}

// hasProperty reports whether props contains name.
func hasProperty(props []string, name string) bool {
	for _, p := range props {
		if p == name {
			return true
		}
	}
	return false
}
