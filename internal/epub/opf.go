package epub

import (
	"encoding/xml"
	"fmt"
	"path"
	"strings"
)

// opfPackage represents the OPF XML structure
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	UniqueID string      `xml:"unique-identifier,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
	Bindings opfBindings `xml:"bindings"`
}

// opfMetadata represents the metadata section
type opfMetadata struct {
	Title      []string        `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creator    []opfCreator    `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Language   []string        `xml:"http://purl.org/dc/elements/1.1/ language"`
	Identifier []opfIdentifier `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Publisher  []string        `xml:"http://purl.org/dc/elements/1.1/ publisher"`
	Meta       []opfMeta       `xml:"meta"`
}

// opfCreator represents a creator element
type opfCreator struct {
	Name string `xml:",chardata"`
	Role string `xml:"http://www.idpf.org/2007/opf role,attr"`
}

// opfIdentifier represents an identifier element
type opfIdentifier struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
}

// opfMeta represents a meta element (EPUB 2.0 and 3.0)
type opfMeta struct {
	Name     string `xml:"name,attr"`
	Content  string `xml:"content,attr"` // EPUB 2.0: attribute value
	Value    string `xml:",chardata"`    // EPUB 3.0: element text content
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
}

// opfManifest represents the manifest section
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents an item in the manifest
type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// opfSpine represents the spine section
type opfSpine struct {
	Toc                      string       `xml:"toc,attr"`
	PageProgressionDirection string       `xml:"page-progression-direction,attr"`
	ItemRefs                 []opfItemRef `xml:"itemref"`
}

// opfItemRef represents an itemref in the spine
type opfItemRef struct {
	IDRef      string `xml:"idref,attr"`
	Linear     string `xml:"linear,attr"`
	Properties string `xml:"properties,attr"`
}

// opfBindings represents the EPUB 3 bindings section
type opfBindings struct {
	MediaTypes []opfBindingMediaType `xml:"mediaType"`
}

// opfBindingMediaType represents a mediaType handler declaration
type opfBindingMediaType struct {
	MediaType string `xml:"media-type,attr"`
	Handler   string `xml:"handler,attr"`
}

// ParseOPF parses an OPF file content and returns the OPF structure
// opfDir is the directory containing the OPF file (e.g., "OEBPS")
func ParseOPF(content []byte, opfDir string) (*OPF, error) {
	var pkg opfPackage
	if err := xml.Unmarshal(content, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse OPF XML: %w", err)
	}

	opf := &OPF{
		Version:                  pkg.Version,
		Manifest:                 make(map[string]ManifestItem),
		PageProgressionDirection: strings.TrimSpace(pkg.Spine.PageProgressionDirection),
	}

	opf.Metadata = parseMetadata(&pkg.Metadata, pkg.UniqueID)
	opf.Rendition = parseRendition(pkg.Metadata.Meta)

	for _, item := range pkg.Manifest.Items {
		manifestItem := ManifestItem{
			ID:         item.ID,
			Href:       joinPath(opfDir, item.Href),
			MediaType:  item.MediaType,
			Properties: strings.Fields(item.Properties),
		}
		opf.Manifest[item.ID] = manifestItem
		opf.ManifestOrder = append(opf.ManifestOrder, item.ID)
	}

	for _, itemRef := range pkg.Spine.ItemRefs {
		opf.Spine = append(opf.Spine, SpineItem{
			IDRef:      itemRef.IDRef,
			Linear:     itemRef.Linear != "no",
			Properties: strings.Fields(itemRef.Properties),
		})
	}

	// Resolve NCX path from toc attribute
	if pkg.Spine.Toc != "" {
		if ncxItem, ok := opf.Manifest[pkg.Spine.Toc]; ok {
			opf.NCXPath = ncxItem.Href
		}
	}

	for _, mt := range pkg.Bindings.MediaTypes {
		if mt.MediaType == "" || mt.Handler == "" {
			continue
		}
		opf.Bindings = append(opf.Bindings, Binding{MediaType: mt.MediaType, Handler: mt.Handler})
	}

	return opf, nil
}

// parseMetadata parses the metadata section
func parseMetadata(meta *opfMetadata, uniqueID string) Metadata {
	md := Metadata{
		Title:     first(meta.Title),
		Language:  first(meta.Language),
		Publisher: first(meta.Publisher),
	}

	// Identifier (find the one marked as unique-identifier)
	for _, id := range meta.Identifier {
		if id.ID == uniqueID {
			md.Identifier = strings.TrimSpace(id.Value)
			break
		}
	}
	if md.Identifier == "" && len(meta.Identifier) > 0 {
		md.Identifier = strings.TrimSpace(meta.Identifier[0].Value)
	}

	for _, creator := range meta.Creator {
		md.Creators = append(md.Creators, Creator{
			Name: strings.TrimSpace(creator.Name),
			Role: creator.Role,
		})
	}

	return md
}

// parseRendition collects package-wide rendition:* meta properties.
// Refining metas apply to other elements and are ignored.
func parseRendition(metas []opfMeta) Rendition {
	r := Rendition{Layout: "reflowable", Flow: "auto", Spread: "auto"}
	for _, m := range metas {
		if m.Refines != "" {
			continue
		}
		value := strings.TrimSpace(m.Value)
		if value == "" {
			value = strings.TrimSpace(m.Content)
		}
		if value == "" {
			continue
		}
		switch m.Property {
		case "rendition:layout":
			r.Layout = value
		case "rendition:flow":
			r.Flow = value
		case "rendition:spread":
			r.Spread = value
		}
	}
	return r
}

// IsFixedLayout reports whether a spine item is pre-paginated, honouring
// itemref overrides of the package layout.
func (opf *OPF) IsFixedLayout(item SpineItem) bool {
	switch {
	case hasProperty(item.Properties, "rendition:layout-pre-paginated"):
		return true
	case hasProperty(item.Properties, "rendition:layout-reflowable"):
		return false
	}
	return opf.Rendition.Layout == "pre-paginated"
}

// ShouldScroll reports whether a spine item asks for scrolled rather than
// paginated presentation.
func (opf *OPF) ShouldScroll(item SpineItem) bool {
	for _, p := range item.Properties {
		switch p {
		case "rendition:flow-scrolled-doc", "rendition:flow-scrolled-continuous":
			return true
		case "rendition:flow-paginated", "rendition:flow-auto":
			return false
		}
	}
	return strings.HasPrefix(opf.Rendition.Flow, "scrolled-")
}

// PageSpread returns "left", "right" or "" for a spine item.
func (opf *OPF) PageSpread(item SpineItem) string {
	for _, p := range item.Properties {
		switch p {
		case "page-spread-left", "rendition:page-spread-left":
			return "left"
		case "page-spread-right", "rendition:page-spread-right":
			return "right"
		}
	}
	return ""
}

// first returns the first non-blank value, trimmed
func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// joinPath joins OPF directory with a relative path using forward slashes
func joinPath(base, rel string) string {
	if base == "" || base == "." {
		return path.Clean(rel)
	}
	return path.Join(base, rel)
}
