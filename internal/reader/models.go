package reader

import "fmt"

// SpineItem is one entry of the spine manifest handed to the coordinator.
type SpineItem struct {
	Index       int    // position in the OPF spine
	IDRef       string // manifest item ID
	Href        string // content document path within the EPUB
	MediaType   string
	Linear      bool
	FixedLayout bool   // rendition:layout pre-paginated
	Scroll      bool   // rendition:flow scrolled-*
	PageSpread  string // "left", "right" or empty
}

// Settings are the viewer preferences pushed onto a renderer whenever it
// becomes visible.
type Settings struct {
	SyntheticLayout bool
	Margin          int
	Theme           string
	FontSize        int
}

// Binding maps a foreign media type to the manifest item that handles it
// (EPUB 3 <bindings>).
type Binding struct {
	MediaType string
	Handler   string
}

// Annotations supplies the fragment identifiers highlighted in a spine item.
type Annotations interface {
	Highlights(spineIndex int) []string
}

// View is the output of a renderer, inserted into the display surface.
type View interface {
	fmt.Stringer
}

// Surface receives rendered views. It is append-only.
type Surface interface {
	Append(v View)
}

// Renderer is a paginated view of one content document.
//
// Render starts producing output and returns immediately; Loaded is closed
// once the content document has been laid out. renderLastPage positions the
// view on its last page; fragment, when non-empty, positions it on the page
// holding that element ID.
type Renderer interface {
	Render(renderLastPage bool, fragment string) View
	Show()
	Hide()
	CurrentPage() []int
	NumberOfPages() int
	NextPage()
	PreviousPage()
	GoToPage(page int)
	GoToFragment(fragment string) bool
	Loaded() <-chan struct{}

	SetSyntheticLayout(enabled bool)
	SetMargin(margin int)
	SetTheme(theme string)
	SetFontSize(size int)
}

// Factory creates the renderer for a reflowable spine item.
type Factory func(item SpineItem, settings Settings, annotations Annotations, bindings []Binding) Renderer

// Range is an inclusive range of spine indexes.
type Range struct {
	Start int
	End   int
}

// Position is the page position across all rendered views.
type Position struct {
	NumPages    int
	CurrentPage int
}
