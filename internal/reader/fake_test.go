package reader

import (
	"fmt"
	"sync"

	"github.com/yuanying/epubpager/internal/pagination"
)

// fakeRenderer is an in-memory Renderer. Its page count is total at font
// size 100 and scales with the font size; spreads follow SetSyntheticLayout.
type fakeRenderer struct {
	item       SpineItem
	total      int
	state      *pagination.State
	visible    bool
	renders    int
	renderLast bool
	fragment   string
	anchors    map[string]int
	settings   Settings
	applied    int
	manualLoad bool

	loaded   chan struct{}
	loadOnce sync.Once
}

func newFakeRenderer(item SpineItem, total int) *fakeRenderer {
	state, err := pagination.NewState(0, nil)
	if err != nil {
		panic(err)
	}
	return &fakeRenderer{
		item:    item,
		total:   total,
		state:   state,
		anchors: map[string]int{},
		loaded:  make(chan struct{}),
	}
}

func (f *fakeRenderer) load() {
	f.loadOnce.Do(func() { close(f.loaded) })
}

func (f *fakeRenderer) pageCount() int {
	size := f.settings.FontSize
	if size <= 0 {
		size = 100
	}
	return f.total * size / 100
}

func (f *fakeRenderer) twoUp() bool {
	return f.settings.SyntheticLayout
}

// layout re-paginates at the current settings, keeping the first displayed
// page when it still exists.
func (f *fakeRenderer) layout(page int) {
	total := f.pageCount()
	if total <= 0 {
		return
	}
	if err := f.state.Set(total, []int{1}); err != nil {
		panic(err)
	}
	f.state.GoTo(page, f.twoUp(), false)
}

func (f *fakeRenderer) Render(renderLastPage bool, fragment string) View {
	f.renders++
	f.renderLast = renderLastPage
	f.fragment = fragment
	f.visible = true
	page := 1
	if renderLastPage {
		page = f.pageCount()
	}
	if p, ok := f.anchors[fragment]; ok {
		page = p
	}
	f.layout(page)
	if !f.manualLoad {
		f.load()
	}
	return fakeView{name: f.item.Href}
}

func (f *fakeRenderer) Show()                   { f.visible = true }
func (f *fakeRenderer) Hide()                   { f.visible = false }
func (f *fakeRenderer) CurrentPage() []int      { return f.state.Pages() }
func (f *fakeRenderer) NumberOfPages() int      { return f.state.TotalPages() }
func (f *fakeRenderer) NextPage()               { f.state.NextPage(f.twoUp()) }
func (f *fakeRenderer) PreviousPage()           { f.state.PrevPage(f.twoUp()) }
func (f *fakeRenderer) GoToPage(page int)       { f.state.GoTo(page, f.twoUp(), false) }
func (f *fakeRenderer) Loaded() <-chan struct{} { return f.loaded }

func (f *fakeRenderer) GoToFragment(fragment string) bool {
	p, ok := f.anchors[fragment]
	if ok {
		f.state.GoTo(p, f.twoUp(), false)
	}
	return ok
}

func (f *fakeRenderer) SetSyntheticLayout(enabled bool) {
	f.applied++
	if f.settings.SyntheticLayout == enabled {
		return
	}
	f.state.ToggleTwoUp(f.settings.SyntheticLayout, false)
	f.settings.SyntheticLayout = enabled
}

func (f *fakeRenderer) SetMargin(margin int)  { f.settings.Margin = margin }
func (f *fakeRenderer) SetTheme(theme string) { f.settings.Theme = theme }

func (f *fakeRenderer) SetFontSize(size int) {
	if f.settings.FontSize == size {
		return
	}
	f.settings.FontSize = size
	f.layout(max(f.state.First(), 1))
}

type fakeView struct {
	name string
}

func (v fakeView) String() string { return v.name }

type fakeSurface struct {
	views []View
}

func (s *fakeSurface) Append(v View) { s.views = append(s.views, v) }

// fakeBook builds a spine of reflowable items with the given page counts and
// records the renderers the factory creates.
type fakeBook struct {
	spine     []SpineItem
	pages     map[int]int
	renderers []*fakeRenderer
}

func newFakeBook(pageCounts ...int) *fakeBook {
	b := &fakeBook{pages: map[int]int{}}
	for i, n := range pageCounts {
		b.spine = append(b.spine, SpineItem{
			Index:  i,
			IDRef:  fmt.Sprintf("ch%d", i+1),
			Href:   fmt.Sprintf("OEBPS/ch%d.xhtml", i+1),
			Linear: true,
		})
		b.pages[i] = n
	}
	return b
}

func (b *fakeBook) factory(item SpineItem, settings Settings, _ Annotations, _ []Binding) Renderer {
	r := newFakeRenderer(item, b.pages[item.Index])
	r.settings = settings
	b.renderers = append(b.renderers, r)
	return r
}
