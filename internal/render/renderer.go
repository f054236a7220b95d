// Package render lays reflowable content documents out as pages of
// terminal text.
package render

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/yuanying/epubpager/internal/epub"
	"github.com/yuanying/epubpager/internal/pagination"
	"github.com/yuanying/epubpager/internal/reader"
)

const (
	defaultWidth    = 80
	defaultHeight   = 24
	defaultFontSize = 100
	gutter          = 3
)

// Source reads files from the publication.
type Source interface {
	ReadFile(name string) ([]byte, error)
}

// Config is shared by the renderers of one book.
type Config struct {
	Source    Source
	Direction pagination.Direction
	Width     int // viewport columns
	Height    int // viewport rows
	Logger    *slog.Logger
	Previewer *ImagePreviewer
}

// Factory returns a reader.Factory that creates TextRenderers. When track is
// non-nil it is called with every renderer created.
func (c Config) Factory(track func(*TextRenderer)) reader.Factory {
	return func(item reader.SpineItem, settings reader.Settings, annotations reader.Annotations, bindings []reader.Binding) reader.Renderer {
		r := New(c, item, settings, annotations, bindings)
		if track != nil {
			track(r)
		}
		return r
	}
}

// TextRenderer renders one content document. Loading happens on a separate
// goroutine; all methods are safe for concurrent use.
type TextRenderer struct {
	cfg         Config
	item        reader.SpineItem
	annotations reader.Annotations
	bindings    []reader.Binding
	logger      *slog.Logger

	mu        sync.Mutex
	width     int
	height    int
	settings  reader.Settings
	theme     Theme
	state     *pagination.State
	blocks    []block
	images    map[string][]byte
	lines     []line
	rows      int // text rows per page
	textWidth int // wrap width
	colWidth  int // cells per page column
	anchors   map[string]int
	visible   bool
	started   bool
	ready     bool
	err       error

	pendingLast     bool
	pendingFragment string
	pendingPage     int

	loaded   chan struct{}
	loadOnce sync.Once
}

// New creates a renderer for item. Nothing is read until Render.
func New(cfg Config, item reader.SpineItem, settings reader.Settings, annotations reader.Annotations, bindings []reader.Binding) *TextRenderer {
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultHeight
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Previewer == nil {
		cfg.Previewer = NewImagePreviewer()
	}
	theme, _ := LookupTheme(settings.Theme)
	return &TextRenderer{
		cfg:         cfg,
		item:        item,
		annotations: annotations,
		bindings:    bindings,
		logger:      cfg.Logger.With("spine_index", item.Index, "href", item.Href),
		width:       cfg.Width,
		height:      cfg.Height,
		settings:    settings,
		theme:       theme,
		state:       new(pagination.State),
		anchors:     map[string]int{},
		loaded:      make(chan struct{}),
	}
}

// Item returns the spine item this renderer displays.
func (r *TextRenderer) Item() reader.SpineItem {
	return r.item
}

// Render starts loading the document and returns its view. The view is
// positioned on the last page when renderLastPage is set, or on the page
// holding fragment.
func (r *TextRenderer) Render(renderLastPage bool, fragment string) reader.View {
	r.mu.Lock()
	r.visible = true
	if r.started {
		if r.ready {
			r.positionLocked(renderLastPage, fragment, 0)
		} else {
			r.pendingLast, r.pendingFragment, r.pendingPage = renderLastPage, fragment, 0
		}
		r.mu.Unlock()
		return &View{r: r}
	}
	r.started = true
	r.pendingLast, r.pendingFragment = renderLastPage, fragment
	r.mu.Unlock()

	go r.load()
	return &View{r: r}
}

func (r *TextRenderer) load() {
	defer r.loadOnce.Do(func() { close(r.loaded) })

	blocks, images, err := r.readDocument()
	if err != nil {
		r.logger.Warn("content document failed to load", "error", err)
		blocks = []block{
			{kind: kindHeading, text: "Unable to display " + r.item.Href},
			{kind: kindText, text: err.Error()},
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks, r.images, r.err = blocks, images, err
	r.layoutLocked()
	r.ready = true
	r.positionLocked(r.pendingLast, r.pendingFragment, r.pendingPage)
	r.logger.Debug("content laid out", "pages", r.state.TotalPages(), "lines", len(r.lines))
}

func (r *TextRenderer) readDocument() ([]block, map[string][]byte, error) {
	if r.cfg.Source == nil {
		return nil, nil, fmt.Errorf("no source for %s", r.item.Href)
	}
	data, err := r.cfg.Source.ReadFile(r.item.Href)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", r.item.Href, err)
	}
	content, err := epub.LoadContent(r.item.IDRef, r.item.Href, data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", r.item.Href, err)
	}

	var highlights []string
	if r.annotations != nil {
		highlights = r.annotations.Highlights(r.item.Index)
	}
	blocks := buildBlocks(content, r.loadStyles(content), highlights, r.bindings)

	images := map[string][]byte{}
	for _, bl := range blocks {
		if bl.kind != kindImage {
			continue
		}
		if _, ok := images[bl.image]; ok {
			continue
		}
		img, err := r.cfg.Source.ReadFile(bl.image)
		if err != nil {
			r.logger.Debug("image not readable", "image", bl.image, "error", err)
			continue
		}
		images[bl.image] = img
	}
	return blocks, images, nil
}

// loadStyles collects the linked and embedded stylesheets of content.
func (r *TextRenderer) loadStyles(content *epub.Content) styleSheet {
	var sheet styleSheet
	for _, href := range content.CSSLinks {
		data, err := r.cfg.Source.ReadFile(href)
		if err != nil {
			r.logger.Debug("stylesheet not readable", "stylesheet", href, "error", err)
			continue
		}
		sheet.add(parseStyleSheet(string(data)))
	}
	content.Document.Find("head style").Each(func(_ int, s *goquery.Selection) {
		sheet.add(parseStyleSheet(s.Text()))
	})
	return sheet
}

// layoutLocked wraps the blocks for the current settings and viewport and
// resets the page state to the first page.
func (r *TextRenderer) layoutLocked() {
	twoUp := r.settings.SyntheticLayout
	margin := max(r.settings.Margin, 0)
	fontSize := r.settings.FontSize
	if fontSize <= 0 {
		fontSize = defaultFontSize
	}

	avail := max(r.width-2*margin, 1)
	r.colWidth = avail
	if twoUp {
		r.colWidth = max((avail-gutter)/2, 1)
	}
	availRows := max(r.height-2*(margin/2), 1)
	r.textWidth = max(min(r.colWidth, r.colWidth*defaultFontSize/fontSize), 1)
	r.rows = max(min(availRows, availRows*defaultFontSize/fontSize), 1)

	r.lines = breakPages(wrapBlocks(r.blocks, r.textWidth, r.preview), r.rows)

	total := max((len(r.lines)+r.rows-1)/r.rows, 1)
	if twoUp {
		// Pad so that the final spread is complete.
		offset := r.firstPageIsOffset()
		if offset == (total%2 == 0) {
			total++
		}
	}

	r.anchors = map[string]int{}
	for i, l := range r.lines {
		for _, id := range l.anchors {
			if _, ok := r.anchors[id]; !ok {
				r.anchors[id] = i/r.rows + 1
			}
		}
	}

	if err := r.state.Set(total, []int{1}); err != nil {
		r.logger.Error("invalid page state", "error", err)
	}
}

// relayoutLocked lays the document out again, keeping the first visible
// line on screen.
func (r *TextRenderer) relayoutLocked() {
	if !r.ready {
		return
	}
	topLine := 0
	if first := r.state.First(); first > 0 {
		topLine = (first - 1) * r.rows
	}
	r.layoutLocked()
	r.goToLocked(topLine/r.rows + 1)
}

func (r *TextRenderer) positionLocked(last bool, fragment string, page int) {
	r.pendingLast, r.pendingFragment, r.pendingPage = false, "", 0
	if fragment != "" {
		if p, ok := r.anchors[fragment]; ok {
			r.goToLocked(p)
			return
		}
		r.logger.Debug("fragment not found", "fragment", fragment)
	}
	switch {
	case page > 0:
		r.goToLocked(page)
	case last:
		r.goToLocked(r.state.TotalPages())
	default:
		r.goToLocked(1)
	}
}

func (r *TextRenderer) goToLocked(page int) {
	r.state.GoTo(page, r.settings.SyntheticLayout, r.firstPageIsOffset())
}

// firstPageIsOffset reports whether page 1 stands alone in spread mode:
// the document starts on the recto side.
func (r *TextRenderer) firstPageIsOffset() bool {
	switch r.cfg.Direction {
	case pagination.RightToLeft:
		return r.item.PageSpread == "left"
	default:
		return r.item.PageSpread == "right"
	}
}

func (r *TextRenderer) preview(bl block) []string {
	placeholder := "[image: " + bl.image + "]"
	if bl.text != "" {
		placeholder = "[image: " + bl.text + "]"
	}
	data, ok := r.images[bl.image]
	if !ok {
		return []string{runewidth.Truncate(placeholder, r.textWidth, "…")}
	}
	rows, err := r.cfg.Previewer.Preview(data, r.textWidth, max(r.rows/2, 1))
	if err != nil {
		r.logger.Debug("image preview failed", "image", bl.image, "error", err)
		return []string{runewidth.Truncate(placeholder, r.textWidth, "…")}
	}
	if bl.text != "" {
		rows = append(rows, runewidth.Truncate(bl.text, r.textWidth, "…"))
	}
	return rows
}

// Show marks the view visible.
func (r *TextRenderer) Show() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = true
}

// Hide marks the view hidden.
func (r *TextRenderer) Hide() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = false
}

// Visible reports whether the view is shown.
func (r *TextRenderer) Visible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible
}

// CurrentPage returns the displayed page numbers.
func (r *TextRenderer) CurrentPage() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Pages()
}

// NumberOfPages returns the page count, 0 until loaded.
func (r *TextRenderer) NumberOfPages() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.TotalPages()
}

// NextPage advances one page or spread.
func (r *TextRenderer) NextPage() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.NextPage(r.settings.SyntheticLayout)
}

// PreviousPage goes back one page or spread.
func (r *TextRenderer) PreviousPage() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.PrevPage(r.settings.SyntheticLayout)
}

// GoToPage shows page, or the spread holding it. Before loading the page is
// remembered and applied once laid out.
func (r *TextRenderer) GoToPage(page int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		r.pendingLast, r.pendingFragment, r.pendingPage = false, "", page
		return
	}
	r.goToLocked(page)
}

// GoToFragment shows the page holding element ID fragment. It reports false
// when the loaded document has no such element.
func (r *TextRenderer) GoToFragment(fragment string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		r.pendingLast, r.pendingFragment, r.pendingPage = false, fragment, 0
		return true
	}
	p, ok := r.anchors[fragment]
	if ok {
		r.goToLocked(p)
	}
	return ok
}

// Loaded is closed once the document has been laid out, successfully or
// not.
func (r *TextRenderer) Loaded() <-chan struct{} {
	return r.loaded
}

// Err returns the load error, if any.
func (r *TextRenderer) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Settings returns the settings the renderer lays out with.
func (r *TextRenderer) Settings() reader.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// SetSyntheticLayout switches between single pages and two-page spreads.
func (r *TextRenderer) SetSyntheticLayout(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings.SyntheticLayout == enabled {
		return
	}
	r.settings.SyntheticLayout = enabled
	r.relayoutLocked()
}

// SetMargin sets the page margin in cells.
func (r *TextRenderer) SetMargin(margin int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings.Margin == margin {
		return
	}
	r.settings.Margin = margin
	r.relayoutLocked()
}

// SetTheme selects a theme by name.
func (r *TextRenderer) SetTheme(theme string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings.Theme == theme {
		return
	}
	t, ok := LookupTheme(theme)
	if !ok {
		r.logger.Warn("unknown theme, using default", "theme", theme)
	}
	r.settings.Theme = theme
	r.theme = t
}

// SetFontSize sets the text size as a percentage.
func (r *TextRenderer) SetFontSize(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings.FontSize == size {
		return
	}
	r.settings.FontSize = size
	r.relayoutLocked()
}

// Resize changes the viewport.
func (r *TextRenderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width <= 0 || height <= 0 || (width == r.width && height == r.height) {
		return
	}
	r.width, r.height = width, height
	r.relayoutLocked()
}

// View returns the view of the renderer without starting a load.
func (r *TextRenderer) View() *View {
	return &View{r: r}
}

// View is the text of the displayed page(s) of a renderer.
type View struct {
	r *TextRenderer
}

// String renders the current page, or spread, with margins.
func (v *View) String() string {
	return v.r.frame()
}

func (r *TextRenderer) frame() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return "Loading " + r.item.Href + "…"
	}

	pages := r.state.Pages()
	var body string
	if r.settings.SyntheticLayout {
		left, right := r.cfg.Direction.Sides(pages)
		sep := strings.TrimSuffix(strings.Repeat(strings.Repeat(" ", gutter)+"\n", r.rows), "\n")
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			strings.Join(r.pageRowsLocked(left), "\n"),
			sep,
			strings.Join(r.pageRowsLocked(right), "\n"),
		)
	} else if len(pages) > 0 {
		body = strings.Join(r.pageRowsLocked(pages[0]), "\n")
	}

	margin := max(r.settings.Margin, 0)
	return lipgloss.NewStyle().
		Padding(margin/2, margin).
		Render(body)
}

// pageRowsLocked returns the styled rows of page, each padded to the column
// width. Page 0 is a blank column.
func (r *TextRenderer) pageRowsLocked(page int) []string {
	out := make([]string, 0, r.rows)
	start := (page - 1) * r.rows
	for i := 0; i < r.rows; i++ {
		idx := start + i
		if page < 1 || idx >= len(r.lines) {
			out = append(out, strings.Repeat(" ", r.colWidth))
			continue
		}
		l := r.lines[idx]
		out = append(out, r.theme.styleFor(l).Render(runewidth.FillRight(l.text, r.colWidth)))
	}
	return out
}
