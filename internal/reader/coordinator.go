package reader

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// DefaultLoadTimeout bounds the wait for content documents in RenderAll.
const DefaultLoadTimeout = time.Second

// Options configures a Coordinator.
type Options struct {
	Spine       []SpineItem
	Settings    Settings
	Annotations Annotations
	Bindings    []Binding
	Factory     Factory
	Surface     Surface
	LoadTimeout time.Duration
	Logger      *slog.Logger
}

type entry struct {
	renderer     Renderer
	spineIndexes []int
	rendered     bool
}

// Coordinator owns one view per reflowable spine item, decides which view is
// visible and aggregates page positions across views.
//
// A Coordinator is not safe for concurrent use. Ownership may be handed to
// another goroutine (e.g. to run RenderAll) as long as only one goroutine
// uses it at a time.
type Coordinator struct {
	entries     []*entry
	current     int
	settings    Settings
	fixedRuns   []Range
	surface     Surface
	loadTimeout time.Duration
	logger      *slog.Logger

	ready      chan struct{}
	readyFired bool
	err        error
}

// New classifies the spine and creates a renderer for every reflowable item.
func New(opts Options) (*Coordinator, error) {
	if opts.Factory == nil {
		return nil, ErrNoFactory
	}

	c := &Coordinator{
		settings:    opts.Settings,
		surface:     opts.Surface,
		loadTimeout: opts.LoadTimeout,
		logger:      opts.Logger,
		ready:       make(chan struct{}),
	}
	if c.surface == nil {
		c.surface = discardSurface{}
	}
	if c.loadTimeout <= 0 {
		c.loadTimeout = DefaultLoadTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	for _, seg := range Classify(opts.Spine) {
		switch seg.Kind {
		case KindFixedLayoutRun:
			c.fixedRuns = append(c.fixedRuns, Range{Start: seg.Start(), End: seg.End()})
			c.logger.Debug("fixed-layout run not rendered", "start", seg.Start(), "end", seg.End())
		case KindScrolling:
			// No scrolling view yet.
			c.logger.Info("skipping scrolling spine item", "spine_index", seg.Start(), "href", seg.Items[0].Href)
		case KindReflowable:
			item := seg.Items[0]
			r := opts.Factory(item, c.settings, opts.Annotations, opts.Bindings)
			c.entries = append(c.entries, &entry{
				renderer:     r,
				spineIndexes: []int{item.Index},
			})
		}
	}

	if len(c.entries) == 0 {
		return nil, ErrNoViews
	}
	c.logger.Debug("views created", "views", len(c.entries), "fixed_layout_runs", len(c.fixedRuns))
	return c, nil
}

// Len returns the number of views.
func (c *Coordinator) Len() int {
	return len(c.entries)
}

// CurrentIndex returns the index of the visible view.
func (c *Coordinator) CurrentIndex() int {
	return c.current
}

// FixedLayoutRuns returns the coalesced fixed-layout spine ranges.
func (c *Coordinator) FixedLayoutRuns() []Range {
	return slices.Clone(c.fixedRuns)
}

// SpineIndexes returns the spine positions covered by view index.
func (c *Coordinator) SpineIndexes(index int) []int {
	if index < 0 || index >= len(c.entries) {
		return nil
	}
	return slices.Clone(c.entries[index].spineIndexes)
}

// Settings returns the current viewer settings.
func (c *Coordinator) Settings() Settings {
	return c.settings
}

// UpdateSettings stores s and applies it to every rendered view, so that
// page counts of hidden views follow the new layout.
func (c *Coordinator) UpdateSettings(s Settings) {
	c.settings = s
	for _, e := range c.entries {
		if e.rendered {
			c.ApplyPreferences(e.renderer)
		}
	}
}

// Ready is closed once RenderAll has loaded every view.
func (c *Coordinator) Ready() <-chan struct{} {
	return c.ready
}

// Err returns the error that stopped RenderAll, if any.
func (c *Coordinator) Err() error {
	return c.err
}

// HasNextView reports whether a view follows the current one.
func (c *Coordinator) HasNextView() bool {
	return c.current < len(c.entries)-1
}

// HasPreviousView reports whether a view precedes the current one.
func (c *Coordinator) HasPreviousView() bool {
	return c.current > 0
}

// CurrentView returns the renderer of the current view.
func (c *Coordinator) CurrentView() Renderer {
	if e := c.currentEntry(); e != nil {
		return e.renderer
	}
	return nil
}

func (c *Coordinator) currentEntry() *entry {
	if c.current < 0 || c.current >= len(c.entries) {
		return nil
	}
	return c.entries[c.current]
}

// RenderView makes view index the visible one. A view that was rendered
// before is shown again; otherwise it is rendered and appended to the
// surface. renderLastPage and fragment only apply to a first render.
// Out-of-range indexes are ignored.
func (c *Coordinator) RenderView(index int, renderLastPage bool, fragment string) {
	if index < 0 || index >= len(c.entries) {
		return
	}

	c.hideRenderedViews()
	c.current = index
	e := c.entries[index]

	if e.rendered {
		e.renderer.Show()
		c.ApplyPreferences(e.renderer)
		return
	}

	view := e.renderer.Render(renderLastPage, fragment)
	c.surface.Append(view)
	c.ApplyPreferences(e.renderer)
	e.rendered = true
}

// RenderNextView shows the following view from its first page.
func (c *Coordinator) RenderNextView() {
	if c.HasNextView() {
		c.RenderView(c.current+1, false, "")
	}
}

// RenderPreviousView shows the preceding view, from its last page when it
// has not been rendered yet.
func (c *Coordinator) RenderPreviousView() {
	if c.HasPreviousView() {
		c.RenderView(c.current-1, true, "")
	}
}

// RenderAll renders every view hidden so that later navigation does not wait
// for loading, then waits up to the load timeout for all of them to signal
// completion. On success the current view is shown and Ready is closed.
// A timeout is returned as a *LoadTimeoutError and kept in Err.
func (c *Coordinator) RenderAll(ctx context.Context) error {
	for _, e := range c.entries {
		if e.rendered {
			continue
		}
		view := e.renderer.Render(false, "")
		c.surface.Append(view)
		e.renderer.Hide()
		e.rendered = true
	}

	start := time.Now()
	if err := c.awaitLoaded(ctx); err != nil {
		c.err = err
		c.logger.Error("views failed to load", "error", err)
		return err
	}
	c.logger.Debug("views loaded", "views", len(c.entries), "elapsed", time.Since(start))

	c.RenderView(c.current, false, "")
	if !c.readyFired {
		c.readyFired = true
		close(c.ready)
	}
	return nil
}

// awaitLoaded waits on each one-shot load signal with a single deadline.
// Signals arriving after the deadline are never read.
func (c *Coordinator) awaitLoaded(ctx context.Context) error {
	timer := time.NewTimer(c.loadTimeout)
	defer timer.Stop()

	for i, e := range c.entries {
		select {
		case <-e.renderer.Loaded():
		case <-timer.C:
			return &LoadTimeoutError{
				Outstanding: c.pendingFrom(i),
				Total:       len(c.entries),
				Timeout:     c.loadTimeout,
			}
		case <-ctx.Done():
			return fmt.Errorf("reader: waiting for views: %w", ctx.Err())
		}
	}
	return nil
}

func (c *Coordinator) pendingFrom(i int) int {
	pending := 0
	for _, e := range c.entries[i:] {
		if !isLoaded(e.renderer) {
			pending++
		}
	}
	return pending
}

func isLoaded(r Renderer) bool {
	select {
	case <-r.Loaded():
		return true
	default:
		return false
	}
}

// GlobalPagePosition sums the page counts of rendered views. The current
// page is the page count of the rendered views before the current one plus
// the current view's first displayed page. Views that were never rendered
// count as zero pages.
func (c *Coordinator) GlobalPagePosition() Position {
	var pos Position
	for i, e := range c.entries {
		if i == c.current {
			if pages := e.renderer.CurrentPage(); len(pages) > 0 {
				pos.CurrentPage = pos.NumPages + pages[0]
			}
		}
		if e.rendered {
			pos.NumPages += e.renderer.NumberOfPages()
		}
	}
	return pos
}

// ApplyPreferences pushes the viewer settings onto r.
func (c *Coordinator) ApplyPreferences(r Renderer) {
	r.SetSyntheticLayout(c.settings.SyntheticLayout)
	r.SetMargin(c.settings.Margin)
	r.SetTheme(c.settings.Theme)
	r.SetFontSize(c.settings.FontSize)
}

// NextPage turns the page in the current view, moving to the first page of
// the next view when the current one is on its last page. It does nothing
// while the current view is still loading.
func (c *Coordinator) NextPage() {
	r := c.CurrentView()
	if r == nil || !isLoaded(r) {
		return
	}
	before := r.CurrentPage()
	if len(before) > 0 && before[len(before)-1] < r.NumberOfPages() {
		r.NextPage()
		if !slices.Equal(before, r.CurrentPage()) {
			return
		}
	}
	if !c.HasNextView() {
		return
	}
	wasRendered := c.entries[c.current+1].rendered
	c.RenderNextView()
	if wasRendered {
		c.CurrentView().GoToPage(1)
	}
}

// PreviousPage turns back a page, moving to the last page of the previous
// view when the current one is on its first page.
func (c *Coordinator) PreviousPage() {
	r := c.CurrentView()
	if r == nil || !isLoaded(r) {
		return
	}
	before := r.CurrentPage()
	if len(before) > 0 && before[0] > 1 {
		r.PreviousPage()
		if !slices.Equal(before, r.CurrentPage()) {
			return
		}
	}
	if !c.HasPreviousView() {
		return
	}
	wasRendered := c.entries[c.current-1].rendered
	c.RenderPreviousView()
	if wasRendered {
		prev := c.CurrentView()
		prev.GoToPage(prev.NumberOfPages())
	}
}

// RenderSpineIndex shows the view covering spineIndex, positioned on
// fragment when given. It reports false when no view covers the index.
func (c *Coordinator) RenderSpineIndex(spineIndex int, fragment string) bool {
	for i, e := range c.entries {
		if !slices.Contains(e.spineIndexes, spineIndex) {
			continue
		}
		wasRendered := e.rendered
		c.RenderView(i, false, fragment)
		if wasRendered {
			if fragment != "" {
				e.renderer.GoToFragment(fragment)
			} else {
				e.renderer.GoToPage(1)
			}
		}
		return true
	}
	return false
}

// GoToGlobalPage shows global page n, counted over rendered views. It
// reports false when n is outside the known page range.
func (c *Coordinator) GoToGlobalPage(n int) bool {
	if n < 1 {
		return false
	}
	seen := 0
	for i, e := range c.entries {
		if !e.rendered {
			continue
		}
		count := e.renderer.NumberOfPages()
		if n <= seen+count {
			c.RenderView(i, false, "")
			e.renderer.GoToPage(n - seen)
			return true
		}
		seen += count
	}
	return false
}

func (c *Coordinator) hideRenderedViews() {
	for _, e := range c.entries {
		if e.rendered {
			e.renderer.Hide()
		}
	}
}

type discardSurface struct{}

func (discardSurface) Append(View) {}
