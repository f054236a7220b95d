package book

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yuanying/epubpager/internal/reader"
	"github.com/yuanying/epubpager/internal/render"
)

// SessionOptions configures a reading session.
type SessionOptions struct {
	Settings    reader.Settings
	Width       int
	Height      int
	LoadTimeout time.Duration
	Annotations reader.Annotations
	Surface     reader.Surface
	Logger      *slog.Logger
}

// Session is one reading session over a book: a coordinator and the text
// renderers it drives. Like the coordinator it has a single owner.
type Session struct {
	ID          string
	Coordinator *reader.Coordinator

	book      *Book
	renderers []*render.TextRenderer
	logger    *slog.Logger
}

// NewSession creates a coordinator over the book's spine with one text
// renderer per reflowable item. Views are not rendered yet.
func (b *Book) NewSession(opts SessionOptions) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = b.logger
	}
	s := &Session{
		ID:   uuid.NewString(),
		book: b,
	}
	s.logger = logger.With("session", s.ID)

	cfg := render.Config{
		Source:    b.reader,
		Direction: b.direction,
		Width:     opts.Width,
		Height:    opts.Height,
		Logger:    s.logger,
	}
	c, err := reader.New(reader.Options{
		Spine:       b.spine,
		Settings:    opts.Settings,
		Annotations: opts.Annotations,
		Bindings:    b.bindings,
		Factory:     cfg.Factory(func(r *render.TextRenderer) { s.renderers = append(s.renderers, r) }),
		Surface:     opts.Surface,
		LoadTimeout: opts.LoadTimeout,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.Coordinator = c
	s.logger.Debug("session started", "views", c.Len())
	return s, nil
}

// Book returns the book being read.
func (s *Session) Book() *Book {
	return s.book
}

// Renderers returns the text renderers in view order.
func (s *Session) Renderers() []*render.TextRenderer {
	return s.renderers
}

// Current returns the renderer of the visible view.
func (s *Session) Current() *render.TextRenderer {
	i := s.Coordinator.CurrentIndex()
	if i < 0 || i >= len(s.renderers) {
		return nil
	}
	return s.renderers[i]
}

// Frame returns the text of the visible page or spread.
func (s *Session) Frame() string {
	if r := s.Current(); r != nil {
		return r.View().String()
	}
	return ""
}

// Resize changes the viewport of every view.
func (s *Session) Resize(width, height int) {
	for _, r := range s.renderers {
		r.Resize(width, height)
	}
}

// Jump shows the target of a table of contents entry. It reports false when
// the target is not displayed by any view.
func (s *Session) Jump(e TOCEntry) bool {
	if e.SpineIndex < 0 {
		return false
	}
	ok := s.Coordinator.RenderSpineIndex(e.SpineIndex, e.Fragment)
	if ok {
		s.logger.Debug("jumped to table of contents entry", "label", e.Label, "spine_index", e.SpineIndex)
	}
	return ok
}
