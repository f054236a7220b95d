// Package book opens EPUB publications and wires them to the pagination
// coordinator.
package book

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/yuanying/epubpager/internal/epub"
	"github.com/yuanying/epubpager/internal/pagination"
	"github.com/yuanying/epubpager/internal/reader"
)

// Book is an opened publication.
type Book struct {
	reader    *epub.EPUBReader
	opf       *epub.OPF
	spine     []reader.SpineItem
	bindings  []reader.Binding
	toc       []TOCEntry
	direction pagination.Direction
	logger    *slog.Logger
}

// Open opens the EPUB at path and reads its package document and table of
// contents.
func Open(path string, logger *slog.Logger) (*Book, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r, err := epub.Open(path)
	if err != nil {
		return nil, err
	}
	b, err := newBook(r, logger.With("book", path))
	if err != nil {
		r.Close()
		return nil, err
	}
	return b, nil
}

func newBook(r *epub.EPUBReader, logger *slog.Logger) (*Book, error) {
	opf, err := r.Package()
	if err != nil {
		return nil, err
	}

	b := &Book{
		reader:    r,
		opf:       opf,
		direction: pagination.ParseDirection(opf.PageProgressionDirection),
		logger:    logger,
	}
	b.spine = b.buildSpine()
	if len(b.spine) == 0 {
		return nil, fmt.Errorf("no displayable spine items found")
	}
	b.bindings = b.buildBindings()

	ncx, err := epub.LoadNCX(r, opf)
	if err != nil {
		logger.Warn("failed to load table of contents", "error", err)
	}
	b.toc = buildTOC(ncx, b.spine)

	logger.Debug("book opened",
		"title", opf.Metadata.Title,
		"spine_items", len(b.spine),
		"toc_entries", len(b.toc),
		"direction", b.direction,
		"layout", opf.Rendition.Layout,
	)
	return b, nil
}

// buildSpine converts the OPF spine into the coordinator's spine manifest.
// Items missing from the manifest are skipped, as are non-XHTML items unless
// they are fixed layout (SVG pages of a pre-paginated run). Index keeps the
// OPF spine position.
func (b *Book) buildSpine() []reader.SpineItem {
	var items []reader.SpineItem
	for i, ref := range b.opf.Spine {
		manifestItem, ok := b.opf.Manifest[ref.IDRef]
		if !ok {
			b.logger.Warn("spine item not found in manifest, skipping", "idref", ref.IDRef)
			continue
		}
		fixed := b.opf.IsFixedLayout(ref)
		if !fixed && !isXHTML(manifestItem.MediaType) {
			b.logger.Warn("spine item is not XHTML, skipping", "href", manifestItem.Href, "media_type", manifestItem.MediaType)
			continue
		}
		items = append(items, reader.SpineItem{
			Index:       i,
			IDRef:       ref.IDRef,
			Href:        manifestItem.Href,
			MediaType:   manifestItem.MediaType,
			Linear:      ref.Linear,
			FixedLayout: fixed,
			Scroll:      b.opf.ShouldScroll(ref),
			PageSpread:  b.opf.PageSpread(ref),
		})
	}
	return items
}

// buildBindings resolves <bindings> handlers to their manifest paths.
func (b *Book) buildBindings() []reader.Binding {
	var out []reader.Binding
	for _, binding := range b.opf.Bindings {
		handler := binding.Handler
		if item, ok := b.opf.Manifest[handler]; ok {
			handler = item.Href
		}
		out = append(out, reader.Binding{MediaType: binding.MediaType, Handler: handler})
	}
	return out
}

// Close closes the underlying archive.
func (b *Book) Close() error {
	return b.reader.Close()
}

// Package returns the parsed package document.
func (b *Book) Package() *epub.OPF {
	return b.opf
}

// OPFPath returns the archive path of the package document.
func (b *Book) OPFPath() string {
	return b.reader.OPFPath()
}

// LoadContent reads and parses the content document of item.
func (b *Book) LoadContent(item reader.SpineItem) (*epub.Content, error) {
	data, err := b.reader.ReadFile(item.Href)
	if err != nil {
		return nil, err
	}
	return epub.LoadContent(item.IDRef, item.Href, data)
}

// Metadata returns the package metadata.
func (b *Book) Metadata() epub.Metadata {
	return b.opf.Metadata
}

// Title returns the book title.
func (b *Book) Title() string {
	return b.opf.Metadata.Title
}

// Direction returns the page progression direction.
func (b *Book) Direction() pagination.Direction {
	return b.direction
}

// Spine returns the spine manifest.
func (b *Book) Spine() []reader.SpineItem {
	return slices.Clone(b.spine)
}

// Bindings returns the media type handlers declared by the package.
func (b *Book) Bindings() []reader.Binding {
	return slices.Clone(b.bindings)
}

// SpineIndexOf returns the spine position of the content document at href.
func (b *Book) SpineIndexOf(href string) (int, bool) {
	href = strings.TrimPrefix(href, "./")
	for _, item := range b.spine {
		if item.Href == href {
			return item.Index, true
		}
	}
	return 0, false
}

// Highlights maps spine positions to highlighted element IDs.
type Highlights map[int][]string

// Highlights implements reader.Annotations.
func (h Highlights) Highlights(spineIndex int) []string {
	return h[spineIndex]
}

// ParseHighlights resolves "path#id" references, with paths relative to the
// archive root. Unknown documents are reported as an error.
func (b *Book) ParseHighlights(refs []string) (Highlights, error) {
	h := Highlights{}
	for _, ref := range refs {
		href, id, ok := strings.Cut(ref, "#")
		if !ok || id == "" {
			return nil, fmt.Errorf("highlight %q: want path#id", ref)
		}
		idx, found := b.SpineIndexOf(href)
		if !found {
			return nil, fmt.Errorf("highlight %q: %s is not in the spine", ref, href)
		}
		h[idx] = append(h[idx], id)
	}
	return h, nil
}

func isXHTML(mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	return mt == "application/xhtml+xml" || mt == "text/html"
}
