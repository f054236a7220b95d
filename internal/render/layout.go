package render

import (
	"path"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/yuanying/epubpager/internal/epub"
	"github.com/yuanying/epubpager/internal/reader"
)

type blockKind int

const (
	kindText blockKind = iota
	kindHeading
	kindQuote
	kindPre
	kindImage
	kindObject
	kindRule
)

// block is one laid-out unit of a content document.
type block struct {
	kind      blockKind
	text      string
	anchors   []string // element IDs that start in this block
	highlight bool
	image     string // resolved archive path for kindImage
	pageBreak bool   // starts on a new page
}

// line is one row of wrapped output.
type line struct {
	text      string
	kind      blockKind
	highlight bool
	anchors   []string
	pageBreak bool
}

// blockTags start a new block.
var blockTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Aside:      true,
	atom.Header:     true,
	atom.Footer:     true,
	atom.Nav:        true,
	atom.Figure:     true,
	atom.Figcaption: true,
	atom.Li:         true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Dl:         true,
	atom.Dt:         true,
	atom.Dd:         true,
	atom.Tr:         true,
	atom.Table:      true,
	atom.Body:       true,
}

var headingTags = map[atom.Atom]bool{
	atom.H1: true,
	atom.H2: true,
	atom.H3: true,
	atom.H4: true,
	atom.H5: true,
	atom.H6: true,
}

// skipTags never produce text.
var skipTags = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Template: true,
	atom.Noscript: true,
}

// blockBuilder walks a parsed document and collects blocks.
type blockBuilder struct {
	baseDir    string
	highlights map[string]bool
	bindings   []reader.Binding
	styles     styleSheet

	blocks    []block
	buf       strings.Builder
	kind      blockKind
	anchors   []string
	highlight int
	newPage   bool
}

// buildBlocks converts a content document into blocks. Elements whose ID is
// in highlights are marked, along with everything they contain. Elements
// hidden by styles are dropped.
func buildBlocks(content *epub.Content, styles styleSheet, highlights []string, bindings []reader.Binding) []block {
	b := &blockBuilder{
		baseDir:    path.Dir(content.Path),
		highlights: make(map[string]bool, len(highlights)),
		bindings:   bindings,
		styles:     styles,
	}
	for _, id := range highlights {
		b.highlights[id] = true
	}

	body := content.Document.Find("body").First()
	if body.Length() == 0 {
		body = content.Document.Selection
	}
	for _, n := range body.Nodes {
		b.walk(n)
	}
	b.flush()

	if len(b.anchors) > 0 {
		if len(b.blocks) == 0 {
			b.blocks = append(b.blocks, block{kind: kindText})
		}
		last := &b.blocks[len(b.blocks)-1]
		last.anchors = append(last.anchors, b.anchors...)
	}
	return b.blocks
}

func (b *blockBuilder) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.text(n.Data)
		return
	case html.ElementNode:
	case html.DocumentNode:
		b.children(n)
		return
	default:
		return
	}

	a := n.DataAtom
	if skipTags[a] {
		return
	}
	st := b.styles.styleOf(n)
	if st.hidden {
		return
	}
	if st.breakBefore {
		b.flush()
		b.newPage = true
	}

	marked := false
	if id := attr(n, "id"); id != "" {
		b.anchors = append(b.anchors, id)
		if b.highlights[id] {
			b.highlight++
			marked = true
		}
	}
	defer func() {
		if marked {
			b.flush()
			b.highlight--
		}
		if st.breakAfter {
			b.flush()
			b.newPage = true
		}
	}()

	switch {
	case a == atom.Br:
		b.buf.WriteByte('\n')
	case a == atom.Hr:
		b.flush()
		b.emit(block{kind: kindRule})
	case a == atom.Img || a == atom.Image:
		b.flush()
		src := epub.ImageSource(goquery.NewDocumentFromNode(n).Selection)
		if src == "" {
			return
		}
		b.emit(block{kind: kindImage, text: attr(n, "alt"), image: epub.ResolvePath(b.baseDir, src)})
	case a == atom.Svg:
		b.flush()
		b.children(n)
		b.flush()
	case a == atom.Object || a == atom.Embed:
		mediaType := attr(n, "type")
		if handler, ok := b.handlerFor(mediaType); ok {
			b.flush()
			b.emit(block{kind: kindObject, text: "[" + mediaType + " handled by " + handler + "]"})
			return
		}
		b.children(n)
	case headingTags[a]:
		b.section(kindHeading, n)
	case a == atom.Blockquote:
		b.section(kindQuote, n)
	case a == atom.Pre:
		b.flush()
		outer := b.kind
		b.kind = kindPre
		b.buf.WriteString(textContent(n))
		b.flush()
		b.kind = outer
	case blockTags[a]:
		b.section(b.kind, n)
	default:
		b.children(n)
	}
}

// section lays out the children of n as blocks of the given kind.
func (b *blockBuilder) section(kind blockKind, n *html.Node) {
	b.flush()
	outer := b.kind
	b.kind = kind
	b.children(n)
	b.flush()
	b.kind = outer
}

func (b *blockBuilder) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
}

// text appends a text node with whitespace collapsed.
func (b *blockBuilder) text(s string) {
	if b.kind == kindPre {
		b.buf.WriteString(s)
		return
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" && b.buf.Len() > 0 {
			b.buf.WriteByte(' ')
		}
		return
	}
	if startsWithSpace(s) && b.buf.Len() > 0 {
		b.buf.WriteByte(' ')
	}
	b.buf.WriteString(strings.Join(fields, " "))
	if endsWithSpace(s) {
		b.buf.WriteByte(' ')
	}
}

func (b *blockBuilder) flush() {
	text := b.buf.String()
	b.buf.Reset()
	kind := b.kind
	if kind != kindPre {
		text = cleanLines(text)
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	b.emit(block{kind: kind, text: text})
}

func (b *blockBuilder) emit(bl block) {
	bl.anchors = append(bl.anchors, b.anchors...)
	b.anchors = nil
	bl.highlight = bl.highlight || b.highlight > 0
	bl.pageBreak = b.newPage && len(b.blocks) > 0
	b.newPage = false
	b.blocks = append(b.blocks, bl)
}

func (b *blockBuilder) handlerFor(mediaType string) (string, bool) {
	if mediaType == "" {
		return "", false
	}
	for _, binding := range b.bindings {
		if strings.EqualFold(binding.MediaType, mediaType) {
			return binding.Handler, true
		}
	}
	return "", false
}

// wrapBlocks lays blocks out into lines of at most width cells, separating
// blocks with a blank line unless the block starts a new page. Image blocks
// are expanded through preview.
func wrapBlocks(blocks []block, width int, preview func(block) []string) []line {
	width = max(width, 1)
	var lines []line
	for i, bl := range blocks {
		if i > 0 && !bl.pageBreak {
			lines = append(lines, line{})
		}
		start := len(lines)

		var rows []string
		switch bl.kind {
		case kindRule:
			rows = []string{strings.Repeat("-", min(width, 40))}
		case kindImage:
			rows = preview(bl)
		case kindQuote:
			for _, r := range wrapText(bl.text, max(width-2, 1)) {
				rows = append(rows, "> "+r)
			}
		case kindPre:
			for _, r := range strings.Split(strings.TrimRight(bl.text, "\n"), "\n") {
				rows = append(rows, runewidth.Truncate(r, width, ""))
			}
		default:
			rows = wrapText(bl.text, width)
		}
		if len(rows) == 0 {
			rows = []string{""}
		}
		for _, r := range rows {
			lines = append(lines, line{text: r, kind: bl.kind, highlight: bl.highlight})
		}
		lines[start].anchors = slices.Clone(bl.anchors)
		lines[start].pageBreak = bl.pageBreak
	}
	return lines
}

// breakPages pads lines with blank rows so that every forced page break
// starts a page of the given height.
func breakPages(lines []line, rows int) []line {
	rows = max(rows, 1)
	out := make([]line, 0, len(lines))
	for _, l := range lines {
		for l.pageBreak && len(out)%rows != 0 {
			out = append(out, line{})
		}
		out = append(out, l)
	}
	return out
}

// wrapText breaks text into rows no wider than width cells. Explicit line
// breaks are kept and words wider than a row are split.
func wrapText(text string, width int) []string {
	var rows []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			rows = append(rows, "")
			continue
		}
		var cur strings.Builder
		curWidth := 0
		for _, w := range words {
			for runewidth.StringWidth(w) > width {
				if curWidth > 0 {
					rows = append(rows, cur.String())
					cur.Reset()
					curWidth = 0
				}
				head := runewidth.Truncate(w, width, "")
				if head == "" {
					// A single rune wider than the row.
					_, size := firstRune(w)
					head = w[:size]
				}
				rows = append(rows, head)
				w = w[len(head):]
			}
			if w == "" {
				continue
			}
			ww := runewidth.StringWidth(w)
			switch {
			case curWidth == 0:
				cur.WriteString(w)
				curWidth = ww
			case curWidth+1+ww <= width:
				cur.WriteByte(' ')
				cur.WriteString(w)
				curWidth += 1 + ww
			default:
				rows = append(rows, cur.String())
				cur.Reset()
				cur.WriteString(w)
				curWidth = ww
			}
		}
		if curWidth > 0 {
			rows = append(rows, cur.String())
		}
	}
	return rows
}

func firstRune(s string) (rune, int) {
	for i, r := range s {
		if i > 0 {
			return r, i
		}
	}
	return 0, len(s)
}

// cleanLines collapses spaces within each explicit line and drops empty
// leading and trailing lines.
func cleanLines(s string) string {
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		parts[i] = strings.Join(strings.Fields(p), " ")
	}
	return strings.Trim(strings.Join(parts, "\n"), "\n")
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s[:1], " \t\r\n") == ""
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s[len(s)-1:], " \t\r\n") == ""
}
