// Package epubtest builds small EPUB archives for tests.
package epubtest

import (
	"archive/zip"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// ContainerXML points at OEBPS/content.opf.
const ContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// Chapter is one spine item of a generated book.
type Chapter struct {
	ID         string // manifest id; defaults to ch<N>
	Href       string // relative to OEBPS; defaults to <ID>.xhtml
	Title      string
	Body       string // inner XHTML of <body>
	Properties string // itemref properties
	Linear     string // itemref linear attribute
}

// Book describes a generated EPUB 3 package.
type Book struct {
	Title     string
	Direction string // spine page-progression-direction
	Layout    string // package rendition:layout
	Flow      string // package rendition:flow
	Chapters  []Chapter
	Resources map[string][]byte // extra files relative to OEBPS
	NCX       bool              // add a toc.ncx listing the chapters
	Nav       bool              // add an EPUB 3 navigation document
}

// Write stores files in a new EPUB under t.TempDir and returns its path.
// The mimetype entry is written first and uncompressed; container.xml is
// added unless files provides one.
func Write(t testing.TB, files map[string][]byte) string {
	t.Helper()
	epubPath := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(epubPath)
	if err != nil {
		t.Fatalf("failed to create test epub: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("failed to create mimetype: %v", err)
	}
	if _, err := mw.Write([]byte("application/epub+zip")); err != nil {
		t.Fatalf("failed to write mimetype: %v", err)
	}

	if _, ok := files["META-INF/container.xml"]; !ok {
		files = withFile(files, "META-INF/container.xml", []byte(ContainerXML))
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return epubPath
}

// WriteBook generates b and writes it with Write.
func WriteBook(t testing.TB, b Book) string {
	t.Helper()
	return Write(t, b.Files())
}

// XHTML wraps body in a minimal XHTML document.
func XHTML(title, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>` + title + `</title></head>
<body>` + body + `</body>
</html>`
}

// Files renders the book into archive entries.
func (b Book) Files() map[string][]byte {
	files := map[string][]byte{}
	chapters := b.normalizedChapters()

	var manifest, spine, meta strings.Builder
	for _, ch := range chapters {
		fmt.Fprintf(&manifest, "    <item id=%q href=%q media-type=\"application/xhtml+xml\"/>\n", ch.ID, ch.Href)
		attrs := ""
		if ch.Properties != "" {
			attrs += fmt.Sprintf(" properties=%q", ch.Properties)
		}
		if ch.Linear != "" {
			attrs += fmt.Sprintf(" linear=%q", ch.Linear)
		}
		fmt.Fprintf(&spine, "    <itemref idref=%q%s/>\n", ch.ID, attrs)
		files["OEBPS/"+ch.Href] = []byte(XHTML(ch.Title, ch.Body))
	}

	resources := make([]string, 0, len(b.Resources))
	for name := range b.Resources {
		resources = append(resources, name)
	}
	sort.Strings(resources)
	for i, name := range resources {
		fmt.Fprintf(&manifest, "    <item id=\"res%d\" href=%q media-type=%q/>\n", i+1, name, mediaType(name))
		files["OEBPS/"+name] = b.Resources[name]
	}

	spineAttrs := ""
	if b.NCX {
		manifest.WriteString("    <item id=\"ncx\" href=\"toc.ncx\" media-type=\"application/x-dtbncx+xml\"/>\n")
		spineAttrs += ` toc="ncx"`
		files["OEBPS/toc.ncx"] = []byte(ncxFor(chapters))
	}
	if b.Nav {
		manifest.WriteString("    <item id=\"nav\" href=\"nav.xhtml\" media-type=\"application/xhtml+xml\" properties=\"nav\"/>\n")
		files["OEBPS/nav.xhtml"] = []byte(navFor(chapters))
	}
	if b.Direction != "" {
		spineAttrs += fmt.Sprintf(" page-progression-direction=%q", b.Direction)
	}
	if b.Layout != "" {
		fmt.Fprintf(&meta, "    <meta property=\"rendition:layout\">%s</meta>\n", b.Layout)
	}
	if b.Flow != "" {
		fmt.Fprintf(&meta, "    <meta property=\"rendition:flow\">%s</meta>\n", b.Flow)
	}

	title := b.Title
	if title == "" {
		title = "Test Book"
	}
	files["OEBPS/content.opf"] = []byte(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>` + title + `</dc:title>
    <dc:language>en</dc:language>
    <dc:identifier id="uid">urn:uuid:test-book</dc:identifier>
` + meta.String() + `  </metadata>
  <manifest>
` + manifest.String() + `  </manifest>
  <spine` + spineAttrs + `>
` + spine.String() + `  </spine>
</package>`)

	return files
}

func (b Book) normalizedChapters() []Chapter {
	out := make([]Chapter, len(b.Chapters))
	for i, ch := range b.Chapters {
		if ch.ID == "" {
			ch.ID = fmt.Sprintf("ch%d", i+1)
		}
		if ch.Href == "" {
			ch.Href = ch.ID + ".xhtml"
		}
		if ch.Title == "" {
			ch.Title = fmt.Sprintf("Chapter %d", i+1)
		}
		out[i] = ch
	}
	return out
}

func ncxFor(chapters []Chapter) string {
	var points strings.Builder
	for i, ch := range chapters {
		fmt.Fprintf(&points, `    <navPoint id="np%d" playOrder="%d">
      <navLabel><text>%s</text></navLabel>
      <content src=%q/>
    </navPoint>
`, i+1, i+1, ch.Title, ch.Href)
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head><meta name="dtb:uid" content="urn:uuid:test-book"/></head>
  <docTitle><text>Test Book</text></docTitle>
  <navMap>
` + points.String() + `  </navMap>
</ncx>`
}

func navFor(chapters []Chapter) string {
	var items strings.Builder
	for _, ch := range chapters {
		fmt.Fprintf(&items, "    <li><a href=%q>%s</a></li>\n", ch.Href, ch.Title)
	}
	return XHTML("Contents", `<nav epub:type="toc"><ol>
`+items.String()+`</ol></nav>`)
}

func mediaType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".css":
		return "text/css"
	case ".xhtml", ".html":
		return "application/xhtml+xml"
	default:
		return "application/octet-stream"
	}
}

func withFile(files map[string][]byte, name string, data []byte) map[string][]byte {
	out := make(map[string][]byte, len(files)+1)
	for k, v := range files {
		out[k] = v
	}
	out[name] = data
	return out
}
