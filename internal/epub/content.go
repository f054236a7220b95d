package epub

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Content represents a parsed XHTML content document
type Content struct {
	ID        string            // Manifest ID
	Path      string            // File path
	Title     string            // <title> text
	Document  *goquery.Document // Parsed HTML document
	CSSLinks  []string          // Referenced CSS file paths
	ImageRefs []string          // Referenced image paths
	Anchors   []string          // element IDs usable as fragment targets, in document order
}

// LoadContent loads and parses an XHTML content file
// id: manifest item ID
// path: file path within EPUB (used for relative path resolution)
// content: XHTML file content
func LoadContent(id, docPath string, content []byte) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XHTML: %w", err)
	}

	c := &Content{
		ID:        id,
		Path:      docPath,
		Title:     strings.TrimSpace(doc.Find("head title").First().Text()),
		Document:  doc,
		CSSLinks:  []string{},
		ImageRefs: []string{},
		Anchors:   []string{},
	}

	baseDir := path.Dir(docPath)

	doc.Find("link[rel='stylesheet']").Each(func(i int, s *goquery.Selection) {
		if href, exists := s.Attr("href"); exists {
			c.CSSLinks = append(c.CSSLinks, ResolvePath(baseDir, href))
		}
	})

	// <img src> and SVG <image xlink:href>
	doc.Find("img, image").Each(func(i int, s *goquery.Selection) {
		if src := ImageSource(s); src != "" {
			c.ImageRefs = append(c.ImageRefs, ResolvePath(baseDir, src))
		}
	})

	doc.Find("body [id]").Each(func(i int, s *goquery.Selection) {
		if id, _ := s.Attr("id"); id != "" {
			c.Anchors = append(c.Anchors, id)
		}
	})

	return c, nil
}

// ImageSource returns the image URL of an <img> or SVG <image> element.
func ImageSource(s *goquery.Selection) string {
	for _, attr := range []string{"src", "xlink:href", "href"} {
		if v, ok := s.Attr(attr); ok && v != "" {
			return v
		}
	}
	return ""
}

// ResolvePath resolves a relative path against a base directory
// baseDir: base directory (e.g., "text" for "text/chapter1.xhtml")
// relPath: relative path (e.g., "../images/photo.jpg")
// returns: resolved path (e.g., "images/photo.jpg")
func ResolvePath(baseDir, relPath string) string {
	relPath, _ = splitFragment(relPath)
	if baseDir == "." {
		baseDir = ""
	}
	return path.Clean(path.Join(baseDir, relPath))
}
