package epub

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NCX represents the parsed navigation control structure from NCX or NAV document.
type NCX struct {
	UID       string
	DocTitle  string
	NavPoints []NavPoint
}

// NavPoint represents a single navigation point in the table of contents.
type NavPoint struct {
	ID          string
	PlayOrder   int
	Label       string
	ContentPath string // fragment-free, absolute path within EPUB
	Fragment    string // fragment identifier (without #)
	Children    []NavPoint
}

type ncxDocument struct {
	Head struct {
		Meta []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"head"`
	DocTitle struct {
		Text string `xml:"text"`
	} `xml:"docTitle"`
	NavMap struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	ID        string `xml:"id,attr"`
	PlayOrder string `xml:"playOrder,attr"`
	Label     struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

// LoadNCX loads the table of contents, preferring the NCX referenced by the
// spine and falling back to the EPUB 3 navigation document. It returns
// (nil, nil) when the book has neither.
func LoadNCX(r *EPUBReader, opf *OPF) (*NCX, error) {
	if opf.NCXPath != "" {
		data, err := r.ReadFile(opf.NCXPath)
		switch {
		case err == nil:
			return parseNCX(data, path.Dir(opf.NCXPath))
		case !errors.Is(err, ErrFileNotFound):
			return nil, fmt.Errorf("failed to read NCX: %w", err)
		}
	}

	navPath, ok := findNAVPath(opf)
	if !ok {
		return nil, nil
	}
	data, err := r.ReadFile(navPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read navigation document: %w", err)
	}
	return parseNAV(data, path.Dir(navPath))
}

// parseNCX parses NCX XML; content paths are resolved against baseDir.
func parseNCX(data []byte, baseDir string) (*NCX, error) {
	var doc ncxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}

	ncx := &NCX{DocTitle: strings.TrimSpace(doc.DocTitle.Text)}
	for _, m := range doc.Head.Meta {
		if m.Name == "dtb:uid" {
			ncx.UID = m.Content
		}
	}
	ncx.NavPoints = convertNavPoints(doc.NavMap.NavPoints, baseDir)
	return ncx, nil
}

func convertNavPoints(points []ncxNavPoint, baseDir string) []NavPoint {
	var out []NavPoint
	for _, p := range points {
		contentPath, fragment := splitFragment(p.Content.Src)
		order, _ := strconv.Atoi(p.PlayOrder)
		np := NavPoint{
			ID:        p.ID,
			PlayOrder: order,
			Label:     strings.TrimSpace(p.Label.Text),
			Fragment:  fragment,
			Children:  convertNavPoints(p.Children, baseDir),
		}
		if contentPath != "" {
			np.ContentPath = ResolvePath(baseDir, contentPath)
		}
		out = append(out, np)
	}
	return out
}

// findNAVPath returns the manifest href of the item with the "nav" property.
func findNAVPath(opf *OPF) (string, bool) {
	for _, id := range opf.ManifestOrder {
		if item := opf.Manifest[id]; hasProperty(item.Properties, "nav") {
			return item.Href, true
		}
	}
	for _, item := range opf.Manifest {
		if hasProperty(item.Properties, "nav") {
			return item.Href, true
		}
	}
	return "", false
}

// parseNAV parses the toc <nav> of an EPUB 3 navigation document.
func parseNAV(data []byte, baseDir string) (*NCX, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse navigation document: %w", err)
	}

	ncx := &NCX{DocTitle: strings.TrimSpace(doc.Find("head title").First().Text())}
	toc := doc.Find("nav").FilterFunction(func(i int, s *goquery.Selection) bool {
		epubType, _ := s.Attr("epub:type")
		return hasProperty(strings.Fields(epubType), "toc")
	}).First()
	if toc.Length() == 0 {
		return ncx, nil
	}

	order := 0
	var walk func(ol *goquery.Selection) []NavPoint
	walk = func(ol *goquery.Selection) []NavPoint {
		var points []NavPoint
		ol.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
			order++
			np := NavPoint{
				ID:        "nav-" + strconv.Itoa(order),
				PlayOrder: order,
			}
			if a := li.ChildrenFiltered("a").First(); a.Length() > 0 {
				np.Label = collapseSpace(a.Text())
				href, _ := a.Attr("href")
				contentPath, fragment := splitFragment(href)
				np.Fragment = fragment
				if contentPath != "" {
					np.ContentPath = ResolvePath(baseDir, contentPath)
				}
			} else {
				np.Label = collapseSpace(li.ChildrenFiltered("span").First().Text())
			}
			np.Children = walk(li.ChildrenFiltered("ol").First())
			points = append(points, np)
		})
		return points
	}
	ncx.NavPoints = walk(toc.Find("ol").First())
	return ncx, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// splitFragment splits a source path into the path and fragment identifier.
func splitFragment(src string) (path, fragment string) {
	if src == "" {
		return "", ""
	}
	parts := strings.SplitN(src, "#", 2)
	path = parts[0]
	if len(parts) == 2 {
		fragment = parts[1]
	}
	return path, fragment
}
