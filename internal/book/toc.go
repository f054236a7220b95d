package book

import (
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/yuanying/epubpager/internal/epub"
	"github.com/yuanying/epubpager/internal/reader"
)

// TOCEntry is one table of contents entry.
type TOCEntry struct {
	Label      string
	Depth      int // 0 for top-level entries
	Href       string
	Fragment   string
	SpineIndex int // -1 when the target is not a spine item
}

// buildTOC flattens the navigation tree depth first and resolves each
// target to its spine position.
func buildTOC(ncx *epub.NCX, spine []reader.SpineItem) []TOCEntry {
	if ncx == nil {
		return nil
	}
	index := make(map[string]int, len(spine))
	for _, item := range spine {
		index[item.Href] = item.Index
	}

	var out []TOCEntry
	var walk func(points []epub.NavPoint, depth int)
	walk = func(points []epub.NavPoint, depth int) {
		for _, p := range points {
			e := TOCEntry{
				Label:      p.Label,
				Depth:      depth,
				Href:       p.ContentPath,
				Fragment:   p.Fragment,
				SpineIndex: -1,
			}
			if i, ok := index[p.ContentPath]; ok {
				e.SpineIndex = i
			}
			out = append(out, e)
			walk(p.Children, depth+1)
		}
	}
	walk(ncx.NavPoints, 0)
	return out
}

// TOC returns the table of contents.
func (b *Book) TOC() []TOCEntry {
	return slices.Clone(b.toc)
}

// FindTOC returns the entry whose label best matches query. Exact matches
// win over prefix and substring matches, which win over the closest label
// by edit distance. Distant labels do not match. Entries outside the spine
// are never returned.
func (b *Book) FindTOC(query string) (TOCEntry, bool) {
	return findTOC(b.toc, query)
}

func findTOC(entries []TOCEntry, query string) (TOCEntry, bool) {
	q := normalizeLabel(query)
	if q == "" {
		return TOCEntry{}, false
	}

	const (
		rankExact = iota
		rankPrefix
		rankContains
		rankFuzzy
		rankNone
	)
	best, bestRank, bestDist := -1, rankNone, 0
	limit := max(2, len([]rune(q))/3)

	for i, e := range entries {
		if e.SpineIndex < 0 {
			continue
		}
		label := normalizeLabel(e.Label)
		rank, dist := rankNone, 0
		switch {
		case label == q:
			rank = rankExact
		case strings.HasPrefix(label, q):
			rank = rankPrefix
		case strings.Contains(label, q):
			rank = rankContains
		default:
			dist = levenshtein.ComputeDistance(label, q)
			if dist <= limit {
				rank = rankFuzzy
			}
		}
		if rank < bestRank || (rank == rankFuzzy && bestRank == rankFuzzy && dist < bestDist) {
			best, bestRank, bestDist = i, rank, dist
		}
	}
	if best < 0 {
		return TOCEntry{}, false
	}
	return entries[best], true
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
