package pagination

import "strings"

// Direction is the page progression direction of a document. It decides on
// which physical side a page is drawn; page arithmetic does not depend on it.
type Direction int

const (
	LeftToRight Direction = iota
	RightToLeft
)

// ParseDirection parses an OPF page-progression-direction value.
// Anything other than "rtl" is left-to-right.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "rtl") {
		return RightToLeft
	}
	return LeftToRight
}

func (d Direction) String() string {
	if d == RightToLeft {
		return "rtl"
	}
	return "ltr"
}

// Sides maps a spread to the left and right slots of a two-page display.
// An empty slot is 0. A lone page sits on the recto: the right slot in
// left-to-right books, the left slot in right-to-left books.
func (d Direction) Sides(pages []int) (left, right int) {
	switch len(pages) {
	case 0:
		return 0, 0
	case 1:
		if d == RightToLeft {
			return pages[0], 0
		}
		return 0, pages[0]
	default:
		if d == RightToLeft {
			return pages[1], pages[0]
		}
		return pages[0], pages[1]
	}
}
