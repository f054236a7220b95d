package pagination

import (
	"errors"
	"fmt"
)

// ErrInvalidPageSet is returned by Set when the page set does not fit the
// total page count.
var ErrInvalidPageSet = errors.New("pagination: invalid page set")

// State holds the page division of one paginated document and the page(s)
// currently displayed. Page numbers are 1-indexed.
//
// In single-page mode the current set holds one page. In two-page
// ("synthetic spread") mode it holds a consecutive pair [n, n+1]; the only
// singleton allowed in two-page mode is a document boundary, e.g. page 1
// displayed alone when the first page is offset.
//
// A State is not safe for concurrent use.
type State struct {
	total int
	pages []int
}

// NewState creates a State. It returns an error wrapping ErrInvalidPageSet
// when pages does not fit total.
func NewState(total int, pages []int) (*State, error) {
	s := &State{}
	if err := s.Set(total, pages); err != nil {
		return nil, err
	}
	return s, nil
}

// Set replaces the state. On an inconsistent total/pages pair the state is
// left unchanged and an error wrapping ErrInvalidPageSet is returned.
func (s *State) Set(total int, pages []int) error {
	if err := validate(total, pages); err != nil {
		return err
	}
	s.total = total
	s.pages = append([]int(nil), pages...)
	return nil
}

func validate(total int, pages []int) error {
	if total < 0 {
		return fmt.Errorf("%w: negative total %d", ErrInvalidPageSet, total)
	}
	if total == 0 {
		if len(pages) != 0 {
			return fmt.Errorf("%w: pages %v with zero total", ErrInvalidPageSet, pages)
		}
		return nil
	}
	if len(pages) < 1 || len(pages) > 2 {
		return fmt.Errorf("%w: %d pages, want 1 or 2", ErrInvalidPageSet, len(pages))
	}
	for _, p := range pages {
		if p < 1 || p > total {
			return fmt.Errorf("%w: page %d outside [1, %d]", ErrInvalidPageSet, p, total)
		}
	}
	if len(pages) == 2 && pages[1] != pages[0]+1 {
		return fmt.Errorf("%w: pages %v are not consecutive", ErrInvalidPageSet, pages)
	}
	return nil
}

// TotalPages returns the number of pages in the document.
func (s *State) TotalPages() int {
	return s.total
}

// Pages returns a copy of the current page set.
func (s *State) Pages() []int {
	return append([]int(nil), s.pages...)
}

// First returns the lowest displayed page, or 0 when nothing is displayed.
func (s *State) First() int {
	if len(s.pages) == 0 {
		return 0
	}
	return s.pages[0]
}

// Last returns the highest displayed page, or 0 when nothing is displayed.
func (s *State) Last() int {
	if len(s.pages) == 0 {
		return 0
	}
	return s.pages[len(s.pages)-1]
}

// ToggleTwoUp switches between single and two-page display and returns the
// new page set. isTwoUp reports the mode being left.
//
// Expanding pairs the current page with its neighbour so that spreads start
// on odd pages, or on even pages when firstPageIsOffset is set. Collapsing
// keeps the first page of the pair.
func (s *State) ToggleTwoUp(isTwoUp, firstPageIsOffset bool) []int {
	if s.total == 0 || len(s.pages) == 0 {
		return s.Pages()
	}
	if isTwoUp {
		s.pages = []int{s.pages[0]}
		return s.Pages()
	}
	s.pages = spreadFor(s.pages[0], s.total, firstPageIsOffset)
	return s.Pages()
}

// GoTo displays page, or the spread containing it when isTwoUp is set.
// page is clamped to the document.
func (s *State) GoTo(page int, isTwoUp, firstPageIsOffset bool) []int {
	if s.total == 0 {
		return s.Pages()
	}
	page = max(1, min(page, s.total))
	if isTwoUp {
		s.pages = spreadFor(page, s.total, firstPageIsOffset)
	} else {
		s.pages = []int{page}
	}
	return s.Pages()
}

// NextPage advances by one page, or by one spread when isTwoUp is set. It is
// a no-op when any resulting page would pass the last page.
func (s *State) NextPage(isTwoUp bool) []int {
	if next, ok := s.advance(isTwoUp); ok {
		s.pages = next
	}
	return s.Pages()
}

// PrevPage moves back by one page, or by one spread when isTwoUp is set. It
// is a no-op when any resulting page would fall below 1.
func (s *State) PrevPage(isTwoUp bool) []int {
	if prev, ok := s.retreat(isTwoUp); ok {
		s.pages = prev
	}
	return s.Pages()
}

// CanAdvance reports whether NextPage would move.
func (s *State) CanAdvance(isTwoUp bool) bool {
	_, ok := s.advance(isTwoUp)
	return ok
}

// CanRetreat reports whether PrevPage would move.
func (s *State) CanRetreat(isTwoUp bool) bool {
	_, ok := s.retreat(isTwoUp)
	return ok
}

func (s *State) advance(isTwoUp bool) ([]int, bool) {
	if s.total == 0 || len(s.pages) == 0 {
		return nil, false
	}
	var next []int
	switch {
	case !isTwoUp:
		next = []int{s.pages[0] + 1}
	case len(s.pages) == 1:
		// Leaving the offset boundary: [1] -> [2, 3].
		next = []int{s.pages[0] + 1, s.pages[0] + 2}
	default:
		next = []int{s.pages[0] + 2, s.pages[1] + 2}
	}
	if next[len(next)-1] > s.total {
		return nil, false
	}
	return next, true
}

func (s *State) retreat(isTwoUp bool) ([]int, bool) {
	if s.total == 0 || len(s.pages) == 0 {
		return nil, false
	}
	first := s.pages[0]
	switch {
	case !isTwoUp:
		if first-1 < 1 {
			return nil, false
		}
		return []int{first - 1}, true
	case first-2 >= 1:
		return []int{first - 2, first - 1}, true
	case first == 2 && len(s.pages) == 2:
		// Back onto the offset boundary: [2, 3] -> [1].
		return []int{1}, true
	default:
		return nil, false
	}
}

// spreadFor returns the spread containing page p.
func spreadFor(p, total int, firstPageIsOffset bool) []int {
	left := p
	if (p%2 == 0) != firstPageIsOffset {
		left = p - 1
	}
	right := left + 1
	if right > total {
		left, right = p-1, p
	}
	if left < 1 {
		return []int{p}
	}
	return []int{left, right}
}
