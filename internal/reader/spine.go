package reader

// Kind classifies a run of spine items by how it must be displayed.
type Kind int

const (
	KindReflowable Kind = iota
	KindFixedLayoutRun
	KindScrolling
)

func (k Kind) String() string {
	switch k {
	case KindReflowable:
		return "reflowable"
	case KindFixedLayoutRun:
		return "fixed-layout"
	case KindScrolling:
		return "scrolling"
	default:
		return "unknown"
	}
}

// Segment is a classified run of spine items. Reflowable and scrolling
// segments hold exactly one item; a fixed-layout segment holds every
// consecutive fixed-layout item.
type Segment struct {
	Kind  Kind
	Items []SpineItem
}

// Start returns the spine index of the first item.
func (s Segment) Start() int {
	return s.Items[0].Index
}

// End returns the spine index of the last item.
func (s Segment) End() int {
	return s.Items[len(s.Items)-1].Index
}

// Classify splits the spine into segments in spine order.
// Fixed layout takes precedence over scrolling.
func Classify(spine []SpineItem) []Segment {
	var segments []Segment
	for i := 0; i < len(spine); i++ {
		item := spine[i]
		switch {
		case item.FixedLayout:
			start := i
			for i+1 < len(spine) && spine[i+1].FixedLayout {
				i++
			}
			segments = append(segments, Segment{
				Kind:  KindFixedLayoutRun,
				Items: append([]SpineItem(nil), spine[start:i+1]...),
			})
		case item.Scroll:
			segments = append(segments, Segment{Kind: KindScrolling, Items: []SpineItem{item}})
		default:
			segments = append(segments, Segment{Kind: KindReflowable, Items: []SpineItem{item}})
		}
	}
	return segments
}
