// Package feed pages through the review phase and then the product phase
// of the viewer. Both phases live in one slice; the phase boundary is the
// index of the first product slide.
package feed

import (
	"errors"

	"storeviewer/internal/viewer/media"
)

var ErrEmptyFeed = errors.New("feed has no slides with media")

type Phase string

const (
	PhaseReviews  Phase = "reviews"
	PhaseProducts Phase = "products"
)

type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

func (d Direction) Valid() bool { return d == Next || d == Prev }

type State struct {
	Phase      Phase `json:"phase"`
	SlideIndex int   `json:"slide_index"`
	MediaIndex int   `json:"media_index"`
	IsOpen     bool  `json:"is_open"`
}

// Start names the slide the viewer opens on. An empty SlideID means the
// first slide of Phase.
type Start struct {
	Phase   Phase  `json:"phase"`
	SlideID string `json:"slide_id,omitempty"`
}

type Navigator struct {
	slides   []media.Slide
	boundary int
	pos      int
	carousel Carousel
	open     bool
}

// New takes slides that already passed the media filter; see
// media.ReviewSlides and media.ProductSlides.
func New(reviews, products []media.Slide) *Navigator {
	slides := make([]media.Slide, 0, len(reviews)+len(products))
	slides = append(slides, reviews...)
	slides = append(slides, products...)

	return &Navigator{
		slides:   slides,
		boundary: len(reviews),
	}
}

func (n *Navigator) reviewCount() int  { return n.boundary }
func (n *Navigator) productCount() int { return len(n.slides) - n.boundary }

func (n *Navigator) Open(start Start) (State, error) {
	if len(n.slides) == 0 {
		return State{}, ErrEmptyFeed
	}

	phase := start.Phase
	if phase != PhaseProducts {
		phase = PhaseReviews
	}
	if phase == PhaseReviews && n.reviewCount() == 0 {
		phase = PhaseProducts
	}
	if phase == PhaseProducts && n.productCount() == 0 {
		phase = PhaseReviews
	}

	lo, hi := n.bounds(phase)
	pos := lo
	if start.SlideID != "" {
		for i := lo; i < hi; i++ {
			if n.slides[i].ID == start.SlideID {
				pos = i
				break
			}
		}
	}

	n.open = true
	n.moveTo(pos)
	return n.State(), nil
}

func (n *Navigator) Close() {
	n.open = false
	n.pos = 0
	n.carousel = Carousel{}
}

func (n *Navigator) IsOpen() bool { return n.open }

// Advance moves one slide within the phase, crossing the review/product
// boundary when it sits at the end of a phase and the other phase is
// non-empty. Requests past the ends of the feed are no-ops.
func (n *Navigator) Advance(dir Direction) State {
	if !n.open || len(n.slides) == 0 {
		return n.State()
	}

	switch dir {
	case Next:
		if n.pos+1 < len(n.slides) {
			n.moveTo(n.pos + 1)
		}
	case Prev:
		if n.pos > 0 {
			n.moveTo(n.pos - 1)
		}
	}
	return n.State()
}

func (n *Navigator) AdvanceMedia(dir Direction) int {
	if !n.open {
		return 0
	}
	return n.carousel.Advance(dir)
}

func (n *Navigator) SelectMedia(index int) int {
	if !n.open {
		return 0
	}
	return n.carousel.Select(index)
}

func (n *Navigator) State() State {
	if !n.open {
		return State{Phase: PhaseReviews}
	}
	phase := PhaseReviews
	idx := n.pos
	if n.pos >= n.boundary {
		phase = PhaseProducts
		idx = n.pos - n.boundary
	}
	return State{
		Phase:      phase,
		SlideIndex: idx,
		MediaIndex: n.carousel.Index(),
		IsOpen:     true,
	}
}

func (n *Navigator) Current() (media.Slide, bool) {
	if !n.open || len(n.slides) == 0 {
		return media.Slide{}, false
	}
	return n.slides[n.pos], true
}

// CurrentItem returns the media item on screen and its key.
func (n *Navigator) CurrentItem() (media.Item, string, bool) {
	s, ok := n.Current()
	if !ok {
		return media.Item{}, "", false
	}
	i := n.carousel.Index()
	return s.Media[i], s.Key(i), true
}

// SlideByID looks id up in the slides of kind. A review and a product may
// share an id.
func (n *Navigator) SlideByID(kind media.SlideKind, id string) (media.Slide, bool) {
	for _, s := range n.slides {
		if s.Kind == kind && s.ID == id {
			return s, true
		}
	}
	return media.Slide{}, false
}

// HasID reports whether any slide, of either kind, carries id.
func (n *Navigator) HasID(id string) bool {
	for _, s := range n.slides {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (n *Navigator) Slides() []media.Slide { return n.slides }

// Position is the absolute index across both phases and the feed length.
func (n *Navigator) Position() (index, total int) {
	return n.pos, len(n.slides)
}

// PhaseLen is the number of slides in the given phase.
func (n *Navigator) PhaseLen(p Phase) int {
	lo, hi := n.bounds(p)
	return hi - lo
}

func (n *Navigator) bounds(p Phase) (lo, hi int) {
	if p == PhaseProducts {
		return n.boundary, len(n.slides)
	}
	return 0, n.boundary
}

func (n *Navigator) moveTo(pos int) {
	n.pos = pos
	n.carousel = NewCarousel(len(n.slides[pos].Media))
}
