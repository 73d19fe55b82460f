package feed

// Carousel pages horizontally over one slide's media. It clamps at both
// ends and never spills into the neighbouring slide.
type Carousel struct {
	count int
	index int
}

func NewCarousel(count int) Carousel {
	return Carousel{count: count}
}

func (c Carousel) Index() int { return c.index }
func (c Carousel) Len() int   { return c.count }

// Enabled reports whether horizontal paging does anything at all.
func (c Carousel) Enabled() bool { return c.count > 1 }

func (c *Carousel) Advance(dir Direction) int {
	if !c.Enabled() {
		return c.index
	}
	switch dir {
	case Next:
		if c.index < c.count-1 {
			c.index++
		}
	case Prev:
		if c.index > 0 {
			c.index--
		}
	}
	return c.index
}

func (c *Carousel) Select(i int) int {
	if !c.Enabled() {
		return c.index
	}
	switch {
	case i < 0:
		c.index = 0
	case i >= c.count:
		c.index = c.count - 1
	default:
		c.index = i
	}
	return c.index
}
