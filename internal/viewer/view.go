package viewer

import (
	"time"

	"storeviewer/internal/viewer/feed"
	"storeviewer/internal/viewer/gesture"
	"storeviewer/internal/viewer/media"
	"storeviewer/internal/viewer/playback"
	"storeviewer/internal/viewer/reaction"
)

// Burst is one heart animation spawned by a double tap.
type Burst struct {
	ID int       `json:"id"`
	X  float64   `json:"x"`
	Y  float64   `json:"y"`
	At time.Time `json:"at"`
}

type SlideView struct {
	media.Slide
	CartQuantity int   `json:"cart_quantity"`
	FailedMedia  []int `json:"failed_media,omitempty"`
	// Placeholder is set when the media on screen could not be loaded.
	Placeholder bool `json:"placeholder"`
}

type Drag struct {
	Axis   gesture.Axis `json:"axis,omitempty"`
	Offset float64      `json:"offset"`
}

// View is everything a host needs to render the viewer.
type View struct {
	Feed            feed.State     `json:"feed"`
	Slide           *SlideView     `json:"slide,omitempty"`
	Position        int            `json:"position"`
	Total           int            `json:"total"`
	Playback        playback.State `json:"playback"`
	ControlsVisible bool           `json:"controls_visible"`
	Bursts          []Burst        `json:"bursts"`
	ChromeHidden    bool           `json:"chrome_hidden"`
	Drag            Drag           `json:"drag"`
}

func mergeReaction(s media.Slide, e reaction.Entry) SlideView {
	sv := SlideView{Slide: s, CartQuantity: e.CartQuantity}
	if s.Review != nil {
		r := *s.Review
		r.LikeCount = e.LikeCount
		r.UserHasLiked = e.Liked
		sv.Review = &r
	}
	if s.Product != nil {
		p := *s.Product
		p.InWishlist = e.InWishlist
		sv.Product = &p
	}
	return sv
}

func seedEntry(s media.Slide) reaction.Entry {
	var e reaction.Entry
	if s.Review != nil {
		e.Liked = s.Review.UserHasLiked
		e.LikeCount = s.Review.LikeCount
	}
	if s.Product != nil {
		e.InWishlist = s.Product.InWishlist
	}
	return e
}
