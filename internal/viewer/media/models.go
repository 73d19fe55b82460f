// Package media holds the typed feed items shown by the viewer: media items,
// review slides and product slides.
package media

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Item is one image or video. It is never mutated after construction.
type Item struct {
	Kind Kind   `json:"kind"`
	URL  string `json:"url"`
}

func (i Item) IsVideo() bool { return i.Kind == KindVideo }

type SlideKind string

const (
	SlideReview  SlideKind = "review"
	SlideProduct SlideKind = "product"
)

type Author struct {
	Name      string `json:"name" yaml:"name"`
	AvatarURL string `json:"avatar_url,omitempty" yaml:"avatar_url"`
	Verified  bool   `json:"verified" yaml:"verified"`
}

// Review is a review record as delivered by the review source.
type Review struct {
	ID           string   `json:"id"`
	ProductID    string   `json:"product_id,omitempty"`
	Author       Author   `json:"author"`
	Text         string   `json:"text"`
	Rating       int      `json:"rating"`
	MediaURLs    []string `json:"media_urls"`
	LikeCount    int      `json:"like_count"`
	UserHasLiked bool     `json:"user_has_liked"`
	CommentCount int      `json:"comment_count"`
}

// Product is a product record as delivered by the product source.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Brand         string   `json:"brand"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	VideoURL      string   `json:"video_url,omitempty"`
	ImageURL      string   `json:"image_url"`
	ImageURLs     []string `json:"image_urls,omitempty"`
	InStock       bool     `json:"in_stock"`
	InWishlist    bool     `json:"in_wishlist"`
}

type ReviewInfo struct {
	Author       Author `json:"author"`
	Text         string `json:"text"`
	Rating       int    `json:"rating"`
	LikeCount    int    `json:"like_count"`
	UserHasLiked bool   `json:"user_has_liked"`
	CommentCount int    `json:"comment_count"`
}

type ProductInfo struct {
	Name          string   `json:"name"`
	Brand         string   `json:"brand"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	InStock       bool     `json:"in_stock"`
	InWishlist    bool     `json:"in_wishlist"`
}

// DiscountPercent is the rounded markdown against the original price, or 0.
func (p ProductInfo) DiscountPercent() int {
	if p.OriginalPrice == nil || *p.OriginalPrice <= 0 || *p.OriginalPrice <= p.Price {
		return 0
	}
	return int((1-p.Price / *p.OriginalPrice)*100 + 0.5)
}

// Slide is one full-screen page of the feed. Exactly one of Review and
// Product is set, matching Kind.
type Slide struct {
	ID      string       `json:"id"`
	Kind    SlideKind    `json:"kind"`
	Media   []Item       `json:"media"`
	Review  *ReviewInfo  `json:"review,omitempty"`
	Product *ProductInfo `json:"product,omitempty"`
}

// Ref is the slide's identity within the feed. Reviews and products come
// from separate sources, so their ids are only unique per kind.
func (s Slide) Ref() string {
	return SlideRef(s.Kind, s.ID)
}

func SlideRef(kind SlideKind, id string) string {
	return string(kind) + ":" + id
}

// Key identifies the media element at index i of the slide.
func (s Slide) Key(i int) string {
	return MediaKey(s.Ref(), i)
}

func MediaKey(ref string, index int) string {
	return fmt.Sprintf("%s/%d", ref, index)
}

// NewReviewSlide builds a slide from a review. It reports false when the
// review carries no usable media; such reviews never enter the feed.
func NewReviewSlide(r Review) (Slide, bool) {
	items := make([]Item, 0, len(r.MediaURLs))
	for _, u := range r.MediaURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		items = append(items, Item{Kind: KindFromURL(u), URL: u})
	}
	if len(items) == 0 || r.ID == "" {
		return Slide{}, false
	}

	return Slide{
		ID:    r.ID,
		Kind:  SlideReview,
		Media: items,
		Review: &ReviewInfo{
			Author:       r.Author,
			Text:         r.Text,
			Rating:       r.Rating,
			LikeCount:    r.LikeCount,
			UserHasLiked: r.UserHasLiked,
			CommentCount: r.CommentCount,
		},
	}, true
}

// NewProductSlide builds a slide whose media is the optional video first,
// then the primary image, then the gallery. Blank and repeated URLs are
// dropped.
func NewProductSlide(p Product) (Slide, bool) {
	seen := make(map[string]bool)
	var items []Item
	add := func(kind Kind, u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		items = append(items, Item{Kind: kind, URL: u})
	}

	add(KindVideo, p.VideoURL)
	add(KindImage, p.ImageURL)
	for _, u := range p.ImageURLs {
		add(KindImage, u)
	}
	if len(items) == 0 || p.ID == "" {
		return Slide{}, false
	}

	return Slide{
		ID:    p.ID,
		Kind:  SlideProduct,
		Media: items,
		Product: &ProductInfo{
			Name:          p.Name,
			Brand:         p.Brand,
			Price:         p.Price,
			OriginalPrice: p.OriginalPrice,
			InStock:       p.InStock,
			InWishlist:    p.InWishlist,
		},
	}, true
}

func ReviewSlides(reviews []Review) []Slide {
	slides := make([]Slide, 0, len(reviews))
	for _, r := range reviews {
		if s, ok := NewReviewSlide(r); ok {
			slides = append(slides, s)
		}
	}
	return slides
}

func ProductSlides(products []Product) []Slide {
	slides := make([]Slide, 0, len(products))
	for _, p := range products {
		if s, ok := NewProductSlide(p); ok {
			slides = append(slides, s)
		}
	}
	return slides
}
