// Package viewer is the full-screen swipeable media viewer. It wires the
// feed navigator, gesture recognizer, playback coordinator and reaction
// synchronizer together and serializes every entry point behind one lock.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storeviewer/internal/viewer/clock"
	"storeviewer/internal/viewer/feed"
	"storeviewer/internal/viewer/gesture"
	"storeviewer/internal/viewer/media"
	"storeviewer/internal/viewer/playback"
	"storeviewer/internal/viewer/reaction"
)

var (
	ErrAlreadyOpen = errors.New("viewer already open")
	ErrNotOpen     = errors.New("viewer not open")
	ErrWrongSlide  = errors.New("action not available on this slide")
	ErrOutOfStock  = errors.New("product out of stock")
)

type CloseReason string

const (
	CloseSwipe      CloseReason = "swipe"
	CloseControl    CloseReason = "control"
	CloseBackdrop   CloseReason = "backdrop"
	CloseNavigation CloseReason = "navigation"
)

type ExitFunc func(reason CloseReason)

type Config struct {
	Gesture            gesture.Config `yaml:"gesture"`
	ControlsHideDelay  time.Duration  `yaml:"controls_hide_delay"`
	HeartBurstDuration time.Duration  `yaml:"heart_burst_duration"`
	ReactionTimeout    time.Duration  `yaml:"reaction_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Gesture:            gesture.DefaultConfig(),
		ControlsHideDelay:  3 * time.Second,
		HeartBurstDuration: time.Second,
		ReactionTimeout:    10 * time.Second,
	}
}

// Deps are the collaborators the viewer does not own.
type Deps struct {
	UserID   string
	Service  reaction.Service
	Notifier reaction.Notifier
	Chrome   *Chrome
	Exit     ExitFunc
	Clock    clock.Clock
	Logger   zerolog.Logger
	Playback []playback.Option
}

type Viewer struct {
	mu sync.Mutex

	cfg      Config
	clock    clock.Clock
	logger   zerolog.Logger
	notifier reaction.Notifier
	chrome   *Chrome
	exit     ExitFunc

	recognizer *gesture.Recognizer
	player     *playback.Coordinator
	reactions  *reaction.Synchronizer
	controls   *clock.Debouncer

	nav      *feed.Navigator
	lease    *Lease
	open     bool
	failed   map[string]bool
	visible  bool
	bursts   []Burst
	timers   map[int]clock.Timer
	burstSeq int
}

func New(cfg Config, deps Deps) *Viewer {
	def := DefaultConfig()
	if cfg.ControlsHideDelay <= 0 {
		cfg.ControlsHideDelay = def.ControlsHideDelay
	}
	if cfg.HeartBurstDuration <= 0 {
		cfg.HeartBurstDuration = def.HeartBurstDuration
	}
	if cfg.ReactionTimeout <= 0 {
		cfg.ReactionTimeout = def.ReactionTimeout
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Chrome == nil {
		deps.Chrome = NewChrome()
	}
	if deps.Notifier == nil {
		deps.Notifier = reaction.NotifierFunc(func(reaction.Notification) {})
	}

	popts := append([]playback.Option{playback.WithLogger(deps.Logger)}, deps.Playback...)

	return &Viewer{
		cfg:        cfg,
		clock:      deps.Clock,
		logger:     deps.Logger,
		notifier:   deps.Notifier,
		chrome:     deps.Chrome,
		exit:       deps.Exit,
		recognizer: gesture.New(cfg.Gesture),
		player:     playback.New(popts...),
		reactions: reaction.NewSynchronizer(deps.Service, deps.Notifier, deps.UserID,
			reaction.WithTimeout(cfg.ReactionTimeout),
			reaction.WithLogger(deps.Logger),
			reaction.WithNow(deps.Clock.Now),
		),
		controls: clock.NewDebouncer(deps.Clock, cfg.ControlsHideDelay),
		nav:      feed.New(nil, nil),
		timers:   make(map[int]clock.Timer),
	}
}

// Open builds the feed from the caller's records and shows the start slide.
// Reviews and products without media are filtered out here.
func (v *Viewer) Open(reviews []media.Review, products []media.Product, start feed.Start) (View, error) {
	return v.OpenSlides(media.ReviewSlides(reviews), media.ProductSlides(products), start)
}

func (v *Viewer) OpenSlides(reviews, products []media.Slide, start feed.Start) (View, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.open {
		return View{}, ErrAlreadyOpen
	}

	nav := feed.New(reviews, products)
	if _, err := nav.Open(start); err != nil {
		return View{}, fmt.Errorf("open viewer: %w", err)
	}

	for _, s := range nav.Slides() {
		v.reactions.Seed(refOf(s), seedEntry(s))
	}

	v.nav = nav
	v.open = true
	v.failed = make(map[string]bool)
	v.lease = v.chrome.Acquire()
	v.activateLocked()

	idx, total := nav.Position()
	v.logger.Debug().
		Int("reviews", len(reviews)).
		Int("products", len(products)).
		Int("position", idx).
		Int("total", total).
		Msg("viewer opened")

	return v.viewLocked(), nil
}

// Close tears the viewer down and calls the exit callback. It reports
// false when the viewer was not open.
func (v *Viewer) Close(reason CloseReason) bool {
	v.mu.Lock()
	closed := v.closeLocked()
	v.mu.Unlock()

	if closed {
		v.logger.Debug().Str("reason", string(reason)).Msg("viewer closed")
		if v.exit != nil {
			v.exit(reason)
		}
	}
	return closed
}

func (v *Viewer) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}

// HandlePointer feeds one raw pointer event through the recognizer and
// applies the resulting intent.
func (v *Viewer) HandlePointer(p gesture.Pointer) (gesture.Intent, View) {
	v.mu.Lock()
	if !v.open {
		v.mu.Unlock()
		return gesture.Intent{Kind: gesture.IntentNone}, View{}
	}
	if p.At.IsZero() {
		p.At = v.clock.Now()
	}

	in := v.recognizer.Handle(p)
	closing := false

	switch in.Kind {
	case gesture.IntentTap:
		v.showControlsLocked()
	case gesture.IntentDoubleTap:
		v.spawnBurstLocked(in.X, in.Y)
		if s, ok := v.nav.Current(); ok {
			if _, err := v.toggleLocked(s, defaultReaction(s)); err != nil {
				v.logger.Warn().Err(err).Str("slide", s.ID).Msg("double tap reaction failed")
			}
		}
	case gesture.IntentCommit:
		dir := feed.Direction(in.Direction)
		if in.Axis == gesture.AxisVertical {
			v.advanceLocked(dir)
		} else {
			v.advanceMediaLocked(dir)
		}
	case gesture.IntentClose:
		closing = v.closeLocked()
	}

	view := v.viewLocked()
	v.mu.Unlock()

	if closing {
		v.logger.Debug().Str("reason", string(CloseSwipe)).Msg("viewer closed")
		if v.exit != nil {
			v.exit(CloseSwipe)
		}
	}
	return in, view
}

func (v *Viewer) Advance(dir feed.Direction) View {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.open {
		v.advanceLocked(dir)
	}
	return v.viewLocked()
}

func (v *Viewer) AdvanceMedia(dir feed.Direction) View {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.open {
		v.advanceMediaLocked(dir)
	}
	return v.viewLocked()
}

func (v *Viewer) SelectMedia(index int) View {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open {
		return v.viewLocked()
	}
	before := v.nav.State().MediaIndex
	if v.nav.SelectMedia(index) != before {
		v.activateLocked()
	}
	return v.viewLocked()
}

// ToggleReaction toggles kind on slideID, or on the current slide when
// slideID is empty. Likes apply to reviews, wishlist to products, so the
// kind also says which of the two an id names.
func (v *Viewer) ToggleReaction(slideID string, kind reaction.Kind) (View, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	target, err := slideKindFor(kind)
	if err != nil {
		return v.viewLocked(), err
	}
	s, err := v.slideLocked(slideID, target)
	if err != nil {
		return v.viewLocked(), err
	}
	if _, err := v.toggleLocked(s, kind); err != nil {
		return v.viewLocked(), err
	}
	return v.viewLocked(), nil
}

func (v *Viewer) AddToCart(slideID string) (View, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	s, err := v.slideLocked(slideID, media.SlideProduct)
	if err != nil {
		return v.viewLocked(), err
	}
	if s.Product == nil {
		return v.viewLocked(), fmt.Errorf("add %s to cart: %w", s.ID, ErrWrongSlide)
	}
	if !s.Product.InStock {
		v.notifyLocked(reaction.LevelError, "This product is out of stock", s.ID)
		return v.viewLocked(), fmt.Errorf("add %s to cart: %w", s.ID, ErrOutOfStock)
	}
	if _, err := v.reactions.AddToCart(refOf(s)); err != nil {
		return v.viewLocked(), err
	}
	return v.viewLocked(), nil
}

func (v *Viewer) TogglePlay() (View, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open {
		return v.viewLocked(), ErrNotOpen
	}
	if _, err := v.player.TogglePlay(); err != nil {
		v.mediaFailedLocked(v.player.State().ActiveKey)
		return v.viewLocked(), err
	}
	return v.viewLocked(), nil
}

func (v *Viewer) ToggleMute() View {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.player.ToggleMute()
	return v.viewLocked()
}

func (v *Viewer) Seek(d time.Duration) View {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.open {
		v.player.Seek(d)
	}
	return v.viewLocked()
}

func (v *Viewer) ReportProgress(key string, current, duration time.Duration) View {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.player.OnProgress(key, current, duration)
	return v.viewLocked()
}

func (v *Viewer) ReportEnded(key string) View {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.player.OnEnded(key)
	return v.viewLocked()
}

// MediaFailed records that the media element for key could not be loaded.
// When it is on screen the viewer skips to the next item of the slide, or
// shows a placeholder if there is none. Navigation is never blocked.
func (v *Viewer) MediaFailed(key string) View {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.open {
		v.mediaFailedLocked(key)
	}
	return v.viewLocked()
}

// Reconcile refreshes one reaction flag of a slide from the remote
// service. The lock is not held during the remote call.
func (v *Viewer) Reconcile(ctx context.Context, slideID string, kind reaction.Kind) error {
	target, err := slideKindFor(kind)
	if err != nil {
		return err
	}
	v.mu.Lock()
	s, err := v.slideLocked(slideID, target)
	v.mu.Unlock()
	if err != nil {
		return err
	}
	if s.Kind != target {
		return fmt.Errorf("%s on %s: %w", kind, s.ID, ErrWrongSlide)
	}
	_, err = v.reactions.Reconcile(ctx, refOf(s), kind)
	return err
}

func (v *Viewer) Snapshot() View {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewLocked()
}

func (v *Viewer) Reactions() *reaction.Synchronizer { return v.reactions }

// Player exposes the coordinator so hosts can register real elements.
func (v *Viewer) Player() *playback.Coordinator { return v.player }

func (v *Viewer) advanceLocked(dir feed.Direction) {
	before := v.nav.State()
	after := v.nav.Advance(dir)
	if after != before {
		v.activateLocked()
	}
}

func (v *Viewer) advanceMediaLocked(dir feed.Direction) {
	before := v.nav.State().MediaIndex
	if v.nav.AdvanceMedia(dir) != before {
		v.activateLocked()
	}
}

// activateLocked points the playback coordinator at whatever is on screen.
// Every slide and media change goes through here.
func (v *Viewer) activateLocked() {
	item, key, ok := v.nav.CurrentItem()
	if !ok {
		_ = v.player.SetActive("", media.Item{})
		return
	}
	if v.failed[key] {
		_ = v.player.SetActive("", media.Item{})
		_ = v.player.SetActive(key, media.Item{Kind: media.KindImage, URL: item.URL})
		return
	}
	if err := v.player.SetActive(key, item); err != nil {
		v.failed[key] = true
		v.notifyLocked(reaction.LevelInfo, "This video could not be played", key)
	}
}

func (v *Viewer) mediaFailedLocked(key string) {
	if key == "" || v.failed[key] {
		return
	}
	v.failed[key] = true
	v.logger.Debug().Str("key", key).Msg("media failed to load")

	_, cur, ok := v.nav.CurrentItem()
	if !ok || cur != key {
		return
	}
	before := v.nav.State().MediaIndex
	if v.nav.AdvanceMedia(feed.Next) == before {
		v.notifyLocked(reaction.LevelInfo, "This media is unavailable", key)
	}
	v.activateLocked()
}

func (v *Viewer) toggleLocked(s media.Slide, kind reaction.Kind) (reaction.Entry, error) {
	switch {
	case kind == reaction.KindLike && s.Review == nil,
		kind == reaction.KindWishlist && s.Product == nil,
		kind == reaction.KindCart:
		return reaction.Entry{}, fmt.Errorf("%s on %s: %w", kind, s.ID, ErrWrongSlide)
	}
	return v.reactions.Toggle(refOf(s), kind)
}

func defaultReaction(s media.Slide) reaction.Kind {
	if s.Kind == media.SlideProduct {
		return reaction.KindWishlist
	}
	return reaction.KindLike
}

func refOf(s media.Slide) reaction.Ref {
	return reaction.Ref{Scope: string(s.Kind), ID: s.ID}
}

// slideKindFor is the kind of slide a reaction applies to. Cart goes
// through AddToCart.
func slideKindFor(kind reaction.Kind) (media.SlideKind, error) {
	switch kind {
	case reaction.KindLike:
		return media.SlideReview, nil
	case reaction.KindWishlist, reaction.KindCart:
		return media.SlideProduct, nil
	}
	return "", fmt.Errorf("reaction %q: %w", kind, reaction.ErrInvalidKind)
}

// slideLocked resolves slideID among the slides of kind, or returns the
// current slide when slideID is empty.
func (v *Viewer) slideLocked(slideID string, kind media.SlideKind) (media.Slide, error) {
	if !v.open {
		return media.Slide{}, ErrNotOpen
	}
	if slideID == "" {
		s, _ := v.nav.Current()
		return s, nil
	}
	if s, ok := v.nav.SlideByID(kind, slideID); ok {
		return s, nil
	}
	if v.nav.HasID(slideID) {
		return media.Slide{}, fmt.Errorf("%s slide %s: %w", kind, slideID, ErrWrongSlide)
	}
	return media.Slide{}, fmt.Errorf("slide %s: %w", slideID, reaction.ErrUnknownEntity)
}

func (v *Viewer) showControlsLocked() {
	v.visible = true
	v.controls.Debounce(func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.visible = false
	})
}

func (v *Viewer) spawnBurstLocked(x, y float64) {
	v.burstSeq++
	id := v.burstSeq
	v.bursts = append(v.bursts, Burst{ID: id, X: x, Y: y, At: v.clock.Now()})
	v.timers[id] = v.clock.AfterFunc(v.cfg.HeartBurstDuration, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.removeBurstLocked(id)
	})
}

func (v *Viewer) removeBurstLocked(id int) {
	delete(v.timers, id)
	for i, b := range v.bursts {
		if b.ID == id {
			v.bursts = append(v.bursts[:i], v.bursts[i+1:]...)
			return
		}
	}
}

func (v *Viewer) closeLocked() bool {
	if !v.open {
		return false
	}
	v.open = false

	v.recognizer.Reset()
	v.player.Reset()
	v.controls.Cancel()
	v.visible = false
	for id, t := range v.timers {
		t.Stop()
		delete(v.timers, id)
	}
	v.bursts = nil
	v.nav.Close()
	v.failed = nil
	v.lease.Release()
	v.lease = nil
	return true
}

func (v *Viewer) notifyLocked(level reaction.Level, msg, entityID string) {
	v.notifier.Notify(reaction.Notification{
		Level:    level,
		Message:  msg,
		EntityID: entityID,
		At:       v.clock.Now(),
	})
}

func (v *Viewer) viewLocked() View {
	view := View{
		Feed:            v.nav.State(),
		Playback:        v.player.State(),
		ControlsVisible: v.visible,
		Bursts:          append([]Burst{}, v.bursts...),
		ChromeHidden:    v.chrome.Hidden(),
	}
	view.Position, view.Total = v.nav.Position()

	axis, offset := v.recognizer.Offset()
	view.Drag = Drag{Axis: axis, Offset: offset}

	s, ok := v.nav.Current()
	if !ok {
		return view
	}
	entry, _ := v.reactions.Get(refOf(s))
	sv := mergeReaction(s, entry)
	for i := range s.Media {
		if v.failed[s.Key(i)] {
			sv.FailedMedia = append(sv.FailedMedia, i)
		}
	}
	sort.Ints(sv.FailedMedia)
	sv.Placeholder = v.failed[s.Key(view.Feed.MediaIndex)]
	view.Slide = &sv
	return view
}
