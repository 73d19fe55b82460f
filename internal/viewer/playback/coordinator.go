// Package playback owns play/pause/mute/seek for the viewer's video
// elements. Exactly one media key is active at a time and at most one
// element is ever playing.
package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storeviewer/internal/viewer/media"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)

// Element is one video surface. Hosts with real decoders wrap them; the
// headless hosts use Track.
type Element interface {
	Play() error
	Pause()
	Seek(d time.Duration)
	SetMuted(muted bool)
	Playing() bool
}

type State struct {
	ActiveKey   string        `json:"active_key,omitempty"`
	Status      Status        `json:"status"`
	IsPlaying   bool          `json:"is_playing"`
	IsMuted     bool          `json:"is_muted"`
	CurrentTime time.Duration `json:"current_time"`
	Duration    time.Duration `json:"duration"`
}

type Option func(*Coordinator)

// WithMuted sets the initial mute preference. Videos start muted unless
// told otherwise.
func WithMuted(muted bool) Option {
	return func(c *Coordinator) { c.muted = muted }
}

// WithMuteListener is called after every mute toggle, e.g. to persist the
// preference.
func WithMuteListener(fn func(muted bool)) Option {
	return func(c *Coordinator) { c.onMute = fn }
}

func WithElementFactory(fn func(key string, item media.Item) Element) Option {
	return func(c *Coordinator) { c.factory = fn }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

type Coordinator struct {
	mu       sync.Mutex
	elements map[string]Element
	factory  func(key string, item media.Item) Element
	onMute   func(bool)
	logger   zerolog.Logger

	muted bool
	state State
}

func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		elements: make(map[string]Element),
		factory:  func(string, media.Item) Element { return NewTrack() },
		logger:   zerolog.Nop(),
		muted:    true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = State{Status: StatusIdle, IsMuted: c.muted}
	return c
}

// Register attaches an element for key, replacing any previous one.
func (c *Coordinator) Register(key string, el Element) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elements[key] = el
}

func (c *Coordinator) Element(key string) (Element, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.elements[key]
	return el, ok
}

// SetActive is the only way the active media changes. The previous element
// is paused and rewound, every other element is forced to pause, and a
// video then starts with the session mute preference. An empty key
// deactivates everything.
func (c *Coordinator) SetActive(key string, item media.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key != "" && key == c.state.ActiveKey && c.state.Status != StatusIdle {
		return nil
	}

	if prev, ok := c.elements[c.state.ActiveKey]; ok {
		prev.Pause()
		prev.Seek(0)
	}
	for k, el := range c.elements {
		if k != key && el.Playing() {
			el.Pause()
			el.Seek(0)
		}
	}

	c.state = State{ActiveKey: key, Status: StatusIdle, IsMuted: c.muted}
	if key == "" || !item.IsVideo() {
		return nil
	}

	el, ok := c.elements[key]
	if !ok {
		el = c.factory(key, item)
		c.elements[key] = el
	}
	el.SetMuted(c.muted)
	el.Seek(0)

	if err := el.Play(); err != nil {
		c.state.Status = StatusPaused
		c.logger.Warn().Err(err).Str("key", key).Msg("autoplay failed")
		return fmt.Errorf("play %s: %w", key, err)
	}

	c.state.Status = StatusPlaying
	c.state.IsPlaying = true
	return nil
}

// TogglePlay flips between playing and paused. Images are unaffected.
func (c *Coordinator) TogglePlay() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[c.state.ActiveKey]
	if !ok || c.state.Status == StatusIdle {
		return c.state, nil
	}

	switch c.state.Status {
	case StatusPlaying:
		el.Pause()
		c.state.Status = StatusPaused
		c.state.IsPlaying = false
	case StatusPaused:
		if err := el.Play(); err != nil {
			return c.state, fmt.Errorf("play %s: %w", c.state.ActiveKey, err)
		}
		c.state.Status = StatusPlaying
		c.state.IsPlaying = true
	}
	return c.state, nil
}

// Seek moves the playhead without touching play/pause.
func (c *Coordinator) Seek(d time.Duration) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[c.state.ActiveKey]
	if !ok || c.state.Status == StatusIdle {
		return c.state
	}

	if d < 0 {
		d = 0
	}
	if c.state.Duration > 0 && d > c.state.Duration {
		d = c.state.Duration
	}
	el.Seek(d)
	c.state.CurrentTime = d
	return c.state
}

func (c *Coordinator) ToggleMute() bool {
	c.mu.Lock()
	c.muted = !c.muted
	muted := c.muted
	c.state.IsMuted = muted
	if el, ok := c.elements[c.state.ActiveKey]; ok {
		el.SetMuted(muted)
	}
	onMute := c.onMute
	c.mu.Unlock()

	if onMute != nil {
		onMute(muted)
	}
	return muted
}

// OnProgress records time updates reported by the active element. Late
// updates from elements that are no longer active are dropped.
func (c *Coordinator) OnProgress(key string, current, duration time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key == "" || key != c.state.ActiveKey || c.state.Status == StatusIdle {
		return false
	}
	c.state.CurrentTime = current
	if duration > 0 {
		c.state.Duration = duration
	}
	return true
}

// OnEnded loops the active video instead of moving on.
func (c *Coordinator) OnEnded(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key == "" || key != c.state.ActiveKey || c.state.Status != StatusPlaying {
		return false
	}
	el := c.elements[key]
	el.Seek(0)
	if err := el.Play(); err != nil {
		c.state.Status = StatusPaused
		c.state.IsPlaying = false
		c.logger.Warn().Err(err).Str("key", key).Msg("loop restart failed")
		return false
	}
	c.state.CurrentTime = 0
	return true
}

// Reset pauses and forgets every element. The mute preference survives.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, el := range c.elements {
		el.Pause()
		el.Seek(0)
	}
	c.elements = make(map[string]Element)
	c.state = State{Status: StatusIdle, IsMuted: c.muted}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// PlayingCount is the number of registered elements currently playing.
func (c *Coordinator) PlayingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, el := range c.elements {
		if el.Playing() {
			n++
		}
	}
	return n
}
