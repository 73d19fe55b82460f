// Package gesture turns raw pointer sequences (down, move*, up) into one
// discrete intent per gesture: tap, double-tap, drag commit, drag cancel or
// close.
package gesture

import (
	"math"
	"time"
)

type PointerType string

const (
	PointerDown   PointerType = "down"
	PointerMove   PointerType = "move"
	PointerUp     PointerType = "up"
	PointerCancel PointerType = "cancel"
)

// Target is what the pointer went down on. Gestures that start on a
// control (action buttons, scrubber) belong to the control.
type Target string

const (
	TargetContent Target = "content"
	TargetControl Target = "control"
)

type Pointer struct {
	Type   PointerType
	X, Y   float64
	At     time.Time
	Target Target
}

type IntentKind string

const (
	IntentNone      IntentKind = "none"
	IntentTap       IntentKind = "tap"
	IntentDoubleTap IntentKind = "double_tap"
	IntentCommit    IntentKind = "commit"
	IntentCancel    IntentKind = "cancel"
	IntentClose     IntentKind = "close"
)

type Axis string

const (
	AxisNone       Axis = ""
	AxisVertical   Axis = "vertical"
	AxisHorizontal Axis = "horizontal"
)

type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

type Intent struct {
	Kind      IntentKind `json:"kind"`
	Axis      Axis       `json:"axis,omitempty"`
	Direction Direction  `json:"direction,omitempty"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Offset    float64    `json:"offset,omitempty"`
}

// Config holds the thresholds in pixels and durations. Zero fields are
// replaced with defaults by New.
type Config struct {
	TapSlop          float64       `yaml:"tap_slop"`
	TapMaxDuration   time.Duration `yaml:"tap_max_duration"`
	DoubleTapWindow  time.Duration `yaml:"double_tap_window"`
	DoubleTapSlop    float64       `yaml:"double_tap_slop"`
	AxisDeadZone     float64       `yaml:"axis_dead_zone"`
	VerticalCommit   float64       `yaml:"vertical_commit"`
	HorizontalCommit float64       `yaml:"horizontal_commit"`
	CloseThreshold   float64       `yaml:"close_threshold"`
}

func DefaultConfig() Config {
	return Config{
		TapSlop:          10,
		TapMaxDuration:   250 * time.Millisecond,
		DoubleTapWindow:  300 * time.Millisecond,
		DoubleTapSlop:    30,
		AxisDeadZone:     10,
		VerticalCommit:   50,
		HorizontalCommit: 50,
		CloseThreshold:   120,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TapSlop <= 0 {
		c.TapSlop = d.TapSlop
	}
	if c.TapMaxDuration <= 0 {
		c.TapMaxDuration = d.TapMaxDuration
	}
	if c.DoubleTapWindow <= 0 {
		c.DoubleTapWindow = d.DoubleTapWindow
	}
	if c.DoubleTapSlop <= 0 {
		c.DoubleTapSlop = d.DoubleTapSlop
	}
	if c.AxisDeadZone <= 0 {
		c.AxisDeadZone = d.AxisDeadZone
	}
	if c.VerticalCommit <= 0 {
		c.VerticalCommit = d.VerticalCommit
	}
	if c.HorizontalCommit <= 0 {
		c.HorizontalCommit = d.HorizontalCommit
	}
	if c.CloseThreshold <= 0 {
		c.CloseThreshold = d.CloseThreshold
	}
	return c
}

type tap struct {
	x, y float64
	at   time.Time
}

type Recognizer struct {
	cfg Config

	active   bool
	ignoring bool
	originX  float64
	originY  float64
	startAt  time.Time
	dx, dy   float64
	axis     Axis

	lastTap *tap
}

func New(cfg Config) *Recognizer {
	return &Recognizer{cfg: cfg.withDefaults()}
}

func (r *Recognizer) Config() Config { return r.cfg }

// Handle feeds one pointer event. Only the event that ends a gesture (up or
// cancel) returns something other than IntentNone.
func (r *Recognizer) Handle(p Pointer) Intent {
	switch p.Type {
	case PointerDown:
		return r.down(p)
	case PointerMove:
		if r.active {
			r.track(p)
		}
		return Intent{Kind: IntentNone}
	case PointerUp:
		return r.up(p)
	case PointerCancel:
		wasActive := r.active
		r.endGesture()
		r.ignoring = false
		if wasActive {
			return Intent{Kind: IntentCancel, X: p.X, Y: p.Y}
		}
	}
	return Intent{Kind: IntentNone}
}

// Offset is the live drag distance along the locked axis, for rendering
// the slide following the finger.
func (r *Recognizer) Offset() (Axis, float64) {
	switch r.axis {
	case AxisVertical:
		return r.axis, r.dy
	case AxisHorizontal:
		return r.axis, r.dx
	}
	return AxisNone, 0
}

// Reset forgets the gesture in progress and the remembered tap.
func (r *Recognizer) Reset() {
	r.endGesture()
	r.ignoring = false
	r.lastTap = nil
}

func (r *Recognizer) down(p Pointer) Intent {
	r.endGesture()
	if p.Target == TargetControl {
		r.ignoring = true
		return Intent{Kind: IntentNone}
	}

	r.ignoring = false
	r.active = true
	r.originX, r.originY = p.X, p.Y
	r.startAt = p.At
	return Intent{Kind: IntentNone}
}

func (r *Recognizer) track(p Pointer) {
	r.dx = p.X - r.originX
	r.dy = p.Y - r.originY
	if r.axis != AxisNone {
		return
	}

	ax, ay := math.Abs(r.dx), math.Abs(r.dy)
	switch {
	case ay > r.cfg.AxisDeadZone && ay >= ax:
		r.axis = AxisVertical
	case ax > r.cfg.AxisDeadZone:
		r.axis = AxisHorizontal
	}
}

func (r *Recognizer) up(p Pointer) Intent {
	if r.ignoring {
		r.ignoring = false
		return Intent{Kind: IntentNone}
	}
	if !r.active {
		return Intent{Kind: IntentNone}
	}

	r.track(p)
	intent := r.classify(p)
	r.endGesture()
	return intent
}

func (r *Recognizer) classify(p Pointer) Intent {
	switch r.axis {
	case AxisVertical:
		r.lastTap = nil
		in := Intent{Kind: IntentCancel, Axis: AxisVertical, X: p.X, Y: p.Y, Offset: r.dy}
		switch {
		case r.dy > r.cfg.CloseThreshold:
			in.Kind = IntentClose
		case r.dy <= -r.cfg.VerticalCommit:
			in.Kind, in.Direction = IntentCommit, Next
		case r.dy >= r.cfg.VerticalCommit:
			in.Kind, in.Direction = IntentCommit, Prev
		}
		return in

	case AxisHorizontal:
		r.lastTap = nil
		in := Intent{Kind: IntentCancel, Axis: AxisHorizontal, X: p.X, Y: p.Y, Offset: r.dx}
		switch {
		case r.dx <= -r.cfg.HorizontalCommit:
			in.Kind, in.Direction = IntentCommit, Next
		case r.dx >= r.cfg.HorizontalCommit:
			in.Kind, in.Direction = IntentCommit, Prev
		}
		return in
	}

	dist := math.Hypot(r.dx, r.dy)
	if dist >= r.cfg.TapSlop || p.At.Sub(r.startAt) >= r.cfg.TapMaxDuration {
		// long press or sub-dead-zone wobble
		return Intent{Kind: IntentCancel, X: p.X, Y: p.Y}
	}

	if last := r.lastTap; last != nil &&
		p.At.Sub(last.at) < r.cfg.DoubleTapWindow &&
		math.Hypot(p.X-last.x, p.Y-last.y) < r.cfg.DoubleTapSlop {
		r.lastTap = nil
		return Intent{Kind: IntentDoubleTap, X: p.X, Y: p.Y}
	}

	r.lastTap = &tap{x: p.X, y: p.Y, at: p.At}
	return Intent{Kind: IntentTap, X: p.X, Y: p.Y}
}

func (r *Recognizer) endGesture() {
	r.active = false
	r.dx, r.dy = 0, 0
	r.axis = AxisNone
}
