package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

// drag runs down at (x0,y0), a move half way, and up at (x1,y1).
func drag(r *Recognizer, x0, y0, x1, y1 float64, startMS, endMS int) Intent {
	r.Handle(Pointer{Type: PointerDown, X: x0, Y: y0, At: at(startMS)})
	r.Handle(Pointer{Type: PointerMove, X: (x0 + x1) / 2, Y: (y0 + y1) / 2, At: at((startMS + endMS) / 2)})
	return r.Handle(Pointer{Type: PointerUp, X: x1, Y: y1, At: at(endMS)})
}

func tapAt(r *Recognizer, x, y float64, ms int) Intent {
	r.Handle(Pointer{Type: PointerDown, X: x, Y: y, At: at(ms)})
	return r.Handle(Pointer{Type: PointerUp, X: x + 1, Y: y, At: at(ms + 60)})
}

func TestRecognizer_Tap(t *testing.T) {
	r := New(Config{})

	in := tapAt(r, 100, 200, 0)
	assert.Equal(t, IntentTap, in.Kind)
	assert.Equal(t, 101.0, in.X)
}

func TestRecognizer_DoubleTapFiresOnce(t *testing.T) {
	r := New(Config{})

	first := tapAt(r, 100, 200, 0)
	second := tapAt(r, 104, 203, 200)
	third := tapAt(r, 104, 203, 400)

	assert.Equal(t, IntentTap, first.Kind)
	assert.Equal(t, IntentDoubleTap, second.Kind)
	assert.Equal(t, IntentTap, third.Kind, "the pair is consumed; a third tap starts over")
}

func TestRecognizer_DoubleTapNeedsWindowAndProximity(t *testing.T) {
	tests := []struct {
		name     string
		x, y     float64
		secondMS int
	}{
		{"too slow", 100, 200, 500},
		{"too far", 200, 200, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Config{})
			tapAt(r, 100, 200, 0)
			in := tapAt(r, tt.x, tt.y, tt.secondMS)
			assert.Equal(t, IntentTap, in.Kind)
		})
	}
}

func TestRecognizer_VerticalDrag(t *testing.T) {
	tests := []struct {
		name string
		dy   float64
		kind IntentKind
		dir  Direction
	}{
		{"swipe up commits next", -80, IntentCommit, Next},
		{"swipe down commits prev", 80, IntentCommit, Prev},
		{"short swipe up snaps back", -30, IntentCancel, ""},
		{"short swipe down snaps back", 49, IntentCancel, ""},
		{"strong pull down closes", 150, IntentClose, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Config{})
			in := drag(r, 200, 400, 200, 400+tt.dy, 0, 200)

			assert.Equal(t, tt.kind, in.Kind)
			assert.Equal(t, tt.dir, in.Direction)
			assert.Equal(t, AxisVertical, in.Axis)
		})
	}
}

func TestRecognizer_HorizontalDrag(t *testing.T) {
	r := New(Config{})

	in := drag(r, 300, 400, 220, 404, 0, 200)
	assert.Equal(t, IntentCommit, in.Kind)
	assert.Equal(t, AxisHorizontal, in.Axis)
	assert.Equal(t, Next, in.Direction)

	in = drag(r, 300, 400, 370, 400, 1000, 1200)
	assert.Equal(t, Prev, in.Direction)

	in = drag(r, 300, 400, 330, 400, 2000, 2200)
	assert.Equal(t, IntentCancel, in.Kind)
}

func TestRecognizer_AxisLockIgnoresOtherAxis(t *testing.T) {
	r := New(Config{})

	r.Handle(Pointer{Type: PointerDown, X: 100, Y: 400, At: at(0)})
	r.Handle(Pointer{Type: PointerMove, X: 102, Y: 385, At: at(20)})
	axis, _ := r.Offset()
	assert.Equal(t, AxisVertical, axis)

	// big sideways drift after the lock must not turn into a media swipe
	r.Handle(Pointer{Type: PointerMove, X: 200, Y: 370, At: at(60)})
	in := r.Handle(Pointer{Type: PointerUp, X: 220, Y: 330, At: at(120)})

	assert.Equal(t, AxisVertical, in.Axis)
	assert.Equal(t, IntentCommit, in.Kind)
	assert.Equal(t, Next, in.Direction)
}

func TestRecognizer_ControlGesturesAreExcluded(t *testing.T) {
	r := New(Config{})

	r.Handle(Pointer{Type: PointerDown, X: 10, Y: 10, At: at(0), Target: TargetControl})
	r.Handle(Pointer{Type: PointerMove, X: 10, Y: 200, At: at(50)})
	in := r.Handle(Pointer{Type: PointerUp, X: 10, Y: 200, At: at(100)})
	assert.Equal(t, IntentNone, in.Kind)

	// the button press must not count as the first half of a double tap
	in = tapAt(r, 10, 10, 150)
	assert.Equal(t, IntentTap, in.Kind)
}

func TestRecognizer_LongPressIsNotATap(t *testing.T) {
	r := New(Config{})

	r.Handle(Pointer{Type: PointerDown, X: 50, Y: 50, At: at(0)})
	in := r.Handle(Pointer{Type: PointerUp, X: 50, Y: 50, At: at(900)})

	assert.Equal(t, IntentCancel, in.Kind)
}

func TestRecognizer_PointerCancel(t *testing.T) {
	r := New(Config{})

	r.Handle(Pointer{Type: PointerDown, X: 50, Y: 50, At: at(0)})
	r.Handle(Pointer{Type: PointerMove, X: 50, Y: -100, At: at(30)})
	in := r.Handle(Pointer{Type: PointerCancel, At: at(40)})
	assert.Equal(t, IntentCancel, in.Kind)

	in = r.Handle(Pointer{Type: PointerUp, X: 50, Y: -100, At: at(50)})
	assert.Equal(t, IntentNone, in.Kind, "up after cancel belongs to no gesture")
}

func TestRecognizer_DragBreaksTapPair(t *testing.T) {
	r := New(Config{})

	tapAt(r, 100, 100, 0)
	drag(r, 100, 100, 100, 20, 70, 120)
	in := tapAt(r, 100, 100, 200)

	assert.Equal(t, IntentTap, in.Kind)
}

func TestConfig_Defaults(t *testing.T) {
	r := New(Config{VerticalCommit: 80})

	cfg := r.Config()
	assert.Equal(t, 80.0, cfg.VerticalCommit)
	assert.Equal(t, 120.0, cfg.CloseThreshold)
	assert.Equal(t, 300*time.Millisecond, cfg.DoubleTapWindow)
}
