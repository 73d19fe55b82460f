package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual_FiresInDeadlineOrder(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	var order []string

	c.AfterFunc(300*time.Millisecond, func() { order = append(order, "late") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "early") })

	c.Advance(50 * time.Millisecond)
	assert.Empty(t, order)

	c.Advance(time.Second)
	assert.Equal(t, []string{"early", "late"}, order)
	assert.Equal(t, 0, c.Pending())
}

func TestManual_StoppedTimerNeverFires(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	fired := false

	timer := c.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports nothing pending")

	c.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestDebouncer_RetriggerResetsDelay(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	d := NewDebouncer(c, 3*time.Second)
	calls := 0

	d.Debounce(func() { calls++ })
	c.Advance(2 * time.Second)
	d.Debounce(func() { calls++ })
	c.Advance(2 * time.Second)
	assert.Equal(t, 0, calls, "retrigger should push the deadline out")

	c.Advance(time.Second)
	assert.Equal(t, 1, calls)
}

func TestDebouncer_Cancel(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	d := NewDebouncer(c, time.Second)
	calls := 0

	d.Debounce(func() { calls++ })
	d.Cancel()
	c.Advance(5 * time.Second)

	assert.Equal(t, 0, calls)
}
