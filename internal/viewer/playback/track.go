package playback

import (
	"sync"
	"time"
)

// Track is an in-memory Element. It keeps the flags a real player would
// expose and can be told to fail playback, which is how hosts report media
// that would not load.
type Track struct {
	mu       sync.Mutex
	playing  bool
	muted    bool
	position time.Duration
	failWith error
}

func NewTrack() *Track {
	return &Track{}
}

func (t *Track) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failWith != nil {
		return t.failWith
	}
	t.playing = true
	return nil
}

func (t *Track) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = false
}

func (t *Track) Seek(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.position = d
}

func (t *Track) SetMuted(muted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.muted = muted
}

func (t *Track) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

func (t *Track) Muted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.muted
}

func (t *Track) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

// Fail makes subsequent Play calls return err. A nil err clears it.
func (t *Track) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failWith = err
	if err != nil {
		t.playing = false
	}
}
