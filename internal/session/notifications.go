package session

import (
	"sync"

	"github.com/rs/zerolog"

	"storeviewer/internal/viewer/reaction"
)

// noteBuffer keeps the most recent notifications until the client drains
// them, and logs each one.
type noteBuffer struct {
	mu     sync.Mutex
	limit  int
	notes  []reaction.Notification
	logger zerolog.Logger
}

func newNoteBuffer(limit int, logger zerolog.Logger) *noteBuffer {
	if limit <= 0 {
		limit = 50
	}
	return &noteBuffer{limit: limit, logger: logger}
}

func (b *noteBuffer) Notify(n reaction.Notification) {
	ev := b.logger.Info()
	if n.Level == reaction.LevelError {
		ev = b.logger.Warn()
	}
	ev.Str("note_level", string(n.Level)).
		Str("entity", n.EntityID).
		Str("kind", string(n.Kind)).
		Msg(n.Message)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.notes = append(b.notes, n)
	if over := len(b.notes) - b.limit; over > 0 {
		b.notes = append([]reaction.Notification(nil), b.notes[over:]...)
	}
}

func (b *noteBuffer) drain() []reaction.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notes
	b.notes = nil
	if out == nil {
		out = []reaction.Notification{}
	}
	return out
}
