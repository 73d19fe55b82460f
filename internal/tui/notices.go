package tui

import (
	"sync"

	"storeviewer/internal/viewer/reaction"
)

// Notices keeps the latest notification for the status line. Reaction
// goroutines write to it while the program reads it on every frame.
type Notices struct {
	mu   sync.Mutex
	last *reaction.Notification
}

func (n *Notices) Notify(note reaction.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = &note
}

func (n *Notices) Latest() (reaction.Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last == nil {
		return reaction.Notification{}, false
	}
	return *n.last, true
}
