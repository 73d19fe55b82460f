package viewer

import "sync"

// Chrome tracks whether the surrounding navigation chrome must be hidden.
// It is hidden while at least one lease is held.
type Chrome struct {
	mu     sync.Mutex
	leases int
}

func NewChrome() *Chrome {
	return &Chrome{}
}

func (c *Chrome) Acquire() *Lease {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leases++
	return &Lease{chrome: c}
}

func (c *Chrome) Hidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leases > 0
}

// Lease is released at most once, however many exit paths call Release.
type Lease struct {
	once   sync.Once
	chrome *Chrome
}

func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		l.chrome.mu.Lock()
		defer l.chrome.mu.Unlock()
		l.chrome.leases--
	})
}
