// Package session keeps the open viewers of the HTTP API, one per client
// session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storeviewer/internal/catalog"
	"storeviewer/internal/storage"
	"storeviewer/internal/viewer"
	"storeviewer/internal/viewer/clock"
	"storeviewer/internal/viewer/feed"
	"storeviewer/internal/viewer/media"
	"storeviewer/internal/viewer/playback"
	"storeviewer/internal/viewer/reaction"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrTooManySessions = errors.New("too many open sessions")
)

type Preferences interface {
	GetPreferences(ctx context.Context, userID string) (*storage.Preferences, error)
	SavePreferences(ctx context.Context, p storage.Preferences) error
}

// Prober reports media keys whose URL cannot be loaded.
type Prober interface {
	FailedKeys(ctx context.Context, slides []media.Slide) []string
}

type Deps struct {
	Source  catalog.Source
	Service reaction.Service
	Prefs   Preferences
	Prober  Prober
	Clock   clock.Clock
	Logger  zerolog.Logger
}

type Options struct {
	Viewer            viewer.Config
	MaxSessions       int
	NotificationLimit int
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	Viewer    *viewer.Viewer

	notes *noteBuffer
}

// Notifications returns and clears the pending notifications.
func (s *Session) Notifications() []reaction.Notification {
	return s.notes.drain()
}

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	opts   Options
	deps   Deps
	logger zerolog.Logger
}

func NewManager(opts Options, deps Deps) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 256
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		deps:     deps,
		logger:   deps.Logger,
	}
}

// Open loads the user's feed and opens a viewer on it.
func (m *Manager) Open(ctx context.Context, userID string, start feed.Start) (*Session, viewer.View, error) {
	if m.Len() >= m.opts.MaxSessions {
		return nil, viewer.View{}, ErrTooManySessions
	}

	src, err := catalog.LoadFeed(ctx, m.deps.Source, userID)
	if err != nil {
		return nil, viewer.View{}, err
	}

	muted := true
	if m.deps.Prefs != nil {
		p, err := m.deps.Prefs.GetPreferences(ctx, userID)
		switch {
		case err == nil:
			muted = p.Muted
		case !errors.Is(err, storage.ErrNotFound):
			m.logger.Warn().Err(err).Str("user", userID).Msg("failed to load preferences")
		}
	}

	id := uuid.NewString()
	logger := m.logger.With().Str("session", id).Str("user", userID).Logger()
	notes := newNoteBuffer(m.opts.NotificationLimit, logger)

	v := viewer.New(m.opts.Viewer, viewer.Deps{
		UserID:   userID,
		Service:  m.deps.Service,
		Notifier: notes,
		Exit: func(reason viewer.CloseReason) {
			m.remove(id, reason)
		},
		Clock:  m.deps.Clock,
		Logger: logger,
		Playback: []playback.Option{
			playback.WithMuted(muted),
			playback.WithMuteListener(m.saveMuted(userID)),
		},
	})

	reviews := media.ReviewSlides(src.Reviews)
	products := media.ProductSlides(src.Products)

	s := &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: m.deps.Clock.Now(),
		Viewer:    v,
		notes:     notes,
	}

	view, err := v.OpenSlides(reviews, products, start)
	if err != nil {
		return nil, viewer.View{}, fmt.Errorf("open session: %w", err)
	}

	// opens race between the early check and here
	m.mu.Lock()
	if len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		v.Close(viewer.CloseNavigation)
		return nil, viewer.View{}, ErrTooManySessions
	}
	m.sessions[id] = s
	m.mu.Unlock()

	if m.deps.Prober != nil {
		all := append(append([]media.Slide{}, reviews...), products...)
		for _, key := range m.deps.Prober.FailedKeys(ctx, all) {
			view = v.MediaFailed(key)
		}
	}

	logger.Info().
		Int("reviews", len(reviews)).
		Int("products", len(products)).
		Msg("session opened")

	return s, view, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s, nil
}

// Close closes the session's viewer, which removes the session.
func (m *Manager) Close(id string, reason viewer.CloseReason) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if !s.Viewer.Close(reason) {
		m.remove(id, reason)
	}
	return nil
}

// CloseAll closes every session and waits for their remote calls.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		_ = m.Close(s.ID, viewer.CloseNavigation)
		s.Viewer.Reactions().Wait()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) remove(id string, reason viewer.CloseReason) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok && reason != "" {
		m.logger.Info().Str("session", id).Str("reason", string(reason)).Msg("session closed")
	}
}

func (m *Manager) saveMuted(userID string) func(bool) {
	return func(muted bool) {
		if m.deps.Prefs == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.deps.Prefs.SavePreferences(ctx, storage.Preferences{UserID: userID, Muted: muted}); err != nil {
			m.logger.Warn().Err(err).Str("user", userID).Msg("failed to save mute preference")
		}
	}
}
