package reaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Entry is the locally displayed reaction state of one slide.
type Entry struct {
	Liked        bool `json:"liked"`
	LikeCount    int  `json:"like_count"`
	InWishlist   bool `json:"in_wishlist"`
	CartQuantity int  `json:"cart_quantity"`
}

type op int

const (
	opAdd op = iota
	opRemove
)

type laneKey struct {
	ref  Ref
	kind Kind
}

// job is one remote call plus the snapshot of the fields it changed, taken
// before the optimistic mutation.
type job struct {
	ref     Ref
	key     Key
	op      op
	before  Entry
	gen     int
	success string
}

type lane struct {
	queue   []job
	running bool
}

type entity struct {
	entry Entry
	gen   int
}

type Synchronizer struct {
	mu       sync.Mutex
	entities map[Ref]*entity
	lanes    map[laneKey]*lane
	wg       sync.WaitGroup

	service  Service
	notifier Notifier
	userID   string
	timeout  time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

type Option func(*Synchronizer)

func WithTimeout(d time.Duration) Option {
	return func(s *Synchronizer) { s.timeout = d }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Synchronizer) { s.logger = logger }
}

func WithNow(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

func NewSynchronizer(service Service, notifier Notifier, userID string, opts ...Option) *Synchronizer {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	s := &Synchronizer{
		entities: make(map[Ref]*entity),
		lanes:    make(map[laneKey]*lane),
		service:  service,
		notifier: notifier,
		userID:   userID,
		timeout:  10 * time.Second,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed sets the server-reported state of an entity. Calls still in flight
// for an earlier seed of the same entity can no longer roll it back.
func (s *Synchronizer) Seed(ref Ref, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.entities[ref]; ok {
		cur.entry = e
		cur.gen++
		return
	}
	s.entities[ref] = &entity{entry: e}
}

func (s *Synchronizer) Get(ref Ref) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entities[ref]
	if !ok {
		return Entry{}, false
	}
	return ent.entry, true
}

// Toggle flips a like or wishlist flag locally and queues the remote call.
// The returned entry is the optimistic state.
func (s *Synchronizer) Toggle(ref Ref, kind Kind) (Entry, error) {
	if kind != KindLike && kind != KindWishlist {
		return Entry{}, fmt.Errorf("toggle %q: %w", kind, ErrInvalidKind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entities[ref]
	if !ok {
		return Entry{}, fmt.Errorf("toggle %s on %s: %w", kind, ref, ErrUnknownEntity)
	}

	before := ent.entry
	j := job{ref: ref, key: Key{EntityID: ref.ID, UserID: s.userID, Kind: kind}, before: before, gen: ent.gen}

	switch kind {
	case KindLike:
		ent.entry.Liked = !before.Liked
		if ent.entry.Liked {
			ent.entry.LikeCount = before.LikeCount + 1
		} else {
			ent.entry.LikeCount = max(before.LikeCount-1, 0)
		}
		j.op = opFor(ent.entry.Liked)
	case KindWishlist:
		ent.entry.InWishlist = !before.InWishlist
		j.op = opFor(ent.entry.InWishlist)
		if ent.entry.InWishlist {
			j.success = "Added to wishlist"
		}
	}

	s.enqueue(j)
	return ent.entry, nil
}

// AddToCart bumps the local cart quantity and queues the remote add.
func (s *Synchronizer) AddToCart(ref Ref) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entities[ref]
	if !ok {
		return Entry{}, fmt.Errorf("add %s to cart: %w", ref, ErrUnknownEntity)
	}

	j := job{
		ref:     ref,
		key:     Key{EntityID: ref.ID, UserID: s.userID, Kind: KindCart},
		op:      opAdd,
		before:  ent.entry,
		gen:     ent.gen,
		success: "Added to cart",
	}
	ent.entry.CartQuantity++

	s.enqueue(j)
	return ent.entry, nil
}

// Reconcile asks the service for the current flag of an idle lane and
// adopts it. Lanes with calls in flight are left alone.
func (s *Synchronizer) Reconcile(ctx context.Context, ref Ref, kind Kind) (Entry, error) {
	if kind != KindLike && kind != KindWishlist {
		return Entry{}, fmt.Errorf("reconcile %q: %w", kind, ErrInvalidKind)
	}

	s.mu.Lock()
	ent, ok := s.entities[ref]
	if !ok {
		s.mu.Unlock()
		return Entry{}, fmt.Errorf("reconcile %s: %w", ref, ErrUnknownEntity)
	}
	gen := ent.gen
	s.mu.Unlock()

	current, err := s.service.Current(ctx, Key{EntityID: ref.ID, UserID: s.userID, Kind: kind})
	if err != nil {
		return Entry{}, fmt.Errorf("reconcile %s %s: %w", kind, ref, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.lanes[laneKey{ref, kind}]; busy || ent.gen != gen {
		return ent.entry, nil
	}
	switch kind {
	case KindLike:
		if ent.entry.Liked != current {
			ent.entry.Liked = current
			if current {
				ent.entry.LikeCount++
			} else {
				ent.entry.LikeCount = max(ent.entry.LikeCount-1, 0)
			}
		}
	case KindWishlist:
		ent.entry.InWishlist = current
	}
	return ent.entry, nil
}

// Pending reports whether any lane still has work.
func (s *Synchronizer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lanes) > 0
}

// Wait blocks until every queued remote call has resolved.
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

func opFor(on bool) op {
	if on {
		return opAdd
	}
	return opRemove
}

// enqueue must be called with s.mu held. Each (entity, kind) lane runs its
// calls one after another so the service never sees overlapping add and
// remove calls for the same key.
func (s *Synchronizer) enqueue(j job) {
	lk := laneKey{ref: j.ref, kind: j.key.Kind}
	l, ok := s.lanes[lk]
	if !ok {
		l = &lane{}
		s.lanes[lk] = l
	}
	l.queue = append(l.queue, j)
	if l.running {
		return
	}
	l.running = true
	s.wg.Add(1)
	go s.drain(lk, l)
}

func (s *Synchronizer) drain(lk laneKey, l *lane) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		if len(l.queue) == 0 {
			l.running = false
			delete(s.lanes, lk)
			s.mu.Unlock()
			return
		}
		j := l.queue[0]
		l.queue = l.queue[1:]
		s.mu.Unlock()

		err := s.call(j)
		if err == nil || errors.Is(err, ErrConflict) {
			if j.success != "" {
				s.notify(LevelSuccess, j.success, j.key)
			}
			continue
		}

		s.mu.Lock()
		dropped := len(l.queue)
		l.queue = nil
		restored := s.restore(j)
		s.mu.Unlock()

		s.logger.Warn().
			Err(err).
			Str("entity", j.key.EntityID).
			Str("kind", string(j.key.Kind)).
			Int("dropped", dropped).
			Bool("restored", restored).
			Msg("reaction call failed, rolled back")
		s.notify(LevelError, failureMessage(j), j.key)
	}
}

func (s *Synchronizer) call(j job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if j.op == opAdd {
		return s.service.Add(ctx, j.key)
	}
	return s.service.Remove(ctx, j.key)
}

// restore puts back the snapshot fields owned by the job's kind. It must be
// called with s.mu held.
func (s *Synchronizer) restore(j job) bool {
	ent, ok := s.entities[j.ref]
	if !ok || ent.gen != j.gen {
		return false
	}

	switch j.key.Kind {
	case KindLike:
		ent.entry.Liked = j.before.Liked
		ent.entry.LikeCount = j.before.LikeCount
	case KindWishlist:
		ent.entry.InWishlist = j.before.InWishlist
	case KindCart:
		ent.entry.CartQuantity = j.before.CartQuantity
	}
	return true
}

func (s *Synchronizer) notify(level Level, msg string, key Key) {
	s.notifier.Notify(Notification{
		Level:    level,
		Message:  msg,
		EntityID: key.EntityID,
		Kind:     key.Kind,
		At:       s.now(),
	})
}

func failureMessage(j job) string {
	switch {
	case j.key.Kind == KindCart:
		return "Could not add to cart"
	case j.key.Kind == KindWishlist && j.op == opAdd:
		return "Could not add to wishlist"
	case j.key.Kind == KindWishlist:
		return "Could not remove from wishlist"
	case j.op == opAdd:
		return "Could not like review"
	default:
		return "Could not remove like"
	}
}
