package reaction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func review(id string) Ref  { return Ref{Scope: "review", ID: id} }
func product(id string) Ref { return Ref{Scope: "product", ID: id} }

type call struct {
	Op  string
	Key Key
}

// fakeService records calls and can hold them until released, to stand in
// for slow network round-trips.
type fakeService struct {
	mu       sync.Mutex
	calls    []call
	state    map[Key]bool
	inFlight map[Key]int
	overlap  bool
	failNext map[Key]error
	gate     chan struct{}
}

func newFakeService() *fakeService {
	return &fakeService{
		state:    make(map[Key]bool),
		inFlight: make(map[Key]int),
		failNext: make(map[Key]error),
	}
}

func (f *fakeService) hold() { f.gate = make(chan struct{}) }

func (f *fakeService) release() { close(f.gate) }

func (f *fakeService) do(ctx context.Context, op string, key Key, value bool) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{Op: op, Key: key})
	f.inFlight[key]++
	if f.inFlight[key] > 1 {
		f.overlap = true
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight[key]--

	if err, ok := f.failNext[key]; ok {
		delete(f.failNext, key)
		return err
	}
	if key.Kind != KindCart && f.state[key] == value {
		return ErrConflict
	}
	f.state[key] = value
	return nil
}

func (f *fakeService) Add(ctx context.Context, key Key) error { return f.do(ctx, "add", key, true) }

func (f *fakeService) Remove(ctx context.Context, key Key) error {
	return f.do(ctx, "remove", key, false)
}

func (f *fakeService) Current(_ context.Context, key Key) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[key], nil
}

func (f *fakeService) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Op
	}
	return out
}

type sink struct {
	mu    sync.Mutex
	items []Notification
}

func (s *sink) Notify(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
}

func (s *sink) levels() []Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Level, len(s.items))
	for i, n := range s.items {
		out[i] = n.Level
	}
	return out
}

func TestToggle_OptimisticBeforeNetwork(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newFakeService()
	svc.hold()
	s := NewSynchronizer(svc, nil, "u1")
	s.Seed(review("r1"), Entry{LikeCount: 3})

	e, err := s.Toggle(review("r1"), KindLike)
	require.NoError(t, err)
	assert.True(t, e.Liked)
	assert.Equal(t, 4, e.LikeCount)
	assert.True(t, s.Pending())

	svc.release()
	s.Wait()

	got, _ := s.Get(review("r1"))
	assert.Equal(t, Entry{Liked: true, LikeCount: 4}, got)
	assert.False(t, s.Pending())
}

func TestToggle_DoubleToggleRestoresOriginal(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newFakeService()
	s := NewSynchronizer(svc, nil, "u1")
	s.Seed(review("r1"), Entry{LikeCount: 7})

	_, err := s.Toggle(review("r1"), KindLike)
	require.NoError(t, err)
	_, err = s.Toggle(review("r1"), KindLike)
	require.NoError(t, err)
	s.Wait()

	got, _ := s.Get(review("r1"))
	assert.Equal(t, Entry{Liked: false, LikeCount: 7}, got)
	assert.Equal(t, []string{"add", "remove"}, svc.ops())
}

func TestToggle_RapidTogglesAreSerialized(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newFakeService()
	svc.hold()
	s := NewSynchronizer(svc, nil, "u1")
	s.Seed(product("p1"), Entry{})

	for i := 0; i < 5; i++ {
		_, err := s.Toggle(product("p1"), KindWishlist)
		require.NoError(t, err)
	}
	svc.release()
	s.Wait()

	assert.False(t, svc.overlap, "calls for one key must never overlap")
	assert.Equal(t, []string{"add", "remove", "add", "remove", "add"}, svc.ops())

	got, _ := s.Get(product("p1"))
	assert.True(t, got.InWishlist)
	current, _ := svc.Current(context.Background(), Key{EntityID: "p1", UserID: "u1", Kind: KindWishlist})
	assert.Equal(t, got.InWishlist, current, "client and server agree after the burst")
}

func TestToggle_FailureRollsBackAndNotifies(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newFakeService()
	svc.failNext[Key{EntityID: "r1", UserID: "u1", Kind: KindLike}] = errors.New("503")
	notes := &sink{}
	s := NewSynchronizer(svc, notes, "u1")
	s.Seed(review("r1"), Entry{LikeCount: 2})

	e, err := s.Toggle(review("r1"), KindLike)
	require.NoError(t, err)
	assert.Equal(t, 3, e.LikeCount)
	s.Wait()

	got, _ := s.Get(review("r1"))
	assert.Equal(t, Entry{LikeCount: 2}, got)
	assert.Equal(t, []Level{LevelError}, notes.levels())
}

func TestToggle_FailureDropsQueuedCallsOnLane(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newFakeService()
	svc.hold()
	svc.failNext[Key{EntityID: "r1", UserID: "u1", Kind: KindLike}] = errors.New("timeout")
	s := NewSynchronizer(svc, nil, "u1")
	s.Seed(review("r1"), Entry{LikeCount: 1})

	_, _ = s.Toggle(review("r1"), KindLike)
	_, _ = s.Toggle(review("r1"), KindLike)
	_, _ = s.Toggle(review("r1"), KindLike)
	svc.release()
	s.Wait()

	assert.Equal(t, []string{"add"}, svc.ops(), "calls queued behind a failure are dropped")
	got, _ := s.Get(review("r1"))
	assert.Equal(t, Entry{LikeCount: 1}, got)
}

func TestToggle_ConflictCountsAsSuccess(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newFakeService()
	key := Key{EntityID: "r1", UserID: "u1", Kind: KindLike}
	svc.state[key] = true // server already has the like the client did not know about
	notes := &sink{}
	s := NewSynchronizer(svc, notes, "u1")
	s.Seed(review("r1"), Entry{LikeCount: 5})

	_, err := s.Toggle(review("r1"), KindLike)
	require.NoError(t, err)
	s.Wait()

	got, _ := s.Get(review("r1"))
	assert.True(t, got.Liked)
	assert.Empty(t, notes.levels())
}

func TestToggle_RollbackOnlyTouchesItsOwnEntity(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newFakeService()
	svc.hold()
	svc.failNext[Key{EntityID: "r1", UserID: "u1", Kind: KindLike}] = errors.New("boom")
	s := NewSynchronizer(svc, nil, "u1")
	s.Seed(review("r1"), Entry{LikeCount: 1})
	s.Seed(review("r2"), Entry{LikeCount: 1})

	_, _ = s.Toggle(review("r1"), KindLike)
	_, _ = s.Toggle(review("r2"), KindLike)
	svc.release()
	s.Wait()

	r1, _ := s.Get(review("r1"))
	r2, _ := s.Get(review("r2"))
	assert.Equal(t, Entry{LikeCount: 1}, r1)
	assert.Equal(t, Entry{Liked: true, LikeCount: 2}, r2)
}

func TestToggle_StaleRollbackIgnoredAfterReseed(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newFakeService()
	svc.hold()
	svc.failNext[Key{EntityID: "r1", UserID: "u1", Kind: KindLike}] = errors.New("boom")
	s := NewSynchronizer(svc, nil, "u1")
	s.Seed(review("r1"), Entry{LikeCount: 1})

	_, _ = s.Toggle(review("r1"), KindLike)
	s.Seed(review("r1"), Entry{Liked: true, LikeCount: 10})
	svc.release()
	s.Wait()

	got, _ := s.Get(review("r1"))
	assert.Equal(t, Entry{Liked: true, LikeCount: 10}, got)
}

func TestToggle_CountFloorsAtZero(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSynchronizer(newFakeService(), nil, "u1")
	s.Seed(review("r1"), Entry{Liked: true, LikeCount: 0})

	e, err := s.Toggle(review("r1"), KindLike)
	require.NoError(t, err)
	assert.Equal(t, 0, e.LikeCount)
	s.Wait()
}

func TestToggle_Errors(t *testing.T) {
	s := NewSynchronizer(newFakeService(), nil, "u1")

	_, err := s.Toggle(review("nope"), KindLike)
	assert.ErrorIs(t, err, ErrUnknownEntity)

	s.Seed(product("p1"), Entry{})
	_, err = s.Toggle(product("p1"), KindCart)
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestAddToCart(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newFakeService()
	notes := &sink{}
	s := NewSynchronizer(svc, notes, "u1")
	s.Seed(product("p1"), Entry{})

	e, err := s.AddToCart(product("p1"))
	require.NoError(t, err)
	assert.Equal(t, 1, e.CartQuantity)
	s.Wait()

	assert.Equal(t, []Level{LevelSuccess}, notes.levels())

	svc.failNext[Key{EntityID: "p1", UserID: "u1", Kind: KindCart}] = errors.New("out of stock")
	_, err = s.AddToCart(product("p1"))
	require.NoError(t, err)
	s.Wait()

	got, _ := s.Get(product("p1"))
	assert.Equal(t, 1, got.CartQuantity)
	assert.Equal(t, []Level{LevelSuccess, LevelError}, notes.levels())
}

func TestReconcile(t *testing.T) {
	svc := newFakeService()
	svc.state[Key{EntityID: "r1", UserID: "u1", Kind: KindLike}] = true
	s := NewSynchronizer(svc, nil, "u1")
	s.Seed(review("r1"), Entry{LikeCount: 4})

	e, err := s.Reconcile(context.Background(), review("r1"), KindLike)
	require.NoError(t, err)
	assert.Equal(t, Entry{Liked: true, LikeCount: 5}, e)

	_, err = s.Reconcile(context.Background(), review("r1"), KindCart)
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestSynchronizer_SameIDInDifferentScopes(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newFakeService()
	s := NewSynchronizer(svc, nil, "u1")
	s.Seed(review("42"), Entry{Liked: true, LikeCount: 7})
	s.Seed(product("42"), Entry{})

	_, err := s.Toggle(product("42"), KindWishlist)
	require.NoError(t, err)
	_, err = s.AddToCart(product("42"))
	require.NoError(t, err)
	s.Wait()

	r, _ := s.Get(review("42"))
	p, _ := s.Get(product("42"))
	assert.Equal(t, Entry{Liked: true, LikeCount: 7}, r)
	assert.Equal(t, Entry{InWishlist: true, CartQuantity: 1}, p)

	current, _ := svc.Current(context.Background(), Key{EntityID: "42", UserID: "u1", Kind: KindWishlist})
	assert.True(t, current, "the service sees the bare id")
}
