package feed

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeviewer/internal/viewer/media"
)

func slide(id string, items int) media.Slide {
	s := media.Slide{ID: id}
	for i := 0; i < items; i++ {
		s.Media = append(s.Media, media.Item{Kind: media.KindImage, URL: id})
	}
	return s
}

func TestNavigator_ExampleScenario(t *testing.T) {
	reviews := media.ReviewSlides([]media.Review{
		{ID: "r-media", MediaURLs: []string{"https://x/1.jpg"}},
		{ID: "r-text-only", Text: "no pictures"},
	})
	products := media.ProductSlides([]media.Product{
		{ID: "p1", ImageURL: "https://x/p1.jpg"},
		{ID: "p2", ImageURL: "https://x/p2.jpg"},
		{ID: "p3", ImageURL: "https://x/p3.jpg"},
	})
	require.Len(t, reviews, 1, "only the review with media forms the review phase")

	nav := New(reviews, products)
	_, err := nav.Open(Start{Phase: PhaseReviews})
	require.NoError(t, err)

	got := nav.Advance(Next)
	want := State{Phase: PhaseProducts, SlideIndex: 0, MediaIndex: 0, IsOpen: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("next from last review (-want +got):\n%s", diff)
	}

	got = nav.Advance(Prev)
	want = State{Phase: PhaseReviews, SlideIndex: 0, MediaIndex: 0, IsOpen: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("prev from first product (-want +got):\n%s", diff)
	}
}

func TestNavigator_BoundaryWithoutProducts(t *testing.T) {
	nav := New([]media.Slide{slide("r1", 1), slide("r2", 1)}, nil)
	_, err := nav.Open(Start{SlideID: "r2"})
	require.NoError(t, err)

	st := nav.Advance(Next)
	assert.Equal(t, PhaseReviews, st.Phase)
	assert.Equal(t, 1, st.SlideIndex, "next at the last review without products is a no-op")
}

func TestNavigator_BoundaryWithoutReviews(t *testing.T) {
	nav := New(nil, []media.Slide{slide("p1", 1), slide("p2", 1)})
	st, err := nav.Open(Start{Phase: PhaseReviews})
	require.NoError(t, err)
	assert.Equal(t, PhaseProducts, st.Phase, "empty review phase is skipped on open")

	st = nav.Advance(Prev)
	assert.Equal(t, PhaseProducts, st.Phase)
	assert.Equal(t, 0, st.SlideIndex)
}

func TestNavigator_OpenOnExplicitSlide(t *testing.T) {
	nav := New(
		[]media.Slide{slide("r1", 1), slide("r2", 1), slide("r3", 1)},
		[]media.Slide{slide("p1", 1), slide("p2", 1)},
	)

	st, err := nav.Open(Start{Phase: PhaseProducts, SlideID: "p2"})
	require.NoError(t, err)
	assert.Equal(t, State{Phase: PhaseProducts, SlideIndex: 1, IsOpen: true}, st)

	st, err = nav.Open(Start{Phase: PhaseReviews, SlideID: "r3"})
	require.NoError(t, err)
	assert.Equal(t, State{Phase: PhaseReviews, SlideIndex: 2, IsOpen: true}, st)

	st, err = nav.Open(Start{Phase: PhaseReviews, SlideID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, 0, st.SlideIndex, "unknown slide falls back to the first of its phase")
}

func TestNavigator_EmptyFeed(t *testing.T) {
	nav := New(nil, nil)
	_, err := nav.Open(Start{})
	assert.ErrorIs(t, err, ErrEmptyFeed)

	st := nav.Advance(Next)
	assert.False(t, st.IsOpen)
	_, ok := nav.Current()
	assert.False(t, ok)
}

func TestNavigator_MediaIndexResetsOnSlideChange(t *testing.T) {
	nav := New([]media.Slide{slide("r1", 3)}, []media.Slide{slide("p1", 2)})
	_, err := nav.Open(Start{})
	require.NoError(t, err)

	nav.AdvanceMedia(Next)
	assert.Equal(t, 2, nav.AdvanceMedia(Next))
	st := nav.Advance(Next)
	assert.Equal(t, 0, st.MediaIndex)

	nav.AdvanceMedia(Next)
	st = nav.Advance(Prev)
	assert.Equal(t, PhaseReviews, st.Phase)
	assert.Equal(t, 0, st.MediaIndex)
}

func TestNavigator_RandomWalkKeepsIndicesInRange(t *testing.T) {
	reviews := []media.Slide{slide("r1", 2), slide("r2", 1), slide("r3", 4)}
	products := []media.Slide{slide("p1", 3), slide("p2", 1)}
	nav := New(reviews, products)
	_, err := nav.Open(Start{})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	prev := nav.State()
	for i := 0; i < 2000; i++ {
		dir := Next
		if rng.Intn(2) == 0 {
			dir = Prev
		}

		var st State
		if rng.Intn(3) == 0 {
			nav.AdvanceMedia(dir)
			st = nav.State()
		} else {
			st = nav.Advance(dir)
		}

		n := nav.PhaseLen(st.Phase)
		require.True(t, st.SlideIndex >= 0 && st.SlideIndex < n, "slide index %d outside phase of %d", st.SlideIndex, n)

		cur, ok := nav.Current()
		require.True(t, ok)
		require.True(t, st.MediaIndex >= 0 && st.MediaIndex < len(cur.Media))

		if st.Phase != prev.Phase || st.SlideIndex != prev.SlideIndex {
			require.Equal(t, 0, st.MediaIndex, "media index must reset on slide change")
		}
		prev = st
	}
}

func TestNavigator_CloseResets(t *testing.T) {
	nav := New([]media.Slide{slide("r1", 2), slide("r2", 1)}, nil)
	_, err := nav.Open(Start{})
	require.NoError(t, err)
	nav.Advance(Next)

	nav.Close()
	assert.False(t, nav.IsOpen())
	idx, total := nav.Position()
	assert.Equal(t, 0, idx)
	assert.Equal(t, 2, total)
}
