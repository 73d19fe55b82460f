package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeviewer/internal/config"
	"storeviewer/internal/viewer"
	"storeviewer/internal/viewer/clock"
	"storeviewer/internal/viewer/feed"
	"storeviewer/internal/viewer/media"
	"storeviewer/internal/viewer/reaction"
)

type nopService struct{}

func (nopService) Add(context.Context, reaction.Key) error              { return nil }
func (nopService) Remove(context.Context, reaction.Key) error           { return nil }
func (nopService) Current(context.Context, reaction.Key) (bool, error) { return false, nil }

func newModel(t *testing.T) (Model, *viewer.Viewer, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC))
	notices := &Notices{}
	v := viewer.New(viewer.DefaultConfig(), viewer.Deps{
		UserID:   "preview",
		Service:  nopService{},
		Notifier: notices,
		Clock:    clk,
		Logger:   zerolog.Nop(),
	})
	_, err := v.Open(
		[]media.Review{
			{ID: "r1", Author: media.Author{Name: "Ada", Verified: true}, Text: "Great fit", Rating: 4,
				MediaURLs: []string{"https://cdn.test/r1.mp4", "https://cdn.test/r1.jpg"}, LikeCount: 1},
		},
		[]media.Product{
			{ID: "p1", Name: "Runner", Brand: "Acme", Price: 80, ImageURL: "https://cdn.test/p1.jpg", InStock: true},
		},
		feed.Start{},
	)
	require.NoError(t, err)
	return New(v, notices, clk, config.PreviewConfig{CellWidthPx: 10, CellHeightPx: 20}), v, clk
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModel_KeysDriveViewer(t *testing.T) {
	m, v, _ := newModel(t)

	m, _ = update(m, key("l"))
	assert.Equal(t, 1, v.Snapshot().Feed.MediaIndex)

	m, _ = update(m, key("j"))
	assert.Equal(t, feed.PhaseProducts, v.Snapshot().Feed.Phase)

	m, _ = update(m, key("f"))
	assert.True(t, v.Snapshot().Slide.Product.InWishlist)

	m, _ = update(m, key("c"))
	assert.Equal(t, 1, v.Snapshot().Slide.CartQuantity)

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, feed.PhaseReviews, v.Snapshot().Feed.Phase)

	m, _ = update(m, key("m"))
	assert.False(t, v.Snapshot().Playback.IsMuted)

	m, _ = update(m, key(" "))
	assert.False(t, v.Snapshot().Playback.IsPlaying)

	_, cmd := update(m, key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.False(t, v.IsOpen())

	v.Reactions().Wait()
}

func TestModel_MouseDragSwipes(t *testing.T) {
	m, v, _ := newModel(t)

	m, _ = update(m, tea.MouseMsg{X: 10, Y: 20, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m, _ = update(m, tea.MouseMsg{X: 10, Y: 17, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	assert.NotEmpty(t, m.View())
	m, _ = update(m, tea.MouseMsg{X: 10, Y: 14, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	// 6 cells at 20px is a 120px upward drag
	assert.Equal(t, feed.PhaseProducts, v.Snapshot().Feed.Phase)
}

func TestModel_MouseDragDownCloses(t *testing.T) {
	m, v, _ := newModel(t)

	m, _ = update(m, tea.MouseMsg{X: 5, Y: 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m, _ = update(m, tea.MouseMsg{X: 5, Y: 6, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	_, cmd := update(m, tea.MouseMsg{X: 5, Y: 12, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	require.NotNil(t, cmd)
	assert.False(t, v.IsOpen())
}

func TestModel_TickAdvancesPlayback(t *testing.T) {
	m, v, _ := newModel(t)
	require.True(t, v.Snapshot().Playback.IsPlaying)

	for range 3 {
		m, _ = update(m, tickMsg(time.Now()))
	}
	assert.Equal(t, 300*time.Millisecond, v.Snapshot().Playback.CurrentTime)
	assert.Contains(t, m.View(), "0:00/0:15")

	v.Close(viewer.CloseControl)
	_, cmd := update(m, tickMsg(time.Now()))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_ViewShowsSlide(t *testing.T) {
	m, _, _ := newModel(t)
	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 24})

	out := m.View()
	assert.Contains(t, out, "Ada ✓")
	assert.Contains(t, out, "Great fit")
	assert.Contains(t, out, "REVIEWS  1/2")
}
