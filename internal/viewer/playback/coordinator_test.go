package playback

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeviewer/internal/viewer/media"
)

var (
	video = media.Item{Kind: media.KindVideo, URL: "https://x/v.mp4"}
	image = media.Item{Kind: media.KindImage, URL: "https://x/i.jpg"}
)

func TestCoordinator_AutoplaysMutedByDefault(t *testing.T) {
	c := New()

	require.NoError(t, c.SetActive("s1/0", video))

	st := c.State()
	assert.Equal(t, StatusPlaying, st.Status)
	assert.True(t, st.IsPlaying)
	assert.True(t, st.IsMuted)

	el, ok := c.Element("s1/0")
	require.True(t, ok)
	assert.True(t, el.(*Track).Muted())
}

func TestCoordinator_SwitchPausesAndRewindsPrevious(t *testing.T) {
	c := New()
	first := NewTrack()
	c.Register("s1/0", first)

	require.NoError(t, c.SetActive("s1/0", video))
	c.OnProgress("s1/0", 4*time.Second, 10*time.Second)
	c.Seek(4 * time.Second)
	require.Equal(t, 4*time.Second, first.Position())

	require.NoError(t, c.SetActive("s2/0", video))

	assert.False(t, first.Playing())
	assert.Equal(t, time.Duration(0), first.Position())
	assert.Equal(t, "s2/0", c.State().ActiveKey)
	assert.Equal(t, 1, c.PlayingCount())
}

func TestCoordinator_ImageIsIdle(t *testing.T) {
	c := New()
	require.NoError(t, c.SetActive("s1/0", video))
	require.NoError(t, c.SetActive("s1/1", image))

	st := c.State()
	assert.Equal(t, StatusIdle, st.Status)
	assert.Equal(t, 0, c.PlayingCount())

	st, err := c.TogglePlay()
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, st.Status, "toggle on an image does nothing")
}

func TestCoordinator_MutePreferenceSurvivesSwitches(t *testing.T) {
	var saved []bool
	c := New(WithMuteListener(func(m bool) { saved = append(saved, m) }))

	require.NoError(t, c.SetActive("s1/0", video))
	assert.False(t, c.ToggleMute())
	assert.Equal(t, StatusPlaying, c.State().Status, "mute does not affect play state")

	require.NoError(t, c.SetActive("s2/0", video))
	el, _ := c.Element("s2/0")
	assert.False(t, el.(*Track).Muted())
	assert.False(t, c.State().IsMuted)
	assert.Equal(t, []bool{false}, saved)

	c.Reset()
	assert.False(t, c.Muted(), "reset keeps the preference")
}

func TestCoordinator_TogglePlayAndSeek(t *testing.T) {
	c := New()
	require.NoError(t, c.SetActive("s1/0", video))
	c.OnProgress("s1/0", time.Second, 8*time.Second)

	st, err := c.TogglePlay()
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, st.Status)

	st = c.Seek(20 * time.Second)
	assert.Equal(t, 8*time.Second, st.CurrentTime, "seek clamps to duration")
	assert.Equal(t, StatusPaused, st.Status, "seek keeps paused")

	st = c.Seek(-time.Second)
	assert.Equal(t, time.Duration(0), st.CurrentTime)

	st, err = c.TogglePlay()
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, st.Status)
}

func TestCoordinator_EndedLoops(t *testing.T) {
	c := New()
	tr := NewTrack()
	c.Register("s1/0", tr)
	require.NoError(t, c.SetActive("s1/0", video))
	c.OnProgress("s1/0", 9*time.Second, 9*time.Second)

	assert.True(t, c.OnEnded("s1/0"))
	assert.Equal(t, time.Duration(0), c.State().CurrentTime)
	assert.True(t, tr.Playing())

	assert.False(t, c.OnEnded("other/0"), "ended from an inactive key is ignored")
}

func TestCoordinator_StaleProgressIgnored(t *testing.T) {
	c := New()
	require.NoError(t, c.SetActive("s1/0", video))
	require.NoError(t, c.SetActive("s2/0", video))

	assert.False(t, c.OnProgress("s1/0", 5*time.Second, 10*time.Second))
	assert.Equal(t, time.Duration(0), c.State().CurrentTime)
}

func TestCoordinator_PlayFailureLeavesPaused(t *testing.T) {
	broken := NewTrack()
	broken.Fail(errors.New("decode error"))

	c := New()
	c.Register("s1/0", broken)

	err := c.SetActive("s1/0", video)
	require.Error(t, err)
	assert.Equal(t, StatusPaused, c.State().Status)
	assert.Equal(t, 0, c.PlayingCount())
}

func TestCoordinator_ForcesStrayElementsToPause(t *testing.T) {
	c := New()
	stray := NewTrack()
	require.NoError(t, stray.Play())
	c.Register("s9/0", stray)

	require.NoError(t, c.SetActive("s1/0", video))

	assert.False(t, stray.Playing())
	assert.Equal(t, 1, c.PlayingCount())
}

func TestCoordinator_AtMostOnePlayingUnderRandomSwitching(t *testing.T) {
	c := New()
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 500; i++ {
		key := fmt.Sprintf("s%d/%d", rng.Intn(6), rng.Intn(3))
		item := image
		if rng.Intn(3) > 0 {
			item = video
		}

		switch rng.Intn(4) {
		case 0:
			_, _ = c.TogglePlay()
		case 1:
			c.OnEnded(c.State().ActiveKey)
		default:
			_ = c.SetActive(key, item)
		}
		require.LessOrEqual(t, c.PlayingCount(), 1)
	}
}

func TestCoordinator_ResetStopsEverything(t *testing.T) {
	c := New()
	require.NoError(t, c.SetActive("s1/0", video))

	c.Reset()

	st := c.State()
	assert.Equal(t, StatusIdle, st.Status)
	assert.Empty(t, st.ActiveKey)
	assert.Equal(t, 0, c.PlayingCount())
}
