// Package tui is a terminal host for the viewer. Mouse drags become pointer
// events and keys map to the viewer's discrete actions.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"storeviewer/internal/config"
	"storeviewer/internal/viewer"
	"storeviewer/internal/viewer/clock"
	"storeviewer/internal/viewer/feed"
	"storeviewer/internal/viewer/gesture"
	"storeviewer/internal/viewer/media"
	"storeviewer/internal/viewer/reaction"
)

const (
	tickInterval = 100 * time.Millisecond
	// terminals can't report real video length, so the preview plays
	// every clip as this long
	clipLength = 15 * time.Second
)

type tickMsg time.Time

type Model struct {
	viewer  *viewer.Viewer
	notices *Notices
	clock   clock.Clock
	cellW   float64
	cellH   float64

	width    int
	height   int
	pressed  bool
	lastView viewer.View
	quitting bool
}

func New(v *viewer.Viewer, notices *Notices, c clock.Clock, cfg config.PreviewConfig) Model {
	if c == nil {
		c = clock.Real{}
	}
	if notices == nil {
		notices = &Notices{}
	}
	if cfg.CellWidthPx <= 0 {
		cfg.CellWidthPx = 8
	}
	if cfg.CellHeightPx <= 0 {
		cfg.CellHeightPx = 16
	}
	return Model{
		viewer:   v,
		notices:  notices,
		clock:    c,
		cellW:    cfg.CellWidthPx,
		cellH:    cfg.CellHeightPx,
		lastView: v.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		if !m.viewer.IsOpen() {
			m.quitting = true
			return m, tea.Quit
		}
		m.advancePlayback()
		m.lastView = m.viewer.Snapshot()
		return m, tick()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.viewer.Close(viewer.CloseControl)
		m.quitting = true
		return m, tea.Quit
	case "j", "down":
		m.lastView = m.viewer.Advance(feed.Next)
	case "k", "up":
		m.lastView = m.viewer.Advance(feed.Prev)
	case "l", "right":
		m.lastView = m.viewer.AdvanceMedia(feed.Next)
	case "h", "left":
		m.lastView = m.viewer.AdvanceMedia(feed.Prev)
	case " ", "space":
		m.lastView, _ = m.viewer.TogglePlay()
	case "m":
		m.lastView = m.viewer.ToggleMute()
	case "f":
		kind := reaction.KindLike
		if s := m.lastView.Slide; s != nil && s.Kind == media.SlideProduct {
			kind = reaction.KindWishlist
		}
		m.lastView, _ = m.viewer.ToggleReaction("", kind)
	case "c":
		m.lastView, _ = m.viewer.AddToCart("")
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	p := gesture.Pointer{
		X:      float64(msg.X) * m.cellW,
		Y:      float64(msg.Y) * m.cellH,
		At:     m.clock.Now(),
		Target: gesture.TargetContent,
	}

	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.pressed = true
		p.Type = gesture.PointerDown
	case msg.Action == tea.MouseActionMotion && m.pressed:
		p.Type = gesture.PointerMove
	case msg.Action == tea.MouseActionRelease && m.pressed:
		m.pressed = false
		p.Type = gesture.PointerUp
	default:
		return m, nil
	}

	in, view := m.viewer.HandlePointer(p)
	m.lastView = view
	if in.Kind == gesture.IntentClose {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// advancePlayback stands in for a media element's time updates.
func (m Model) advancePlayback() {
	pb := m.viewer.Snapshot().Playback
	if !pb.IsPlaying {
		return
	}
	next := pb.CurrentTime + tickInterval
	if next >= clipLength {
		m.viewer.ReportEnded(pb.ActiveKey)
		return
	}
	m.viewer.ReportProgress(pb.ActiveKey, next, clipLength)
}
