package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"storeviewer/internal/viewer"
	"storeviewer/internal/viewer/reaction"
)

const helpLine = "j/k slide  h/l media  space play  m mute  f like  c cart  q close  drag to swipe"

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	v := m.lastView
	if v.Slide == nil {
		return mutedStyle.Render("viewer closed") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s  %d/%d", strings.ToUpper(string(v.Feed.Phase)), v.Position+1, v.Total)))
	b.WriteString("\n\n")
	b.WriteString(renderMedia(v))
	b.WriteString("\n")

	if s := v.Slide; s.Review != nil {
		b.WriteString(renderReview(s))
	} else if s.Product != nil {
		b.WriteString(renderProduct(s))
	}

	b.WriteString("\n")
	b.WriteString(renderPlayback(v))

	if v.ControlsVisible {
		b.WriteString("\n")
		b.WriteString(controlStyle.Render("⏯ play/pause   🔇 mute   ⏩ seek"))
	}
	if n := len(v.Bursts); n > 0 {
		b.WriteString("  ")
		b.WriteString(heartStyle.Render(strings.Repeat("♥", n)))
	}
	if v.Drag.Axis != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("dragging %s %+.0fpx", v.Drag.Axis, v.Drag.Offset)))
	}

	if note, ok := m.notices.Latest(); ok {
		b.WriteString("\n")
		style := noticeStyle
		if note.Level == reaction.LevelError {
			style = style.Foreground(danger)
		}
		b.WriteString(style.Render(note.Message))
	}

	frame := frameStyle
	if m.width > 4 {
		frame = frame.Width(m.width - 4)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		frame.Render(b.String()),
		mutedStyle.Render(helpLine),
	)
}

func renderMedia(v viewer.View) string {
	s := v.Slide
	idx := v.Feed.MediaIndex
	item := s.Media[idx]

	label := "IMAGE"
	if item.IsVideo() {
		label = "VIDEO"
	}
	line := mediaStyle.Render("["+label+"] ") + mutedStyle.Render(item.URL)
	if s.Placeholder {
		line = badStyle.Render("[unavailable] ") + mutedStyle.Render(item.URL)
	}

	if len(s.Media) > 1 {
		dots := make([]string, len(s.Media))
		for i := range s.Media {
			dots[i] = "○"
			if i == idx {
				dots[i] = "●"
			}
		}
		line += "\n" + strings.Join(dots, " ")
	}
	return line
}

func renderReview(s *viewer.SlideView) string {
	r := s.Review
	var b strings.Builder

	name := r.Author.Name
	if r.Author.Verified {
		name += " ✓"
	}
	b.WriteString(mediaStyle.Render(name))
	b.WriteString("  ")
	b.WriteString(starStyle.Render(strings.Repeat("★", r.Rating) + strings.Repeat("☆", max(5-r.Rating, 0))))
	b.WriteString("\n")
	b.WriteString(r.Text)
	b.WriteString("\n")

	like := "♡"
	if r.UserHasLiked {
		like = heartStyle.Render("♥")
	}
	b.WriteString(fmt.Sprintf("%s %d   💬 %d", like, r.LikeCount, r.CommentCount))
	return b.String()
}

func renderProduct(s *viewer.SlideView) string {
	p := s.Product
	var b strings.Builder

	if p.Brand != "" {
		b.WriteString(mutedStyle.Render(p.Brand))
		b.WriteString("\n")
	}
	b.WriteString(mediaStyle.Render(p.Name))
	b.WriteString("\n")
	b.WriteString(priceStyle.Render(fmt.Sprintf("$%.2f", p.Price)))
	if p.OriginalPrice != nil && *p.OriginalPrice > p.Price {
		b.WriteString(" ")
		b.WriteString(oldStyle.Render(fmt.Sprintf("$%.2f", *p.OriginalPrice)))
		b.WriteString(badStyle.Render(fmt.Sprintf(" -%d%%", p.DiscountPercent())))
	}
	b.WriteString("\n")

	wish := "♡ wishlist"
	if p.InWishlist {
		wish = heartStyle.Render("♥ wishlisted")
	}
	cart := "add to cart"
	if !p.InStock {
		cart = badStyle.Render("out of stock")
	} else if s.CartQuantity > 0 {
		cart = fmt.Sprintf("in cart: %d", s.CartQuantity)
	}
	b.WriteString(wish + "   " + cart)
	return b.String()
}

func renderPlayback(v viewer.View) string {
	pb := v.Playback
	if pb.ActiveKey == "" || v.Slide.Placeholder || !v.Slide.Media[v.Feed.MediaIndex].IsVideo() {
		return ""
	}

	icon := "▶"
	if pb.IsPlaying {
		icon = "⏸"
	}
	sound := "🔊"
	if pb.IsMuted {
		sound = "🔇"
	}

	const width = 30
	filled := 0
	if pb.Duration > 0 {
		filled = int(float64(width) * float64(pb.CurrentTime) / float64(pb.Duration))
	}
	filled = min(max(filled, 0), width)
	bar := strings.Repeat("━", filled) + strings.Repeat("─", width-filled)

	return fmt.Sprintf("%s %s %s %s", icon, bar, clockText(pb.CurrentTime, pb.Duration), sound)
}

func clockText(cur, total time.Duration) string {
	return fmt.Sprintf("%s/%s", mmss(cur), mmss(total))
}

func mmss(d time.Duration) string {
	s := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

