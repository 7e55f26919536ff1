// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package overlayview

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/chotop-overlay/chotop/lib/config"
	"github.com/chotop-overlay/chotop/lib/notify"
	"github.com/chotop-overlay/chotop/lib/overlay"
)

const (
	// pixelsPerCell converts the pixel margin of the configuration
	// into terminal cells.
	pixelsPerCell = 10

	maxNameWidth         = 24
	maxNotificationWidth = 40
	maxBodyLines         = 2

	// faintBelowOpacity dims the overlay text when the configured
	// opacity is lower, the closest a terminal gets to translucency.
	faintBelowOpacity = 0.75
)

// RenderOptions configures Render.
type RenderOptions struct {
	Theme Theme

	// Renderer carries the color profile. Nil means the default
	// renderer, which detects the profile from stdout.
	Renderer *lipgloss.Renderer

	// Width and Height are the terminal size. When either is zero the
	// panels are returned unpositioned.
	Width  int
	Height int

	// Status replaces the bottom row when non-empty.
	Status string
}

// Render draws a snapshot. The voice panel appears only while the
// snapshot is visible; notifications are drawn regardless.
func Render(snapshot overlay.Snapshot, options RenderOptions) string {
	renderer := options.Renderer
	if renderer == nil {
		renderer = lipgloss.DefaultRenderer()
	}
	styles := newStyles(renderer, options.Theme, snapshot.Overlay)

	var blocks []string
	if voice := voicePanel(snapshot, styles); voice != "" {
		blocks = append(blocks, voice)
	}
	if notifications := notificationPanel(snapshot.Notifications, styles); notifications != "" {
		blocks = append(blocks, notifications)
	}

	position := snapshot.Overlay.Position
	bottom := position == config.BottomLeft || position == config.BottomRight
	right := position == config.TopRight || position == config.BottomRight
	if bottom {
		// Notifications sit between the voice panel and the edge they
		// grow away from.
		for low, high := 0, len(blocks)-1; low < high; low, high = low+1, high-1 {
			blocks[low], blocks[high] = blocks[high], blocks[low]
		}
	}

	horizontal, vertical := lipgloss.Left, lipgloss.Top
	if right {
		horizontal = lipgloss.Right
	}
	if bottom {
		vertical = lipgloss.Bottom
	}

	content := ""
	if len(blocks) > 0 {
		content = lipgloss.JoinVertical(horizontal, blocks...)
	}
	if options.Width <= 0 || options.Height <= 0 {
		return content
	}

	if content != "" {
		content = withMargin(renderer, content, snapshot.Overlay.Margin, right, bottom)
	}
	screen := renderer.Place(options.Width, options.Height, horizontal, vertical, content)
	if options.Status != "" {
		status := ansi.Truncate(options.Status, options.Width, "…")
		screen = splice(screen, []string{status}, 0, options.Height-1)
	}
	return screen
}

// withMargin offsets content from the corner it is anchored to.
func withMargin(renderer *lipgloss.Renderer, content string, margin int, right, bottom bool) string {
	cells := margin / pixelsPerCell
	if cells <= 0 {
		return content
	}
	// Rows are roughly twice as tall as columns are wide.
	rows := max(1, cells/2)
	style := renderer.NewStyle()
	if right {
		style = style.MarginRight(cells)
	} else {
		style = style.MarginLeft(cells)
	}
	if bottom {
		style = style.MarginBottom(rows)
	} else {
		style = style.MarginTop(rows)
	}
	return style.Render(content)
}

type styles struct {
	text         lipgloss.Style
	faint        lipgloss.Style
	header       lipgloss.Style
	testMode     lipgloss.Style
	avatar       lipgloss.Style
	avatarCached lipgloss.Style
	speaking     lipgloss.Style
	muted        lipgloss.Style
	deafened     lipgloss.Style
	live         lipgloss.Style
	panel        lipgloss.Style
	notification lipgloss.Style
	title        lipgloss.Style
}

func newStyles(renderer *lipgloss.Renderer, theme Theme, overlayConfig config.OverlayConfig) styles {
	dim := overlayConfig.Opacity < faintBelowOpacity
	text := renderer.NewStyle().Foreground(theme.NormalText).Faint(dim)
	avatar := renderer.NewStyle().
		Foreground(theme.AvatarForeground).
		Background(theme.AvatarBackground).
		Bold(true).
		Width(avatarWidth(overlayConfig.AvatarSize)).
		Align(lipgloss.Center)

	return styles{
		text:         text,
		faint:        renderer.NewStyle().Foreground(theme.FaintText).Faint(dim),
		header:       renderer.NewStyle().Foreground(theme.HeaderForeground).Bold(true).Faint(dim),
		testMode:     renderer.NewStyle().Foreground(theme.TestModeAccent).Bold(true),
		avatar:       avatar,
		avatarCached: avatar.Underline(true),
		speaking:     text.Foreground(theme.Speaking).Bold(true),
		muted:        renderer.NewStyle().Foreground(theme.Muted),
		deafened:     renderer.NewStyle().Foreground(theme.Deafened),
		live:         renderer.NewStyle().Foreground(theme.Live).Bold(true),
		panel: renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.BorderColor).
			Padding(0, 1),
		notification: renderer.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(theme.NotificationBorder).
			PaddingLeft(1),
		title: renderer.NewStyle().Foreground(theme.NotificationTitle).Bold(true).Faint(dim),
	}
}

// avatarWidth maps the configured avatar size in pixels to a cell
// width that fits two initials.
func avatarWidth(size int) int {
	return max(4, size/8)
}

func voicePanel(snapshot overlay.Snapshot, s styles) string {
	if !snapshot.Visible {
		return ""
	}

	var rows []string
	if snapshot.Overlay.ShowHeader {
		header := s.header.Render(ansi.Truncate(snapshot.ChannelName, maxNameWidth, "…"))
		if snapshot.TestMode {
			header += " " + s.testMode.Render("TEST")
		}
		rows = append(rows, header)
	}
	for _, user := range snapshot.Users {
		rows = append(rows, userRow(user, s))
	}
	return s.panel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func userRow(user overlay.UserView, s styles) string {
	initials := user.Initials
	if initials == "" {
		initials = "?"
	}
	avatarStyle := s.avatar
	if user.AvatarPath != "" {
		avatarStyle = s.avatarCached
	}

	nameStyle := s.text
	marker := " "
	if user.Speaking {
		nameStyle = s.speaking
		marker = s.speaking.Render("▍")
	}
	parts := []string{
		marker + avatarStyle.Render(initials),
		nameStyle.Render(ansi.Truncate(user.Username, maxNameWidth, "…")),
	}
	if user.Deaf {
		parts = append(parts, s.deafened.Render("deaf"))
	} else if user.Mute {
		parts = append(parts, s.muted.Render("muted"))
	}
	if user.Streaming {
		parts = append(parts, s.live.Render("LIVE"))
	}
	return strings.Join(parts, " ")
}

func notificationPanel(items []notify.Item, s styles) string {
	if len(items) == 0 {
		return ""
	}
	cards := make([]string, 0, len(items))
	for index, item := range items {
		cards = append(cards, notificationCard(index, item, s))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func notificationCard(index int, item notify.Item, s styles) string {
	title := ansi.Truncate(item.Content.Title, maxNotificationWidth, "…")
	prefix := ""
	if index < 9 {
		prefix = s.faint.Render(strconv.Itoa(index+1)) + " "
	}
	if item.IconPath != "" {
		prefix += s.faint.Render("◆") + " "
	}

	lines := []string{prefix + s.title.Render(title)}
	for _, line := range excerpt(item.Content.Body, maxNotificationWidth, maxBodyLines) {
		lines = append(lines, s.text.Render(line))
	}
	return s.notification.Render(strings.Join(lines, "\n"))
}

// excerpt returns the first maxLines non-blank lines of body, each
// truncated to maxWidth cells.
func excerpt(body string, maxWidth, maxLines int) []string {
	var result []string
	for line := range strings.SplitSeq(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if ansi.StringWidth(trimmed) > maxWidth {
			trimmed = ansi.Truncate(trimmed, maxWidth-1, "…")
		}
		result = append(result, trimmed)
		if len(result) >= maxLines {
			break
		}
	}
	return result
}

// splice replaces the rows of view starting at (x, y) with lines,
// keeping the escape sequences on both sides intact.
func splice(view string, lines []string, x, y int) string {
	if len(lines) == 0 {
		return view
	}
	viewLines := strings.Split(view, "\n")
	for index, line := range lines {
		row := y + index
		if row < 0 || row >= len(viewLines) {
			continue
		}
		original := viewLines[row]

		var builder strings.Builder
		if x > 0 {
			builder.WriteString(ansi.Truncate(original, x, ""))
		}
		builder.WriteString("\x1b[0m")
		builder.WriteString(line)
		builder.WriteString("\x1b[0m")
		if end := x + ansi.StringWidth(line); end < ansi.StringWidth(original) {
			builder.WriteString(ansi.TruncateLeft(original, end, ""))
		}
		viewLines[row] = builder.String()
	}
	return strings.Join(viewLines, "\n")
}
