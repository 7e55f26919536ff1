// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package overlayview

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/chotop-overlay/chotop/lib/config"
	"github.com/chotop-overlay/chotop/lib/notify"
	"github.com/chotop-overlay/chotop/lib/overlay"
	"github.com/chotop-overlay/chotop/lib/protocol"
)

func plainRenderer() *lipgloss.Renderer {
	renderer := lipgloss.NewRenderer(io.Discard, termenv.WithProfile(termenv.Ascii))
	renderer.SetColorProfile(termenv.Ascii)
	return renderer
}

func renderPlain(snapshot overlay.Snapshot, width, height int, status string) string {
	return ansi.Strip(Render(snapshot, RenderOptions{
		Theme:    DefaultTheme,
		Renderer: plainRenderer(),
		Width:    width,
		Height:   height,
		Status:   status,
	}))
}

func voiceSnapshot() overlay.Snapshot {
	return overlay.Snapshot{
		Visible:     true,
		ChannelName: "General",
		Users: []overlay.UserView{
			{VoiceUser: protocol.VoiceUser{UserID: "1", Username: "Alice Smith", Speaking: true}, Initials: "AS"},
			{VoiceUser: protocol.VoiceUser{UserID: "2", Username: "Bob", Mute: true}, Initials: "B"},
			{VoiceUser: protocol.VoiceUser{UserID: "3", Username: "Carol", Deaf: true, Streaming: true}, Initials: "C", AvatarPath: "/cache/c.png"},
		},
		Overlay: config.Default().Overlay,
	}
}

func TestRenderVoicePanel(t *testing.T) {
	output := renderPlain(voiceSnapshot(), 0, 0, "")

	for _, want := range []string{"General", "AS", "Alice Smith", "Bob", "muted", "Carol", "deaf", "LIVE"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Index(output, "Alice") > strings.Index(output, "Bob") {
		t.Error("users should be drawn in order")
	}
	if strings.Contains(output, "TEST") {
		t.Error("test marker outside test mode")
	}
}

func TestRenderHeaderOptional(t *testing.T) {
	snapshot := voiceSnapshot()
	snapshot.Overlay.ShowHeader = false
	if output := renderPlain(snapshot, 0, 0, ""); strings.Contains(output, "General") {
		t.Errorf("header drawn while disabled:\n%s", output)
	}

	snapshot.Overlay.ShowHeader = true
	snapshot.TestMode = true
	if output := renderPlain(snapshot, 0, 0, ""); !strings.Contains(output, "TEST") {
		t.Errorf("test marker missing:\n%s", output)
	}
}

func TestRenderHiddenWhenEmpty(t *testing.T) {
	snapshot := overlay.Snapshot{Overlay: config.Default().Overlay}
	if output := renderPlain(snapshot, 0, 0, ""); output != "" {
		t.Errorf("expected nothing, got %q", output)
	}

	// Notifications are drawn with nobody in voice.
	snapshot.Notifications = []notify.Item{{
		ID:      "n1",
		Content: protocol.NotificationContent{Title: "Alice", Body: "hello\n\nworld\nthird line"},
	}}
	output := renderPlain(snapshot, 0, 0, "")
	for _, want := range []string{"1", "Alice", "hello", "world"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "third line") {
		t.Errorf("body should be cut to two lines:\n%s", output)
	}
}

func TestRenderTruncatesLongNames(t *testing.T) {
	snapshot := voiceSnapshot()
	snapshot.Users[0].Username = strings.Repeat("x", 100)
	output := renderPlain(snapshot, 0, 0, "")
	if strings.Contains(output, strings.Repeat("x", maxNameWidth+1)) {
		t.Errorf("name not truncated:\n%s", output)
	}
	if !strings.Contains(output, "…") {
		t.Error("expected an ellipsis")
	}
}

func TestRenderCorners(t *testing.T) {
	const width, height = 80, 24
	tests := []struct {
		position config.Position
		right    bool
		bottom   bool
	}{
		{config.TopRight, true, false},
		{config.TopLeft, false, false},
		{config.BottomRight, true, true},
		{config.BottomLeft, false, true},
	}
	for _, test := range tests {
		t.Run(string(test.position), func(t *testing.T) {
			snapshot := voiceSnapshot()
			snapshot.Overlay.Position = test.position
			snapshot.Overlay.Margin = 0

			lines := strings.Split(renderPlain(snapshot, width, height, ""), "\n")
			if len(lines) != height {
				t.Fatalf("got %d lines, want %d", len(lines), height)
			}

			row := 0
			if test.bottom {
				row = height - 1
			}
			edge := lines[row]
			if strings.TrimSpace(edge) == "" {
				t.Fatalf("row %d should hold the panel border:\n%s", row, strings.Join(lines, "\n"))
			}
			if test.right && strings.HasSuffix(edge, " ") {
				t.Errorf("panel should touch the right edge: %q", edge)
			}
			if !test.right && strings.HasPrefix(edge, " ") {
				t.Errorf("panel should touch the left edge: %q", edge)
			}
		})
	}
}

func TestRenderMargin(t *testing.T) {
	snapshot := voiceSnapshot()
	snapshot.Overlay.Position = config.TopLeft
	snapshot.Overlay.Margin = 40

	lines := strings.Split(renderPlain(snapshot, 80, 24, ""), "\n")
	// 40px is four cells across and two rows down.
	if strings.TrimSpace(lines[0]) != "" || strings.TrimSpace(lines[1]) != "" {
		t.Error("expected two blank rows above the panel")
	}
	if !strings.HasPrefix(lines[2], "    ") || strings.HasPrefix(lines[2], "     ") {
		t.Errorf("expected a four-cell indent: %q", lines[2])
	}
}

func TestRenderStatusRow(t *testing.T) {
	output := renderPlain(voiceSnapshot(), 60, 20, "avatar download failed")
	lines := strings.Split(output, "\n")
	if !strings.HasPrefix(lines[len(lines)-1], "avatar download failed") {
		t.Errorf("status row = %q", lines[len(lines)-1])
	}
}

func TestExcerpt(t *testing.T) {
	lines := excerpt("  \nfirst\n"+strings.Repeat("y", 50)+"\nthird", 10, 2)
	if len(lines) != 2 || lines[0] != "first" {
		t.Fatalf("excerpt = %q", lines)
	}
	if ansi.StringWidth(lines[1]) > 10 {
		t.Errorf("line not truncated: %q", lines[1])
	}
}
