// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package overlayview

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette of the overlay. Colors are ANSI 256
// codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Speaking outlines the avatar of a user who is talking.
	Speaking lipgloss.Color

	// Muted and Deafened color the status markers.
	Muted    lipgloss.Color
	Deafened lipgloss.Color
	Live     lipgloss.Color

	AvatarForeground lipgloss.Color
	AvatarBackground lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	TestModeAccent   lipgloss.Color

	NotificationBorder lipgloss.Color
	NotificationTitle  lipgloss.Color

	StatusWarn  lipgloss.Color
	StatusError lipgloss.Color
}

// DefaultTheme suits a dark terminal.
var DefaultTheme = Theme{
	NormalText:         lipgloss.Color("252"),
	FaintText:          lipgloss.Color("243"),
	Speaking:           lipgloss.Color("42"),
	Muted:              lipgloss.Color("203"),
	Deafened:           lipgloss.Color("160"),
	Live:               lipgloss.Color("99"),
	AvatarForeground:   lipgloss.Color("255"),
	AvatarBackground:   lipgloss.Color("61"),
	HeaderForeground:   lipgloss.Color("75"),
	BorderColor:        lipgloss.Color("238"),
	TestModeAccent:     lipgloss.Color("214"),
	NotificationBorder: lipgloss.Color("61"),
	NotificationTitle:  lipgloss.Color("255"),
	StatusWarn:         lipgloss.Color("214"),
	StatusError:        lipgloss.Color("196"),
}
