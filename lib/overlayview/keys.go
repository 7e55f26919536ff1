// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package overlayview

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the overlay view.
type KeyMap struct {
	// Activate opens the notification with the pressed number,
	// counting from 1 at the oldest.
	Activate key.Binding

	// Dismiss removes the oldest notification without activating it.
	Dismiss key.Binding

	TestMode key.Binding
	Quit     key.Binding
}

// DefaultKeyMap is the built-in binding set.
var DefaultKeyMap = KeyMap{
	Activate: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "open notification"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("x", "delete"),
		key.WithHelp("x", "dismiss"),
	),
	TestMode: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "test mode"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp returns the bindings shown in the status line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Activate, k.Dismiss, k.TestMode, k.Quit}
}
