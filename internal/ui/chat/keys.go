// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	// Global
	Quit        key.Binding
	NewChat     key.Binding
	Focus       key.Binding
	Search      key.Binding
	ToggleWeb   key.Binding
	ToggleThink key.Binding
	Attach      key.Binding
	Copy        key.Binding
	Export      key.Binding
	Settings    key.Binding
	Help        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding

	// Composer
	Submit  key.Binding
	Newline key.Binding
	Stop    key.Binding

	// Sidebar
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Rename key.Binding
	Star   key.Binding
	Delete key.Binding

	// Overlays
	Confirm key.Binding
	Back    key.Binding
	Left    key.Binding
	Right   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "switch focus"),
		),
		Search: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("C-f", "search chats"),
		),
		ToggleWeb: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("C-w", "web search"),
		),
		ToggleThink: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "thinking mode"),
		),
		Attach: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "attach image"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy reply"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "export chats"),
		),
		Settings: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "settings"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "help"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),

		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("C-j", "newline"),
		),
		Stop: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "stop response"),
		),

		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous chat"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next chat"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "open chat"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename"),
		),
		Star: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "star"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "confirm"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "close"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("left", "decrease"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("right", "increase"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Stop, k.Focus, k.NewChat, k.ToggleWeb, k.ToggleThink, k.Help}
}

// SidebarHelp returns the bindings shown while the sidebar has focus.
func (k KeyMap) SidebarHelp() []key.Binding {
	return []key.Binding{k.Select, k.Rename, k.Star, k.Delete, k.Search, k.Focus}
}

// FullHelp returns every binding grouped for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Newline, k.Stop, k.Attach, k.ToggleWeb, k.ToggleThink},
		{k.Up, k.Down, k.Select, k.Rename, k.Star, k.Delete, k.Search},
		{k.NewChat, k.Focus, k.Copy, k.Export, k.Settings, k.PageUp, k.PageDown, k.Help, k.Quit},
	}
}
