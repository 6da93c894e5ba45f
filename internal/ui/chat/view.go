// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lumenarc/internal/export"
	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/ui/styles"
	"github.com/jeranaias/lumenarc/internal/util"
)

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	main := m.renderMain()
	body := main
	if m.theme.SidebarWidth() > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar())
}

func (m Model) renderMain() string {
	width := m.mainWidth()

	center := m.viewport.View()
	if box := m.renderOverlay(); box != "" {
		center = lipgloss.Place(width, m.viewport.Height, lipgloss.Center, lipgloss.Center, box)
	}

	composer := m.theme.Composer
	if m.focus == focusComposer && m.overlay == overlayNone && !m.activeStreaming() {
		composer = m.theme.ComposerFocused
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(width),
		center,
		m.renderToggles(width),
		composer.Width(width-2).Render(m.composer.View()),
	)
}

// =============================================================================
// HEADER AND TOGGLES
// =============================================================================

func (m Model) renderHeader(width int) string {
	title := "No conversation"
	if conv := m.app.Store.Get(m.activeID); conv != nil {
		title = conv.Title
		if conv.Starred {
			title = "★ " + title
		}
	}

	variant := model.SelectVariant(m.thinking).DisplayName()
	right := m.theme.ProBadge.Render(variant)
	if !m.thinking {
		right = m.theme.Muted.Render(variant)
	}

	avail := width - util.StringWidth(variant) - 4
	left := util.TruncateWidth(util.SingleLine(title), avail)
	gap := width - 2 - util.StringWidth(left) - util.StringWidth(variant)
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderToggles(width int) string {
	parts := []string{
		m.toggle("Web search", m.webSearch),
		m.toggle("Thinking", m.thinking),
	}
	if n := len(m.pending); n > 0 {
		names := make([]string, 0, n)
		for _, a := range m.pending {
			names = append(names, a.Name)
		}
		parts = append(parts, m.theme.Attachment.Render(fmt.Sprintf("%d attached: %s", n, strings.Join(names, ", "))))
	}
	return util.TruncateWidth(strings.Join(parts, "  "), width)
}

func (m Model) toggle(label string, on bool) string {
	if on {
		return m.theme.ToggleOn.Render("[x] " + label)
	}
	return m.theme.ToggleOff.Render("[ ] " + label)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	var line string
	switch {
	case m.status != "":
		line = styles.RenderStatus(!m.statusErr, m.status)
	case m.activeStreaming():
		line = m.spinner.View() + " Streaming  " + m.helpLine([]key.Binding{m.keys.Stop, m.keys.Focus, m.keys.NewChat})
	case m.focus == focusSidebar:
		line = m.helpLine(m.keys.SidebarHelp())
	default:
		line = m.helpLine(m.keys.ShortHelp())
	}
	return m.theme.StatusBar.Width(m.width).Render(util.TruncateWidth(line, m.width-2))
}

func (m Model) helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, m.theme.HelpKey.Render(h.Key)+" "+m.theme.HelpDesc.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) renderOverlay() string {
	switch m.overlay {
	case overlayRename:
		return m.inputBox("Rename chat")
	case overlayAttach:
		return m.inputBox("Attach image")
	case overlaySettings:
		return m.settingsBox()
	case overlayConfirmDeleteAll:
		return m.theme.Overlay.Render(lipgloss.JoinVertical(lipgloss.Left,
			m.theme.Danger.Render("Delete all chats?"),
			"",
			"This cannot be undone.",
			m.theme.Muted.Render("y to delete, any other key to cancel"),
		))
	case overlayHelp:
		return m.helpBox()
	}
	return ""
}

func (m Model) inputBox(title string) string {
	return m.theme.Overlay.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.theme.OverlayTitle.Render(title),
		m.input.View(),
		"",
		m.theme.Muted.Render("Enter to confirm, Esc to cancel"),
	))
}

func (m Model) settingsBox() string {
	s := m.app.Settings.Get()
	onOff := func(v bool) string {
		if v {
			return m.theme.ToggleOn.Render("on")
		}
		return m.theme.ToggleOff.Render("off")
	}

	rows := []struct{ label, value string }{
		{"Web search by default", onOff(s.WebSearchDefault)},
		{"Thinking mode by default", onOff(s.ThinkingModeDefault)},
		{"Temperature", fmt.Sprintf("%.1f", s.Temperature)},
		{"Export format", export.Formats[m.exportFormat]},
		{"Export all chats", ""},
		{"Delete all chats", ""},
	}

	lines := []string{m.theme.OverlayTitle.Render("Settings")}
	for i, r := range rows {
		cursor := "  "
		if i == m.settingsCursor {
			cursor = "> "
		}
		label := util.PadWidth(r.label, 26)
		if i == settingDeleteAll {
			label = m.theme.Danger.Render(label)
		}
		lines = append(lines, cursor+label+" "+r.value)
	}
	lines = append(lines, "", m.theme.Muted.Render("Enter toggle, left/right adjust, Esc close"))
	return m.theme.Overlay.Render(strings.Join(lines, "\n"))
}

func (m Model) helpBox() string {
	lines := []string{m.theme.OverlayTitle.Render("Keys")}
	titles := []string{"Composer", "Sidebar", "General"}
	for i, group := range m.keys.FullHelp() {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, m.theme.SidebarGroup.Render(titles[i]))
		for _, b := range group {
			h := b.Help()
			lines = append(lines, "  "+m.theme.HelpKey.Render(util.PadWidth(h.Key, 8))+" "+h.Desc)
		}
	}
	lines = append(lines, "", m.theme.Muted.Render("any key to close"))
	return m.theme.Overlay.Render(strings.Join(lines, "\n"))
}
