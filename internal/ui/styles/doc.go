// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the LumenArc TUI.

All colors are lipgloss AdaptiveColors. NewTheme resolves the configured
theme name ("auto", "dark" or "light") to a background, tells lipgloss which
half of each adaptive pair to use and builds the styles the chat screen
renders with.

	theme := styles.NewTheme(cfg.UI.Theme)
	theme.SetSize(width, height)
	sidebar := theme.Sidebar.Width(theme.SidebarWidth()).Render(list)

Status lines always pair a color with an ASCII indicator ([OK], [X], [i])
so they stay legible without color.
*/
package styles
