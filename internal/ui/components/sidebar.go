// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/store"
	"github.com/jeranaias/lumenarc/internal/ui/styles"
	"github.com/jeranaias/lumenarc/internal/util"
)

const (
	starMarker      = "★"
	streamingMarker = "~"
)

// =============================================================================
// CONVERSATION LIST
// =============================================================================

// ConversationList draws the sidebar: a title, the search line and the
// conversations grouped by date.
type ConversationList struct {
	Groups []store.DateGroup

	// ActiveID is the conversation shown in the transcript, SelectedID the
	// one under the sidebar cursor.
	ActiveID   string
	SelectedID string

	// Streaming reports conversations with a reply in flight.
	Streaming func(id string) bool

	Query     string
	Searching bool
	Focused   bool

	Width  int
	Height int

	theme *styles.Theme
}

// NewConversationList creates an empty sidebar.
func NewConversationList(theme *styles.Theme) *ConversationList {
	return &ConversationList{Width: 30, Height: 20, theme: theme}
}

// Flatten returns the conversations in display order.
func (l *ConversationList) Flatten() []*model.Conversation {
	var out []*model.Conversation
	for _, g := range l.Groups {
		out = append(out, g.Conversations...)
	}
	return out
}

// View renders the sidebar. Rows scroll so the selected conversation stays
// visible.
func (l *ConversationList) View() string {
	inner := l.Width - 2
	if inner < 8 {
		inner = 8
	}

	header := []string{l.theme.SidebarTitle.Render("LumenArc")}
	switch {
	case l.Searching:
		header = append(header, l.theme.SearchPrompt.Render("/ ")+util.TruncateWidth(l.Query, inner-2)+"_")
	case l.Query != "":
		header = append(header, l.theme.Muted.Render(util.TruncateWidth("filter: "+l.Query, inner)))
	}

	rows, selected := l.rows(inner)
	if len(rows) == 0 {
		msg := "No conversations"
		if l.Query != "" {
			msg = "No matches"
		}
		rows = []string{l.theme.Muted.Render(msg)}
	}

	avail := l.Height - len(header) - 1
	if avail < 1 {
		avail = 1
	}
	rows = window(rows, selected, avail)

	content := strings.Join(append(header, rows...), "\n")
	return l.theme.Sidebar.Width(l.Width).Height(l.Height).Render(content)
}

// rows renders group labels and conversation rows and returns the index of
// the selected row, or -1.
func (l *ConversationList) rows(width int) ([]string, int) {
	var rows []string
	selected := -1
	for gi, g := range l.Groups {
		if gi > 0 {
			rows = append(rows, "")
		}
		rows = append(rows, l.theme.SidebarGroup.Render(g.Label))
		for _, c := range g.Conversations {
			if c.ID == l.SelectedID {
				selected = len(rows)
			}
			rows = append(rows, l.row(c, width))
		}
	}
	return rows, selected
}

func (l *ConversationList) row(c *model.Conversation, width int) string {
	marker := " "
	switch {
	case l.Streaming != nil && l.Streaming(c.ID):
		marker = streamingMarker
	case c.Starred:
		marker = starMarker
	}

	title := util.PadWidth(util.SingleLine(c.Title), width-2)

	style := l.theme.SidebarItem
	switch {
	case l.Focused && c.ID == l.SelectedID:
		style = l.theme.SidebarSelected
	case c.ID == l.ActiveID:
		style = l.theme.SidebarActive
	}

	if marker == starMarker {
		marker = l.theme.Starred.Render(marker)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, marker, " ", style.Render(title))
}

// window returns at most n rows keeping index sel inside the window.
func window(rows []string, sel, n int) []string {
	if len(rows) <= n {
		return rows
	}
	start := 0
	if sel >= n {
		start = sel - n + 1
	}
	if start+n > len(rows) {
		start = len(rows) - n
	}
	return rows[start : start+n]
}
