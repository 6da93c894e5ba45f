// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lumenarc/internal/ui/styles"
)

// palette holds the line-mode styles, bound to one output's color profile.
type palette struct {
	prompt    lipgloss.Style
	assistant lipgloss.Style
	pro       lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	err       lipgloss.Style
	muted     lipgloss.Style
	link      lipgloss.Style
	active    lipgloss.Style
}

// newPalette builds styles that render plain text when w takes no color.
func newPalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(ColorProfile(w))
	return palette{
		prompt:    r.NewStyle().Foreground(styles.Cyan).Bold(true),
		assistant: r.NewStyle().Foreground(styles.Purple).Bold(true),
		pro:       r.NewStyle().Foreground(styles.Amber).Bold(true),
		success:   r.NewStyle().Foreground(styles.Emerald),
		warning:   r.NewStyle().Foreground(styles.Amber),
		err:       r.NewStyle().Foreground(styles.Rose).Bold(true),
		muted:     r.NewStyle().Foreground(styles.TextMuted),
		link:      r.NewStyle().Foreground(styles.LinkColor).Underline(true),
		active:    r.NewStyle().Foreground(styles.Cyan),
	}
}
