// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme names accepted by NewTheme.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// StreamSpinner is shown next to a reply that is still streaming.
var StreamSpinner = spinner.Spinner{
	Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	FPS:    time.Second / 12,
}

// Theme holds every lipgloss style the chat screen renders with.
type Theme struct {
	Name         string
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// Sidebar
	Sidebar         lipgloss.Style
	SidebarTitle    lipgloss.Style
	SidebarGroup    lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarActive   lipgloss.Style
	Starred         lipgloss.Style
	SearchPrompt    lipgloss.Style

	// Transcript
	Header         lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ProBadge       lipgloss.Style
	Timestamp      lipgloss.Style
	ErrorText      lipgloss.Style
	Muted          lipgloss.Style
	Link           lipgloss.Style
	Attachment     lipgloss.Style

	// Composer and chrome
	Composer        lipgloss.Style
	ComposerFocused lipgloss.Style
	ToggleOn        lipgloss.Style
	ToggleOff       lipgloss.Style
	StatusBar       lipgloss.Style
	HelpKey         lipgloss.Style
	HelpDesc        lipgloss.Style

	// Overlays
	Overlay      lipgloss.Style
	OverlayTitle lipgloss.Style
	Danger       lipgloss.Style
}

// ResolveDark reports whether name selects a dark palette. "auto" and
// unknown names defer to detect.
func ResolveDark(name string, detect func() bool) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ThemeDark:
		return true
	case ThemeLight:
		return false
	default:
		return detect()
	}
}

// NewTheme creates a theme for name ("auto", "dark" or "light") and points
// lipgloss's adaptive colors at the chosen background.
func NewTheme(name string) *Theme {
	isDark := ResolveDark(name, termenv.HasDarkBackground)
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		Name:         strings.ToLower(strings.TrimSpace(name)),
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	if t.Name == "" {
		t.Name = ThemeAuto
	}
	t.initStyles()
	return t
}

// GlamourStyle names the glamour standard style matching the palette.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return ThemeDark
	}
	return ThemeLight
}

func (t *Theme) initStyles() {
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.SidebarTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		MarginBottom(1)

	t.SidebarGroup = lipgloss.NewStyle().
		Foreground(TextMuted).
		Bold(true)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.SidebarSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)

	t.SidebarActive = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.Starred = lipgloss.NewStyle().Foreground(Amber)

	t.SearchPrompt = lipgloss.NewStyle().Foreground(Cyan)

	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.ProBadge = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.ErrorText = lipgloss.NewStyle().Foreground(Rose)

	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)

	t.Link = lipgloss.NewStyle().
		Foreground(LinkColor).
		Underline(true)

	t.Attachment = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.Composer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)

	t.ComposerFocused = t.Composer.Copy().
		BorderForeground(Cyan)

	t.ToggleOn = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.ToggleOff = lipgloss.NewStyle().Foreground(TextMuted)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.HelpKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.HelpDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.Overlay = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	t.OverlayTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		MarginBottom(1)

	t.Danger = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// SidebarWidth is the conversation list width for the current layout.
// Narrow terminals hide the sidebar.
func (t *Theme) SidebarWidth() int {
	switch t.GetLayoutMode() {
	case LayoutNarrow:
		return 0
	case LayoutMedium:
		return 24
	default:
		return 32
	}
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // >= 100 columns
)
