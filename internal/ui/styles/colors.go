// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Purple - Primary accent, assistant label, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - Brand color, user label, focus ring
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - Enabled toggles
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - Errors and destructive confirmations
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Starred conversations and the pro variant badge
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACES AND TEXT
// =============================================================================

var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}

var SelectionBg = lipgloss.AdaptiveColor{Light: "#BFDBFE", Dark: "#1E3A5F"}

var Overlay = lipgloss.AdaptiveColor{Light: "#D4D4D8", Dark: "#45475A"}

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

var TextSecondary = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#A6ADC8"}

var TextMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#7F849C"}

// LinkColor keeps citation links readable on both backgrounds.
var LinkColor = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicators pairs every status color with an ASCII shape so the
// state is readable without color.
var StatusIndicators = struct {
	Success string
	Error   string
	Info    string
}{
	Success: "[OK]",
	Error:   "[X]",
	Info:    "[i]",
}

// RenderStatus renders a one-line status with its indicator.
func RenderStatus(success bool, message string) string {
	if success {
		return lipgloss.NewStyle().Foreground(Emerald).Bold(true).
			Render(StatusIndicators.Success + " " + message)
	}
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}
