// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lumenarc/internal/app"
	"github.com/jeranaias/lumenarc/internal/config"
	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/settings"
	"github.com/jeranaias/lumenarc/internal/turn"
)

// frameInterval caps transcript redraws during streaming at ~30fps.
const frameInterval = 33 * time.Millisecond

// statusTTL is how long a status line stays up.
const statusTTL = 4 * time.Second

// =============================================================================
// MESSAGES
// =============================================================================

// TurnFinishedMsg is sent when a turn settles.
type TurnFinishedMsg struct {
	Result turn.Result
}

// ConfigChangedMsg is sent when the configuration file is reloaded.
type ConfigChangedMsg struct {
	Config *config.Config
}

// streamTickMsg drives redraws while turns are in flight.
type streamTickMsg time.Time

type statusClearMsg struct{ seq int }

type preflightMsg struct{ err error }

type exportDoneMsg struct {
	path string
	err  error
}

type attachDoneMsg struct {
	att model.Attachment
	err error
}

type copyDoneMsg struct {
	chars int
	err   error
}

type settingsSavedMsg struct {
	settings settings.Settings
	err      error
}

// =============================================================================
// COMMANDS
// =============================================================================

func streamTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return streamTickMsg(t)
	})
}

// preflight checks the provider in the background at startup.
func preflight(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		return preflightMsg{err: a.Preflight(ctx)}
	}
}

func clearStatusAfter(seq int) tea.Cmd {
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return statusClearMsg{seq: seq}
	})
}
