// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lumenarc/internal/app"
	"github.com/jeranaias/lumenarc/internal/config"
	"github.com/jeranaias/lumenarc/internal/logger"
	"github.com/jeranaias/lumenarc/internal/turn"
	"github.com/jeranaias/lumenarc/internal/ui/styles"
)

// Sender delivers messages into a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Observer forwards settled turns to s as TurnFinishedMsg. Started and chunk
// events are dropped; see the package documentation.
func Observer(s Sender) turn.Observer {
	return func(ev turn.Event) {
		if ev.Kind == turn.EventFinished {
			s.Send(TurnFinishedMsg{Result: ev.Result})
		}
	}
}

// Run shows the chat screen until the user quits. Running turns are
// cancelled when it returns; a.Close waits for them.
func Run(ctx context.Context, a *app.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	theme := styles.NewTheme(a.Config.UI.Theme)
	p := tea.NewProgram(New(ctx, a, theme),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	a.Controller.SetObserver(Observer(p))
	defer a.Controller.SetObserver(nil)

	go func() {
		err := config.Watch(ctx, func(cfg *config.Config) {
			p.Send(ConfigChangedMsg{Config: cfg})
		})
		if err != nil {
			slog.Warn("config watch stopped", logger.Err(err))
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
