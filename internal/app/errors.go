// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"

	"github.com/jeranaias/lumenarc/internal/gemini"
	"github.com/jeranaias/lumenarc/internal/logger"
	"github.com/jeranaias/lumenarc/internal/ollama"
	"github.com/jeranaias/lumenarc/internal/openaicompat"
)

// =============================================================================
// PROVIDER ERRORS
// =============================================================================

// Explain turns a provider error into a line telling the user what to do
// about it. It returns "" when the error itself is all there is to say.
func Explain(err error) string {
	switch {
	case err == nil:
		return ""
	case gemini.IsNotConfigured(err):
		return "No API key set: add provider.api_key to the config or export GEMINI_API_KEY"
	case gemini.IsAuth(err), openaicompat.IsAuth(err):
		return "The provider rejected the API key: check provider.api_key"
	case gemini.IsRateLimited(err):
		return "Rate limited: wait a moment or lower provider.requests_per_minute"
	case ollama.IsNotRunning(err):
		return "Ollama is not running: start it with 'ollama serve'"
	case ollama.IsTimeout(err):
		return "Ollama did not answer in time"
	case ollama.IsModelNotFound(err):
		return "Model not installed: run 'ollama pull' or change provider.flash_model"
	}
	return ""
}

// IsConfigProblem reports whether err can only be fixed by editing the
// configuration.
func IsConfigProblem(err error) bool {
	return gemini.IsNotConfigured(err) || gemini.IsAuth(err) || openaicompat.IsAuth(err)
}

// healthChecker is implemented by providers that can be probed before use.
type healthChecker interface {
	CheckRunning(ctx context.Context) error
}

// Preflight probes the configured provider when it supports a health check,
// so a local server that is down is reported before the first turn.
func (a *App) Preflight(ctx context.Context) error {
	hc, ok := a.backend.(healthChecker)
	if !ok {
		return nil
	}
	if err := hc.CheckRunning(ctx); err != nil {
		a.log.Debug("provider preflight failed", "provider", a.backend.Name(), logger.Err(err))
		return err
	}
	return nil
}
