// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package turn

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jeranaias/lumenarc/internal/model"
)

// Handle is a running turn. Each turn owns its own cancellation.
type Handle struct {
	ConversationID     string
	UserMessageID      string
	AssistantMessageID string
	Variant            model.Variant

	cancel    context.CancelFunc
	cancelled atomic.Bool
	state     atomic.Int32

	done   chan struct{}
	result Result
}

// Cancel stops the turn. Content already applied is kept. Safe to call more
// than once and after the turn has settled.
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
	h.cancel()
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Done is closed once the turn has settled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the turn settles and returns its result.
func (h *Handle) Wait() Result {
	<-h.done
	return h.result
}

func (h *Handle) finish(res Result) {
	h.result = res
	h.state.Store(int32(res.State))
	close(h.done)
}

type panicError struct{ v any }

func (e panicError) Error() string { return fmt.Sprintf("provider panicked: %v", e.v) }
