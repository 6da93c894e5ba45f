// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package turn

import (
	"errors"

	"github.com/jeranaias/lumenarc/internal/completion"
	"github.com/jeranaias/lumenarc/internal/model"
)

// ApologyMessage replaces the assistant content of a failed turn.
const ApologyMessage = "Sorry, I couldn't get a response. Please try again."

// Precondition errors returned by Start.
var (
	ErrTurnInProgress      = errors.New("a response is already streaming in this conversation")
	ErrUnknownConversation = errors.New("conversation not found")
	ErrEmptyTurn           = errors.New("nothing to send")
)

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle position of a turn.
type State int32

const (
	StateIdle State = iota
	StateComposingRequest
	StateStreaming
	StateFinalizing
	StateCompleted
	StateCancelled
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComposingRequest:
		return "composing-request"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the turn has settled.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// =============================================================================
// INPUT AND RESULT
// =============================================================================

// Input is one user submission.
type Input struct {
	ConversationID string
	Text           string
	Attachments    []model.Attachment

	// Capability flags for this turn only.
	WebSearch         bool
	ExtendedReasoning bool

	Temperature float64
}

// Result describes a settled turn.
type Result struct {
	ConversationID     string
	UserMessageID      string
	AssistantMessageID string
	Variant            model.Variant

	// State is StateCompleted, StateCancelled or StateFailed.
	State State

	// Err is the provider failure behind StateFailed. It is informational;
	// the store already holds the apology.
	Err error

	// Orphaned is set when the conversation was deleted while streaming.
	Orphaned bool
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies an Event.
type EventKind int

const (
	// EventStarted fires after the user message and placeholder are appended.
	EventStarted EventKind = iota
	// EventChunk fires after a chunk has been applied to the store.
	EventChunk
	// EventFinished fires after finalization and title derivation.
	EventFinished
)

// Event is delivered to the controller's observer from the turn goroutine.
type Event struct {
	Kind               EventKind
	ConversationID     string
	AssistantMessageID string

	// Chunk is set for EventChunk.
	Chunk completion.Chunk

	// Result is set for EventFinished.
	Result Result
}

// Observer receives turn events. It must not block for long: chunks are
// applied on the same goroutine.
type Observer func(Event)
