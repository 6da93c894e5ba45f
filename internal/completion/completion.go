// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package completion defines the boundary to streaming model providers.
package completion

import (
	"context"
	"errors"

	"github.com/jeranaias/lumenarc/internal/model"
)

// DefaultReasoningBudget is the thinking token budget used for pro turns.
const DefaultReasoningBudget = 32768

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Blob is inline binary data, base64 encoded.
type Blob struct {
	MIMEType string
	Data     string
}

// Part is one piece of a message: text or inline data.
type Part struct {
	Text   string
	Inline *Blob
}

// Content is one message of the request history.
type Content struct {
	Role  model.Role
	Parts []Part
}

// Text returns the concatenated text parts.
func (c Content) Text() string {
	var s string
	for _, p := range c.Parts {
		s += p.Text
	}
	return s
}

// Blobs returns the inline data parts.
func (c Content) Blobs() []Blob {
	var out []Blob
	for _, p := range c.Parts {
		if p.Inline != nil {
			out = append(out, *p.Inline)
		}
	}
	return out
}

// Request is a provider-neutral streaming completion request.
type Request struct {
	// Variant selects the provider model.
	Variant model.Variant

	// Contents is the ordered history ending with the new user turn.
	Contents []Content

	Temperature float64

	// Grounding enables the provider's web search tool.
	Grounding bool

	// ReasoningBudget is the extended-reasoning token budget; 0 disables it.
	ReasoningBudget int
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// Chunk is one incremental unit of a streamed response.
type Chunk struct {
	Text      string
	Citations []model.Citation
}

// Stream is a lazy, finite sequence of chunks.
//
// Next advances to the next chunk and reports whether one is available.
// When Next returns false, Err reports why: nil for normal exhaustion and for
// cancellation through the context passed to Service.Stream, non-nil for any
// other failure. Close releases the underlying connection and may be called
// at any point without draining the stream.
type Stream interface {
	Next() bool
	Chunk() Chunk
	Err() error
	Close() error
}

// Service opens streams against a model provider.
type Service interface {
	// Name identifies the provider in logs and the UI.
	Name() string

	// Stream starts a completion. Cancelling ctx stops the stream.
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Canceled reports whether err is only the result of ctx being cancelled.
// Providers use it to turn cancellation into a silent stop.
func Canceled(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled)
}
