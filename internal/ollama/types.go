// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama streams completions from a local Ollama server.
package ollama

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message in the conversation.
type Message struct {
	Role    string   `json:"role"`             // "user" or "assistant"
	Content string   `json:"content"`          // The message content
	Images  []string `json:"images,omitempty"` // Base64 images for vision models
}

// ChatRequest is the request body for /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`

	// Think asks reasoning models to think before answering. Thinking output
	// arrives in message.thinking and is not shown.
	Think *bool `json:"think,omitempty"`
}

// Options contains model parameters for inference.
type Options struct {
	Temperature float64 `json:"temperature"`       // 0.0-2.0
	NumCtx      int     `json:"num_ctx,omitempty"` // Context window size
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// chatStreamLine is one NDJSON line of a streamed /api/chat response.
type chatStreamLine struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Message   struct {
		Role     string `json:"role"`
		Content  string `json:"content"`
		Thinking string `json:"thinking,omitempty"`
	} `json:"message"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
	Error      string `json:"error,omitempty"`
	EvalCount  int    `json:"eval_count,omitempty"`
}

// OllamaError represents an error from the Ollama API.
type OllamaError struct {
	Error string `json:"error"`
}
