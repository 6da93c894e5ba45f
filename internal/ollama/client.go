// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama streams completions from a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jeranaias/lumenarc/internal/completion"
	"github.com/jeranaias/lumenarc/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	BaseURL string

	// Timeout for non-streaming requests (default: 10s)
	Timeout time.Duration

	// FlashModel and ProModel map variants to local model tags.
	FlashModel string
	ProModel   string

	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:    "http://127.0.0.1:11434",
		Timeout:    10 * time.Second,
		FlashModel: "llama3.2",
		ProModel:   "qwen3",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client implements completion.Service against the Ollama chat API.
//
// The Client is thread-safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.FlashModel == "" {
		config.FlashModel = defaults.FlashModel
	}
	if config.ProModel == "" {
		config.ProModel = defaults.ProModel
	}
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		log:        log.With("component", "ollama"),
	}
}

// Name implements completion.Service.
func (c *Client) Name() string { return "ollama" }

// Model returns the model tag used for a variant.
func (c *Client) Model(v model.Variant) string {
	if v == model.VariantPro {
		return c.config.ProModel
	}
	return c.config.FlashModel
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return ErrTimeout
		}
		return ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}
	return nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// Stream implements completion.Service. Grounding is not available locally and
// is ignored; the pro variant turns on thinking for models that support it.
func (c *Client) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	body, err := json.Marshal(c.BuildRequest(req))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}
	if req.Grounding {
		c.log.Debug("web grounding is not supported by ollama, ignoring")
	}

	// Use a client without timeout for streaming (we handle timeout via context)
	streamClient := &http.Client{}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := streamClient.Do(httpReq)
	if err != nil {
		if completion.Canceled(ctx, err) {
			return &StreamReader{done: true}, nil
		}
		return nil, ErrNotRunning
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrModelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var ollamaErr OllamaError
		if err := json.NewDecoder(resp.Body).Decode(&ollamaErr); err == nil && ollamaErr.Error != "" {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: ollamaErr.Error}
		}
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "stream request failed: " + resp.Status}
	}

	return NewStreamReader(ctx, resp.Body), nil
}

// BuildRequest translates a provider-neutral request into an /api/chat body.
func (c *Client) BuildRequest(req completion.Request) ChatRequest {
	out := ChatRequest{
		Model:    c.Model(req.Variant),
		Messages: make([]Message, 0, len(req.Contents)),
		Stream:   true,
		Options:  &Options{Temperature: req.Temperature},
	}
	for _, content := range req.Contents {
		msg := Message{Role: string(content.Role), Content: content.Text()}
		for _, b := range content.Blobs() {
			msg.Images = append(msg.Images, b.Data)
		}
		out.Messages = append(out.Messages, msg)
	}
	if req.ReasoningBudget > 0 {
		think := true
		out.Think = &think
	}
	return out
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeModelNotFound
	}
	return false
}

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotRunning
	}
	return false
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return false
}
