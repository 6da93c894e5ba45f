// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openaicompat streams completions from OpenAI-compatible endpoints.
package openaicompat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/lumenarc/internal/completion"
	"github.com/jeranaias/lumenarc/internal/model"
)

// Default model names for each variant.
const (
	DefaultFlashModel = "gpt-4o-mini"
	DefaultProModel   = "o3-mini"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("openai: API key not configured")

// ClientConfig holds configuration options for the client.
type ClientConfig struct {
	APIKey string

	// BaseURL overrides the API root, e.g. a local gateway or OpenRouter.
	BaseURL string

	FlashModel string
	ProModel   string

	Logger *slog.Logger
}

// Client implements completion.Service with go-openai.
type Client struct {
	api    *openai.Client
	config ClientConfig
	log    *slog.Logger
}

// NewClient creates a client, filling zero values with defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.FlashModel == "" {
		cfg.FlashModel = DefaultFlashModel
	}
	if cfg.ProModel == "" {
		cfg.ProModel = DefaultProModel
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		config: cfg,
		log:    log.With("component", "openai"),
	}
}

// Name implements completion.Service.
func (c *Client) Name() string { return "openai" }

// Model returns the model name used for a variant.
func (c *Client) Model(v model.Variant) string {
	if v == model.VariantPro {
		return c.config.ProModel
	}
	return c.config.FlashModel
}

// Stream implements completion.Service. Grounding has no portable equivalent
// on this API and is ignored.
func (c *Client) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	if c.config.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if req.Grounding {
		c.log.Debug("web grounding is not supported by this provider, ignoring")
	}

	s, err := c.api.CreateChatCompletionStream(ctx, c.BuildRequest(req))
	if err != nil {
		if completion.Canceled(ctx, err) {
			return &stream{done: true}, nil
		}
		return nil, wrapError(err)
	}
	return &stream{ctx: ctx, s: s}, nil
}

// BuildRequest translates a provider-neutral request.
func (c *Client) BuildRequest(req completion.Request) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:       c.Model(req.Variant),
		Messages:    make([]openai.ChatCompletionMessage, 0, len(req.Contents)),
		Temperature: float32(req.Temperature),
		Stream:      true,
	}
	for _, content := range req.Contents {
		out.Messages = append(out.Messages, toMessage(content))
	}
	return out
}

func toMessage(content completion.Content) openai.ChatCompletionMessage {
	role := openai.ChatMessageRoleUser
	if content.Role == model.RoleAssistant {
		role = openai.ChatMessageRoleAssistant
	}

	blobs := content.Blobs()
	if len(blobs) == 0 {
		return openai.ChatCompletionMessage{Role: role, Content: content.Text()}
	}

	// Images need the multi-part form; text stays first.
	parts := make([]openai.ChatMessagePart, 0, len(blobs)+1)
	if text := content.Text(); text != "" {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: text})
	}
	for _, b := range blobs {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:" + b.MIMEType + ";base64," + b.Data,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}
}

// =============================================================================
// STREAM
// =============================================================================

type stream struct {
	ctx context.Context
	s   *openai.ChatCompletionStream

	cur  completion.Chunk
	err  error
	done bool
}

func (st *stream) Next() bool {
	for !st.done {
		resp, err := st.s.Recv()
		if err != nil {
			st.done = true
			st.cur = completion.Chunk{}
			if !errors.Is(err, io.EOF) && !completion.Canceled(st.ctx, err) {
				st.err = wrapError(err)
			}
			return false
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		st.cur = completion.Chunk{Text: resp.Choices[0].Delta.Content}
		return true
	}
	return false
}

func (st *stream) Chunk() completion.Chunk { return st.cur }

func (st *stream) Err() error { return st.err }

func (st *stream) Close() error {
	st.done = true
	if st.s == nil {
		return nil
	}
	return st.s.Close()
}

// =============================================================================
// ERRORS
// =============================================================================

// APIError is a provider failure with its HTTP status, when known.
type APIError struct {
	Status  int
	Message string
	Cause   error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return "openai: " + http.StatusText(e.Status) + ": " + e.Message
	}
	return "openai: " + e.Message
}

func (e *APIError) Unwrap() error { return e.Cause }

func wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Cause: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{Status: reqErr.HTTPStatusCode, Message: reqErr.Error(), Cause: err}
	}
	return &APIError{Message: err.Error(), Cause: err}
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}
