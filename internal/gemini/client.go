// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini streams completions from the Gemini Generative Language API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeranaias/lumenarc/internal/completion"
	"github.com/jeranaias/lumenarc/internal/model"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Default model names for each variant.
const (
	DefaultFlashModel = "gemini-2.5-flash"
	DefaultProModel   = "gemini-2.5-pro"
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 * 1024

// ClientConfig holds configuration options for the Gemini client.
type ClientConfig struct {
	// APIKey is sent in the x-goog-api-key header.
	APIKey string

	// BaseURL is the API root (default: https://generativelanguage.googleapis.com)
	BaseURL string

	// FlashModel and ProModel map variants to model names.
	FlashModel string
	ProModel   string

	// ConnectTimeout bounds the wait for response headers. The stream body
	// itself has no timeout; a stalled stream runs until cancelled.
	ConnectTimeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        DefaultBaseURL,
		FlashModel:     DefaultFlashModel,
		ProModel:       DefaultProModel,
		ConnectTimeout: 30 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client implements completion.Service for Gemini.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewClientWithConfig creates a client, filling zero values with defaults.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.FlashModel == "" {
		config.FlashModel = DefaultFlashModel
	}
	if config.ProModel == "" {
		config.ProModel = DefaultProModel
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: config.ConnectTimeout,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		log: log.With("component", "gemini"),
	}
}

// Name implements completion.Service.
func (c *Client) Name() string { return "gemini" }

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Model returns the model name used for a variant.
func (c *Client) Model(v model.Variant) string {
	if v == model.VariantPro {
		return c.config.ProModel
	}
	return c.config.FlashModel
}

// Stream implements completion.Service.
func (c *Client) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(BuildRequest(req))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	modelName := c.Model(req.Variant)
	endpoint := strings.TrimRight(c.config.BaseURL, "/") +
		"/v1beta/models/" + url.PathEscape(modelName) + ":streamGenerateContent?alt=sse"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-goog-api-key", c.config.APIKey)

	c.log.Debug("starting stream", "model", modelName, "contents", len(req.Contents),
		"grounding", req.Grounding, "thinking_budget", req.ReasoningBudget)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if completion.Canceled(ctx, err) {
			return emptyStream{}, nil
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "request to Gemini failed", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, errorFromResponse(resp.StatusCode, data)
	}

	return newStream(ctx, resp.Body), nil
}

// =============================================================================
// REQUEST TRANSLATION
// =============================================================================

// BuildRequest translates a provider-neutral request into the Gemini body.
func BuildRequest(req completion.Request) GenerateRequest {
	out := GenerateRequest{
		Contents: make([]Content, 0, len(req.Contents)),
	}
	for _, c := range req.Contents {
		gc := Content{Role: roleFor(c.Role), Parts: make([]Part, 0, len(c.Parts))}
		for _, p := range c.Parts {
			if p.Inline != nil {
				gc.Parts = append(gc.Parts, Part{InlineData: &InlineData{
					MIMEType: p.Inline.MIMEType,
					Data:     p.Inline.Data,
				}})
				continue
			}
			gc.Parts = append(gc.Parts, Part{Text: p.Text})
		}
		out.Contents = append(out.Contents, gc)
	}

	temp := req.Temperature
	out.GenerationConfig = &GenerationConfig{Temperature: &temp}
	if req.ReasoningBudget > 0 {
		out.GenerationConfig.ThinkingConfig = &ThinkingConfig{ThinkingBudget: req.ReasoningBudget}
	}
	if req.Grounding {
		out.Tools = []Tool{{GoogleSearch: &struct{}{}}}
	}
	return out
}

func roleFor(r model.Role) string {
	if r == model.RoleAssistant {
		return "model"
	}
	return "user"
}
