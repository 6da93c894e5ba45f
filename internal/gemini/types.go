// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

// =============================================================================
// REQUEST TYPES
// =============================================================================

// GenerateRequest is the body of a streamGenerateContent call.
type GenerateRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
	Tools            []Tool            `json:"tools,omitempty"`
}

// Content is one turn of the conversation.
type Content struct {
	Role  string `json:"role"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part is text or inline data. Thought parts are model reasoning summaries.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
	Thought    bool        `json:"thought,omitempty"`
}

// InlineData carries a base64 payload.
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GenerationConfig holds sampling and reasoning parameters.
type GenerationConfig struct {
	Temperature    *float64        `json:"temperature,omitempty"`
	ThinkingConfig *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// ThinkingConfig sets the extended-reasoning token budget.
type ThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

// Tool enables a built-in tool. Only Google Search grounding is used.
type Tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// GenerateResponse is one streamed event.
type GenerateResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
}

// Candidate is one generated response.
type Candidate struct {
	Content           Content            `json:"content"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// GroundingMetadata lists the web sources a grounded answer used.
type GroundingMetadata struct {
	GroundingChunks  []GroundingChunk `json:"groundingChunks,omitempty"`
	WebSearchQueries []string         `json:"webSearchQueries,omitempty"`
}

// GroundingChunk is one source. Web is nil for non-web sources.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// WebSource is a web page used for grounding.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// PromptFeedback reports a prompt that was blocked by safety filters.
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}
