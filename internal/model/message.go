// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "LumenArc"
	default:
		return string(r)
	}
}

// =============================================================================
// STATUS TYPE
// =============================================================================

// Status is the lifecycle state of a message.
//
// Assistant messages move pending -> streaming -> done|error. User messages are
// created done. A done or error message is final.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// IsFinal reports whether no further content changes are allowed.
func (s Status) IsFinal() bool {
	return s == StatusDone || s == StatusError
}

// =============================================================================
// VARIANT TYPE
// =============================================================================

// Variant names the model capability tier used for a turn.
type Variant string

const (
	// VariantFlash is the baseline model.
	VariantFlash Variant = "flash"

	// VariantPro is the higher-capability model used for extended reasoning.
	VariantPro Variant = "pro"
)

// SelectVariant returns the variant for a turn given the extended-reasoning flag.
func SelectVariant(extendedReasoning bool) Variant {
	if extendedReasoning {
		return VariantPro
	}
	return VariantFlash
}

// DisplayName returns the label shown next to assistant replies.
func (v Variant) DisplayName() string {
	switch v {
	case VariantPro:
		return "Pro"
	case VariantFlash:
		return "Flash"
	default:
		return string(v)
	}
}

// =============================================================================
// CITATION TYPE
// =============================================================================

// Citation is a source reference attached to assistant output.
type Citation struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	// Identity
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`

	// Content
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Citations   []Citation   `json:"citations,omitempty"`

	// State
	Status  Status  `json:"status"`
	Variant Variant `json:"modelVariant"`
}

// NewUserMessage creates a finished user message.
func NewUserMessage(conversationID, content string, attachments []Attachment, variant Variant) *Message {
	return &Message{
		ID:             NewID(),
		ConversationID: conversationID,
		Role:           RoleUser,
		CreatedAt:      time.Now(),
		Content:        content,
		Attachments:    cloneAttachments(attachments),
		Status:         StatusDone,
		Variant:        variant,
	}
}

// NewAssistantPlaceholder creates an empty assistant message in the streaming state.
func NewAssistantPlaceholder(conversationID string, variant Variant) *Message {
	return &Message{
		ID:             NewID(),
		ConversationID: conversationID,
		Role:           RoleAssistant,
		CreatedAt:      time.Now(),
		Status:         StatusStreaming,
		Variant:        variant,
	}
}

// NewAssistantMessage creates a finished assistant message with fixed content.
func NewAssistantMessage(conversationID, content string, variant Variant) *Message {
	return &Message{
		ID:             NewID(),
		ConversationID: conversationID,
		Role:           RoleAssistant,
		CreatedAt:      time.Now(),
		Content:        content,
		Status:         StatusDone,
		Variant:        variant,
	}
}

// IsUser returns true if this is a user message.
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant returns true if this is an assistant message.
func (m *Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// IsStreaming returns true while the message is still receiving content.
func (m *Message) IsStreaming() bool {
	return m.Status == StatusStreaming
}

// HasContent reports whether the message contributes anything to a request.
func (m *Message) HasContent() bool {
	return m.Content != "" || len(m.Attachments) > 0
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Attachments = cloneAttachments(m.Attachments)
	if m.Citations != nil {
		c.Citations = append([]Citation(nil), m.Citations...)
	}
	return &c
}

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}
