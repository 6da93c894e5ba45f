// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/lumenarc/internal/util"
)

// DefaultTitle is the placeholder title of a conversation nobody has named yet.
const DefaultTitle = "New Chat"

const (
	// titleWords is how many leading words of the first message become the title.
	titleWords = 5

	// titleEllipsisAfter is the message length (in characters) past which the
	// derived title gets an ellipsis.
	titleEllipsisAfter = 30
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a chat with its message history and metadata.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Starred   bool      `json:"starred"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Messages in chronological order. Never reordered.
	Messages []*Message `json:"messages"`
}

// NewConversation creates an empty conversation titled DefaultTitle.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        NewID(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE LOOKUP
// =============================================================================

// MessageByID returns the message with the given ID, or nil.
func (c *Conversation) MessageByID(id string) *Message {
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// LastMessage returns the most recent message, or nil.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// LastAssistantMessage returns the most recent assistant message, or nil.
func (c *Conversation) LastAssistantMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i]
		}
	}
	return nil
}

// FirstUserMessage returns the earliest user message, or nil.
func (c *Conversation) FirstUserMessage() *Message {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			return msg
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// =============================================================================
// TITLES
// =============================================================================

// HasDefaultTitle reports whether the conversation still carries the placeholder title.
func (c *Conversation) HasDefaultTitle() bool {
	return c.Title == DefaultTitle
}

// DeriveTitle builds a title from the first words of a message.
//
//	DeriveTitle("Can you help me plan a trip to Japan for two weeks") == "Can you help me plan..."
//	DeriveTitle("Hi") == "Hi"
func DeriveTitle(text string) string {
	words := strings.Fields(text)
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	title := strings.Join(words, " ")
	if utf8.RuneCountInString(text) > titleEllipsisAfter {
		title += "..."
	}
	return title
}

// Preview returns a single-line preview of the last message.
func (c *Conversation) Preview(maxLen int) string {
	last := c.LastMessage()
	if last == nil {
		return ""
	}
	return util.TruncateRunes(strings.Join(strings.Fields(last.Content), " "), maxLen)
}

// =============================================================================
// COPYING
// =============================================================================

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Messages = make([]*Message, len(c.Messages))
	for i, msg := range c.Messages {
		clone.Messages[i] = msg.Clone()
	}
	return &clone
}
