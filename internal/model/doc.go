// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the domain types shared by the store, the turn
// controller, the completion providers and the presentation layer.
//
// # Key Types
//
//   - Conversation: ordered message history with title, star and timestamps
//   - Message: one user or assistant message with status and model variant
//   - Attachment: an encoded image sent with a user message
//   - Citation: a grounding source attached to assistant output
//   - Variant: flash (baseline) or pro (extended reasoning)
//
// # Usage
//
//	conv := model.NewConversation()
//	variant := model.SelectVariant(thinking)
//	user := model.NewUserMessage(conv.ID, "Hello!", nil, variant)
//	reply := model.NewAssistantPlaceholder(conv.ID, variant)
//
// Titles are derived from the first user message:
//
//	model.DeriveTitle("Can you help me plan a trip to Japan") // "Can you help me plan..."
package model
