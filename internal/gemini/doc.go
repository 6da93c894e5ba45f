// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini streams completions from the Gemini Generative Language API.
//
// Requests go to models/{model}:streamGenerateContent?alt=sse. The flash
// variant maps to gemini-2.5-flash and pro to gemini-2.5-pro. Grounding adds
// the googleSearch tool; extended reasoning sets thinkingConfig.thinkingBudget.
// Web grounding sources become citations keyed by their URI.
//
// # Usage
//
//	client := gemini.NewClientWithConfig(&gemini.ClientConfig{APIKey: key})
//	stream, err := client.Stream(ctx, req)
package gemini
