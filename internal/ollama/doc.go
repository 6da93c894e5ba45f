// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama streams completions from a local Ollama server.
//
// The Client implements completion.Service over the NDJSON /api/chat
// endpoint. Attachments are sent as base64 images; the pro variant sets
// "think" for reasoning models. Web grounding has no local equivalent and is
// ignored, so Ollama streams never carry citations.
//
// # Key Types
//
//   - Client: completion.Service for Ollama
//   - StreamReader: completion.Stream over a chat response body
//   - ClientError: typed errors (not running, model not found, ...)
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{FlashModel: "llama3.2"})
//	if err := client.CheckRunning(ctx); err != nil {
//	    return err
//	}
//	stream, err := client.Stream(ctx, req)
package ollama
