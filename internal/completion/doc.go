// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package completion defines the boundary to streaming model providers.
//
// A Service turns a Request (history, capability flags, temperature) into a
// pull-based Stream of Chunks. Consumers may stop at any time: cancelling the
// context and calling Close is enough, draining is never required.
// Cancellation is not an error: Err returns nil after a cancelled stream.
//
// # Key Types
//
//   - Request, Content, Part, Blob: provider-neutral request
//   - Chunk: text delta plus optional citation batch
//   - Stream: Next/Chunk/Err/Close iterator
//   - Service: provider entry point
//
// # Usage
//
//	req := completion.NewRequest(history, completion.Turn{Text: "Hi"}, completion.Options{
//	    Variant:     model.VariantFlash,
//	    Temperature: 0.7,
//	})
//	stream, err := svc.Stream(ctx, req)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//	    fmt.Print(stream.Chunk().Text)
//	}
//	return stream.Err()
package completion
