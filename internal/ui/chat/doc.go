// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat is the LumenArc full-screen chat interface.

The screen has three regions: the conversation sidebar on the left, the
transcript viewport and the composer on the right, and a status bar along the
bottom. Overlays (rename, attach, settings, help, confirmation) draw over the
transcript.

# Streaming

Turns run in the turn controller, which writes every chunk straight into the
conversation store. The model never receives chunks. While a turn is in
flight a 33ms tick compares the store version with the last rendered one and
redraws only when something changed, which caps redraws at about 30 per
second however fast the provider streams.

The controller's EventFinished is forwarded to the program with
Program.Send from the turn goroutine. EventStarted is not forwarded: it fires
synchronously inside Controller.Start, which is called from Update, and
Program.Send would block the event loop waiting on itself.

# Key bindings

See DefaultKeyMap. Keys are grouped into global keys, composer keys and
sidebar keys; the help overlay (F1) lists them all.
*/
package chat
