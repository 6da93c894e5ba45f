// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the visual building blocks of the LumenArc TUI.

  - Renderer turns assistant markdown into styled terminal text with glamour
    and caches the output per width and style.
  - MessageBubble and MessageList lay out a conversation transcript,
    including attachments, citations and the streaming indicator.
  - ConversationList draws the date-grouped sidebar.

Components are plain values rendered through View; state changes happen in
the chat model that owns them.
*/
package components
