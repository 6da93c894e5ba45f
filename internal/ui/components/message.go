// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/ui/styles"
	"github.com/jeranaias/lumenarc/internal/util"
)

// Placeholder shown while a reply has not produced any text yet.
const waitingText = "Thinking"

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// MessageBubble renders one message of a transcript.
type MessageBubble struct {
	Message       *model.Message
	Width         int
	ShowTimestamp bool

	// SpinnerFrame is drawn after a streaming reply.
	SpinnerFrame string

	theme *styles.Theme
	md    *Renderer
}

// NewMessageBubble creates a bubble. A nil md renders assistant text plain.
func NewMessageBubble(msg *model.Message, theme *styles.Theme, md *Renderer) *MessageBubble {
	return &MessageBubble{
		Message:       msg,
		Width:         80,
		ShowTimestamp: true,
		theme:         theme,
		md:            md,
	}
}

// View renders the bubble.
func (b *MessageBubble) View() string {
	if b.Message == nil {
		return ""
	}

	parts := []string{b.renderHeader()}
	if att := b.renderAttachments(); att != "" {
		parts = append(parts, att)
	}
	if body := b.renderBody(); body != "" {
		parts = append(parts, body)
	}
	if src := b.renderCitations(); src != "" {
		parts = append(parts, src)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (b *MessageBubble) contentWidth() int {
	w := b.Width - 2
	if w < 20 {
		w = 20
	}
	return w
}

func (b *MessageBubble) renderHeader() string {
	msg := b.Message
	var label string
	if msg.IsUser() {
		label = b.theme.UserLabel.Render(msg.Role.DisplayName())
	} else {
		label = b.theme.AssistantLabel.Render(msg.Role.DisplayName())
		if msg.Variant == model.VariantPro {
			label += " " + b.theme.ProBadge.Render(msg.Variant.DisplayName())
		}
	}

	if b.ShowTimestamp && !msg.CreatedAt.IsZero() {
		label += " " + b.theme.Timestamp.Render(formatTime(msg.CreatedAt))
	}
	return label
}

func (b *MessageBubble) renderAttachments() string {
	if len(b.Message.Attachments) == 0 {
		return ""
	}
	lines := make([]string, 0, len(b.Message.Attachments))
	for _, a := range b.Message.Attachments {
		name := util.TruncateWidth(a.Name, b.contentWidth()-16)
		lines = append(lines, b.theme.Attachment.Render(fmt.Sprintf("[attached] %s (%s)", name, a.MIMEType)))
	}
	return strings.Join(lines, "\n")
}

func (b *MessageBubble) renderBody() string {
	msg := b.Message
	width := b.contentWidth()

	switch {
	case msg.Status == model.StatusError:
		return b.theme.ErrorText.Render(WordWrap(msg.Content, width))

	case msg.IsStreaming() && msg.Content == "":
		return b.theme.Muted.Render(strings.TrimSpace(b.SpinnerFrame + " " + waitingText))

	case msg.IsUser():
		return WordWrap(msg.Content, width)
	}

	var body string
	if b.md != nil {
		body = b.md.Render(msg.Content, width)
	} else {
		body = WordWrap(msg.Content, width)
	}
	if msg.IsStreaming() && b.SpinnerFrame != "" {
		body += " " + b.theme.Muted.Render(b.SpinnerFrame)
	}
	return body
}

func (b *MessageBubble) renderCitations() string {
	if len(b.Message.Citations) == 0 {
		return ""
	}
	width := b.contentWidth()
	lines := []string{b.theme.Muted.Render("Sources")}
	for i, c := range b.Message.Citations {
		title := c.Title
		if title == "" {
			title = c.URL
		}
		prefix := fmt.Sprintf("[%d] ", i+1)
		lines = append(lines, prefix+b.theme.Link.Render(util.TruncateWidth(title, width-len(prefix))))
		if c.URL != "" && c.URL != title {
			lines = append(lines, strings.Repeat(" ", len(prefix))+b.theme.Muted.Render(util.TruncateWidth(c.URL, width-len(prefix))))
		}
	}
	return strings.Join(lines, "\n")
}

// formatTime formats a time as "3:04 PM".
func formatTime(t time.Time) string {
	return t.Local().Format("3:04 PM")
}

// =============================================================================
// MESSAGE LIST
// =============================================================================

// MessageList renders a whole transcript.
type MessageList struct {
	Messages       []*model.Message
	Width          int
	ShowTimestamps bool
	SpinnerFrame   string

	theme *styles.Theme
	md    *Renderer
}

// NewMessageList creates an empty list.
func NewMessageList(theme *styles.Theme, md *Renderer) *MessageList {
	return &MessageList{
		Width:          80,
		ShowTimestamps: true,
		theme:          theme,
		md:             md,
	}
}

// SetMessages sets the messages to display.
func (ml *MessageList) SetMessages(messages []*model.Message) {
	ml.Messages = messages
}

// SetWidth sets the list width.
func (ml *MessageList) SetWidth(width int) {
	ml.Width = width
}

// View renders all messages separated by blank lines.
func (ml *MessageList) View() string {
	if len(ml.Messages) == 0 {
		return ml.theme.Muted.Italic(true).
			Width(ml.Width).
			Align(lipgloss.Center).
			Render("No messages yet. Type below to start.")
	}

	blocks := make([]string, 0, len(ml.Messages))
	for _, msg := range ml.Messages {
		if msg == nil {
			continue
		}
		bubble := NewMessageBubble(msg, ml.theme, ml.md)
		bubble.Width = ml.Width
		bubble.ShowTimestamp = ml.ShowTimestamps
		if msg.IsStreaming() {
			bubble.SpinnerFrame = ml.SpinnerFrame
		}
		blocks = append(blocks, bubble.View())
	}
	return strings.Join(blocks, "\n\n")
}
