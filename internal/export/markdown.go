// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/lumenarc/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter writes one document with a section per conversation.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export implements Exporter.
func (e *MarkdownExporter) Export(convs []*model.Conversation) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&sb, "conversations: %d\n", len(convs))
	sb.WriteString("generator: lumenarc\n")
	sb.WriteString("---\n\n")

	for i, conv := range convs {
		if conv == nil {
			continue
		}
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		e.writeConversation(&sb, conv)
	}

	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) writeConversation(sb *strings.Builder, conv *model.Conversation) {
	title := escapeMarkdown(conv.Title)
	if conv.Starred {
		title += " ★"
	}
	fmt.Fprintf(sb, "# %s\n\n", title)
	fmt.Fprintf(sb, "- **Created**: %s\n", formatTimestamp(conv.CreatedAt))
	fmt.Fprintf(sb, "- **Last Updated**: %s\n", formatTimestamp(conv.UpdatedAt))
	fmt.Fprintf(sb, "- **Messages**: %d\n\n", len(conv.Messages))

	for _, msg := range conv.Messages {
		label := msg.Role.DisplayName()
		if msg.IsAssistant() {
			label += " (" + msg.Variant.DisplayName() + ")"
		}
		if e.options.IncludeTimestamps {
			fmt.Fprintf(sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.CreatedAt))
		} else {
			fmt.Fprintf(sb, "### %s\n\n", label)
		}

		for _, a := range msg.Attachments {
			fmt.Fprintf(sb, "_Attachment: %s (%s)_\n\n", escapeMarkdown(a.Name), a.MIMEType)
		}

		// Message content is already Markdown.
		if content := strings.TrimSpace(msg.Content); content != "" {
			sb.WriteString(content)
			sb.WriteString("\n\n")
		}

		if len(msg.Citations) > 0 {
			sb.WriteString("**Sources**\n\n")
			for i, c := range msg.Citations {
				fmt.Fprintf(sb, "%d. [%s](%s)\n", i+1, escapeMarkdown(sourceTitle(c)), c.URL)
			}
			sb.WriteString("\n")
		}
	}
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// escapeMarkdown escapes the characters that break headings and link text.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		"#", "\\#",
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"]", "\\]",
	)
	return r.Replace(s)
}
