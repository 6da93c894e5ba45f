// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/lumenarc/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the full conversation structure. Attachment payloads
// are left out; their name, type and size are kept.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonDocument struct {
	ExportedAt    time.Time          `json:"exportedAt"`
	Generator     string             `json:"generator"`
	Conversations []jsonConversation `json:"conversations"`
}

type jsonConversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Starred   bool          `json:"starred"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Messages  []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	ID           string           `json:"id"`
	Role         model.Role       `json:"role"`
	CreatedAt    time.Time        `json:"createdAt"`
	Content      string           `json:"content"`
	Status       model.Status     `json:"status"`
	ModelVariant model.Variant    `json:"modelVariant"`
	Attachments  []jsonAttachment `json:"attachments,omitempty"`
	Citations    []model.Citation `json:"citations,omitempty"`
}

type jsonAttachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Export implements Exporter.
func (e *JSONExporter) Export(convs []*model.Conversation) ([]byte, error) {
	doc := jsonDocument{
		ExportedAt:    e.options.now().UTC(),
		Generator:     "lumenarc",
		Conversations: make([]jsonConversation, 0, len(convs)),
	}
	for _, c := range convs {
		if c == nil {
			continue
		}
		jc := jsonConversation{
			ID:        c.ID,
			Title:     c.Title,
			Starred:   c.Starred,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
			Messages:  make([]jsonMessage, 0, len(c.Messages)),
		}
		for _, m := range c.Messages {
			jm := jsonMessage{
				ID:           m.ID,
				Role:         m.Role,
				CreatedAt:    m.CreatedAt,
				Content:      m.Content,
				Status:       m.Status,
				ModelVariant: m.Variant,
				Citations:    m.Citations,
			}
			for _, a := range m.Attachments {
				jm.Attachments = append(jm.Attachments, jsonAttachment{Name: a.Name, Type: a.MIMEType, Size: a.Size})
			}
			jc.Messages = append(jc.Messages, jm)
		}
		doc.Conversations = append(doc.Conversations, jc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
