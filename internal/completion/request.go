// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"github.com/jeranaias/lumenarc/internal/model"
)

// Turn is the new user input of a request.
type Turn struct {
	Text        string
	Attachments []model.Attachment
}

// Options are the per-turn capability flags.
type Options struct {
	Variant         model.Variant
	Temperature     float64
	Grounding       bool
	ReasoningBudget int
}

// NewRequest converts prior history plus the new turn into a Request.
// Messages with neither text nor attachments are left out. The reasoning
// budget is only sent for the pro variant.
func NewRequest(history []*model.Message, turn Turn, opts Options) Request {
	contents := make([]Content, 0, len(history)+1)
	for _, m := range history {
		if c, ok := ContentFromMessage(m); ok {
			contents = append(contents, c)
		}
	}
	if c, ok := buildContent(model.RoleUser, turn.Text, turn.Attachments); ok {
		contents = append(contents, c)
	}

	req := Request{
		Variant:     opts.Variant,
		Contents:    contents,
		Temperature: opts.Temperature,
		Grounding:   opts.Grounding,
	}
	if opts.Variant == model.VariantPro {
		req.ReasoningBudget = opts.ReasoningBudget
	}
	return req
}

// ContentFromMessage converts a stored message. ok is false for empty messages.
func ContentFromMessage(m *model.Message) (Content, bool) {
	if m == nil || !m.HasContent() {
		return Content{}, false
	}
	return buildContent(m.Role, m.Content, m.Attachments)
}

// buildContent puts the text part first, then one inline part per attachment.
func buildContent(role model.Role, text string, atts []model.Attachment) (Content, bool) {
	parts := make([]Part, 0, len(atts)+1)
	if text != "" {
		parts = append(parts, Part{Text: text})
	}
	for _, a := range atts {
		if a.Data == "" {
			continue
		}
		parts = append(parts, Part{Inline: &Blob{MIMEType: a.MIMEType, Data: a.Data}})
	}
	if len(parts) == 0 {
		return Content{}, false
	}
	return Content{Role: role, Parts: parts}, true
}
