// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// AttachmentStatus tracks an attachment through encoding.
type AttachmentStatus string

const (
	AttachmentQueued    AttachmentStatus = "queued"
	AttachmentUploading AttachmentStatus = "uploading"
	AttachmentUploaded  AttachmentStatus = "uploaded"
	AttachmentFailed    AttachmentStatus = "failed"
)

// Attachment is an encoded file sent alongside a user message.
// Once it belongs to a sent message it is never modified.
type Attachment struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	MIMEType string           `json:"type"`
	Size     int64            `json:"size"`
	Status   AttachmentStatus `json:"status"`

	// Data is the base64 payload.
	Data string `json:"base64,omitempty"`
}

// IsImage reports whether the attachment carries an image MIME type.
func (a Attachment) IsImage() bool {
	return len(a.MIMEType) > 6 && a.MIMEType[:6] == "image/"
}

func cloneAttachments(in []Attachment) []Attachment {
	if in == nil {
		return nil
	}
	return append([]Attachment(nil), in...)
}
