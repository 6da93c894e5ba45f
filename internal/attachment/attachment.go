// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attachment validates and encodes files picked by the user.
package attachment

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/lumenarc/internal/model"
)

// DefaultMaxBytes is the largest file accepted by default (20 MiB, the
// provider's inline request limit).
const DefaultMaxBytes int64 = 20 << 20

// AllowedTypes lists the accepted MIME types in display order.
var AllowedTypes = []string{
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/heic",
	"image/heif",
}

var extensionTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// =============================================================================
// ERRORS
// =============================================================================

// ValidationError rejects a file before it is attached. Its message is shown
// to the user as is.
type ValidationError struct {
	MIMEType string
	Size     int64
	Limit    int64
}

func (e *ValidationError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("File too large: %s. Please select a file under %s.",
			formatSize(e.Size), formatSize(e.Limit))
	}
	return fmt.Sprintf("Unsupported file type: %s. Please select a PNG, JPEG, WEBP, HEIC, or HEIF file.", e.MIMEType)
}

// =============================================================================
// ENCODER
// =============================================================================

// Encoder turns files into attachments.
type Encoder struct {
	maxBytes int64
}

// NewEncoder creates an encoder. A non-positive limit uses DefaultMaxBytes.
func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{maxBytes: maxBytes}
}

// MaxBytes returns the size limit.
func (e *Encoder) MaxBytes() int64 { return e.maxBytes }

// IsAllowed reports whether a MIME type is on the allow-list.
func IsAllowed(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, t := range AllowedTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// Validate checks type and size without reading any content.
func (e *Encoder) Validate(mimeType string, size int64) error {
	if !IsAllowed(mimeType) {
		return &ValidationError{MIMEType: mimeType}
	}
	if size > e.maxBytes {
		return &ValidationError{MIMEType: mimeType, Size: size, Limit: e.maxBytes}
	}
	return nil
}

// Encode reads r and returns an uploaded attachment. On a validation error no
// attachment is produced. A read failure yields an attachment in the failed
// state together with the error.
func (e *Encoder) Encode(name, mimeType string, r io.Reader) (model.Attachment, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if err := e.Validate(mimeType, 0); err != nil {
		return model.Attachment{}, err
	}

	att := model.Attachment{
		ID:       model.NewID(),
		Name:     name,
		MIMEType: mimeType,
		Status:   model.AttachmentUploading,
	}

	// Read one byte past the limit to detect oversize streams.
	data, err := io.ReadAll(io.LimitReader(r, e.maxBytes+1))
	if err != nil {
		att.Status = model.AttachmentFailed
		return att, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > e.maxBytes {
		return model.Attachment{}, &ValidationError{MIMEType: mimeType, Size: int64(len(data)), Limit: e.maxBytes}
	}

	att.Size = int64(len(data))
	att.Data = base64.StdEncoding.EncodeToString(data)
	att.Status = model.AttachmentUploaded
	return att, nil
}

// EncodeFile opens path, detects its MIME type and encodes it.
func (e *Encoder) EncodeFile(path string) (model.Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Attachment{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return model.Attachment{}, err
	}
	if info.IsDir() {
		return model.Attachment{}, fmt.Errorf("%s is a directory", path)
	}

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	mimeType := DetectMIME(path, head)
	if err := e.Validate(mimeType, info.Size()); err != nil {
		return model.Attachment{}, err
	}

	return e.Encode(filepath.Base(path), mimeType, io.MultiReader(bytes.NewReader(head), f))
}

// DetectMIME guesses a MIME type from the file extension, then from content.
func DetectMIME(name string, head []byte) string {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	t := http.DetectContentType(head)
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return t
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
