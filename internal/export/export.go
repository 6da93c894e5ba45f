// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a set of conversations in one format.
type Exporter interface {
	// Export renders the conversations in list order.
	Export(convs []*model.Conversation) ([]byte, error)

	// FileExtension returns the extension including the dot, e.g. ".md".
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// IncludeTimestamps adds per-message times to Markdown and HTML.
	IncludeTimestamps bool

	// Theme for HTML export, "dark" or "light".
	Theme string

	// Now stamps the file name and the export header. Default: time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeTimestamps: true,
		Theme:             "dark",
		Now:               time.Now,
	}
}

func (o *Options) now() time.Time {
	if o == nil || o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Formats lists the accepted format names.
var Formats = []string{"json", "markdown", "html"}

// ForFormat returns the exporter for a format name. "md" and "htm" are
// accepted as aliases.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONExporter(opts), nil
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// FileName returns lumenarc-chats-YYYYMMDD-HHMMSS<ext>.
func FileName(at time.Time, ext string) string {
	return "lumenarc-chats-" + at.Format("20060102-150405") + ext
}

// ExportToFile renders convs with exporter and writes the result atomically
// into opts.OutputDir. It returns the written path.
func ExportToFile(convs []*model.Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if len(convs) == 0 {
		return "", fmt.Errorf("no conversations to export")
	}

	content, err := exporter.Export(convs)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, FileName(opts.now(), exporter.FileExtension()))
	if err := util.AtomicWriteFileWithDir(path, content, 0o644, 0o755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// ExportAll is ExportToFile with the exporter chosen by format name.
func ExportAll(convs []*model.Conversation, format string, opts *Options) (string, error) {
	exporter, err := ForFormat(format, opts)
	if err != nil {
		return "", err
	}
	return ExportToFile(convs, exporter, opts)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func formatTimestamp(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}

func formatShortTimestamp(t time.Time) string {
	return t.Format("Jan 2, 3:04 PM")
}

// sourceTitle falls back to the URL for citations without a title.
func sourceTitle(c model.Citation) string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	return c.URL
}
