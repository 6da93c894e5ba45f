// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lumenarc/internal/model"
)

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func sampleConversations() []*model.Conversation {
	conv := model.NewConversation()
	conv.Title = "Capital of France"
	conv.Starred = true
	conv.CreatedAt = fixedNow.Add(-time.Hour)
	conv.UpdatedAt = fixedNow

	user := model.NewUserMessage(conv.ID, "What is the capital of France? <b>bold</b>", []model.Attachment{{
		ID: "a1", Name: "map.png", MIMEType: "image/png", Size: 3, Data: "aGk=", Status: model.AttachmentUploaded,
	}}, model.VariantFlash)
	reply := model.NewAssistantMessage(conv.ID, "The capital is **Paris**.\n\n```go\nfmt.Println(\"Paris\")\n```\n", model.VariantFlash)
	reply.Citations = []model.Citation{{ID: "https://x", URL: "https://x", Title: "X"}}
	conv.Messages = []*model.Message{user, reply}

	second := model.NewConversation()
	second.Title = "Second chat"
	second.Messages = []*model.Message{model.NewAssistantMessage(second.ID, "Hello!", model.VariantPro)}

	return []*model.Conversation{conv, second}
}

func testOptions(dir string) *Options {
	return &Options{OutputDir: dir, IncludeTimestamps: true, Theme: "dark", Now: func() time.Time { return fixedNow }}
}

func TestFileName(t *testing.T) {
	got := FileName(fixedNow, ".md")
	if got != "lumenarc-chats-20250314-150926.md" {
		t.Errorf("FileName = %q, want %q", got, "lumenarc-chats-20250314-150926.md")
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"json", ".json"},
		{"markdown", ".md"},
		{"MD", ".md"},
		{"html", ".html"},
		{"htm", ".html"},
	}
	for _, tt := range tests {
		e, err := ForFormat(tt.format, nil)
		if err != nil {
			t.Errorf("ForFormat(%q) error = %v", tt.format, err)
			continue
		}
		if e.FileExtension() != tt.ext {
			t.Errorf("ForFormat(%q).FileExtension() = %q, want %q", tt.format, e.FileExtension(), tt.ext)
		}
	}
	if _, err := ForFormat("pdf", nil); err == nil {
		t.Error("ForFormat(pdf) = nil error, want unsupported")
	}
}

func TestJSONExport(t *testing.T) {
	data, err := NewJSONExporter(testOptions("")).Export(sampleConversations())
	require.NoError(t, err)

	var doc struct {
		Conversations []struct {
			Title    string `json:"title"`
			Starred  bool   `json:"starred"`
			Messages []struct {
				Role         string `json:"role"`
				ModelVariant string `json:"modelVariant"`
				Attachments  []struct {
					Name string `json:"name"`
					Type string `json:"type"`
				} `json:"attachments"`
				Citations []model.Citation `json:"citations"`
			} `json:"messages"`
		} `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Conversations, 2)

	first := doc.Conversations[0]
	assert.Equal(t, "Capital of France", first.Title)
	assert.True(t, first.Starred)
	require.Len(t, first.Messages, 2)
	assert.Equal(t, "image/png", first.Messages[0].Attachments[0].Type)
	assert.Equal(t, "flash", first.Messages[1].ModelVariant)
	assert.Equal(t, "https://x", first.Messages[1].Citations[0].URL)

	assert.NotContains(t, string(data), "aGk=", "attachment payloads are not exported")
}

func TestMarkdownExport(t *testing.T) {
	data, err := NewMarkdownExporter(testOptions("")).Export(sampleConversations())
	require.NoError(t, err)
	md := string(data)

	for _, want := range []string{
		"# Capital of France ★",
		"### You <sub>",
		"### LumenArc (Flash)",
		"_Attachment: map.png (image/png)_",
		"The capital is **Paris**.",
		"1. [X](https://x)",
		"# Second chat",
		"### LumenArc (Pro)",
		"conversations: 2",
	} {
		assert.Contains(t, md, want)
	}
}

func TestMarkdownWithoutTimestamps(t *testing.T) {
	opts := testOptions("")
	opts.IncludeTimestamps = false
	data, err := NewMarkdownExporter(opts).Export(sampleConversations())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<sub>")
}

func TestHTMLExport(t *testing.T) {
	data, err := NewHTMLExporter(testOptions("")).Export(sampleConversations())
	require.NoError(t, err)
	page := string(data)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, `<body class="dark">`)
	assert.Contains(t, page, "<strong>Paris</strong>", "assistant markdown rendered")
	assert.Contains(t, page, "&lt;b&gt;bold&lt;/b&gt;", "user text escaped")
	assert.NotContains(t, page, "<b>bold</b>")
	assert.Contains(t, page, `class="chroma"`, "code block highlighted")
	assert.Contains(t, page, `src="data:image/png;base64,aGk="`)
	assert.Contains(t, page, `<a href="https://x"`)
	assert.Contains(t, page, "Capital of France ★")
}

func TestHTMLDropsRawHTMLFromReplies(t *testing.T) {
	conv := model.NewConversation()
	conv.Messages = []*model.Message{model.NewAssistantMessage(conv.ID, "hi <script>alert(1)</script>", model.VariantFlash)}

	data, err := NewHTMLExporter(testOptions("")).Export([]*model.Conversation{conv})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<script>alert(1)</script>")
}

func TestExportAllWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := ExportAll(sampleConversations(), "markdown", testOptions(dir))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lumenarc-chats-20250314-150926.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Capital of France")
}

func TestExportAllErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ExportAll(nil, "json", testOptions(dir)); err == nil {
		t.Error("ExportAll(nil) = nil error, want error")
	}
	if _, err := ExportAll(sampleConversations(), "docx", testOptions(dir)); err == nil {
		t.Error("ExportAll(docx) = nil error, want error")
	}
}
