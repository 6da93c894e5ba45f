// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/jeranaias/lumenarc/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter writes a standalone page. Assistant Markdown is rendered with
// goldmark and code blocks are highlighted with chroma; user text is escaped.
type HTMLExporter struct {
	options *Options
	code    *codeBlockRenderer
	md      goldmark.Markdown
}

// NewHTMLExporter creates an HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	style := "monokai"
	if opts.Theme == "light" {
		style = "github"
	}
	code := newCodeBlockRenderer(style)
	return &HTMLExporter{options: opts, code: code, md: newMarkdown(code)}
}

type htmlPage struct {
	Theme         string
	ExportedAt    string
	CodeCSS       template.CSS
	Conversations []htmlConversation
}

type htmlConversation struct {
	Title    string
	Starred  bool
	Created  string
	Updated  string
	Messages []htmlMessage
}

type htmlMessage struct {
	Role       string
	Label      string
	Time       string
	Failed     bool
	Body       template.HTML
	Images     []htmlImage
	OtherFiles []string
	Citations  []model.Citation
}

type htmlImage struct {
	Name string
	Src  template.URL
}

// Export implements Exporter.
func (e *HTMLExporter) Export(convs []*model.Conversation) ([]byte, error) {
	var css bytes.Buffer
	if err := e.code.writeCSS(&css); err != nil {
		return nil, fmt.Errorf("code stylesheet: %w", err)
	}

	page := htmlPage{
		Theme:      e.options.Theme,
		ExportedAt: formatTimestamp(e.options.now()),
		CodeCSS:    template.CSS(css.String()),
	}
	if page.Theme != "light" {
		page.Theme = "dark"
	}

	for _, conv := range convs {
		if conv == nil {
			continue
		}
		hc := htmlConversation{
			Title:   conv.Title,
			Starred: conv.Starred,
			Created: formatTimestamp(conv.CreatedAt),
			Updated: formatTimestamp(conv.UpdatedAt),
		}
		for _, msg := range conv.Messages {
			hm, err := e.message(msg)
			if err != nil {
				return nil, err
			}
			hc.Messages = append(hc.Messages, hm)
		}
		page.Conversations = append(page.Conversations, hc)
	}

	var out bytes.Buffer
	if err := pageTemplate.Execute(&out, page); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return out.Bytes(), nil
}

func (e *HTMLExporter) message(msg *model.Message) (htmlMessage, error) {
	hm := htmlMessage{
		Role:      string(msg.Role),
		Label:     msg.Role.DisplayName(),
		Failed:    msg.Status == model.StatusError,
		Citations: msg.Citations,
	}
	if msg.IsAssistant() {
		hm.Label += " · " + msg.Variant.DisplayName()
	}
	if e.options.IncludeTimestamps {
		hm.Time = formatShortTimestamp(msg.CreatedAt)
	}

	if msg.IsAssistant() {
		var body bytes.Buffer
		if err := e.md.Convert([]byte(msg.Content), &body); err != nil {
			return hm, fmt.Errorf("render message %s: %w", msg.ID, err)
		}
		hm.Body = template.HTML(body.String())
	} else {
		hm.Body = template.HTML("<p class=\"plain\">" + template.HTMLEscapeString(msg.Content) + "</p>")
	}

	for _, a := range msg.Attachments {
		if a.IsImage() && a.Data != "" && !strings.ContainsAny(a.MIMEType, "\";<>") {
			hm.Images = append(hm.Images, htmlImage{
				Name: a.Name,
				Src:  template.URL("data:" + a.MIMEType + ";base64," + a.Data),
			})
		} else {
			hm.OtherFiles = append(hm.OtherFiles, a.Name)
		}
	}
	return hm, nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>LumenArc conversations</title>
<style>
:root { --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif; --font-mono: "SF Mono", Monaco, "Fira Code", monospace; }
.dark { --bg: #1a1b26; --panel: #24283b; --text: #c0caf5; --muted: #565f89; --border: #414868; --accent: #7aa2f7; --error: #f7768e; }
.light { --bg: #ffffff; --panel: #f7f8fa; --text: #24292e; --muted: #6a737d; --border: #e1e4e8; --accent: #0366d6; --error: #d73a49; }
body { margin: 0; padding: 24px; font-family: var(--font-sans); line-height: 1.6; background: var(--bg); color: var(--text); }
main { max-width: 900px; margin: 0 auto; }
section.conversation { background: var(--panel); border: 1px solid var(--border); border-radius: 12px; padding: 24px; margin-bottom: 32px; }
h1 { margin: 0 0 4px; font-size: 24px; }
.meta { color: var(--muted); font-size: 13px; margin-bottom: 16px; }
article { border-top: 1px solid var(--border); padding: 12px 0; }
article .who { font-weight: 600; color: var(--accent); }
article.user .who { color: var(--text); }
article .when { color: var(--muted); font-size: 12px; margin-left: 8px; }
article.failed .body { color: var(--error); }
.plain { white-space: pre-wrap; }
pre { padding: 12px; border-radius: 8px; overflow-x: auto; font-family: var(--font-mono); font-size: 14px; }
code { font-family: var(--font-mono); }
img.attachment { max-width: 320px; border-radius: 8px; display: block; margin: 8px 0; }
.sources { font-size: 13px; }
footer { color: var(--muted); font-size: 12px; text-align: center; }
{{.CodeCSS}}
</style>
</head>
<body class="{{.Theme}}">
<main>
{{range .Conversations}}<section class="conversation">
<h1>{{.Title}}{{if .Starred}} ★{{end}}</h1>
<div class="meta">Created {{.Created}} · Updated {{.Updated}} · {{len .Messages}} messages</div>
{{range .Messages}}<article class="{{.Role}}{{if .Failed}} failed{{end}}">
<div><span class="who">{{.Label}}</span>{{if .Time}}<span class="when">{{.Time}}</span>{{end}}</div>
{{range .Images}}<img class="attachment" alt="{{.Name}}" src="{{.Src}}">
{{end}}{{range .OtherFiles}}<div class="meta">Attachment: {{.}}</div>
{{end}}<div class="body">{{.Body}}</div>
{{if .Citations}}<div class="sources"><strong>Sources</strong><ol>
{{range .Citations}}<li><a href="{{.URL}}" rel="noopener noreferrer">{{if .Title}}{{.Title}}{{else}}{{.URL}}{{end}}</a></li>
{{end}}</ol></div>{{end}}
</article>
{{end}}</section>
{{end}}<footer>Exported from LumenArc on {{.ExportedAt}}</footer>
</main>
</body>
</html>
`))
