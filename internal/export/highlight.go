// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"html"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmutil "github.com/yuin/goldmark/util"
)

// =============================================================================
// MARKDOWN TO HTML
// =============================================================================

// codeBlockRenderer replaces goldmark's fenced code output with chroma
// highlighting. Colors come from CSS classes so one stylesheet serves the page.
type codeBlockRenderer struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func newCodeBlockRenderer(styleName string) *codeBlockRenderer {
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}
	return &codeBlockRenderer{
		style:     style,
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
	}
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
}

func (r *codeBlockRenderer) renderFencedCode(w gmutil.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	lexer := lexers.Get(string(n.Language(source)))
	if lexer == nil {
		lexer = lexers.Analyse(code.String())
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code.String())
	if err == nil {
		err = r.formatter.Format(w, r.style, it)
	}
	if err != nil {
		// Plain block rather than a broken export.
		_, _ = w.WriteString("<pre><code>" + html.EscapeString(code.String()) + "</code></pre>\n")
	}
	return ast.WalkSkipChildren, nil
}

// writeCSS emits the chroma class stylesheet.
func (r *codeBlockRenderer) writeCSS(buf *bytes.Buffer) error {
	return r.formatter.WriteCSS(buf, r.style)
}

// newMarkdown returns a GFM goldmark instance with highlighted code blocks.
// Raw HTML in messages is dropped.
func newMarkdown(code *codeBlockRenderer) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(gmutil.Prioritized(code, 200)),
		),
	)
}
