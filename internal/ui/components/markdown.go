// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"
)

// maxCachedRenders bounds the render cache; it is cleared when full.
const maxCachedRenders = 256

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// Renderer renders markdown for the terminal. The glamour renderer is rebuilt
// only when the width or style changes, and rendered output is cached by
// source text so finished messages are not re-rendered on every frame.
type Renderer struct {
	mu      sync.Mutex
	style   string
	enabled bool

	width int
	tr    *glamour.TermRenderer
	cache map[string]string
}

// NewRenderer creates a renderer for a glamour standard style ("dark",
// "light", "notty"). When enabled is false text is only word-wrapped.
func NewRenderer(style string, enabled bool) *Renderer {
	return &Renderer{
		style:   style,
		enabled: enabled,
		cache:   make(map[string]string),
	}
}

// SetStyle switches the glamour style.
func (r *Renderer) SetStyle(style string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if style == r.style {
		return
	}
	r.style = style
	r.reset()
}

// SetEnabled turns markdown styling on or off.
func (r *Renderer) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enabled == r.enabled {
		return
	}
	r.enabled = enabled
	r.reset()
}

// Enabled reports whether markdown styling is on.
func (r *Renderer) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Render renders md wrapped to width columns.
func (r *Renderer) Render(md string, width int) string {
	if width < 10 {
		width = 10
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled {
		return WordWrap(md, width)
	}

	if width != r.width || r.tr == nil {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return WordWrap(md, width)
		}
		r.reset()
		r.tr = tr
		r.width = width
	}

	if out, ok := r.cache[md]; ok {
		return out
	}

	out, err := r.tr.Render(md)
	if err != nil {
		return WordWrap(md, width)
	}
	out = strings.Trim(out, "\n")

	if len(r.cache) >= maxCachedRenders {
		r.cache = make(map[string]string)
	}
	r.cache[md] = out
	return out
}

func (r *Renderer) reset() {
	r.tr = nil
	r.width = 0
	r.cache = make(map[string]string)
}

// =============================================================================
// PLAIN TEXT WRAPPING
// =============================================================================

// WordWrap wraps text at word boundaries to fit width display columns.
// Existing line breaks are kept; a single word wider than width stays whole.
func WordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	for lineIdx, line := range strings.Split(text, "\n") {
		if lineIdx > 0 {
			result.WriteString("\n")
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		current := words[0]
		for _, word := range words[1:] {
			if runewidth.StringWidth(current)+1+runewidth.StringWidth(word) <= width {
				current += " " + word
				continue
			}
			result.WriteString(current)
			result.WriteString("\n")
			current = word
		}
		result.WriteString(current)
	}
	return result.String()
}
