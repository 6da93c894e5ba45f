// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// =============================================================================
// OPTIONS
// =============================================================================

// SourceFileMode selects how the call site is printed.
type SourceFileMode int

const (
	// NoSource omits the call site.
	NoSource SourceFileMode = iota
	// ShortFile prints the base name, e.g. controller.go:142.
	ShortFile
	// LongFile prints the full path.
	LongFile
)

// Options configures a Handler.
type Options struct {
	// Level is the minimum level written. Nil means slog.LevelInfo.
	Level slog.Leveler

	TimeFormat  string
	SrcFileMode SourceFileMode

	// MsgPrefix is printed between the header and the message.
	MsgPrefix string

	// NoColor strips every ANSI sequence before writing. Set it for files.
	NoColor bool
}

// DefaultOptions returns the options used for terminal output.
func DefaultOptions() Options {
	return Options{
		Level:       slog.LevelInfo,
		TimeFormat:  time.DateTime,
		SrcFileMode: NoSource,
		MsgPrefix:   color.HiWhiteString("| "),
	}
}

// =============================================================================
// HANDLER
// =============================================================================

// Handler is a slog.Handler producing one colored line per record:
//
//	2025-05-01 09:00:00 WARN  | turn failed component=turn error=...
type Handler struct {
	groups []string
	attrs  []slog.Attr
	opts   Options

	mu  *sync.Mutex
	out io.Writer
}

// NewHandler writes records to out.
func NewHandler(out io.Writer, opts Options) *Handler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &Handler{out: out, opts: opts, mu: &sync.Mutex{}}
}

func (h *Handler) clone() *Handler {
	return &Handler{
		groups: append([]string(nil), h.groups...),
		attrs:  append([]slog.Attr(nil), h.attrs...),
		opts:   h.opts,
		mu:     h.mu,
		out:    h.out,
	}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	bf := bufPool.Get().(*bytes.Buffer)
	bf.Reset()
	defer bufPool.Put(bf)

	if !r.Time.IsZero() {
		bf.WriteString(color.New(color.Faint).Sprint(r.Time.Format(h.opts.TimeFormat)))
		bf.WriteByte(' ')
	}
	bf.WriteString(levelBadge(r.Level))
	bf.WriteByte(' ')

	if h.opts.SrcFileMode != NoSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		file := f.File
		if h.opts.SrcFileMode == ShortFile {
			file = filepath.Base(file)
		}
		fmt.Fprintf(bf, "%s:%d ", file, f.Line)
	}

	bf.WriteString(h.opts.MsgPrefix)
	bf.WriteString(r.Message)

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	writeAttr := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		keyColor := color.New(color.FgCyan)
		if strings.Contains(a.Key, "err") {
			keyColor = color.New(color.FgRed)
		}
		bf.WriteByte(' ')
		bf.WriteString(keyColor.Sprintf("%s%s=", prefix, a.Key))
		bf.WriteString(a.Value.Resolve().String())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})
	bf.WriteByte('\n')

	if h.opts.NoColor {
		stripANSI(bf)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(bf.Bytes())
	return err
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	h2.attrs = append(h2.attrs, attrs...)
	return h2
}

func levelBadge(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return color.New(color.BgRed, color.FgHiWhite).Sprint("ERROR")
	case l >= slog.LevelWarn:
		return color.New(color.BgYellow, color.FgHiWhite).Sprint("WARN ")
	case l >= slog.LevelInfo:
		return color.New(color.BgGreen, color.FgHiWhite).Sprint("INFO ")
	default:
		return color.New(color.BgCyan, color.FgHiWhite).Sprint("DEBUG")
	}
}

var bufPool = sync.Pool{
	New: func() any { return &bytes.Buffer{} },
}

var ansiRE = regexp.MustCompile("[\u001B\u009B][[\\]()#;?]*(?:(?:(?:[a-zA-Z\\d]*(?:;[a-zA-Z\\d]*)*)?\u0007)|(?:(?:\\d{1,4}(?:;\\d{0,4})*)?[\\dA-PRZcf-ntqry=><~]))")

func stripANSI(bf *bytes.Buffer) {
	cleaned := ansiRE.ReplaceAll(bf.Bytes(), nil)
	bf.Reset()
	bf.Write(cleaned)
}
