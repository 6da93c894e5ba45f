// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lumenarc/internal/app"
	"github.com/jeranaias/lumenarc/internal/completion"
	"github.com/jeranaias/lumenarc/internal/config"
	"github.com/jeranaias/lumenarc/internal/gemini"
	"github.com/jeranaias/lumenarc/internal/kv"
	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/ollama"
	"github.com/jeranaias/lumenarc/internal/settings"
	"github.com/jeranaias/lumenarc/internal/store"
	"github.com/jeranaias/lumenarc/internal/turn"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeService struct {
	chunks []completion.Chunk
	block  bool
	err    error

	// onStream runs in the turn goroutine before the stream is returned.
	onStream func()

	mu       sync.Mutex
	requests []completion.Request
}

func (f *fakeService) Name() string { return "fake" }

func (f *fakeService) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.onStream != nil {
		f.onStream()
	}
	return &fakeStream{ctx: ctx, chunks: f.chunks, block: f.block, err: f.err}, nil
}

func (f *fakeService) lastRequest(t *testing.T) completion.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

type fakeStream struct {
	ctx    context.Context
	chunks []completion.Chunk
	i      int
	block  bool
	err    error
}

func (s *fakeStream) Next() bool {
	if s.i < len(s.chunks) {
		s.i++
		return true
	}
	if s.block {
		<-s.ctx.Done()
	}
	return false
}

func (s *fakeStream) Chunk() completion.Chunk { return s.chunks[s.i-1] }

func (s *fakeStream) Err() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return s.err
}

func (s *fakeStream) Close() error { return nil }

// syncBuffer is written by the turn goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func textChunks(parts ...string) []completion.Chunk {
	out := make([]completion.Chunk, len(parts))
	for i, p := range parts {
		out[i] = completion.Chunk{Text: p}
	}
	return out
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestApp(t *testing.T, svc completion.Service) *app.App {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	t.Setenv("LUMENARC_HOME", t.TempDir())

	cfg := config.Default()
	cfg.UI.RenderMarkdown = false
	a, err := app.New(context.Background(), cfg, app.WithKV(kv.NewMemory()), app.WithProvider(svc))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		wantErr bool
		check   func(*testing.T, Args)
	}{
		{name: "no args is tui", argv: nil, wantCmd: CmdTUI},
		{name: "tui", argv: []string{"tui"}, wantCmd: CmdTUI},
		{name: "chat", argv: []string{"chat"}, wantCmd: CmdChat},
		{name: "chat extra arg", argv: []string{"chat", "extra"}, wantErr: true},
		{name: "version flag", argv: []string{"-v"}, wantCmd: CmdVersion},
		{name: "version command", argv: []string{"version"}, wantCmd: CmdVersion},
		{name: "help flag", argv: []string{"--help"}, wantCmd: CmdHelp},
		{name: "unknown command", argv: []string{"frobnicate"}, wantErr: true},
		{name: "unknown global flag", argv: []string{"--bogus"}, wantErr: true},
		{
			name: "global config and debug", argv: []string{"--config", "a.toml", "--debug", "chat"}, wantCmd: CmdChat,
			check: func(t *testing.T, a Args) {
				if a.ConfigFile != "a.toml" || !a.Debug {
					t.Errorf("ConfigFile = %q, Debug = %v", a.ConfigFile, a.Debug)
				}
			},
		},
		{
			name: "ask with flags", argv: []string{"ask", "--search", "--think", "hello", "world"}, wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				if a.Query != "hello world" {
					t.Errorf("Query = %q, want %q", a.Query, "hello world")
				}
				if !a.Search || !a.Think {
					t.Errorf("Search = %v, Think = %v, want both true", a.Search, a.Think)
				}
			},
		},
		{
			name: "ask file only", argv: []string{"ask", "-f", "cat.png"}, wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				if a.File != "cat.png" || a.Query != "" {
					t.Errorf("File = %q, Query = %q", a.File, a.Query)
				}
			},
		},
		{
			name: "ask file equals", argv: []string{"ask", "--file=cat.png", "what is this"}, wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				if a.File != "cat.png" || a.Query != "what is this" {
					t.Errorf("File = %q, Query = %q", a.File, a.Query)
				}
			},
		},
		{
			name: "ask double dash", argv: []string{"ask", "--", "--search", "means what"}, wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				if a.Query != "--search means what" || a.Search {
					t.Errorf("Query = %q, Search = %v", a.Query, a.Search)
				}
			},
		},
		{name: "ask empty", argv: []string{"ask"}, wantErr: true},
		{name: "ask unknown flag", argv: []string{"ask", "--loud", "hi"}, wantErr: true},
		{name: "ask file missing value", argv: []string{"ask", "--file"}, wantErr: true},
		{
			name: "export defaults", argv: []string{"export"}, wantCmd: CmdExport,
			check: func(t *testing.T, a Args) {
				if a.Format != "json" || a.OutDir != "." {
					t.Errorf("Format = %q, OutDir = %q", a.Format, a.OutDir)
				}
			},
		},
		{
			name: "export flags", argv: []string{"export", "--format", "MD", "-o", "/tmp/out"}, wantCmd: CmdExport,
			check: func(t *testing.T, a Args) {
				if a.Format != "md" || a.OutDir != "/tmp/out" {
					t.Errorf("Format = %q, OutDir = %q", a.Format, a.OutDir)
				}
			},
		},
		{name: "export bad format", argv: []string{"export", "--format=pdf"}, wantErr: true},
		{
			name: "config default show", argv: []string{"config"}, wantCmd: CmdConfig,
			check: func(t *testing.T, a Args) {
				if a.Subcommand != ConfigShow {
					t.Errorf("Subcommand = %q, want %q", a.Subcommand, ConfigShow)
				}
			},
		},
		{
			name: "config init force", argv: []string{"config", "init", "--force"}, wantCmd: CmdConfig,
			check: func(t *testing.T, a Args) {
				if a.Subcommand != ConfigInit || !a.Force {
					t.Errorf("Subcommand = %q, Force = %v", a.Subcommand, a.Force)
				}
			},
		},
		{
			name: "config set-setting", argv: []string{"config", "set-setting", "temperature", "0.3"}, wantCmd: CmdConfig,
			check: func(t *testing.T, a Args) {
				if a.ConfigKey != "temperature" || a.ConfigVal != "0.3" {
					t.Errorf("ConfigKey = %q, ConfigVal = %q", a.ConfigKey, a.ConfigVal)
				}
			},
		},
		{name: "config set-setting missing value", argv: []string{"config", "set-setting", "temperature"}, wantErr: true},
		{name: "config unknown", argv: []string{"config", "bogus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) error = nil, want error", tt.argv)
				}
				if code := ExitCode(err); code != ExitUsageError {
					t.Errorf("ExitCode = %d, want %d", code, ExitUsageError)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.argv, err)
			}
			if cmd != tt.wantCmd {
				t.Errorf("Parse(%q) command = %v, want %v", tt.argv, cmd, tt.wantCmd)
			}
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", usageErrorf("ask", "bad"), ExitUsageError},
		{"wrapped usage", fmt.Errorf("outer: %w", usageErrorf("", "bad")), ExitUsageError},
		{"invalid config", config.ValidationError{Field: "ui.theme", Message: "bad"}, ExitConfigError},
		{"turn failure", &TurnError{Err: errors.New("503")}, ExitGeneralError},
		{"missing api key", &TurnError{Err: gemini.ErrNotConfigured}, ExitConfigError},
		{"rejected api key", &TurnError{Err: gemini.ErrAuthFailed}, ExitConfigError},
		{"local server down", fmt.Errorf("provider unavailable: %w", ollama.ErrNotRunning), ExitGeneralError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%s) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestExitCodeInvalidConfigList(t *testing.T) {
	cfg := config.Default()
	cfg.UI.Theme = "neon"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

func TestFormatError(t *testing.T) {
	assert.Empty(t, FormatError(nil))
	assert.Equal(t, "Error: boom\n", FormatError(errors.New("boom")))

	got := FormatError(&TurnError{Err: gemini.ErrNotConfigured})
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.Len(t, lines, 2, got)
	assert.Equal(t, "Error: response failed: Gemini API key not configured", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Hint: "), lines[1])
	assert.Contains(t, lines[1], "provider.api_key")
}

func TestPrintUsageAndVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	for _, want := range []string{"lumenarc [flags] [command]", "ask [flags]", "set-setting"} {
		assert.Contains(t, buf.String(), want)
	}

	buf.Reset()
	PrintVersion(&buf)
	assert.True(t, strings.HasPrefix(buf.String(), "lumenarc "+Version))
}

// =============================================================================
// ASK TESTS
// =============================================================================

func TestRunAskStreamsToPipe(t *testing.T) {
	svc := &fakeService{chunks: []completion.Chunk{
		{Text: "Hello "},
		{Text: "world", Citations: []model.Citation{{URL: "https://example.com", Title: "Example"}}},
	}}
	a := newTestApp(t, svc)

	var out bytes.Buffer
	err := RunAsk(context.Background(), a, Args{Query: "hi", Search: true, Think: true}, &out)
	require.NoError(t, err)

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "Hello world\n"), "output: %q", got)
	assert.Contains(t, got, "Sources")
	assert.Contains(t, got, "[1] Example")
	assert.Contains(t, got, "https://example.com")

	req := svc.lastRequest(t)
	assert.True(t, req.Grounding)
	assert.Equal(t, model.VariantPro, req.Variant)
	assert.Len(t, req.Contents, 1, "ask starts a fresh conversation")
}

func TestRunAskFailure(t *testing.T) {
	svc := &fakeService{chunks: textChunks("par"), err: errors.New("upstream 503")}
	a := newTestApp(t, svc)

	var out bytes.Buffer
	err := RunAsk(context.Background(), a, Args{Query: "hi"}, &out)
	require.Error(t, err)

	var turnErr *TurnError
	require.ErrorAs(t, err, &turnErr)
	assert.Contains(t, err.Error(), "upstream 503")
	assert.Equal(t, ExitGeneralError, ExitCode(err))
	assert.Contains(t, out.String(), turn.ApologyMessage)
}

func TestRunAskChecksLocalServerFirst(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downURL := down.URL
	down.Close()

	a := newTestApp(t, ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: downURL}))
	before := a.Store.Len()

	var out bytes.Buffer
	err := RunAsk(context.Background(), a, Args{Query: "hi"}, &out)
	require.Error(t, err)
	assert.True(t, ollama.IsNotRunning(err), "err = %v", err)
	assert.Contains(t, FormatError(err), "ollama serve")
	assert.Equal(t, before, a.Store.Len(), "no conversation is created for a turn that cannot run")
	assert.Empty(t, out.String())
}

func TestRunAskWithAttachment(t *testing.T) {
	svc := &fakeService{chunks: textChunks("A cat.")}
	a := newTestApp(t, svc)

	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))

	var out bytes.Buffer
	require.NoError(t, RunAsk(context.Background(), a, Args{File: path}, &out))

	req := svc.lastRequest(t)
	last := req.Contents[len(req.Contents)-1]
	blobs := last.Blobs()
	require.Len(t, blobs, 1)
	assert.Equal(t, "image/png", blobs[0].MIMEType)
	assert.Equal(t, "", last.Text())
}

func TestRunAskRejectsUnsupportedFile(t *testing.T) {
	svc := &fakeService{chunks: textChunks("unused")}
	a := newTestApp(t, svc)

	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0o600))

	err := RunAsk(context.Background(), a, Args{Query: "summarize", File: path}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported file type")

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Empty(t, svc.requests)
}

func TestRunAskCancelledKeepsPartial(t *testing.T) {
	svc := &fakeService{chunks: textChunks("partial"), block: true}
	a := newTestApp(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- RunAsk(ctx, a, Args{Query: "long story"}, out) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "partial") }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunAsk did not return after cancel")
	}
	assert.Contains(t, out.String(), "[Stopped]")
}

// =============================================================================
// CHAT SESSION TESTS
// =============================================================================

func TestChatSessionSend(t *testing.T) {
	svc := &fakeService{chunks: textChunks("Hi ", "there")}
	a := newTestApp(t, svc)

	var out bytes.Buffer
	s := NewChatSession(a, &out)
	welcome := s.ActiveID()
	require.NotEmpty(t, welcome)

	require.NoError(t, s.Send(context.Background(), "hello"))
	assert.Contains(t, out.String(), "LumenArc\nHi there\n")

	conv := a.Store.Get(welcome)
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "Hi there", conv.Messages[2].Content)
	assert.Equal(t, model.StatusDone, conv.Messages[2].Status)

	out.Reset()
	_, err := s.HandleCommand(context.Background(), "/list")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "\n       Hi there\n", "rows preview the latest message")
}

func TestChatSessionPrintErrorAddsHint(t *testing.T) {
	a := newTestApp(t, &fakeService{})

	var out bytes.Buffer
	s := NewChatSession(a, &out)

	s.printError(errors.New("boom"))
	assert.Equal(t, "[Error] boom\n", out.String())

	out.Reset()
	s.printError(&TurnError{Err: gemini.ErrNotConfigured})
	assert.Contains(t, out.String(), "[Error] response failed: Gemini API key not configured\n")
	assert.Contains(t, out.String(), "provider.api_key")
}

func TestChatSessionTogglesAndAttachments(t *testing.T) {
	svc := &fakeService{chunks: textChunks("ok")}
	a := newTestApp(t, svc)
	ctx := context.Background()

	var out bytes.Buffer
	s := NewChatSession(a, &out)

	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))

	for _, line := range []string{"/search on", "/think", "/attach " + path} {
		cont, err := s.HandleCommand(ctx, line)
		require.NoError(t, err, line)
		require.True(t, cont)
	}
	assert.Equal(t, "you [web pro +1]> ", s.prompt())

	require.NoError(t, s.Send(ctx, "what is this?"))
	req := svc.lastRequest(t)
	assert.True(t, req.Grounding)
	assert.Equal(t, model.VariantPro, req.Variant)
	assert.Len(t, req.Contents[len(req.Contents)-1].Blobs(), 1)
	assert.Contains(t, out.String(), "LumenArc Pro")

	assert.Empty(t, s.pending, "attachments are cleared after sending")
	assert.Equal(t, "you [web pro]> ", s.prompt())
}

func TestChatSessionSendFailure(t *testing.T) {
	svc := &fakeService{err: errors.New("quota")}
	a := newTestApp(t, svc)

	var out bytes.Buffer
	s := NewChatSession(a, &out)
	err := s.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, out.String(), turn.ApologyMessage)
}

func TestChatSessionInterrupt(t *testing.T) {
	svc := &fakeService{chunks: textChunks("so far"), block: true}
	a := newTestApp(t, svc)

	out := &syncBuffer{}
	s := NewChatSession(a, out)
	assert.False(t, s.Interrupt(), "nothing streaming yet")

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "tell me everything") }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "so far") }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, s.Interrupt, 2*time.Second, 5*time.Millisecond)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after interrupt")
	}
	assert.Contains(t, out.String(), "[Stopped]")

	conv := a.Store.Get(s.ActiveID())
	reply := conv.LastAssistantMessage()
	assert.Equal(t, "so far", reply.Content)
	assert.Equal(t, model.StatusDone, reply.Status)
}

func TestChatSessionInterruptAsTurnStarts(t *testing.T) {
	svc := &fakeService{chunks: textChunks("never shown"), block: true}
	a := newTestApp(t, svc)

	out := &syncBuffer{}
	s := NewChatSession(a, out)

	interrupted := make(chan bool, 1)
	svc.onStream = func() { interrupted <- s.Interrupt() }

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "hello") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after an early interrupt")
	}
	assert.True(t, <-interrupted, "Ctrl+C right after the turn starts must reach it")
	assert.Contains(t, out.String(), "[Stopped]")
	assert.False(t, s.Interrupt(), "nothing streaming after Send returns")

	reply := a.Store.Get(s.ActiveID()).LastAssistantMessage()
	assert.Equal(t, model.StatusDone, reply.Status)
	assert.NotContains(t, reply.Content, "never shown")
}

func TestChatSessionConversationCommands(t *testing.T) {
	svc := &fakeService{chunks: textChunks("ok")}
	a := newTestApp(t, svc)
	ctx := context.Background()

	var out bytes.Buffer
	s := NewChatSession(a, &out)
	welcome := s.ActiveID()

	run := func(line string) {
		t.Helper()
		cont, err := s.HandleCommand(ctx, line)
		require.NoError(t, err, line)
		require.True(t, cont, line)
	}

	run("/new")
	created := s.ActiveID()
	assert.NotEqual(t, welcome, created)
	assert.Equal(t, 2, a.Store.Len())

	run("/rename Trip planning")
	run("/star")
	conv := a.Store.Get(created)
	assert.Equal(t, "Trip planning", conv.Title)
	assert.True(t, conv.Starred)

	out.Reset()
	run("/list")
	assert.Contains(t, out.String(), "*  1. ★ Trip planning (0)")
	assert.Contains(t, out.String(), store.WelcomeTitle)

	run("/switch 2")
	assert.Equal(t, welcome, s.ActiveID())
	run("/switch 1")
	assert.Equal(t, created, s.ActiveID())

	run("/delete")
	assert.False(t, a.Store.Exists(created))
	assert.Equal(t, welcome, s.ActiveID(), "deleting selects the next chat")

	run("/delete")
	assert.Equal(t, "", s.ActiveID())
	assert.Equal(t, 0, a.Store.Len())

	// Sending with nothing selected starts a new chat.
	require.NoError(t, s.Send(ctx, "fresh start"))
	assert.Equal(t, 1, a.Store.Len())
	assert.NotEmpty(t, s.ActiveID())
}

func TestChatSessionCommandErrors(t *testing.T) {
	a := newTestApp(t, &fakeService{})
	s := NewChatSession(a, &bytes.Buffer{})
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"/switch", "usage: /switch"},
		{"/switch 9", "no chat 9"},
		{"/rename", "usage: /rename"},
		{"/attach", "usage: /attach"},
		{"/attach /does/not/exist.png", ""},
		{"/search maybe", "usage: /search"},
		{"/temp 1.5", "between 0 and 1"},
		{"/temp warm", "between 0 and 1"},
		{"/export pdf", "unsupported export format"},
		{"/frob", "unknown command /frob"},
	}
	for _, tt := range tests {
		cont, err := s.HandleCommand(ctx, tt.line)
		if err == nil {
			t.Errorf("HandleCommand(%q) error = nil, want error", tt.line)
			continue
		}
		if !cont {
			t.Errorf("HandleCommand(%q) ended the session", tt.line)
		}
		if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
			t.Errorf("HandleCommand(%q) error = %q, want it to contain %q", tt.line, err, tt.want)
		}
	}
}

func TestChatSessionSettingsAndExport(t *testing.T) {
	a := newTestApp(t, &fakeService{})
	ctx := context.Background()

	var out bytes.Buffer
	s := NewChatSession(a, &out)
	s.exportDir = t.TempDir()

	cont, err := s.HandleCommand(ctx, "/temp 0.2")
	require.NoError(t, err)
	assert.True(t, cont)
	assert.InDelta(t, 0.2, a.Settings.Get().Temperature, 1e-9)

	_, err = s.HandleCommand(ctx, "/export md")
	require.NoError(t, err)
	matches, _ := filepath.Glob(filepath.Join(s.exportDir, "lumenarc-chats-*.md"))
	assert.Len(t, matches, 1)

	cont, err = s.HandleCommand(ctx, "/quit")
	require.NoError(t, err)
	assert.False(t, cont)
}

func TestParseToggle(t *testing.T) {
	tests := []struct {
		arg     string
		cur     bool
		want    bool
		wantErr bool
	}{
		{"", false, true, false},
		{"", true, false, false},
		{"on", false, true, false},
		{"OFF", true, false, false},
		{"1", false, true, false},
		{"sometimes", true, true, true},
	}
	for _, tt := range tests {
		got, err := parseToggle(tt.arg, tt.cur)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseToggle(%q, %v) error = %v, wantErr %v", tt.arg, tt.cur, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseToggle(%q, %v) = %v, want %v", tt.arg, tt.cur, got, tt.want)
		}
	}
}

// =============================================================================
// EXPORT AND CONFIG TESTS
// =============================================================================

func TestRunExport(t *testing.T) {
	a := newTestApp(t, &fakeService{})
	dir := t.TempDir()

	var out bytes.Buffer
	require.NoError(t, RunExport(a, Args{Format: "html", OutDir: dir}, &out))
	assert.Contains(t, out.String(), "Exported 1 conversations to ")

	matches, _ := filepath.Glob(filepath.Join(dir, "lumenarc-chats-*.html"))
	require.Len(t, matches, 1)

	a.Store.DeleteAll()
	assert.Error(t, RunExport(a, Args{Format: "json", OutDir: dir}, &out))
}

func TestRunConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("LUMENARC_HOME", home)
	cfg := config.Default()
	cfg.Provider.APIKey = "secret-key"

	var out bytes.Buffer
	require.NoError(t, RunConfig(Args{Subcommand: ConfigPath}, cfg, "", &out))
	assert.Equal(t, filepath.Join(home, "config.toml")+" (not created)\n", out.String())

	out.Reset()
	require.NoError(t, RunConfig(Args{Subcommand: ConfigShow}, cfg, "", &out))
	assert.Contains(t, out.String(), "[REDACTED]")
	assert.NotContains(t, out.String(), "secret-key")

	out.Reset()
	require.NoError(t, RunConfig(Args{Subcommand: ConfigInit}, cfg, "", &out))
	path := filepath.Join(home, "config.toml")
	assert.FileExists(t, path)

	loaded, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Provider.Name, loaded.Provider.Name)

	err = RunConfig(Args{Subcommand: ConfigInit}, cfg, "", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	require.NoError(t, RunConfig(Args{Subcommand: ConfigInit, Force: true}, cfg, "", &out))

	out.Reset()
	require.NoError(t, RunConfig(Args{Subcommand: ConfigPath}, cfg, path, &out))
	assert.Equal(t, path+"\n", out.String())
}

func TestRunSetSetting(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		key, value string
		wantErr    bool
		check      func(settings.Settings) bool
	}{
		{SettingWebSearch, "true", false, func(s settings.Settings) bool { return s.WebSearchDefault }},
		{SettingThinking, "1", false, func(s settings.Settings) bool { return s.ThinkingModeDefault }},
		{SettingTemperature, "0.4", false, func(s settings.Settings) bool { return s.Temperature == 0.4 }},
		{SettingTemperature, "2", true, nil},
		{SettingWebSearch, "perhaps", true, nil},
		{"font_size", "12", true, nil},
	}
	for _, tt := range tests {
		mgr := settings.NewManager(kv.NewMemory(), nil)
		var out bytes.Buffer
		err := RunSetSetting(ctx, mgr, tt.key, tt.value, &out)
		if tt.wantErr {
			if err == nil {
				t.Errorf("RunSetSetting(%s, %s) error = nil, want error", tt.key, tt.value)
			} else if ExitCode(err) != ExitUsageError {
				t.Errorf("RunSetSetting(%s, %s) exit code = %d, want %d", tt.key, tt.value, ExitCode(err), ExitUsageError)
			}
			continue
		}
		if err != nil {
			t.Errorf("RunSetSetting(%s, %s) error = %v", tt.key, tt.value, err)
			continue
		}
		if !tt.check(mgr.Get()) {
			t.Errorf("RunSetSetting(%s, %s) left settings %+v", tt.key, tt.value, mgr.Get())
		}
		if !strings.Contains(out.String(), tt.key+" = ") {
			t.Errorf("output %q does not list %s", out.String(), tt.key)
		}
	}
}
