// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lumenarc/internal/app"
	"github.com/jeranaias/lumenarc/internal/completion"
	"github.com/jeranaias/lumenarc/internal/config"
	"github.com/jeranaias/lumenarc/internal/gemini"
	"github.com/jeranaias/lumenarc/internal/kv"
	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/ollama"
	"github.com/jeranaias/lumenarc/internal/store"
	"github.com/jeranaias/lumenarc/internal/turn"
	"github.com/jeranaias/lumenarc/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

// fakeService streams its chunks, then either ends (with err) or blocks
// until the turn is cancelled.
type fakeService struct {
	chunks []string
	block  bool
	err    error

	mu       sync.Mutex
	requests []completion.Request
}

func (f *fakeService) Name() string { return "fake" }

func (f *fakeService) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
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
	chunks []string
	i      int
	cur    string
	block  bool
	err    error
}

func (s *fakeStream) Next() bool {
	if s.i < len(s.chunks) {
		s.cur = s.chunks[s.i]
		s.i++
		return true
	}
	if s.block {
		<-s.ctx.Done()
	}
	return false
}

func (s *fakeStream) Chunk() completion.Chunk { return completion.Chunk{Text: s.cur} }

func (s *fakeStream) Err() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return s.err
}

func (s *fakeStream) Close() error { return nil }

// chanSender stands in for the running program.
type chanSender chan tea.Msg

func (c chanSender) Send(msg tea.Msg) { c <- msg }

// =============================================================================
// HELPERS
// =============================================================================

type harness struct {
	t    *testing.T
	app  *app.App
	svc  *fakeService
	sent chanSender
	m    Model
}

func newHarness(t *testing.T, svc *fakeService) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	cfg := config.Default()
	cfg.UI.RenderMarkdown = false
	a, err := app.New(ctx, cfg, app.WithKV(kv.NewMemory()), app.WithProvider(svc))
	require.NoError(t, err)

	sent := make(chanSender, 16)
	a.Controller.SetObserver(Observer(sent))
	t.Cleanup(func() {
		cancel()
		a.Close()
	})

	h := &harness{t: t, app: a, svc: svc, sent: sent}
	h.m = New(ctx, a, styles.NewTheme(styles.ThemeDark))
	h.m.exportDir = t.TempDir()
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) key(k tea.KeyType) tea.Cmd {
	return h.send(tea.KeyMsg{Type: k})
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// runCmd executes cmd and feeds its message back, like the program loop does
// for one-shot commands.
func (h *harness) runCmd(cmd tea.Cmd) {
	h.t.Helper()
	require.NotNil(h.t, cmd)
	h.send(cmd())
}

// finish waits for the turn to settle and delivers TurnFinishedMsg.
func (h *harness) finish() turn.Result {
	h.t.Helper()
	select {
	case msg := <-h.sent:
		done, ok := msg.(TurnFinishedMsg)
		require.True(h.t, ok, "got %T, want TurnFinishedMsg", msg)
		h.send(done)
		return done.Result
	case <-time.After(5 * time.Second):
		h.t.Fatal("turn did not finish")
		return turn.Result{}
	}
}

func (h *harness) active() *model.Conversation {
	return h.app.Store.Get(h.m.ActiveConversation())
}

// =============================================================================
// TESTS
// =============================================================================

func TestStartsOnWelcome(t *testing.T) {
	h := newHarness(t, &fakeService{})

	conv := h.active()
	require.NotNil(t, conv)
	assert.Equal(t, store.WelcomeTitle, conv.Title)

	view := h.m.View()
	assert.Contains(t, view, store.WelcomeTitle)
	assert.Contains(t, view, "personal AI assistant")
	assert.Contains(t, view, "Flash")
}

func TestViewBeforeSize(t *testing.T) {
	cfg := config.Default()
	a, err := app.New(context.Background(), cfg, app.WithKV(kv.NewMemory()), app.WithProvider(&fakeService{}))
	require.NoError(t, err)
	defer a.Close()

	m := New(context.Background(), a, styles.NewTheme(styles.ThemeDark))
	assert.Equal(t, "Loading...", m.View())
}

func TestSubmitCompletesTurn(t *testing.T) {
	h := newHarness(t, &fakeService{chunks: []string{"The capital ", "is Paris."}})

	h.typeText("What is the capital of France?")
	cmd := h.key(tea.KeyEnter)
	assert.NotNil(t, cmd, "streaming loops start")
	assert.Empty(t, h.m.composer.Value(), "composer cleared")

	res := h.finish()
	assert.Equal(t, turn.StateCompleted, res.State)
	assert.Equal(t, 0, h.m.inFlight)

	conv := h.active()
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "What is the capital of France?", conv.Messages[1].Content)
	assert.Equal(t, "The capital is Paris.", conv.Messages[2].Content)
	assert.Contains(t, h.m.View(), "The capital is Paris.")
}

func TestFirstTurnNamesNewChat(t *testing.T) {
	h := newHarness(t, &fakeService{chunks: []string{"ok"}})

	h.key(tea.KeyCtrlN)
	require.Equal(t, model.DefaultTitle, h.active().Title)

	h.typeText("plan a trip to the mountains this summer")
	h.key(tea.KeyEnter)
	h.finish()

	assert.Equal(t, "plan a trip to the...", h.active().Title)
	assert.Contains(t, h.m.View(), "plan a trip to the...")
}

func TestEmptySubmitIgnored(t *testing.T) {
	h := newHarness(t, &fakeService{})
	before := len(h.active().Messages)

	h.typeText("   ")
	cmd := h.key(tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Len(t, h.active().Messages, before)
	assert.Equal(t, 0, h.m.inFlight)
}

func TestComposerLockedWhileStreaming(t *testing.T) {
	h := newHarness(t, &fakeService{chunks: []string{"partial"}, block: true})

	h.typeText("hello")
	h.key(tea.KeyEnter)
	require.True(t, h.m.activeStreaming())

	h.typeText("more")
	assert.Empty(t, h.m.composer.Value(), "typing is ignored while streaming")

	id := h.m.ActiveConversation()
	replyID := h.active().Messages[len(h.active().Messages)-1].ID
	require.Eventually(t, func() bool {
		return h.app.Store.Message(id, replyID).Content == "partial"
	}, 2*time.Second, 5*time.Millisecond)

	// The redraw tick picks the chunk up and keeps running.
	assert.NotNil(t, h.send(streamTickMsg(time.Now())))
	assert.Contains(t, h.m.View(), "partial")

	h.key(tea.KeyEsc)
	res := h.finish()
	assert.Equal(t, turn.StateCancelled, res.State)
	assert.Equal(t, "partial", h.app.Store.Message(id, replyID).Content)
	assert.Equal(t, model.StatusDone, h.app.Store.Message(id, replyID).Status)
	assert.Equal(t, "Response stopped", h.m.status)

	assert.Nil(t, h.send(streamTickMsg(time.Now())), "tick stops when idle")
	assert.False(t, h.m.ticking)
}

func TestFailedTurnShowsApology(t *testing.T) {
	h := newHarness(t, &fakeService{err: errors.New("quota exceeded")})

	h.typeText("hi")
	h.key(tea.KeyEnter)
	res := h.finish()

	assert.Equal(t, turn.StateFailed, res.State)
	assert.True(t, h.m.statusErr)
	assert.Contains(t, h.m.status, "quota exceeded")

	last := h.active().LastMessage()
	assert.Equal(t, turn.ApologyMessage, last.Content)
	assert.Equal(t, model.StatusError, last.Status)
	assert.Contains(t, h.m.View(), turn.ApologyMessage)
}

func TestFailedTurnExplainsMissingKey(t *testing.T) {
	h := newHarness(t, &fakeService{err: gemini.ErrNotConfigured})

	h.typeText("hi")
	h.key(tea.KeyEnter)
	res := h.finish()

	assert.Equal(t, turn.StateFailed, res.State)
	assert.True(t, h.m.statusErr)
	assert.Contains(t, h.m.status, "provider.api_key")
}

func TestPreflightFailureShowsStatus(t *testing.T) {
	h := newHarness(t, &fakeService{})

	assert.Nil(t, h.send(preflightMsg{}), "a healthy provider stays quiet")
	assert.Empty(t, h.m.status)

	h.send(preflightMsg{err: ollama.ErrNotRunning})
	assert.True(t, h.m.statusErr)
	assert.Contains(t, h.m.status, "ollama serve")
}

func TestObserverForwardsOnlyFinished(t *testing.T) {
	h := newHarness(t, &fakeService{chunks: []string{"a", "b", "c"}})

	h.typeText("go")
	h.key(tea.KeyEnter)
	h.finish()

	select {
	case msg := <-h.sent:
		t.Fatalf("unexpected extra message %T", msg)
	default:
	}
}

func TestTogglesSelectVariant(t *testing.T) {
	svc := &fakeService{chunks: []string{"ok"}}
	h := newHarness(t, svc)

	h.key(tea.KeyCtrlT)
	h.key(tea.KeyCtrlW)
	assert.True(t, h.m.thinking)
	assert.True(t, h.m.webSearch)
	assert.Contains(t, h.m.View(), "[x] Thinking")
	assert.Contains(t, h.m.View(), "Pro")

	h.typeText("think hard")
	h.key(tea.KeyEnter)
	h.finish()

	req := svc.lastRequest(t)
	assert.Equal(t, model.VariantPro, req.Variant)
	assert.True(t, req.Grounding)
	assert.Equal(t, model.VariantPro, h.active().LastMessage().Variant)
}

func TestTogglesDefaultFromSettings(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.UI.RenderMarkdown = false
	a, err := app.New(ctx, cfg, app.WithKV(kv.NewMemory()), app.WithProvider(&fakeService{}))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Settings.SetWebSearchDefault(ctx, true))
	m := New(ctx, a, styles.NewTheme(styles.ThemeDark))
	assert.True(t, m.webSearch)
	assert.False(t, m.thinking)
}

func TestSidebarActions(t *testing.T) {
	h := newHarness(t, &fakeService{})
	welcome := h.m.ActiveConversation()

	h.key(tea.KeyCtrlN)
	fresh := h.m.ActiveConversation()
	require.NotEqual(t, welcome, fresh)
	assert.Equal(t, 2, h.app.Store.Len())

	h.key(tea.KeyTab)
	require.Equal(t, focusSidebar, h.m.focus)

	// New chats go to the head, so the welcome chat is one row down.
	h.key(tea.KeyDown)
	assert.Equal(t, welcome, h.m.selectedID)

	h.typeText("s")
	assert.True(t, h.app.Store.Get(welcome).Starred)

	h.typeText("r")
	require.Equal(t, overlayRename, h.m.overlay)
	assert.Equal(t, store.WelcomeTitle, h.m.input.Value())
	h.m.input.SetValue("Getting started")
	h.key(tea.KeyEnter)
	assert.Equal(t, overlayNone, h.m.overlay)
	assert.Equal(t, "Getting started", h.app.Store.Get(welcome).Title)

	h.key(tea.KeyEnter)
	assert.Equal(t, welcome, h.m.ActiveConversation())
	assert.Equal(t, focusComposer, h.m.focus)

	h.key(tea.KeyTab)
	h.typeText("d")
	assert.False(t, h.app.Store.Exists(welcome))
	assert.Equal(t, fresh, h.m.ActiveConversation(), "active moves to the replacement")
}

func TestSearchFiltersSidebar(t *testing.T) {
	h := newHarness(t, &fakeService{})
	h.key(tea.KeyCtrlN)

	h.key(tea.KeyCtrlF)
	require.True(t, h.m.searching)
	h.typeText("WELC")
	convs := h.m.sidebar.Flatten()
	require.Len(t, convs, 1)
	assert.Equal(t, store.WelcomeTitle, convs[0].Title)
	assert.Contains(t, h.m.View(), "/ WELC")

	h.key(tea.KeyEsc)
	assert.False(t, h.m.searching)
	assert.Len(t, h.m.sidebar.Flatten(), 2)
}

func TestSettingsPanel(t *testing.T) {
	h := newHarness(t, &fakeService{})

	h.key(tea.KeyCtrlP)
	require.Equal(t, overlaySettings, h.m.overlay)
	assert.Contains(t, h.m.View(), "Temperature")

	h.runCmd(h.key(tea.KeyEnter))
	assert.True(t, h.app.Settings.Get().WebSearchDefault)
	assert.True(t, h.m.webSearch, "toggle follows the new default")

	h.key(tea.KeyDown)
	h.key(tea.KeyDown)
	h.runCmd(h.key(tea.KeyRight))
	assert.InDelta(t, 0.8, h.app.Settings.Get().Temperature, 1e-9)

	h.key(tea.KeyDown)
	h.key(tea.KeyRight)
	assert.Equal(t, 1, h.m.exportFormat)
	assert.Contains(t, h.m.View(), "markdown")
	h.key(tea.KeyLeft)
	h.key(tea.KeyLeft)
	assert.Equal(t, 2, h.m.exportFormat, "format cycles backwards")

	h.key(tea.KeyEsc)
	assert.Equal(t, overlayNone, h.m.overlay)
}

func TestStepTemperature(t *testing.T) {
	tests := []struct {
		v, delta, want float64
	}{
		{0.7, 0.1, 0.8},
		{0.7, -0.1, 0.6},
		{1.0, 0.1, 1.0},
		{0.0, -0.1, 0.0},
		{0.95, 0.1, 1.0},
	}
	for _, tt := range tests {
		if got := stepTemperature(tt.v, tt.delta); got != tt.want {
			t.Errorf("stepTemperature(%v, %v) = %v, want %v", tt.v, tt.delta, got, tt.want)
		}
	}
}

func TestDeleteAllThenSend(t *testing.T) {
	h := newHarness(t, &fakeService{chunks: []string{"fresh start"}})

	h.key(tea.KeyCtrlP)
	for i := 0; i < settingDeleteAll; i++ {
		h.key(tea.KeyDown)
	}
	h.key(tea.KeyEnter)
	require.Equal(t, overlayConfirmDeleteAll, h.m.overlay)
	assert.Contains(t, h.m.View(), "Delete all chats?")

	h.typeText("y")
	assert.Equal(t, 0, h.app.Store.Len())
	assert.Empty(t, h.m.ActiveConversation())
	assert.Contains(t, h.m.View(), "No conversation")

	h.typeText("hello again")
	h.key(tea.KeyEnter)
	h.finish()
	require.Equal(t, 1, h.app.Store.Len())
	assert.Equal(t, "fresh start", h.active().LastMessage().Content)
}

func TestDeleteAllDeclined(t *testing.T) {
	h := newHarness(t, &fakeService{})
	h.key(tea.KeyCtrlP)
	h.m.settingsCursor = settingDeleteAll
	h.key(tea.KeyEnter)
	h.typeText("n")
	assert.Equal(t, overlaySettings, h.m.overlay)
	assert.Equal(t, 1, h.app.Store.Len())
}

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestAttachAndSendImageOnly(t *testing.T) {
	svc := &fakeService{chunks: []string{"a cat"}}
	h := newHarness(t, svc)

	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))

	h.key(tea.KeyCtrlO)
	require.Equal(t, overlayAttach, h.m.overlay)
	h.m.input.SetValue(`"` + path + `"`)
	h.runCmd(h.key(tea.KeyEnter))

	require.Len(t, h.m.pending, 1)
	assert.Equal(t, "cat.png", h.m.pending[0].Name)
	assert.Contains(t, h.m.View(), "1 attached: cat.png")

	h.key(tea.KeyEnter)
	h.finish()

	assert.Empty(t, h.m.pending)
	user := h.active().Messages[len(h.active().Messages)-2]
	assert.Empty(t, user.Content)
	require.Len(t, user.Attachments, 1)
	assert.Equal(t, "image/png", user.Attachments[0].MIMEType)
	contents := svc.lastRequest(t).Contents
	require.Len(t, contents, 2, "welcome greeting plus the new turn")
	assert.Len(t, contents[1].Parts, 1, "image only, no empty text part")
}

func TestAttachRejected(t *testing.T) {
	h := newHarness(t, &fakeService{})

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

	h.key(tea.KeyCtrlO)
	h.m.input.SetValue(path)
	h.runCmd(h.key(tea.KeyEnter))

	assert.Empty(t, h.m.pending)
	assert.True(t, h.m.statusErr)
	assert.Contains(t, h.m.status, "Unsupported file type")
}

func TestEscClearsPendingAttachments(t *testing.T) {
	h := newHarness(t, &fakeService{})
	h.m.pending = []model.Attachment{{Name: "x.png"}}
	h.key(tea.KeyEsc)
	assert.Empty(t, h.m.pending)
}

func TestExportAll(t *testing.T) {
	h := newHarness(t, &fakeService{})
	h.runCmd(h.key(tea.KeyCtrlE))

	require.False(t, h.m.statusErr, h.m.status)
	require.True(t, strings.HasPrefix(h.m.status, "Exported to "))
	path := strings.TrimPrefix(h.m.status, "Exported to ")
	assert.Equal(t, h.m.exportDir, filepath.Dir(path))
	assert.Equal(t, ".json", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), store.WelcomeTitle)
}

func TestCopyWithoutReply(t *testing.T) {
	h := newHarness(t, &fakeService{})
	h.key(tea.KeyCtrlN)
	h.key(tea.KeyCtrlY)
	assert.True(t, h.m.statusErr)
	assert.Equal(t, "No response to copy", h.m.status)
}

func TestStatusClears(t *testing.T) {
	h := newHarness(t, &fakeService{})
	h.key(tea.KeyCtrlN)
	h.key(tea.KeyCtrlY)
	seq := h.m.statusSeq

	h.send(statusClearMsg{seq: seq - 1})
	assert.NotEmpty(t, h.m.status, "stale clear is ignored")

	h.send(statusClearMsg{seq: seq})
	assert.Empty(t, h.m.status)
}

func TestHelpOverlay(t *testing.T) {
	h := newHarness(t, &fakeService{})
	h.key(tea.KeyF1)
	require.Equal(t, overlayHelp, h.m.overlay)
	assert.Contains(t, h.m.View(), "stop response")

	h.typeText("x")
	assert.Equal(t, overlayNone, h.m.overlay)
	assert.Empty(t, h.m.composer.Value(), "the closing key is not typed")
}

func TestConfigReload(t *testing.T) {
	h := newHarness(t, &fakeService{})

	cfg := config.Default()
	cfg.UI.Theme = styles.ThemeLight
	cfg.UI.RenderMarkdown = true
	h.send(ConfigChangedMsg{Config: cfg})

	assert.False(t, h.m.theme.IsDark)
	assert.True(t, h.m.md.Enabled())
	assert.Equal(t, "Configuration reloaded", h.m.status)

	h.send(ConfigChangedMsg{})
	assert.Equal(t, "Configuration reloaded", h.m.status)
}

func TestQuit(t *testing.T) {
	h := newHarness(t, &fakeService{})
	cmd := h.key(tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestNarrowHidesSidebar(t *testing.T) {
	h := newHarness(t, &fakeService{})
	h.send(tea.WindowSizeMsg{Width: 50, Height: 30})
	assert.NotContains(t, h.m.View(), "Today")

	h.key(tea.KeyTab)
	assert.Equal(t, focusComposer, h.m.focus, "no sidebar to focus")
}
