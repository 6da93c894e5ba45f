// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/peterh/liner"

	"github.com/jeranaias/lumenarc/internal/app"
	"github.com/jeranaias/lumenarc/internal/config"
	"github.com/jeranaias/lumenarc/internal/export"
	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/turn"
	"github.com/jeranaias/lumenarc/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI reads prompt lines with editing and a history file.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates the line reader and loads saved history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(true)

	historyFile := "chat_history"
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "chat_history")
	}

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// SetCompleter completes slash commands.
func (c *ChatCLI) SetCompleter(words []string) {
	c.line.SetCompleter(func(input string) []string {
		if !strings.HasPrefix(input, "/") {
			return nil
		}
		var out []string
		for _, w := range words {
			if strings.HasPrefix(w, input) {
				out = append(out, w)
			}
		}
		return out
	})
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line. Non-blank lines are added to history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// slashCommands lists the REPL commands for help and completion.
var slashCommands = []struct {
	name, args, help string
}{
	{"/new", "", "Start a new chat"},
	{"/list", "", "List chats"},
	{"/switch", "<n>", "Switch to chat n from /list"},
	{"/rename", "<title>", "Rename the current chat"},
	{"/star", "", "Star or unstar the current chat"},
	{"/delete", "", "Delete the current chat"},
	{"/attach", "<path>", "Attach an image to the next message"},
	{"/search", "[on|off]", "Toggle web search"},
	{"/think", "[on|off]", "Toggle thinking mode (Pro)"},
	{"/temp", "[value]", "Show or set temperature (0-1)"},
	{"/export", "[json|md|html]", "Export all chats"},
	{"/help", "", "Show this help"},
	{"/quit", "", "Exit"},
}

// ChatSession is one REPL: the active conversation, per-session toggles and
// the pending attachments for the next message.
type ChatSession struct {
	app *app.App
	out io.Writer
	p   palette

	activeID  string
	webSearch bool
	thinking  bool
	pending   []model.Attachment
	exportDir string

	// interrupt cancels the turn being sent. It is set before the turn
	// starts so a Ctrl+C is never lost between Start and Wait.
	mu        sync.Mutex
	interrupt context.CancelFunc
}

// NewChatSession starts on the most recent conversation with toggles taken
// from the saved settings.
func NewChatSession(a *app.App, out io.Writer) *ChatSession {
	s := a.Settings.Get()
	return &ChatSession{
		app:       a,
		out:       out,
		p:         newPalette(out),
		activeID:  a.Store.First(),
		webSearch: s.WebSearchDefault,
		thinking:  s.ThinkingModeDefault,
		exportDir: ".",
	}
}

// ActiveID returns the conversation new messages go to.
func (s *ChatSession) ActiveID() string {
	return s.activeID
}

// Interrupt cancels the streaming turn, if any, and reports whether there
// was one.
func (s *ChatSession) Interrupt() bool {
	s.mu.Lock()
	cancel := s.interrupt
	s.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

func (s *ChatSession) setInterrupt(cancel context.CancelFunc) {
	s.mu.Lock()
	s.interrupt = cancel
	s.mu.Unlock()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the REPL until /quit, EOF or Ctrl+C at the prompt.
// Ctrl+C while a reply streams stops that reply and keeps what arrived.
func HandleChat(ctx context.Context, a *app.App, out io.Writer) error {
	session := NewChatSession(a, out)
	input := NewChatCLI()
	defer input.Close()

	names := make([]string, 0, len(slashCommands))
	for _, c := range slashCommands {
		names = append(names, c.name)
	}
	input.SetCompleter(names)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			session.Interrupt()
		}
	}()

	session.printWelcome()
	if err := a.Preflight(ctx); err != nil {
		session.printError(err)
	}

	for {
		line, err := input.ReadInput(session.prompt())
		if err != nil {
			// Ctrl+C (liner.ErrPromptAborted) and Ctrl+D (io.EOF) both exit.
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				return err
			}
			fmt.Fprintln(out)
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			cont, err := session.HandleCommand(ctx, line)
			if err != nil {
				session.printError(err)
			}
			if !cont {
				return nil
			}
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		if err := session.Send(ctx, line); err != nil {
			session.printError(err)
		}
	}
}

func (s *ChatSession) prompt() string {
	var flags []string
	if s.webSearch {
		flags = append(flags, "web")
	}
	if s.thinking {
		flags = append(flags, "pro")
	}
	if n := len(s.pending); n > 0 {
		flags = append(flags, fmt.Sprintf("+%d", n))
	}
	// liner measures the prompt itself, so it stays uncolored.
	if len(flags) == 0 {
		return "you> "
	}
	return "you [" + strings.Join(flags, " ") + "]> "
}

// printError reports err with a hint on how to fix it, when there is one.
func (s *ChatSession) printError(err error) {
	fmt.Fprintf(s.out, "%s %v\n", s.p.err.Render("[Error]"), err)
	if hint := app.Explain(err); hint != "" {
		fmt.Fprintln(s.out, "        "+s.p.warning.Render(hint))
	}
}

func (s *ChatSession) printWelcome() {
	fmt.Fprintln(s.out, s.p.prompt.Render("LumenArc")+s.p.muted.Render("  /help for commands, Ctrl+D to exit"))
	if conv := s.app.Store.Get(s.activeID); conv != nil {
		fmt.Fprintln(s.out, s.p.muted.Render("Chat: "+conv.Title))
		if msg := conv.LastMessage(); msg != nil && msg.Role == model.RoleAssistant && msg.Content != "" {
			fmt.Fprintln(s.out)
			fmt.Fprintln(s.out, s.p.assistant.Render(model.RoleAssistant.DisplayName()))
			fmt.Fprintln(s.out, msg.Content)
		}
	}
	fmt.Fprintln(s.out)
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// Send submits text with the pending attachments to the active
// conversation, creating one if needed, and streams the reply to out.
func (s *ChatSession) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" && len(s.pending) == 0 {
		return nil
	}
	if s.activeID == "" || !s.app.Store.Exists(s.activeID) {
		s.activeID = s.app.Store.Create()
	}

	in := s.app.Input(s.activeID, text, s.pending)
	in.WebSearch = s.webSearch
	in.ExtendedReasoning = s.thinking

	s.app.Controller.SetObserver(chunkWriter(s.out, s.activeID))
	defer s.app.Controller.SetObserver(nil)

	// The label goes out first: chunks are written from the turn goroutine
	// as soon as Start returns.
	label := s.p.assistant.Render(model.RoleAssistant.DisplayName())
	if v := model.SelectVariant(s.thinking); v == model.VariantPro {
		label += " " + s.p.pro.Render(v.DisplayName())
	}
	fmt.Fprintln(s.out, label)

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.setInterrupt(cancel)
	defer s.setInterrupt(nil)

	h, err := s.app.Controller.Start(turnCtx, in)
	if err != nil {
		return err
	}
	s.pending = nil

	res := h.Wait()

	msg := s.app.Store.Message(res.ConversationID, res.AssistantMessageID)
	switch res.State {
	case turn.StateFailed:
		content := turn.ApologyMessage
		if msg != nil {
			content = msg.Content
		}
		fmt.Fprintf(s.out, "\n%s\n", s.p.err.Render(content))
	case turn.StateCancelled:
		fmt.Fprintf(s.out, "\n%s\n", s.p.warning.Render("[Stopped]"))
	default:
		fmt.Fprintln(s.out)
	}
	if msg != nil {
		printCitations(s.out, s.p, msg.Citations)
	}
	fmt.Fprintln(s.out)

	if res.State == turn.StateFailed {
		return &TurnError{Err: res.Err}
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// HandleCommand runs one slash command. It returns false when the REPL
// should exit.
func (s *ChatSession) HandleCommand(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	store := s.app.Store

	switch cmd {
	case "/quit", "/exit", "/q":
		return false, nil

	case "/help", "/?":
		for _, c := range slashCommands {
			fmt.Fprintf(s.out, "  %-9s %-15s %s\n", c.name, c.args, s.p.muted.Render(c.help))
		}

	case "/new":
		s.activeID = store.Create()
		fmt.Fprintln(s.out, s.p.success.Render("New chat started"))

	case "/list":
		convs := store.List()
		if len(convs) == 0 {
			fmt.Fprintln(s.out, s.p.muted.Render("No conversations"))
			break
		}
		for i, c := range convs {
			marker := " "
			if c.ID == s.activeID {
				marker = "*"
			}
			star := " "
			if c.Starred {
				star = starMarker
			}
			row := fmt.Sprintf("%s %2d. %s %s (%d)", marker, i+1, star, util.TruncateWidth(util.SingleLine(c.Title), 48), len(c.Messages))
			if c.ID == s.activeID {
				row = s.p.active.Render(row)
			}
			fmt.Fprintln(s.out, row)
			if preview := c.Preview(listPreviewWidth); preview != "" {
				fmt.Fprintln(s.out, "       "+s.p.muted.Render(preview))
			}
		}

	case "/switch":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return true, fmt.Errorf("usage: /switch <n>")
		}
		convs := store.List()
		if n < 1 || n > len(convs) {
			return true, fmt.Errorf("no chat %d (see /list)", n)
		}
		s.activeID = convs[n-1].ID
		fmt.Fprintln(s.out, s.p.success.Render("Switched to "+convs[n-1].Title))

	case "/rename":
		if arg == "" {
			return true, fmt.Errorf("usage: /rename <title>")
		}
		if !store.Exists(s.activeID) {
			return true, fmt.Errorf("no active chat")
		}
		store.Rename(s.activeID, arg)
		fmt.Fprintln(s.out, s.p.success.Render("Renamed to "+arg))

	case "/star":
		if !store.Exists(s.activeID) {
			return true, fmt.Errorf("no active chat")
		}
		store.ToggleStar(s.activeID)
		if conv := store.Get(s.activeID); conv != nil && conv.Starred {
			fmt.Fprintln(s.out, s.p.success.Render("Starred"))
		} else {
			fmt.Fprintln(s.out, s.p.success.Render("Unstarred"))
		}

	case "/delete":
		conv := store.Get(s.activeID)
		if conv == nil {
			return true, fmt.Errorf("no active chat")
		}
		replacement, _ := store.Delete(conv.ID)
		s.app.Controller.Cancel(conv.ID)
		s.activeID = replacement
		fmt.Fprintln(s.out, s.p.success.Render("Deleted "+conv.Title))

	case "/attach":
		if arg == "" {
			return true, fmt.Errorf("usage: /attach <path>")
		}
		att, err := s.app.Attachments.EncodeFile(util.ExpandPath(arg))
		if err != nil {
			return true, err
		}
		s.pending = append(s.pending, att)
		fmt.Fprintf(s.out, "%s %s (%s)\n", s.p.success.Render("Attached"), att.Name, att.MIMEType)

	case "/search":
		v, err := parseToggle(arg, s.webSearch)
		if err != nil {
			return true, fmt.Errorf("usage: /search [on|off]")
		}
		s.webSearch = v
		fmt.Fprintln(s.out, "Web search "+onOff(v))

	case "/think":
		v, err := parseToggle(arg, s.thinking)
		if err != nil {
			return true, fmt.Errorf("usage: /think [on|off]")
		}
		s.thinking = v
		fmt.Fprintln(s.out, "Thinking mode "+onOff(v))

	case "/temp":
		if arg == "" {
			fmt.Fprintf(s.out, "Temperature %.1f\n", s.app.Settings.Get().Temperature)
			break
		}
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil || v < 0 || v > 1 {
			return true, fmt.Errorf("temperature must be between 0 and 1")
		}
		if err := s.app.Settings.SetTemperature(ctx, v); err != nil {
			return true, err
		}
		fmt.Fprintf(s.out, "Temperature %.1f\n", v)

	case "/export":
		format := "json"
		if arg != "" {
			format = strings.ToLower(arg)
		}
		opts := export.DefaultOptions()
		opts.OutputDir = s.exportDir
		path, err := export.ExportAll(store.List(), format, opts)
		if err != nil {
			return true, err
		}
		fmt.Fprintln(s.out, s.p.success.Render("Exported to "+path))

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	return true, nil
}

const (
	starMarker = "★"
	// listPreviewWidth caps the last-message preview under each /list row.
	listPreviewWidth = 60
)

// parseToggle reads on/off style arguments. An empty argument flips cur.
func parseToggle(arg string, cur bool) (bool, error) {
	switch strings.ToLower(arg) {
	case "":
		return !cur, nil
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return cur, fmt.Errorf("invalid toggle %q", arg)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
