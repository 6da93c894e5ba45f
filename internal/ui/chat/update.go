// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"math"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lumenarc/internal/app"
	"github.com/jeranaias/lumenarc/internal/export"
	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/settings"
	"github.com/jeranaias/lumenarc/internal/turn"
	"github.com/jeranaias/lumenarc/internal/ui/styles"
	"github.com/jeranaias/lumenarc/internal/util"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case TurnFinishedMsg:
		return m.handleTurnFinished(msg)

	case streamTickMsg:
		if m.app.Store.Version() != m.lastVersion {
			m.refresh()
		}
		if m.inFlight > 0 {
			return m, streamTick()
		}
		m.ticking = false
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.inFlight == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.renderTranscript()
		return m, cmd

	case ConfigChangedMsg:
		return m.applyConfig(msg)

	case preflightMsg:
		if msg.err == nil {
			return m, nil
		}
		cmd := m.setStatus(failureText("Provider unavailable", msg.err), true)
		return m, cmd

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			cmd := m.setStatus("Export failed: "+msg.err.Error(), true)
			return m, cmd
		}
		cmd := m.setStatus("Exported to "+msg.path, false)
		return m, cmd

	case attachDoneMsg:
		if msg.err != nil {
			cmd := m.setStatus(msg.err.Error(), true)
			return m, cmd
		}
		m.pending = append(m.pending, msg.att)
		cmd := m.setStatus("Attached "+msg.att.Name, false)
		return m, cmd

	case copyDoneMsg:
		if msg.err != nil {
			cmd := m.setStatus("Failed to copy: "+msg.err.Error(), true)
			return m, cmd
		}
		cmd := m.setStatus(fmt.Sprintf("Copied reply (%d chars)", msg.chars), false)
		return m, cmd

	case settingsSavedMsg:
		if msg.err != nil {
			cmd := m.setStatus("Could not save settings: "+msg.err.Error(), true)
			return m, cmd
		}
		m.webSearch = msg.settings.WebSearchDefault
		m.thinking = msg.settings.ThinkingModeDefault
		return m, nil
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

// =============================================================================
// TURNS
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.composer.Value()
	if strings.TrimSpace(text) == "" && len(m.pending) == 0 {
		return m, nil
	}

	st := m.app.Store
	if m.activeID == "" || !st.Exists(m.activeID) {
		m.activeID = st.Create()
		m.selectedID = m.activeID
	}

	in := m.app.Input(m.activeID, text, m.pending)
	in.WebSearch = m.webSearch
	in.ExtendedReasoning = m.thinking

	if _, err := m.app.Controller.Start(m.ctx, in); err != nil {
		cmd := m.setStatus(err.Error(), true)
		return m, cmd
	}

	m.composer.Reset()
	m.pending = nil
	m.inFlight++
	m.viewport.GotoBottom()
	m.refresh()
	m.viewport.GotoBottom()
	cmd := m.startStreamingLoops()

	return m, cmd
}

// startStreamingLoops starts the spinner and, unless already running, the
// redraw tick.
func (m *Model) startStreamingLoops() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if !m.ticking {
		m.ticking = true
		cmds = append(cmds, streamTick())
	}
	return tea.Batch(cmds...)
}

func (m Model) handleTurnFinished(msg TurnFinishedMsg) (tea.Model, tea.Cmd) {
	if m.inFlight > 0 {
		m.inFlight--
	}
	res := msg.Result

	var cmd tea.Cmd
	switch {
	case res.Orphaned:
	case res.State == turn.StateFailed:
		cmd = m.setStatus(failureText("Response failed", res.Err), true)
	case res.State == turn.StateCancelled:
		cmd = m.setStatus("Response stopped", false)
	}
	m.refresh()
	return m, cmd
}

// failureText prefers an actionable explanation of err over the raw error.
func failureText(prefix string, err error) string {
	if hint := app.Explain(err); hint != "" {
		return hint
	}
	if err == nil {
		return prefix + ": unknown error"
	}
	return prefix + ": " + err.Error()
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.overlay != overlayNone {
		return m.handleOverlayKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.NewChat):
		return m.newChat()

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusComposer && m.theme.SidebarWidth() > 0 {
			m.focus = focusSidebar
		} else {
			m.focus = focusComposer
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.focus = focusSidebar
		m.searching = true
		m.search.Focus()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.ToggleWeb):
		m.webSearch = !m.webSearch
		return m, nil

	case key.Matches(msg, m.keys.ToggleThink):
		m.thinking = !m.thinking
		return m, nil

	case key.Matches(msg, m.keys.Attach):
		m.openInput(overlayAttach, "")
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		cmd := m.copyLastReply()

		return m, cmd

	case key.Matches(msg, m.keys.Export):
		return m, m.exportAll()

	case key.Matches(msg, m.keys.Settings):
		m.overlay = overlaySettings
		m.settingsCursor = 0
		m.syncComposer()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.overlay = overlayHelp
		m.syncComposer()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleComposerKey(msg)
}

func (m Model) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Stop):
		if m.activeID != "" && m.app.Controller.Cancel(m.activeID) {
			return m, nil
		}
		if len(m.pending) > 0 {
			m.pending = nil
			cmd := m.setStatus("Attachments cleared", false)
			return m, cmd
		}
		return m, nil

	case m.activeStreaming():
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Newline):
		m.composer.InsertString("\n")
		return m, nil
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Back):
		m.focus = focusComposer

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)

	case key.Matches(msg, m.keys.Select):
		m.open(m.selectedID)

	case key.Matches(msg, m.keys.Rename):
		if conv := m.app.Store.Get(m.selectedID); conv != nil {
			m.openInput(overlayRename, conv.Title)
		}

	case key.Matches(msg, m.keys.Star):
		m.app.Store.ToggleStar(m.selectedID)

	case key.Matches(msg, m.keys.Delete):
		cmd = m.deleteConversation(m.selectedID)

	case msg.String() == "?":
		m.overlay = overlayHelp
	}
	m.refresh()
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		// Keep the filter and move to the results.
		m.searching = false
		m.search.Blur()
		m.refresh()
		return m, nil

	case msg.Type == tea.KeyUp:
		m.moveSelection(-1)
		m.refresh()
		return m, nil

	case msg.Type == tea.KeyDown:
		m.moveSelection(1)
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.refresh()
	return m, cmd
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m *Model) openInput(kind overlayKind, value string) {
	m.overlay = kind
	m.input.SetValue(value)
	m.input.CursorEnd()
	switch kind {
	case overlayRename:
		m.input.Placeholder = "chat title"
	case overlayAttach:
		m.input.Placeholder = "path to a PNG, JPEG, WEBP, HEIC or HEIF image"
	}
	m.input.Focus()
	m.syncComposer()
}

func (m *Model) closeOverlay() {
	m.overlay = overlayNone
	m.input.Blur()
	m.syncComposer()
}

func (m Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.overlay {
	case overlayHelp:
		m.closeOverlay()
		return m, nil
	case overlaySettings:
		return m.handleSettingsKey(msg)
	case overlayConfirmDeleteAll:
		if msg.String() == "y" || msg.String() == "Y" {
			cmd := m.deleteAll()
			m.closeOverlay()
			m.refresh()
			return m, cmd
		}
		m.overlay = overlaySettings
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		m.closeOverlay()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		value := strings.TrimSpace(m.input.Value())
		kind := m.overlay
		m.closeOverlay()
		if value == "" {
			return m, nil
		}
		if kind == overlayRename {
			m.app.Store.Rename(m.selectedID, value)
			m.refresh()
			return m, nil
		}
		return m, m.attachFile(value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.closeOverlay()
		return m, nil

	case msg.Type == tea.KeyUp || msg.String() == "k":
		if m.settingsCursor > 0 {
			m.settingsCursor--
		}
		return m, nil

	case msg.Type == tea.KeyDown || msg.String() == "j":
		if m.settingsCursor < settingCount-1 {
			m.settingsCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Left):
		cmd := m.adjustSetting(-1)

		return m, cmd

	case key.Matches(msg, m.keys.Right):
		cmd := m.adjustSetting(1)

		return m, cmd

	case key.Matches(msg, m.keys.Confirm), msg.String() == " ":
		switch m.settingsCursor {
		case settingExportAll:
			return m, m.exportAll()
		case settingDeleteAll:
			m.overlay = overlayConfirmDeleteAll
			return m, nil
		default:
			cmd := m.adjustSetting(1)

			return m, cmd
		}
	}
	return m, nil
}

// adjustSetting changes the setting under the cursor by one step in dir.
func (m *Model) adjustSetting(dir int) tea.Cmd {
	switch m.settingsCursor {
	case settingWebSearch:
		return m.saveSettings(func(s *settings.Settings) { s.WebSearchDefault = !s.WebSearchDefault })
	case settingThinking:
		return m.saveSettings(func(s *settings.Settings) { s.ThinkingModeDefault = !s.ThinkingModeDefault })
	case settingTemperature:
		delta := temperatureStep * float64(dir)
		return m.saveSettings(func(s *settings.Settings) { s.Temperature = stepTemperature(s.Temperature, delta) })
	case settingExportFormat:
		n := len(export.Formats)
		m.exportFormat = ((m.exportFormat+dir)%n + n) % n
	}
	return nil
}

// stepTemperature adds delta, clamps to [0, 1] and rounds to one decimal.
func stepTemperature(v, delta float64) float64 {
	v = math.Round((v+delta)*10) / 10
	return math.Max(temperatureMin, math.Min(temperatureMax, v))
}

// =============================================================================
// CONVERSATION ACTIONS
// =============================================================================

func (m Model) newChat() (tea.Model, tea.Cmd) {
	id := m.app.Store.Create()
	m.search.SetValue("")
	m.open(id)
	m.refresh()
	return m, nil
}

// open shows conversation id in the transcript and focuses the composer.
func (m *Model) open(id string) {
	if id == "" {
		return
	}
	m.activeID = id
	m.selectedID = id
	m.focus = focusComposer
	m.viewport.SetContent("")
}

func (m *Model) deleteConversation(id string) tea.Cmd {
	replacement, ok := m.app.Store.Delete(id)
	if !ok {
		return nil
	}
	// The turn notices the missing conversation on its next chunk; cancelling
	// also releases a provider that has not sent one yet.
	m.app.Controller.Cancel(id)

	if id == m.activeID {
		m.activeID = replacement
		m.viewport.SetContent("")
	}
	if id == m.selectedID {
		m.selectedID = replacement
	}
	return m.setStatus("Chat deleted", false)
}

func (m *Model) deleteAll() tea.Cmd {
	ids := make([]string, 0, m.app.Store.Len())
	for _, c := range m.app.Store.List() {
		ids = append(ids, c.ID)
	}
	m.app.Store.DeleteAll()
	for _, id := range ids {
		m.app.Controller.Cancel(id)
	}
	m.activeID = ""
	m.selectedID = ""
	m.viewport.SetContent("")
	return m.setStatus("All chats deleted", false)
}

// =============================================================================
// BACKGROUND COMMANDS
// =============================================================================

func (m Model) saveSettings(fn func(*settings.Settings)) tea.Cmd {
	mgr, ctx := m.app.Settings, m.ctx
	return func() tea.Msg {
		err := mgr.Update(ctx, fn)
		return settingsSavedMsg{settings: mgr.Get(), err: err}
	}
}

func (m Model) attachFile(path string) tea.Cmd {
	enc := m.app.Attachments
	path = util.ExpandPath(path)
	return func() tea.Msg {
		att, err := enc.EncodeFile(path)
		return attachDoneMsg{att: att, err: err}
	}
}

func (m *Model) copyLastReply() tea.Cmd {
	var reply *model.Message
	if conv := m.app.Store.Get(m.activeID); conv != nil {
		reply = conv.LastAssistantMessage()
	}
	if reply == nil || reply.Content == "" {
		return m.setStatus("No response to copy", true)
	}
	content := reply.Content
	return func() tea.Msg {
		err := clipboard.WriteAll(content)
		return copyDoneMsg{chars: len([]rune(content)), err: err}
	}
}

func (m Model) exportAll() tea.Cmd {
	convs := m.app.Store.List()
	format := export.Formats[m.exportFormat]
	opts := export.DefaultOptions()
	opts.OutputDir = m.exportDir
	opts.Theme = m.theme.GlamourStyle()
	return func() tea.Msg {
		path, err := export.ExportAll(convs, format, opts)
		return exportDoneMsg{path: path, err: err}
	}
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func (m Model) applyConfig(msg ConfigChangedMsg) (tea.Model, tea.Cmd) {
	cfg := msg.Config
	if cfg == nil {
		return m, nil
	}

	*m.theme = *styles.NewTheme(cfg.UI.Theme)
	m.theme.SetSize(m.width, m.height)
	m.md.SetStyle(m.theme.GlamourStyle())
	m.md.SetEnabled(cfg.UI.RenderMarkdown)
	m.app.Config.UI = cfg.UI

	m.refresh()
	cmd := m.setStatus("Configuration reloaded", false)
	return m, cmd
}
