// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lumenarc/internal/app"
	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/store"
	"github.com/jeranaias/lumenarc/internal/ui/components"
	"github.com/jeranaias/lumenarc/internal/ui/styles"
)

// =============================================================================
// STATE TYPES
// =============================================================================

type focusArea int

const (
	focusComposer focusArea = iota
	focusSidebar
)

type overlayKind int

const (
	overlayNone overlayKind = iota
	overlayRename
	overlayAttach
	overlaySettings
	overlayConfirmDeleteAll
	overlayHelp
)

// Rows of the settings panel.
const (
	settingWebSearch = iota
	settingThinking
	settingTemperature
	settingExportFormat
	settingExportAll
	settingDeleteAll
	settingCount
)

const (
	composerHeight  = 3
	temperatureMin  = 0.0
	temperatureMax  = 1.0
	temperatureStep = 0.1
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat screen.
type Model struct {
	app   *app.App
	ctx   context.Context
	theme *styles.Theme
	keys  KeyMap
	now   func() time.Time

	md       *components.Renderer
	sidebar  *components.ConversationList
	messages *components.MessageList

	viewport viewport.Model
	composer textarea.Model
	search   textinput.Model
	input    textinput.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	focus     focusArea
	overlay   overlayKind
	searching bool

	activeID   string
	selectedID string

	// Per-turn capability toggles, seeded from settings.
	webSearch bool
	thinking  bool
	pending   []model.Attachment

	settingsCursor int
	exportFormat   int
	exportDir      string

	inFlight    int
	ticking     bool
	lastVersion uint64

	status    string
	statusErr bool
	statusSeq int
}

// New creates the chat screen over a.
func New(ctx context.Context, a *app.App, theme *styles.Theme) Model {
	md := components.NewRenderer(theme.GlamourStyle(), a.Config.UI.RenderMarkdown)

	ta := textarea.New()
	ta.Placeholder = "Message LumenArc..."
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetHeight(composerHeight)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	// Enter sends; newlines come from the Newline binding.
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	search := textinput.New()
	search.Prompt = ""
	search.Placeholder = "search titles"
	search.CharLimit = 128

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 1024

	sp := spinner.New(spinner.WithSpinner(styles.StreamSpinner))

	s := a.Settings.Get()
	m := Model{
		app:       a,
		ctx:       ctx,
		theme:     theme,
		keys:      DefaultKeyMap(),
		now:       time.Now,
		md:        md,
		sidebar:   components.NewConversationList(theme),
		messages:  components.NewMessageList(theme, md),
		viewport:  viewport.New(80, 20),
		composer:  ta,
		search:    search,
		input:     input,
		spinner:   sp,
		activeID:  a.Store.First(),
		webSearch: s.WebSearchDefault,
		thinking:  s.ThinkingModeDefault,
		exportDir: ".",
	}
	m.selectedID = m.activeID
	m.refresh()
	return m
}

// Init starts the cursor blink and probes the provider.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, preflight(m.ctx, m.app))
}

// ActiveConversation returns the ID shown in the transcript.
func (m Model) ActiveConversation() string {
	return m.activeID
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true
	m.theme.SetSize(width, height)

	sideW := m.theme.SidebarWidth()
	mainW := m.mainWidth()

	// header + toggles + composer (with border) + status bar
	reserved := 1 + 1 + composerHeight + 2 + 1
	vpH := height - reserved
	if vpH < 1 {
		vpH = 1
	}
	m.viewport.Width = mainW
	m.viewport.Height = vpH

	m.composer.SetWidth(mainW - 2)
	m.sidebar.Width = sideW
	m.sidebar.Height = height - 1
	m.search.Width = sideW - 4
	m.input.Width = mainW - 12
}

func (m Model) mainWidth() int {
	w := m.width
	if sw := m.theme.SidebarWidth(); sw > 0 {
		w -= sw + 1
	}
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// STORE SYNC
// =============================================================================

// refresh re-reads the store into the sidebar and transcript.
func (m *Model) refresh() {
	st := m.app.Store
	version := st.Version()

	if m.activeID != "" && !st.Exists(m.activeID) {
		m.activeID = st.First()
	}

	m.sidebar.Groups = store.GroupByDate(st.Search(m.search.Value()), m.now())
	m.ensureSelection()
	m.sidebar.ActiveID = m.activeID
	m.sidebar.SelectedID = m.selectedID
	m.sidebar.Query = m.search.Value()
	m.sidebar.Searching = m.searching
	m.sidebar.Focused = m.focus == focusSidebar
	m.sidebar.Streaming = m.app.Controller.Active

	m.renderTranscript()
	m.syncComposer()
	m.lastVersion = version
}

func (m *Model) renderTranscript() {
	follow := m.viewport.AtBottom() || m.viewport.TotalLineCount() == 0

	var msgs []*model.Message
	if conv := m.app.Store.Get(m.activeID); conv != nil {
		msgs = conv.Messages
	}
	m.messages.SetMessages(msgs)
	m.messages.SetWidth(m.viewport.Width)
	m.messages.SpinnerFrame = m.spinner.View()
	m.viewport.SetContent(m.messages.View())
	if follow {
		m.viewport.GotoBottom()
	}
}

// syncComposer locks the composer while the active conversation streams.
func (m *Model) syncComposer() {
	switch {
	case m.activeStreaming():
		m.composer.Placeholder = "Waiting for response (Esc to stop)"
		m.composer.Blur()
	case m.focus == focusComposer && m.overlay == overlayNone:
		m.composer.Placeholder = "Message LumenArc..."
		m.composer.Focus()
	default:
		m.composer.Blur()
	}
}

// ensureSelection keeps the sidebar cursor on a visible conversation.
func (m *Model) ensureSelection() {
	visible := m.sidebar.Flatten()
	for _, c := range visible {
		if c.ID == m.selectedID {
			return
		}
	}
	m.selectedID = ""
	for _, c := range visible {
		if c.ID == m.activeID {
			m.selectedID = c.ID
			return
		}
	}
	if len(visible) > 0 {
		m.selectedID = visible[0].ID
	}
}

func (m Model) activeStreaming() bool {
	return m.activeID != "" && m.app.Controller.Active(m.activeID)
}

// moveSelection moves the sidebar cursor by delta, clamped to the list.
func (m *Model) moveSelection(delta int) {
	visible := m.sidebar.Flatten()
	if len(visible) == 0 {
		return
	}
	idx := 0
	for i, c := range visible {
		if c.ID == m.selectedID {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(visible) {
		idx = len(visible) - 1
	}
	m.selectedID = visible[idx].ID
}

// setStatus shows msg in the status bar and schedules its removal.
func (m *Model) setStatus(msg string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = msg
	m.statusErr = isErr
	return clearStatusAfter(m.statusSeq)
}
