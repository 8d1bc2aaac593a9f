package console

// This file contains the Update loop: message routing, key handling per
// screen, and the bookkeeping that follows each state operation.

import (
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lunarmonkeys/cmd/lunar/ui"
	"lunarmonkeys/internal/logging"
	"lunarmonkeys/internal/mission"
)

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.current() == screenDashboard && !m.attach.active {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case startedMsg:
		if msg.result.Success {
			logging.UIDebug("Backend reachable")
		} else {
			logging.UIDebug("Backend unreachable: %v", msg.result.Err)
		}
		m.sync()
		next := m.enterDashboard()
		return m, next

	case loginDoneMsg:
		m.loggingIn = false
		m.landing.resetPassword()
		if msg.err != nil {
			logging.UIDebug("Login rejected: %v", msg.err)
			m.alert = alertLoginFailed
		}
		m.sync()
		next := m.enterDashboard()
		return m, next

	case logoutDoneMsg:
		if msg.err != nil {
			logging.UIDebug("Remote logout failed, local session cleared anyway: %v", msg.err)
		}
		m.sessionID = ""
		m.focusPane(paneLists)
		m.primateForm.reset()
		m.discoveryForm.reset()
		m.sync()
		return m, nil

	case refreshedMsg:
		m.refreshing = false
		if msg.err != nil {
			logging.UIDebug("Refresh incomplete: %v", msg.err)
		}
		m.sync()
		return m, nil

	case primateCreatedMsg:
		m.primateForm.submitting = false
		if msg.err != nil {
			logging.UIDebug("Primate not created, form kept: %v", msg.err)
		} else {
			logging.UIDebug("Primate %s deployed", msg.primate.ID)
			m.primateForm.reset()
			if m.focus == panePrimateForm {
				m.primateForm.focusField(primateFieldName)
			}
		}
		m.sync()
		return m, nil

	case discoveryCreatedMsg:
		m.discoveryForm.submitting = false
		switch {
		case errors.Is(msg.err, mission.ErrPrimateRequired):
			m.alert = alertPrimateRequired
		case msg.err != nil:
			logging.UIDebug("Discovery not logged, form kept: %v", msg.err)
		default:
			logging.UIDebug("Discovery %s logged", msg.discovery.ID)
			m.discoveryForm.reset()
			if m.focus == paneDiscoveryForm {
				m.discoveryForm.focusField(discoveryFieldTitle)
			}
		}
		m.sync()
		return m, nil

	case pickerResultsMsg:
		m.discoveryForm.primate.apply(msg)
		return m, nil

	case fileLoadedMsg:
		m.attachFile(msg)
		return m, nil
	}

	// Anything else (file picker directory reads) belongs to the attachment
	// picker while it is open.
	if m.attach.active {
		var cmd tea.Cmd
		m.attach, cmd = m.attach.update(msg)
		return m, cmd
	}
	return m, nil
}

// sync takes a fresh snapshot and re-renders the scrollable lists.
func (m *Model) sync() {
	m.snapshot = m.state.Snapshot()
	m.viewport.Width = m.listWidth()
	m.viewport.SetContent(lipgloss.NewStyle().MaxWidth(m.viewport.Width).Render(m.listsView()))
}

// listWidth is the lists column width; Scientists share the row with forms.
func (m Model) listWidth() int {
	if m.snapshot.User.IsScientist() {
		_, w := m.layout.SplitPaneWidths()
		return w
	}
	return m.layout.ContentWidth()
}

// busy reports whether the spinner should keep ticking.
func (m Model) busy() bool {
	return m.snapshot.Initializing || m.loggingIn || m.refreshing ||
		m.primateForm.submitting || m.discoveryForm.submitting
}

// enterDashboard loads both lists the first time a user's dashboard shows.
func (m *Model) enterDashboard() tea.Cmd {
	u := m.snapshot.User
	if u == nil || u.ID == m.sessionID {
		return nil
	}
	logging.UIDebug("Dashboard entered by %s (%s)", u.Name, u.Role)
	m.sessionID = u.ID
	m.refreshing = true
	m.focusPane(paneLists)
	m.sync()
	return tea.Batch(refreshCmd(m.ctx, m.state), m.spinner.Tick)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.layout = ui.NewLayoutConfig(width, height)

	m.viewport.Height = m.layout.ContentHeight()
	m.blurb = renderBlurb(m.styles, m.layout.ContentWidth())
	m.sync()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.alert != "" {
		switch msg.String() {
		case "enter", "esc", " ":
			logging.UIDebug("Alert dismissed: %s", m.alert)
			m.alert = ""
		}
		return m, nil
	}

	if m.attach.active {
		var cmd tea.Cmd
		m.attach, cmd = m.attach.update(msg)
		return m, cmd
	}

	switch m.current() {
	case screenLoading:
		if msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case screenLanding:
		return m.handleLandingKey(msg)
	default:
		return m.handleDashboardKey(msg)
	}
}

func (m Model) handleLandingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loggingIn {
		return m, nil
	}
	if msg.String() == "q" && !m.landing.custom {
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	var creds *credentials
	m.landing, cmd, creds = m.landing.update(msg)
	if creds == nil {
		return m, cmd
	}

	logging.UIDebug("Signing in as %s", creds.email)
	m.loggingIn = true
	return m, tea.Batch(cmd, loginCmd(m.ctx, m.state, creds.email, creds.password), m.spinner.Tick)
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+l":
		logging.UIDebug("Logout requested")
		return m, logoutCmd(m.ctx, m.state)
	case "ctrl+r":
		next := m.refresh()
		return m, next
	}

	switch m.focus {
	case panePrimateForm:
		if msg.String() == "esc" {
			m.focusPane(paneLists)
			return m, nil
		}
		var cmd tea.Cmd
		var action formAction
		m.primateForm, cmd, action = m.primateForm.update(msg)
		switch action {
		case formSubmit:
			next := tea.Batch(cmd, m.submitPrimate())
			return m, next
		case formAttach:
			next := m.attach.open(attachAvatar, m.layout.ContentHeight())
			return m, next
		}
		return m, cmd

	case paneDiscoveryForm:
		if msg.String() == "esc" {
			m.focusPane(paneLists)
			return m, nil
		}
		search := func(seq uint64, query string) tea.Cmd {
			return searchCmd(m.ctx, m.state, seq, query)
		}
		var cmd tea.Cmd
		var action formAction
		m.discoveryForm, cmd, action = m.discoveryForm.update(msg, search)
		switch action {
		case formSubmit:
			next := tea.Batch(cmd, m.submitDiscovery())
			return m, next
		case formAttach:
			next := m.attach.open(attachProof, m.layout.ContentHeight())
			return m, next
		}
		return m, cmd
	}

	scientist := m.snapshot.User.IsScientist()
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "r":
		next := m.refresh()
		return m, next
	case "tab":
		if scientist {
			next := m.focusPane(m.formTab)
			return m, next
		}
	case "p":
		if scientist {
			next := m.focusPane(panePrimateForm)
			return m, next
		}
	case "d":
		if scientist {
			next := m.focusPane(paneDiscoveryForm)
			return m, next
		}
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// focusPane moves dashboard key focus and remembers the form tab.
func (m *Model) focusPane(p pane) tea.Cmd {
	m.focus = p
	if p != paneLists {
		m.formTab = p
	}
	m.primateForm.blur()
	m.discoveryForm.blur()
	switch p {
	case panePrimateForm:
		return m.primateForm.focusField(m.primateForm.field)
	case paneDiscoveryForm:
		return m.discoveryForm.focusField(m.discoveryForm.field)
	}
	return nil
}

func (m *Model) refresh() tea.Cmd {
	if m.refreshing {
		return nil
	}
	m.refreshing = true
	return tea.Batch(refreshCmd(m.ctx, m.state), m.spinner.Tick)
}

func (m *Model) submitPrimate() tea.Cmd {
	f := &m.primateForm
	if f.submitting {
		return nil
	}
	if !f.valid() {
		return f.focusField(primateFieldName)
	}
	f.submitting = true
	return tea.Batch(createPrimateCmd(m.ctx, m.state, f.draft()), m.spinner.Tick)
}

func (m *Model) submitDiscovery() tea.Cmd {
	f := &m.discoveryForm
	if f.submitting {
		return nil
	}
	if !f.valid() {
		return f.focusField(discoveryFieldTitle)
	}
	if f.primate.selectedID() == "" {
		logging.UIDebug("Discovery submit blocked: no primate selected")
		m.alert = alertPrimateRequired
		return nil
	}
	f.submitting = true
	return tea.Batch(createDiscoveryCmd(m.ctx, m.state, f.draft()), m.spinner.Tick)
}

func (m *Model) attachFile(msg fileLoadedMsg) {
	if msg.err != nil {
		logging.UIDebug("Attach: reading %s failed: %v", msg.path, msg.err)
		return
	}
	switch msg.target {
	case attachAvatar:
		if !msg.file.IsImage() {
			logging.UIDebug("Attach: %s is %s, not an image", msg.file.Name, msg.file.ContentType)
			return
		}
		m.primateForm.avatar = msg.file
	case attachProof:
		m.discoveryForm.proof = msg.file
	}
	logging.UIDebug("Attach: %s set to %s", msg.target, describeFile(msg.file))
}
