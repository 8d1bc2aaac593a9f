// Package console implements the interactive mission console.
// This file contains the Model type and its constructor. The console is a
// pure rendering of mission.State: it holds the state by reference, triggers
// its operations as tea.Cmds and re-renders from a fresh snapshot after
// every message.
package console

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"lunarmonkeys/cmd/lunar/ui"
	"lunarmonkeys/internal/logging"
	"lunarmonkeys/internal/mission"
)

// Demo credentials seeded in the mission backend.
const (
	ScientistEmail = "scientist@manifest.build"
	ObserverEmail  = "observer@manifest.build"
	DemoPassword   = "password"
)

// Alert texts.
const (
	alertLoginFailed     = "Login failed. Please check your credentials."
	alertPrimateRequired = "Please select a primate for this discovery."
)

// AvatarPlaceholder is shown for primates without an avatar.
const AvatarPlaceholder = "https://via.placeholder.com/80"

// screen is derived from the state snapshot on every render.
type screen int

const (
	screenLoading screen = iota
	screenLanding
	screenDashboard
)

// pane is the dashboard area receiving keys.
type pane int

const (
	paneLists pane = iota
	panePrimateForm
	paneDiscoveryForm
)

// Options configures a console Model.
type Options struct {
	State    *mission.State
	Styles   ui.Styles
	AdminURL string
	// StartDir is where the attachment file picker opens. Defaults to the
	// working directory.
	StartDir string
	Context  context.Context
}

// Model is the root bubbletea model of the mission console.
type Model struct {
	ctx      context.Context
	state    *mission.State
	snapshot mission.Snapshot
	styles   ui.Styles
	layout   ui.LayoutConfig
	adminURL string

	spinner  spinner.Model
	viewport viewport.Model
	blurb    string

	landing landingModel

	focus         pane
	formTab       pane // form shown beside the lists
	primateForm   primateForm
	discoveryForm discoveryForm
	attach        attachModel

	// alert blocks all input until dismissed
	alert string

	loggingIn  bool
	refreshing bool
	sessionID  string // user id the dashboard last loaded lists for

	width    int
	height   int
	quitting bool
}

// New creates a console over opts.State.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	styles := opts.Styles
	if styles.Theme.Primary == "" {
		styles = ui.DefaultStyles()
	}
	startDir := opts.StartDir
	if startDir == "" {
		if wd, err := os.Getwd(); err == nil {
			startDir = wd
		}
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styles.Spinner

	layout := ui.NewLayoutConfig(ui.CompactModeWidth, 40)

	m := Model{
		ctx:           ctx,
		state:         opts.State,
		styles:        styles,
		layout:        layout,
		adminURL:      opts.AdminURL,
		spinner:       sp,
		viewport:      newListViewport(layout),
		landing:       newLandingModel(),
		formTab:       panePrimateForm,
		primateForm:   newPrimateForm(),
		discoveryForm: newDiscoveryForm(),
		attach:        newAttachModel(startDir),
		width:         layout.TerminalWidth,
		height:        layout.TerminalHeight,
	}
	m.blurb = renderBlurb(styles, layout.ContentWidth())
	m.snapshot = m.state.Snapshot()
	return m
}

// Init starts the connectivity probe and the loading spinner.
func (m Model) Init() tea.Cmd {
	logging.UIDebug("Console init, starting mission state")
	return tea.Batch(m.spinner.Tick, startCmd(m.ctx, m.state))
}

// current derives the screen from the latest snapshot.
func (m Model) current() screen {
	switch {
	case m.snapshot.Initializing:
		return screenLoading
	case m.snapshot.User == nil:
		return screenLanding
	default:
		return screenDashboard
	}
}

// Snapshot exposes the state the last render was based on.
func (m Model) Snapshot() mission.Snapshot {
	return m.snapshot
}

func newListViewport(layout ui.LayoutConfig) viewport.Model {
	vp := viewport.New(layout.ContentWidth(), layout.ContentHeight())
	vp.MouseWheelEnabled = true
	return vp
}
