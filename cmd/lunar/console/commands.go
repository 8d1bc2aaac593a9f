package console

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"lunarmonkeys/internal/manifest"
	"lunarmonkeys/internal/mission"
)

// Messages reporting the outcome of state operations run as commands.
type (
	startedMsg struct {
		result mission.ProbeResult
	}

	loginDoneMsg struct {
		err error
	}

	logoutDoneMsg struct {
		err error
	}

	refreshedMsg struct {
		err error
	}

	primateCreatedMsg struct {
		primate *mission.Primate
		err     error
	}

	discoveryCreatedMsg struct {
		discovery *mission.Discovery
		err       error
	}

	// pickerResultsMsg carries the options for one picker query. seq orders
	// the queries as they were issued, not as they resolved.
	pickerResultsMsg struct {
		seq     uint64
		query   string
		options []mission.Primate
		err     error
	}

	// fileLoadedMsg carries an attachment read from disk.
	fileLoadedMsg struct {
		target attachTarget
		path   string
		file   *manifest.File
		err    error
	}
)

func startCmd(ctx context.Context, state *mission.State) tea.Cmd {
	return func() tea.Msg {
		return startedMsg{result: state.Start(ctx)}
	}
}

func loginCmd(ctx context.Context, state *mission.State, email, password string) tea.Cmd {
	return func() tea.Msg {
		return loginDoneMsg{err: state.Login(ctx, email, password)}
	}
}

func logoutCmd(ctx context.Context, state *mission.State) tea.Cmd {
	return func() tea.Msg {
		return logoutDoneMsg{err: state.Logout(ctx)}
	}
}

func refreshCmd(ctx context.Context, state *mission.State) tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: state.Refresh(ctx)}
	}
}

func createPrimateCmd(ctx context.Context, state *mission.State, draft mission.PrimateDraft) tea.Cmd {
	return func() tea.Msg {
		p, err := state.CreatePrimate(ctx, draft)
		return primateCreatedMsg{primate: p, err: err}
	}
}

func createDiscoveryCmd(ctx context.Context, state *mission.State, draft mission.DiscoveryDraft) tea.Cmd {
	return func() tea.Msg {
		d, err := state.CreateDiscovery(ctx, draft)
		return discoveryCreatedMsg{discovery: d, err: err}
	}
}

func searchCmd(ctx context.Context, state *mission.State, seq uint64, query string) tea.Cmd {
	return func() tea.Msg {
		options, err := state.SearchPrimates(ctx, query)
		return pickerResultsMsg{seq: seq, query: query, options: options, err: err}
	}
}

func loadFileCmd(target attachTarget, path string) tea.Cmd {
	return func() tea.Msg {
		f, err := manifest.OpenFile(path)
		return fileLoadedMsg{target: target, path: path, file: f, err: err}
	}
}
