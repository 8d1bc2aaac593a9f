package console

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunarmonkeys/cmd/lunar/ui"
	"lunarmonkeys/internal/manifest"
	"lunarmonkeys/internal/manifest/manifesttest"
	"lunarmonkeys/internal/mission"
)

// =============================================================================
// HELPERS
// =============================================================================

type harness struct {
	t     *testing.T
	srv   *manifesttest.Server
	state *mission.State
	dir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := manifesttest.NewServer()
	t.Cleanup(srv.Close)

	client, err := manifest.New(srv.URL)
	require.NoError(t, err)
	return &harness{
		t:     t,
		srv:   srv,
		state: mission.NewState(mission.NewManifestRemote(client, mission.DefaultCollections)),
		dir:   t.TempDir(),
	}
}

// model builds a console and optionally completes startup.
func (h *harness) model(started bool) Model {
	m := New(Options{
		State:    h.state,
		Styles:   ui.NewStyles(ui.LightTheme()),
		AdminURL: h.srv.URL + "/admin",
		StartDir: h.dir,
	})
	m = h.send(m, tea.WindowSizeMsg{Width: 240, Height: 60})
	if started {
		m = h.run(m, startCmd(context.Background(), h.state))
	}
	return m
}

// send feeds one message and runs every command it produces.
func (h *harness) send(m Model, msg tea.Msg) Model {
	h.t.Helper()
	next, cmd := m.Update(msg)
	return h.run(next.(Model), cmd)
}

// sendOnly feeds one message and hands back its command unexecuted.
func (h *harness) sendOnly(m Model, msg tea.Msg) (Model, tea.Cmd) {
	h.t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd and feeds the resulting messages back into the model.
func (h *harness) run(m Model, cmd tea.Cmd) Model {
	h.t.Helper()
	for _, msg := range collect(cmd) {
		m = h.send(m, msg)
	}
	return m
}

// collect executes cmd, flattening batches. Spinner ticks and quit are
// dropped so the loop terminates.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case nil, spinner.TickMsg, tea.QuitMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	default:
		return []tea.Msg{msg}
	}
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func (h *harness) typeText(m Model, text string) Model {
	for _, r := range text {
		m = h.send(m, key(string(r)))
	}
	return m
}

func (h *harness) loginAs(m Model, shortcut string) Model {
	h.t.Helper()
	m = h.send(m, key(shortcut))
	require.Equal(h.t, screenDashboard, m.current(), "expected dashboard after login")
	return m
}

func (h *harness) seedPrimate(name string) string {
	return h.srv.Seed(manifesttest.Primates, map[string]any{
		"name":    name,
		"species": string(mission.SpeciesChimpanzee),
		"status":  string(mission.StatusDeployed),
	})
}

func assertContains(t *testing.T, view string, want ...string) {
	t.Helper()
	for _, w := range want {
		assert.Contains(t, view, w)
	}
}

func assertNotContains(t *testing.T, view string, unwanted ...string) {
	t.Helper()
	for _, w := range unwanted {
		assert.NotContains(t, view, w)
	}
}

// =============================================================================
// SCREENS
// =============================================================================

func TestLoadingScreenUntilStarted(t *testing.T) {
	h := newHarness(t)
	m := h.model(false)

	require.Equal(t, screenLoading, m.current())
	assertContains(t, m.View(), loadingText)
}

func TestLandingAfterStart(t *testing.T) {
	h := newHarness(t)
	m := h.model(true)

	require.Equal(t, screenLanding, m.current())
	assertContains(t, m.View(),
		"Login as Scientist",
		"Login as Observer",
		"System Online",
		h.srv.URL+"/admin",
	)
}

func TestLandingShowsConnectionLost(t *testing.T) {
	h := newHarness(t)
	h.srv.SetHealthy(false)
	m := h.model(true)

	assertContains(t, m.View(), "Connection Lost", "Login as Scientist")
}

func TestScientistDashboard(t *testing.T) {
	h := newHarness(t)
	m := h.loginAs(h.model(true), "s")

	assertContains(t, m.View(),
		"Mission Scientist",
		"Scientist",
		"Deploy New Primate",
		"No primates deployed yet.",
		"No discoveries logged yet.",
		"System Online",
	)
}

func TestObserverSeesNoForms(t *testing.T) {
	h := newHarness(t)
	h.seedPrimate("Aldrin")
	m := h.loginAs(h.model(true), "o")

	view := m.View()
	assertContains(t, view, "Mission Observer", "Aldrin")
	assertNotContains(t, view, "Deploy New Primate", "Log New Discovery")

	m = h.send(m, key("p"))
	assert.Equal(t, paneLists, m.focus, "observer must not be able to focus a form")
}

func TestDashboardRowFallbacks(t *testing.T) {
	h := newHarness(t)
	h.seedPrimate("Aldrin")
	h.srv.Seed(manifesttest.Discoveries, map[string]any{
		"title":      "Orphan rock",
		"importance": "Minor",
	})
	m := h.loginAs(h.model(true), "o")

	assertContains(t, m.View(), AvatarPlaceholder, "N/A", "Unknown Primate", "Orphan rock")
}

func TestLoginFailureShowsAlert(t *testing.T) {
	h := newHarness(t)
	m := h.model(true)

	m = h.send(m, key("c"))
	m = h.typeText(m, manifesttest.ScientistEmail)
	m = h.send(m, key("enter"))
	m = h.typeText(m, "wrong")
	m = h.send(m, key("enter"))

	require.Equal(t, screenLanding, m.current(), "failed login must stay on the landing screen")
	assertContains(t, m.View(), alertLoginFailed)

	// The alert swallows other keys until dismissed.
	m = h.send(m, key("s"))
	require.Equal(t, screenLanding, m.current(), "keys behind the alert must be ignored")
	m = h.send(m, key("enter"))
	assertNotContains(t, m.View(), alertLoginFailed)
}

func TestCustomCredentialsLogin(t *testing.T) {
	h := newHarness(t)
	m := h.model(true)

	m = h.send(m, key("c"))
	m = h.typeText(m, manifesttest.ObserverEmail)
	m = h.send(m, key("tab"))
	m = h.typeText(m, manifesttest.Password)

	assert.NotContains(t, m.View(), manifesttest.Password, "password must be masked")

	m = h.send(m, key("enter"))
	require.Equal(t, screenDashboard, m.current())
	assertContains(t, m.View(), "Mission Observer")
}

func TestLogoutReturnsToLanding(t *testing.T) {
	h := newHarness(t)
	h.seedPrimate("Aldrin")
	m := h.loginAs(h.model(true), "s")

	m = h.send(m, key("ctrl+l"))

	require.Equal(t, screenLanding, m.current())
	assert.Empty(t, m.Snapshot().Primates)
	assertContains(t, m.View(), "Login as Scientist")
}

// =============================================================================
// PRIMATE FORM
// =============================================================================

func TestCreatePrimateFromForm(t *testing.T) {
	h := newHarness(t)
	m := h.loginAs(h.model(true), "s")

	m = h.send(m, key("p"))
	m = h.typeText(m, "Aldrin")
	m = h.send(m, key("ctrl+s"))

	snap := m.Snapshot()
	require.Len(t, snap.Primates, 1)
	got := snap.Primates[0]
	assert.Equal(t, "Aldrin", got.Name)
	assert.Equal(t, mission.SpeciesChimpanzee, got.Species)
	assert.Equal(t, mission.StatusInTraining, got.Status)
	assert.Nil(t, got.Avatar)
	assert.Empty(t, m.primateForm.name.Value(), "form should reset after success")
	assertContains(t, m.View(), "Aldrin", "Mission Scientist")
}

func TestCreatePrimateChoices(t *testing.T) {
	h := newHarness(t)
	m := h.loginAs(h.model(true), "s")

	m = h.send(m, key("p"))
	m = h.typeText(m, "Gordo")
	m = h.send(m, key("tab"))
	m = h.send(m, tea.KeyMsg{Type: tea.KeyRight})
	m = h.send(m, key("tab"))
	m = h.send(m, tea.KeyMsg{Type: tea.KeyRight})
	m = h.send(m, key("ctrl+s"))

	got := m.Snapshot().Primates[0]
	assert.Equal(t, mission.SpeciesRhesusMacaque, got.Species)
	assert.Equal(t, mission.StatusDeployed, got.Status)
	assert.Equal(t, mission.SpeciesChimpanzee, m.primateForm.species.value(), "species should reset to default")
}

func TestEmptyPrimateNameIsNotSubmitted(t *testing.T) {
	h := newHarness(t)
	m := h.loginAs(h.model(true), "s")

	m = h.send(m, key("p"))
	m = h.send(m, key("ctrl+s"))

	assert.Zero(t, h.srv.CreateCount(manifesttest.Primates))
}

func TestFailedPrimateCreateKeepsForm(t *testing.T) {
	h := newHarness(t)
	m := h.loginAs(h.model(true), "s")
	h.srv.Fail(http.MethodPost, "/api/collections/"+manifesttest.Primates, http.StatusInternalServerError)

	m = h.send(m, key("p"))
	m = h.typeText(m, "Aldrin")
	m = h.send(m, key("ctrl+s"))

	assert.Equal(t, "Aldrin", m.primateForm.name.Value(), "form should keep input after failure")
	assert.Empty(t, m.Snapshot().Primates)
	assert.False(t, m.primateForm.submitting)
}

func TestAvatarAttachment(t *testing.T) {
	h := newHarness(t)
	m := h.loginAs(h.model(true), "s")

	png := filepath.Join(h.dir, "ham.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\nfake"), 0o644))
	txt := filepath.Join(h.dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("not an image"), 0o644))

	m = h.run(m, loadFileCmd(attachAvatar, txt))
	require.Nil(t, m.primateForm.avatar, "non-image must be rejected as avatar")

	m = h.run(m, loadFileCmd(attachAvatar, png))
	require.NotNil(t, m.primateForm.avatar)

	m = h.send(m, key("p"))
	assertContains(t, m.View(), "ham.png", "image/png")

	m = h.typeText(m, "Ham")
	m = h.send(m, key("ctrl+s"))

	got := m.Snapshot().Primates[0]
	require.NotNil(t, got.Avatar)
	assert.True(t, strings.HasPrefix(got.Avatar.URL, h.srv.URL), "avatar url should be absolute, got %s", got.Avatar.URL)
}

func TestAttachPickerOpensAndCancels(t *testing.T) {
	h := newHarness(t)
	m := h.loginAs(h.model(true), "s")

	m = h.send(m, key("p"))
	for i := 0; i < primateFieldAvatar; i++ {
		m = h.send(m, key("tab"))
	}
	m = h.send(m, key("enter"))
	require.True(t, m.attach.active)
	assertContains(t, m.View(), "Select avatar", "Images only")

	m = h.send(m, key("q"))
	assert.False(t, m.attach.active, "q should close the picker")
	assert.False(t, m.quitting, "q in the picker must not quit")
}

// =============================================================================
// DISCOVERY FORM AND PICKER
// =============================================================================

func TestDiscoveryWithoutPrimateShowsAlert(t *testing.T) {
	h := newHarness(t)
	m := h.loginAs(h.model(true), "s")

	m = h.send(m, key("d"))
	m = h.typeText(m, "Ice")
	m = h.send(m, key("ctrl+s"))

	assertContains(t, m.View(), alertPrimateRequired)
	require.Zero(t, h.srv.CreateCount(manifesttest.Discoveries))
	for _, r := range h.srv.Requests() {
		if r.Method == http.MethodPost {
			assert.NotContains(t, r.Path, manifesttest.Discoveries)
		}
	}
	assert.Equal(t, "Ice", m.discoveryForm.title.Value(), "form must be left untouched")

	m = h.send(m, key("enter"))
	assertNotContains(t, m.View(), alertPrimateRequired)
}

// focusPicker opens the discovery form with a title and moves to the picker.
func (h *harness) focusPicker(m Model, title string) Model {
	m = h.send(m, key("d"))
	m = h.typeText(m, title)
	for m.discoveryForm.field != discoveryFieldPrimate {
		m = h.send(m, key("tab"))
	}
	return m
}

func TestPickerOutOfOrderResponses(t *testing.T) {
	h := newHarness(t)
	h.seedPrimate("Aldrin")
	h.seedPrimate("Alan")
	h.seedPrimate("Armstrong")
	m := h.loginAs(h.model(true), "s")
	m = h.focusPicker(m, "Regolith sample")

	m, cmdA := h.sendOnly(m, key("A"))
	m, cmdAl := h.sendOnly(m, key("l"))

	// "Al" resolves first, then the older "A" lands on top of it.
	for _, msg := range collect(cmdAl) {
		m = h.send(m, msg)
	}
	for _, msg := range collect(cmdA) {
		m = h.send(m, msg)
	}

	p := m.discoveryForm.primate
	require.Equal(t, pickerSearching, p.phase)
	require.Len(t, p.options, 3, "stale response should be applied")
	want := p.options[1]

	m = h.send(m, key("down"))
	m = h.send(m, key("enter"))
	require.Equal(t, want.ID, m.discoveryForm.primate.selectedID())
	assertContains(t, m.View(), want.Name)

	m = h.send(m, key("ctrl+s"))
	snap := m.Snapshot()
	require.Len(t, snap.Discoveries, 1)
	d := snap.Discoveries[0]
	assert.Equal(t, want.Name, d.PrimateName())
	assert.Equal(t, "Mission Scientist", d.ScientistName())
	assert.Equal(t, pickerIdle, m.discoveryForm.primate.phase, "discovery form should reset after success")
	assert.Empty(t, m.discoveryForm.title.Value())
}

func TestPickerClearReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.seedPrimate("Aldrin")
	m := h.loginAs(h.model(true), "s")
	m = h.focusPicker(m, "Dust")

	m = h.typeText(m, "Ald")
	require.Len(t, m.discoveryForm.primate.options, 1)

	for i := 0; i < 3; i++ {
		m = h.send(m, key("backspace"))
	}
	p := m.discoveryForm.primate
	require.Equal(t, pickerIdle, p.phase)
	require.Empty(t, p.options)

	m = h.typeText(m, "Ald")
	m = h.send(m, key("enter"))
	require.Equal(t, pickerSelected, m.discoveryForm.primate.phase)
	m = h.send(m, key("backspace"))
	assert.Empty(t, m.discoveryForm.primate.selectedID(), "backspace should clear the selection")
}

func TestPickerIgnoresResultsWhenIdle(t *testing.T) {
	h := newHarness(t)
	h.seedPrimate("Aldrin")
	m := h.loginAs(h.model(true), "s")
	m = h.focusPicker(m, "Dust")

	m, cmd := h.sendOnly(m, key("A"))
	m = h.send(m, key("backspace"))
	for _, msg := range collect(cmd) {
		m = h.send(m, msg)
	}
	assert.Empty(t, m.discoveryForm.primate.options, "cleared picker should stay empty")
}

func TestFailedDiscoveryCreateKeepsForm(t *testing.T) {
	h := newHarness(t)
	h.seedPrimate("Aldrin")
	m := h.loginAs(h.model(true), "s")
	m = h.focusPicker(m, "Crater")
	m = h.typeText(m, "Ald")
	m = h.send(m, key("enter"))

	h.srv.Fail(http.MethodPost, "/api/collections/"+manifesttest.Discoveries, http.StatusInternalServerError)
	m = h.send(m, key("ctrl+s"))

	assert.Empty(t, m.Snapshot().Discoveries)
	f := m.discoveryForm
	assert.Equal(t, "Crater", f.title.Value())
	assert.NotEmpty(t, f.primate.selectedID(), "form should keep its selection")
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanSize(tt.n))
	}
}
