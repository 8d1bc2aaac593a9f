package console

// This file contains rendering: one function per screen plus the shared
// header, alert and list helpers.

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lunarmonkeys/cmd/lunar/ui"
	"lunarmonkeys/internal/mission"
)

const loadingText = "Initializing Lunar Mission Control..."

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch {
	case m.attach.active:
		body = m.attachView()
	case m.current() == screenLoading:
		body = m.loadingView()
	case m.current() == screenLanding:
		body = m.landingView()
	default:
		body = m.dashboardView()
	}

	if m.alert != "" {
		return m.alertView() + "\n\n" + body
	}
	return body
}

// statusLine renders the connectivity indicator shown on every screen.
func (m Model) statusLine() string {
	if m.snapshot.Initializing {
		return m.styles.Muted.Render("● Connecting...")
	}
	return m.styles.StatusIndicator(m.snapshot.Connected)
}

// headerBar renders left and the status indicator on one row.
func (m Model) headerBar(left string) string {
	right := m.statusLine()
	gap := m.layout.ContentWidth() - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) loadingView() string {
	var b strings.Builder
	b.WriteString(m.headerBar(m.styles.Header.Render("LunarMonkeys")))
	b.WriteString("\n\n")
	b.WriteString(m.spinner.View() + " " + m.styles.Body.Render(loadingText))
	return m.styles.Content.Render(b.String())
}

func (m Model) landingView() string {
	var b strings.Builder
	b.WriteString(m.headerBar(m.styles.Header.Render("LunarMonkeys")))
	b.WriteString("\n")
	b.WriteString(ui.Logo(m.styles))
	b.WriteString("\n")
	b.WriteString(m.blurb)
	b.WriteString("\n\n")

	if m.loggingIn {
		b.WriteString(m.spinner.View() + " " + m.styles.Body.Render("Authenticating..."))
	} else {
		b.WriteString(m.landing.view(m.styles))
	}
	b.WriteString("\n\n")
	b.WriteString(m.styles.Muted.Render("Admin panel: "))
	b.WriteString(m.styles.Link.Render(m.adminURL))
	return m.styles.Content.Render(b.String())
}

func (m Model) dashboardView() string {
	u := m.snapshot.User
	s := m.styles

	title := s.Header.Render("LunarMonkeys Mission Control")
	who := fmt.Sprintf(" %s %s", s.Bold.Render(u.Name), s.Badge.Render(string(u.Role)))

	var b strings.Builder
	b.WriteString(m.headerBar(title + who))
	b.WriteString("\n")
	b.WriteString(s.Muted.Render("Admin panel: ") + s.Link.Render(m.adminURL))
	b.WriteString("\n")
	b.WriteString(s.RenderDivider(m.layout.ContentWidth()))
	b.WriteString("\n")

	lists := m.viewport.View()
	if m.refreshing {
		lists = m.spinner.View() + " " + s.Muted.Render("Refreshing mission data...") + "\n" + lists
	}

	if u.IsScientist() {
		left, _ := m.layout.SplitPaneWidths()
		forms := s.Card.Width(ui.PanelContentWidth(left)).Render(m.formView())
		if m.layout.IsCompact {
			b.WriteString(forms + "\n" + lists)
		} else {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, forms, strings.Repeat(" ", ui.SplitPaneDivider), lists))
		}
	} else {
		b.WriteString(lists)
	}

	b.WriteString("\n")
	b.WriteString(s.Footer.Render(m.helpText()))
	return s.Content.Render(b.String())
}

// formView renders the form tab beside the lists.
func (m Model) formView() string {
	s := m.styles
	tab := func(label string, p pane) string {
		if m.formTab == p {
			return s.ChoiceActive.Render(label)
		}
		return s.Choice.Render(label)
	}
	tabs := tab("[p] Deploy Primate", panePrimateForm) + " " + tab("[d] Log Discovery", paneDiscoveryForm)

	var form string
	if m.formTab == paneDiscoveryForm {
		form = m.discoveryForm.view(s, m.focus == paneDiscoveryForm, m.snapshot.Primates)
	} else {
		form = m.primateForm.view(s, m.focus == panePrimateForm)
	}
	return tabs + "\n\n" + form
}

func (m Model) helpText() string {
	switch {
	case m.focus != paneLists:
		return "tab/shift+tab: field • ←/→: choose • ctrl+s: submit • esc: back to lists • ctrl+l: logout"
	case m.snapshot.User.IsScientist():
		return "p/d/tab: forms • ↑/↓: scroll • r: refresh • ctrl+l: logout • q: quit"
	default:
		return "↑/↓: scroll • r: refresh • ctrl+l: logout • q: quit"
	}
}

// listsView renders both entity sections for the viewport.
func (m Model) listsView() string {
	s := m.styles
	snap := m.snapshot

	primates := ui.NewSimpleTable(fmt.Sprintf("Astro-Primates (%d)", len(snap.Primates)),
		[]string{"Avatar", "Name", "Species", "Status", "Handler"})
	primates.EmptyText = "No primates deployed yet."
	primates.MaxWidth = 36
	for _, p := range snap.Primates {
		primates.AddRow(avatarURL(p), p.Name, string(p.Species), string(p.Status), p.HandlerName())
	}

	discoveries := ui.NewSimpleTable(fmt.Sprintf("Discoveries (%d)", len(snap.Discoveries)),
		[]string{"Title", "Importance", "Discovered By", "Logged By", "Proof Document", "Description"})
	discoveries.EmptyText = "No discoveries logged yet."
	discoveries.MaxWidth = 36
	for _, d := range snap.Discoveries {
		discoveries.AddRow(d.Title, string(d.Importance), d.PrimateName(), d.ScientistName(), proofURL(d), firstLine(d.Description))
	}

	var b strings.Builder
	if snap.LoadingPrimates {
		b.WriteString(s.Muted.Render("Loading primates...") + "\n")
	}
	b.WriteString(primates.View(s))
	b.WriteString("\n")
	if snap.LoadingDiscoveries {
		b.WriteString(s.Muted.Render("Loading discoveries...") + "\n")
	}
	b.WriteString(discoveries.View(s))
	return b.String()
}

func (m Model) attachView() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(m.headerBar(s.Header.Render(fmt.Sprintf(" Select %s ", m.attach.target))))
	b.WriteString("\n")
	if m.attach.target == attachAvatar {
		b.WriteString(s.Muted.Render("Images only: " + strings.Join(imageExtensions, " ")))
		b.WriteString("\n")
	}
	b.WriteString(s.Content.Render(m.attach.view()))
	b.WriteString("\n")
	b.WriteString(s.Footer.Render("↑/↓: move • enter: open/select • backspace: up • q: cancel"))
	return b.String()
}

func (m Model) alertView() string {
	msg := m.styles.Alert.Render(m.alert + "\n\n" + m.styles.Muted.Render("press enter to continue"))
	return lipgloss.PlaceHorizontal(m.layout.ContentWidth(), lipgloss.Center, msg)
}

func avatarURL(p mission.Primate) string {
	if p.Avatar == nil || p.Avatar.URL == "" {
		return AvatarPlaceholder
	}
	return p.Avatar.URL
}

func proofURL(d mission.Discovery) string {
	if d.ProofDocument == nil {
		return ""
	}
	return d.ProofDocument.URL
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
