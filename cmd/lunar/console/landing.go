package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"lunarmonkeys/cmd/lunar/ui"
	"lunarmonkeys/internal/logging"
)

const missionBlurb = `## Project Newton

Mission control for the lunar primate program. Track every **astro-primate**
from training to deployment and log the **discoveries** they make on the
surface.

* Scientists deploy primates and log discoveries.
* Observers follow the mission read-only.
`

// renderBlurb renders the landing blurb, falling back to the raw markdown.
func renderBlurb(s ui.Styles, width int) string {
	style := "light"
	if s.Theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logging.UIDebug("Blurb renderer unavailable: %v", err)
		return missionBlurb
	}
	out, err := r.Render(missionBlurb)
	if err != nil {
		logging.UIDebug("Blurb render failed: %v", err)
		return missionBlurb
	}
	return strings.TrimRight(out, "\n")
}

// landingAction is a landing menu entry.
type landingAction int

const (
	landingScientist landingAction = iota
	landingObserver
	landingCustom
	landingActionCount
)

func (a landingAction) String() string {
	switch a {
	case landingScientist:
		return "Login as Scientist"
	case landingObserver:
		return "Login as Observer"
	default:
		return "Login with credentials"
	}
}

// landingModel is the menu and the custom credentials form.
type landingModel struct {
	cursor   landingAction
	custom   bool // credentials form shown
	email    textinput.Model
	password textinput.Model
}

func newLandingModel() landingModel {
	email := textinput.New()
	email.Placeholder = "email"
	email.Prompt = "Email:    "
	email.Width = ui.FormFieldWidth
	email.Cursor.SetMode(cursor.CursorStatic)

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.Width = ui.FormFieldWidth
	password.Cursor.SetMode(cursor.CursorStatic)

	return landingModel{email: email, password: password}
}

// credentials returns the login the user asked for, if any.
type credentials struct {
	email    string
	password string
}

func (l landingModel) update(msg tea.KeyMsg) (landingModel, tea.Cmd, *credentials) {
	if l.custom {
		return l.updateCustom(msg)
	}

	switch msg.String() {
	case "up", "k":
		if l.cursor > 0 {
			l.cursor--
		}
	case "down", "j":
		if l.cursor < landingActionCount-1 {
			l.cursor++
		}
	case "s":
		return l, nil, &credentials{ScientistEmail, DemoPassword}
	case "o":
		return l, nil, &credentials{ObserverEmail, DemoPassword}
	case "c":
		return l.openCustom()
	case "enter":
		switch l.cursor {
		case landingScientist:
			return l, nil, &credentials{ScientistEmail, DemoPassword}
		case landingObserver:
			return l, nil, &credentials{ObserverEmail, DemoPassword}
		default:
			return l.openCustom()
		}
	}
	return l, nil, nil
}

func (l landingModel) openCustom() (landingModel, tea.Cmd, *credentials) {
	l.custom = true
	l.cursor = landingCustom
	l.password.Blur()
	return l, l.email.Focus(), nil
}

func (l landingModel) updateCustom(msg tea.KeyMsg) (landingModel, tea.Cmd, *credentials) {
	switch msg.String() {
	case "esc":
		l.custom = false
		l.email.Blur()
		l.password.Blur()
		return l, nil, nil
	case "tab", "shift+tab", "up", "down":
		if l.email.Focused() {
			l.email.Blur()
			return l, l.password.Focus(), nil
		}
		l.password.Blur()
		return l, l.email.Focus(), nil
	case "enter":
		if l.email.Focused() {
			l.email.Blur()
			return l, l.password.Focus(), nil
		}
		if strings.TrimSpace(l.email.Value()) == "" {
			return l, nil, nil
		}
		return l, nil, &credentials{strings.TrimSpace(l.email.Value()), l.password.Value()}
	}

	var cmd tea.Cmd
	if l.email.Focused() {
		l.email, cmd = l.email.Update(msg)
	} else {
		l.password, cmd = l.password.Update(msg)
	}
	return l, cmd, nil
}

// resetPassword clears the typed password after a login attempt.
func (l *landingModel) resetPassword() {
	l.password.Reset()
}

func (l landingModel) view(s ui.Styles) string {
	var b strings.Builder
	for a := landingScientist; a < landingActionCount; a++ {
		label := a.String()
		if a == l.cursor {
			b.WriteString(s.ButtonActive.Render(label))
		} else {
			b.WriteString(s.Button.Render(label))
		}
		b.WriteString("\n")
	}

	if l.custom {
		b.WriteString("\n")
		b.WriteString(fieldStyle(s, l.email.Focused())(l.email.View()) + "\n")
		b.WriteString(fieldStyle(s, l.password.Focused())(l.password.View()) + "\n")
		b.WriteString(s.Muted.Render("enter: sign in • tab: switch field • esc: back"))
	} else {
		b.WriteString(s.Muted.Render("↑/↓ choose • enter: sign in • s: scientist • o: observer • c: credentials"))
	}
	return b.String()
}
