package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"lunarmonkeys/cmd/lunar/ui"
	"lunarmonkeys/internal/manifest"
	"lunarmonkeys/internal/mission"
)

// formAction is what a form asks the console to do after a key.
type formAction int

const (
	formNone formAction = iota
	formSubmit
	formAttach
)

func newFormInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = 200
	ti.Width = ui.FormFieldWidth
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

func fieldStyle(s ui.Styles, focused bool) func(...string) string {
	if focused {
		return s.FocusedField.Render
	}
	return s.Field.Render
}

func renderButton(s ui.Styles, label string, focused, busy bool) string {
	if busy {
		label += "..."
	}
	if focused {
		return s.ButtonActive.Render(label)
	}
	return s.Button.Render(label)
}

func renderAttachment(s ui.Styles, f *manifest.File, focused bool, empty string) string {
	var line string
	if f == nil {
		line = s.Muted.Render(empty)
	} else {
		line = s.Body.Render(describeFile(f))
	}
	if focused {
		if f == nil {
			line += "  " + s.Muted.Render("(enter to browse)")
		} else {
			line += "  " + s.Muted.Render("(enter to replace, backspace to remove)")
		}
	}
	return fieldStyle(s, focused)(line)
}

// Primate form fields in tab order.
const (
	primateFieldName = iota
	primateFieldSpecies
	primateFieldStatus
	primateFieldAvatar
	primateFieldSubmit
	primateFieldCount
)

// primateForm is the Scientist's "Deploy New Primate" form.
type primateForm struct {
	name    textinput.Model
	species choice[mission.Species]
	status  choice[mission.Status]
	avatar  *manifest.File

	field      int
	submitting bool
}

func newPrimateForm() primateForm {
	return primateForm{
		name:    newFormInput("e.g. Aldrin"),
		species: newChoice(mission.SpeciesOptions),
		status:  newChoice(mission.StatusOptions),
	}
}

func (f *primateForm) focusField(i int) tea.Cmd {
	f.field = (i + primateFieldCount) % primateFieldCount
	if f.field == primateFieldName {
		return f.name.Focus()
	}
	f.name.Blur()
	return nil
}

func (f *primateForm) blur() {
	f.name.Blur()
}

func (f primateForm) valid() bool {
	return strings.TrimSpace(f.name.Value()) != ""
}

func (f primateForm) draft() mission.PrimateDraft {
	return mission.PrimateDraft{
		Name:    f.name.Value(),
		Species: f.species.value(),
		Status:  f.status.value(),
		Avatar:  f.avatar,
	}
}

// reset restores the defaults after a successful create.
func (f *primateForm) reset() {
	f.name.Reset()
	f.species.reset()
	f.status.reset()
	f.avatar = nil
	f.submitting = false
}

func (f primateForm) update(msg tea.KeyMsg) (primateForm, tea.Cmd, formAction) {
	switch msg.String() {
	case "tab":
		return f, f.focusField(f.field + 1), formNone
	case "shift+tab":
		return f, f.focusField(f.field - 1), formNone
	case "ctrl+s":
		return f, nil, formSubmit
	}

	switch f.field {
	case primateFieldName:
		if msg.String() == "enter" {
			return f, f.focusField(f.field + 1), formNone
		}
		var cmd tea.Cmd
		f.name, cmd = f.name.Update(msg)
		return f, cmd, formNone
	case primateFieldSpecies:
		switch msg.String() {
		case "left":
			f.species.prev()
		case "right", " ":
			f.species.next()
		case "enter":
			return f, f.focusField(f.field + 1), formNone
		}
	case primateFieldStatus:
		switch msg.String() {
		case "left":
			f.status.prev()
		case "right", " ":
			f.status.next()
		case "enter":
			return f, f.focusField(f.field + 1), formNone
		}
	case primateFieldAvatar:
		switch msg.String() {
		case "enter", " ":
			return f, nil, formAttach
		case "backspace", "delete":
			f.avatar = nil
		}
	case primateFieldSubmit:
		if msg.String() == "enter" {
			return f, nil, formSubmit
		}
	}
	return f, nil, formNone
}

func (f primateForm) view(s ui.Styles, focused bool) string {
	at := func(i int) bool { return focused && f.field == i }

	var b strings.Builder
	b.WriteString(s.Title.Render("Deploy New Primate"))
	b.WriteString("\n")
	b.WriteString(s.Label.Render("Name *") + "\n")
	b.WriteString(fieldStyle(s, at(primateFieldName))(f.name.View()) + "\n")
	b.WriteString(s.Label.Render("Species") + "\n")
	b.WriteString(fieldStyle(s, at(primateFieldSpecies))(f.species.view(s, at(primateFieldSpecies))) + "\n")
	b.WriteString(s.Label.Render("Status") + "\n")
	b.WriteString(fieldStyle(s, at(primateFieldStatus))(f.status.view(s, at(primateFieldStatus))) + "\n")
	b.WriteString(s.Label.Render("Avatar") + "\n")
	b.WriteString(renderAttachment(s, f.avatar, at(primateFieldAvatar), "No image selected") + "\n\n")
	b.WriteString(renderButton(s, "Deploy Primate", at(primateFieldSubmit), f.submitting))
	return b.String()
}

// Discovery form fields in tab order.
const (
	discoveryFieldTitle = iota
	discoveryFieldDescription
	discoveryFieldImportance
	discoveryFieldPrimate
	discoveryFieldProof
	discoveryFieldSubmit
	discoveryFieldCount
)

// discoveryForm is the Scientist's "Log New Discovery" form.
type discoveryForm struct {
	title       textinput.Model
	description textarea.Model
	importance  choice[mission.Importance]
	primate     relationPicker
	proof       *manifest.File

	field      int
	submitting bool
}

func newDiscoveryForm() discoveryForm {
	ta := textarea.New()
	ta.Placeholder = "What did they find?"
	ta.ShowLineNumbers = false
	ta.SetWidth(ui.FormFieldWidth)
	ta.SetHeight(3)
	ta.Cursor.SetMode(cursor.CursorStatic)
	ta.Blur()

	return discoveryForm{
		title:       newFormInput("e.g. Crystalline ice deposit"),
		description: ta,
		importance:  newChoice(mission.ImportanceOptions),
		primate:     newRelationPicker(),
	}
}

func (f *discoveryForm) focusField(i int) tea.Cmd {
	f.field = (i + discoveryFieldCount) % discoveryFieldCount
	f.title.Blur()
	f.description.Blur()
	f.primate.blur()
	switch f.field {
	case discoveryFieldTitle:
		return f.title.Focus()
	case discoveryFieldDescription:
		return f.description.Focus()
	case discoveryFieldPrimate:
		return f.primate.focus()
	}
	return nil
}

func (f *discoveryForm) blur() {
	f.title.Blur()
	f.description.Blur()
	f.primate.blur()
}

func (f discoveryForm) valid() bool {
	return strings.TrimSpace(f.title.Value()) != ""
}

func (f discoveryForm) draft() mission.DiscoveryDraft {
	return mission.DiscoveryDraft{
		Title:         f.title.Value(),
		Description:   f.description.Value(),
		Importance:    f.importance.value(),
		PrimateID:     f.primate.selectedID(),
		ProofDocument: f.proof,
	}
}

// reset restores the defaults after a successful create.
func (f *discoveryForm) reset() {
	f.title.Reset()
	f.description.Reset()
	f.importance.reset()
	f.primate.clear()
	f.proof = nil
	f.submitting = false
}

func (f discoveryForm) update(msg tea.KeyMsg, search func(uint64, string) tea.Cmd) (discoveryForm, tea.Cmd, formAction) {
	switch msg.String() {
	case "tab":
		return f, f.focusField(f.field + 1), formNone
	case "shift+tab":
		return f, f.focusField(f.field - 1), formNone
	case "ctrl+s":
		return f, nil, formSubmit
	}

	var cmd tea.Cmd
	switch f.field {
	case discoveryFieldTitle:
		if msg.String() == "enter" {
			return f, f.focusField(f.field + 1), formNone
		}
		f.title, cmd = f.title.Update(msg)
	case discoveryFieldDescription:
		f.description, cmd = f.description.Update(msg)
	case discoveryFieldImportance:
		switch msg.String() {
		case "left":
			f.importance.prev()
		case "right", " ":
			f.importance.next()
		case "enter":
			return f, f.focusField(f.field + 1), formNone
		}
	case discoveryFieldPrimate:
		f.primate, cmd = f.primate.update(msg, search)
	case discoveryFieldProof:
		switch msg.String() {
		case "enter", " ":
			return f, nil, formAttach
		case "backspace", "delete":
			f.proof = nil
		}
	case discoveryFieldSubmit:
		if msg.String() == "enter" {
			return f, nil, formSubmit
		}
	}
	return f, cmd, formNone
}

func (f discoveryForm) view(s ui.Styles, focused bool, primates []mission.Primate) string {
	at := func(i int) bool { return focused && f.field == i }

	var b strings.Builder
	b.WriteString(s.Title.Render("Log New Discovery"))
	b.WriteString("\n")
	b.WriteString(s.Label.Render("Title *") + "\n")
	b.WriteString(fieldStyle(s, at(discoveryFieldTitle))(f.title.View()) + "\n")
	b.WriteString(s.Label.Render("Description") + "\n")
	b.WriteString(fieldStyle(s, at(discoveryFieldDescription))(f.description.View()) + "\n")
	b.WriteString(s.Label.Render("Importance") + "\n")
	b.WriteString(fieldStyle(s, at(discoveryFieldImportance))(f.importance.view(s, at(discoveryFieldImportance))) + "\n")
	b.WriteString(s.Label.Render("Discovered By *") + "\n")
	b.WriteString(f.primate.view(s, at(discoveryFieldPrimate), primates) + "\n")
	b.WriteString(s.Label.Render("Proof Document") + "\n")
	b.WriteString(renderAttachment(s, f.proof, at(discoveryFieldProof), "No document attached") + "\n\n")
	b.WriteString(renderButton(s, "Log Discovery", at(discoveryFieldSubmit), f.submitting))
	return b.String()
}
