package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"lunarmonkeys/cmd/lunar/ui"
	"lunarmonkeys/internal/logging"
	"lunarmonkeys/internal/mission"
)

// pickerPhase is the relationship picker's state.
type pickerPhase int

const (
	pickerIdle pickerPhase = iota
	pickerSearching
	pickerSelected
)

func (p pickerPhase) String() string {
	switch p {
	case pickerSearching:
		return "searching"
	case pickerSelected:
		return "selected"
	default:
		return "idle"
	}
}

const maxPickerOptions = 6

// relationPicker selects the primate a discovery references. Every keystroke
// issues a new search; whichever response arrives last is displayed.
type relationPicker struct {
	input   textinput.Model
	phase   pickerPhase
	options []mission.Primate
	cursor  int

	issued uint64 // seq of the latest query sent
	shown  uint64 // seq of the options on display

	selected mission.Primate
}

func newRelationPicker() relationPicker {
	ti := textinput.New()
	ti.Placeholder = "Search primates..."
	ti.Prompt = "⌕ "
	ti.CharLimit = 120
	ti.Width = ui.FormFieldWidth
	ti.Cursor.SetMode(cursor.CursorStatic)
	return relationPicker{input: ti}
}

func (p *relationPicker) focus() tea.Cmd {
	return p.input.Focus()
}

func (p *relationPicker) blur() {
	p.input.Blur()
}

// selectedID returns the chosen primate id, empty unless selected.
func (p relationPicker) selectedID() string {
	if p.phase != pickerSelected {
		return ""
	}
	return p.selected.ID
}

// displayName resolves the selection from the local primate list and falls
// back to the option the user picked.
func (p relationPicker) displayName(primates []mission.Primate) string {
	for _, pr := range primates {
		if pr.ID == p.selected.ID {
			return pr.Name
		}
	}
	return p.selected.Name
}

// clear returns the picker to idle.
func (p *relationPicker) clear() {
	p.phase = pickerIdle
	p.options = nil
	p.cursor = 0
	p.shown = 0
	p.selected = mission.Primate{}
	p.input.Reset()
}

// update handles a key. search builds the command for a new query.
func (p relationPicker) update(msg tea.KeyMsg, search func(seq uint64, query string) tea.Cmd) (relationPicker, tea.Cmd) {
	if p.phase == pickerSelected {
		switch msg.String() {
		case "backspace", "delete", "ctrl+u":
			logging.UIDebug("Picker: selection %s cleared", p.selected.ID)
			p.clear()
		}
		return p, nil
	}

	switch msg.String() {
	case "up":
		if p.cursor > 0 {
			p.cursor--
		}
		return p, nil
	case "down":
		if p.cursor < min(len(p.options), maxPickerOptions)-1 {
			p.cursor++
		}
		return p, nil
	case "enter":
		if p.cursor < len(p.options) {
			p.selected = p.options[p.cursor]
			p.phase = pickerSelected
			p.input.SetValue(p.selected.Name)
			logging.UIDebug("Picker: selected %s (%s)", p.selected.ID, p.selected.Name)
		}
		return p, nil
	}

	before := p.input.Value()
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	query := p.input.Value()
	if query == before {
		return p, cmd
	}

	if query == "" {
		p.phase = pickerIdle
		p.options = nil
		p.cursor = 0
		p.shown = 0
		return p, cmd
	}

	p.phase = pickerSearching
	p.issued++
	return p, tea.Batch(cmd, search(p.issued, query))
}

// apply shows the options of a resolved query. Responses that resolve after
// a newer query was issued are still applied.
func (p *relationPicker) apply(msg pickerResultsMsg) {
	if msg.seq < p.issued {
		logging.UIDebug("Picker: stale results for %q (seq %d, latest %d)", msg.query, msg.seq, p.issued)
	}
	if msg.err != nil {
		logging.UIDebug("Picker: search %q failed: %v", msg.query, msg.err)
		return
	}
	if p.phase != pickerSearching {
		logging.UIDebug("Picker: results for %q ignored while %s", msg.query, p.phase)
		return
	}
	p.options = msg.options
	p.shown = msg.seq
	if p.cursor >= len(p.options) {
		p.cursor = 0
	}
}

func (p relationPicker) view(s ui.Styles, focused bool, primates []mission.Primate) string {
	style := s.Field
	if focused {
		style = s.FocusedField
	}

	if p.phase == pickerSelected {
		line := s.Bold.Render(p.displayName(primates))
		if focused {
			line += "  " + s.Muted.Render("(backspace to clear)")
		}
		return style.Render(line)
	}

	var b strings.Builder
	b.WriteString(p.input.View())
	if p.phase == pickerSearching {
		b.WriteString("\n")
		switch {
		case len(p.options) == 0 && p.shown == 0:
			b.WriteString(s.Muted.Render("Searching..."))
		case len(p.options) == 0:
			b.WriteString(s.Muted.Render("No matching primates."))
		default:
			for i, o := range p.options {
				if i >= maxPickerOptions {
					b.WriteString(s.Muted.Render("  …"))
					break
				}
				if i == p.cursor {
					b.WriteString(s.ChoiceActive.Render("> " + o.Name))
				} else {
					b.WriteString(s.Body.Render("  " + o.Name))
				}
				if i < len(p.options)-1 {
					b.WriteString("\n")
				}
			}
		}
	}
	return style.Render(b.String())
}
