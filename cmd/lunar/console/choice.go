package console

import (
	"strings"

	"lunarmonkeys/cmd/lunar/ui"
)

// choice is a fixed option selector cycled with left/right. The first
// option is the default.
type choice[T ~string] struct {
	options []T
	index   int
}

func newChoice[T ~string](options []T) choice[T] {
	return choice[T]{options: options}
}

func (c *choice[T]) next() {
	c.index = (c.index + 1) % len(c.options)
}

func (c *choice[T]) prev() {
	c.index = (c.index - 1 + len(c.options)) % len(c.options)
}

func (c *choice[T]) reset() {
	c.index = 0
}

func (c choice[T]) value() T {
	return c.options[c.index]
}

func (c choice[T]) view(s ui.Styles, focused bool) string {
	parts := make([]string, len(c.options))
	for i, o := range c.options {
		switch {
		case i == c.index && focused:
			parts[i] = s.ChoiceActive.Render(string(o))
		case i == c.index:
			parts[i] = s.Bold.Padding(0, 1).Render(string(o))
		default:
			parts[i] = s.Choice.Render(string(o))
		}
	}
	return strings.Join(parts, " ")
}
