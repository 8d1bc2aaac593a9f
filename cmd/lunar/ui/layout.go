// Package ui layout constants for consistent spacing and dimensions
package ui

// Layout constants for viewport and panel sizing
const (
	// Viewport padding and margins
	ViewportHorizontalPadding = 4
	ViewportVerticalPadding   = 6

	// Split pane dimensions (primates | discoveries)
	SplitPaneLeftRatio = 0.45
	SplitPaneDivider   = 3

	// Panel borders and spacing
	PanelBorderWidth = 1
	PanelPaddingH    = 1

	// Control areas
	HeaderHeight = 2
	FooterHeight = 2

	// Responsive breakpoints
	MinimumTerminalWidth = 60
	CompactModeWidth     = 100

	// Content widths
	FormFieldWidth  = 40
	MinContentWidth = 40
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	IsCompact      bool
}

// NewLayoutConfig creates a layout configuration for the given terminal size
func NewLayoutConfig(width, height int) LayoutConfig {
	if width < MinimumTerminalWidth {
		width = MinimumTerminalWidth
	}
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
		IsCompact:      width < CompactModeWidth,
	}
}

// ContentWidth returns the usable content width for a viewport
func (l LayoutConfig) ContentWidth() int {
	w := l.TerminalWidth - ViewportHorizontalPadding
	if w < MinContentWidth {
		return MinContentWidth
	}
	return w
}

// ContentHeight returns the usable content height for a viewport
func (l LayoutConfig) ContentHeight() int {
	h := l.TerminalHeight - HeaderHeight - FooterHeight - ViewportVerticalPadding
	if h < 5 {
		return 5
	}
	return h
}

// SplitPaneWidths calculates left and right pane widths for a split view.
// Compact terminals stack the panes, so both get the full width.
func (l LayoutConfig) SplitPaneWidths() (leftWidth, rightWidth int) {
	total := l.ContentWidth()
	if l.IsCompact {
		return total, total
	}
	leftWidth = int(float64(total) * SplitPaneLeftRatio)
	rightWidth = total - leftWidth - SplitPaneDivider
	return
}

// PanelContentWidth returns the content width inside a bordered panel
func PanelContentWidth(panelWidth int) int {
	return panelWidth - (PanelBorderWidth * 2) - (PanelPaddingH * 2)
}
