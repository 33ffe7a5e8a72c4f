// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/dquery/internal/adapters/driving/tui/styles"
)

const (
	minWidth      = 20
	defaultHeight = 5
)

// QueryInput wraps a bubbles textarea holding either query text or a PDF path.
// It grows to hold OCR output pasted in by the open action.
type QueryInput struct {
	area   textarea.Model
	styles *styles.Styles
	width  int
}

// NewQueryInput creates a new query input component.
func NewQueryInput(s *styles.Styles) *QueryInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ta := textarea.New()
	ta.Placeholder = "Type a query, or a PDF path and press ctrl+o..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.SetHeight(defaultHeight)
	ta.SetWidth(50)
	ta.Focus()

	return &QueryInput{
		area:   ta,
		styles: s,
		width:  50,
	}
}

// Init initialises the query input.
func (q *QueryInput) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles input messages.
func (q *QueryInput) Update(msg tea.Msg) (*QueryInput, tea.Cmd) {
	var cmd tea.Cmd
	q.area, cmd = q.area.Update(msg)
	return q, cmd
}

// View renders the query input.
func (q *QueryInput) View() string {
	label := q.styles.Label.Render("Query")
	return lipgloss.JoinVertical(lipgloss.Left, label, q.styles.InputField.Render(q.area.View()))
}

// Value returns the current input value.
func (q *QueryInput) Value() string {
	return q.area.Value()
}

// SetValue replaces the input value and moves the cursor to the start.
func (q *QueryInput) SetValue(value string) {
	q.area.SetValue(value)
	for q.area.Line() > 0 {
		q.area.CursorUp()
	}
	q.area.CursorStart()
}

// Focus sets focus on the input.
func (q *QueryInput) Focus() tea.Cmd {
	return q.area.Focus()
}

// Blur removes focus from the input.
func (q *QueryInput) Blur() {
	q.area.Blur()
}

// Focused returns whether the input is focused.
func (q *QueryInput) Focused() bool {
	return q.area.Focused()
}

// SetWidth sets the width of the input.
func (q *QueryInput) SetWidth(width int) {
	q.width = width
	// Account for border and padding
	inner := width - 4
	if inner < minWidth {
		inner = minWidth
	}
	q.area.SetWidth(inner)
}

// Width returns the current width.
func (q *QueryInput) Width() int {
	return q.width
}

// Reset clears the input.
func (q *QueryInput) Reset() {
	q.area.Reset()
}
