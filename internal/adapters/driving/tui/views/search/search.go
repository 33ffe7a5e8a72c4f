// Package search provides the query view for the TUI: a query input,
// PDF open and index actions, and a results pane.
package search

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/dquery/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/dquery/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/dquery/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/dquery/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/dquery/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/dquery/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driving"
)

// View represents the search view with input, results list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.HitList
	statusbar *status.Bar

	pipeline   driving.PipelineService
	extraction driving.ExtractionService
	limit      int
	ctx        context.Context

	width  int
	height int
	ready  bool
	err    error

	// focusInput is true while typing and false while navigating results.
	focusInput bool

	// loadedPath is the PDF whose text currently fills the input.
	loadedPath string
}

// NewView creates a new search view. A non-positive limit uses the default.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	pipeline driving.PipelineService,
	extraction driving.ExtractionService,
	limit int,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQueryInput(s),
		list:       list.NewHitList(s),
		statusbar:  status.NewBar(s, km),
		pipeline:   pipeline,
		extraction: extraction,
		limit:      limit,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context for pipeline calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.TextExtracted:
		v.handleTextExtracted(msg)
		return v, nil

	case messages.DocumentIngested:
		v.handleDocumentIngested(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if v.statusbar, cmd = v.statusbar.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if v.input, cmd = v.input.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return v, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	// Busy: only quitting is allowed until the call returns.
	if v.statusbar.State().Busy() {
		return v, nil
	}

	switch {
	case keymap.Matches(keyStr, v.keymap.Open):
		return v, v.openDocument()
	case keymap.Matches(keyStr, v.keymap.Ingest):
		return v, v.ingestDocument()
	}

	if v.focusInput {
		switch msg.Type {
		case tea.KeyEnter:
			return v, v.submitQuery()
		case tea.KeyEsc:
			return v, func() tea.Msg { return messages.Quit{} }
		default:
			// Typing replaces loaded text, so the path no longer applies.
			before := v.input.Value()
			var cmd tea.Cmd
			v.input, cmd = v.input.Update(msg)
			if v.loadedPath != "" && v.input.Value() != before {
				v.loadedPath = ""
			}
			return v, cmd
		}
	}

	// Results mode
	switch {
	case msg.Type == tea.KeyEsc, keymap.Matches(keyStr, v.keymap.NewSearch):
		v.focusInput = true
		return v, v.input.Focus()
	case keymap.Matches(keyStr, v.keymap.Help):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewHelp} }
	case keymap.Matches(keyStr, v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

// submitQuery starts a search with the input text.
func (v *View) submitQuery() tea.Cmd {
	query := strings.TrimSpace(v.input.Value())
	if query == "" {
		return nil
	}
	if v.pipeline == nil {
		v.setError(ErrNoPipelineService)
		return nil
	}

	v.err = nil
	spin := v.statusbar.SetState(status.StateSearching)
	ctx, pipeline, limit := v.ctx, v.pipeline, v.limit
	return tea.Batch(spin, func() tea.Msg {
		result, err := pipeline.RunQuery(ctx, query, limit)
		return messages.SearchCompleted{Result: result, Err: err}
	})
}

// openDocument extracts the PDF named in the input.
func (v *View) openDocument() tea.Cmd {
	if v.extraction == nil {
		v.setError(ErrNoExtractionService)
		return nil
	}
	path := v.inputPath()
	if path == "" {
		v.setError(ErrNoPath)
		return nil
	}

	v.err = nil
	spin := v.statusbar.SetState(status.StateExtracting)
	ctx, extraction := v.ctx, v.extraction
	return tea.Batch(spin, func() tea.Msg {
		text, err := extraction.ExtractText(ctx, domain.Document{Path: path})
		return messages.TextExtracted{Path: path, Text: text, Err: err}
	})
}

// ingestDocument indexes the loaded PDF, or the path typed in the input.
func (v *View) ingestDocument() tea.Cmd {
	if v.pipeline == nil {
		v.setError(ErrNoPipelineService)
		return nil
	}
	path := v.loadedPath
	if path == "" {
		path = v.inputPath()
	}
	if path == "" {
		v.setError(ErrNoPath)
		return nil
	}

	v.err = nil
	spin := v.statusbar.SetState(status.StateIngesting)
	ctx, pipeline := v.ctx, v.pipeline
	return tea.Batch(spin, func() tea.Msg {
		id, err := pipeline.IngestDocument(ctx, domain.Document{Path: path})
		return messages.DocumentIngested{Path: path, ID: id, Err: err}
	})
}

// inputPath returns the input as a single-line path, or empty.
func (v *View) inputPath() string {
	path := strings.TrimSpace(v.input.Value())
	if strings.ContainsAny(path, "\n\r") {
		return ""
	}
	return path
}

func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.list.SetResult(msg.Result)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetMessage("")
	v.statusbar.SetResultCount(msg.Result.Len())

	if msg.Result.Len() > 0 {
		v.focusInput = false
		v.input.Blur()
	}
}

func (v *View) handleTextExtracted(msg messages.TextExtracted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.input.SetValue(msg.Text.Text)
	v.loadedPath = msg.Path
	v.focusInput = true
	v.input.Focus()
	v.statusbar.SetState(status.StateReady)

	note := fmt.Sprintf("Loaded %d pages from %s", msg.Text.PageCount(), filepath.Base(msg.Path))
	if n := len(msg.Text.Skipped); n > 0 {
		note += fmt.Sprintf(" (%d skipped)", n)
	}
	v.statusbar.SetMessage(note)
}

func (v *View) handleDocumentIngested(msg messages.DocumentIngested) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage(fmt.Sprintf("Indexed %s as record %d", filepath.Base(msg.Path), msg.ID))
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("dquery"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.styles.Results.Render(v.list.View()), "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// Reserve space for header, input pane and status bar
	v.input.SetWidth(width)
	v.list.SetDimensions(width-4, height-14)
	v.statusbar.SetWidth(width)
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current input text.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the input text.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
	v.loadedPath = ""
}

// LoadedPath returns the PDF whose text fills the input, if any.
func (v *View) LoadedPath() string {
	return v.loadedPath
}

// Hits returns the current hits.
func (v *View) Hits() []domain.Hit {
	return v.list.Hits()
}

// SelectedIndex returns the index of the selected hit.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Status returns the status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}

// StatusMessage returns the status bar message.
func (v *View) StatusMessage() string {
	return v.statusbar.Message()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset resets the view to initial input mode.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.loadedPath = ""
	v.list.SetResult(nil)
	v.err = nil
	v.statusbar.Clear()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
