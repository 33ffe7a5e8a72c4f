// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/dquery/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/dquery/internal/core/domain"
)

// HitList displays query hits in a navigable list, best match first.
type HitList struct {
	hits     []domain.Hit
	metric   domain.Metric
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewHitList creates a new hit list component.
func NewHitList(s *styles.Styles) *HitList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &HitList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the hit list.
func (h *HitList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (h *HitList) Update(msg tea.Msg) (*HitList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			h.MoveUp()
		case "down", "j":
			h.MoveDown()
		}
	}
	return h, nil
}

// View renders the hit list.
func (h *HitList) View() string {
	if len(h.hits) == 0 {
		return h.styles.Muted.Render("No results")
	}

	visible := h.height - 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if h.selected >= visible {
		start = h.selected - visible + 1
	}
	end := start + visible
	if end > len(h.hits) {
		end = len(h.hits)
	}

	lines := make([]string, 0, end-start+1)
	header := fmt.Sprintf("Results (%d, %s)", len(h.hits), h.direction())
	lines = append(lines, h.styles.Label.Render(header))
	for i := start; i < end; i++ {
		lines = append(lines, h.renderHit(i))
	}

	return strings.Join(lines, "\n")
}

func (h *HitList) direction() string {
	if h.metric.HigherIsBetter() {
		return h.metric.String() + ", higher is closer"
	}
	return h.metric.String() + ", lower is closer"
}

// renderHit formats one hit the way the CLI prints it.
func (h *HitList) renderHit(index int) string {
	hit := h.hits[index]
	id := fmt.Sprintf("Hit ID: %d", hit.ID)
	dist := fmt.Sprintf(", Distance: %v", hit.Score)

	if index == h.selected {
		return h.styles.Selected.Render("> " + id + dist)
	}
	return "  " + h.styles.HitID.Render(id) + h.styles.Distance.Render(dist)
}

// SetResult replaces the hits with those of result.
func (h *HitList) SetResult(result *domain.QueryResult) {
	h.selected = 0
	if result == nil {
		h.hits = nil
		h.metric = ""
		return
	}
	h.hits = result.Hits
	h.metric = result.Metric
}

// Hits returns the current hits.
func (h *HitList) Hits() []domain.Hit {
	return h.hits
}

// Selected returns the index of the selected hit.
func (h *HitList) Selected() int {
	return h.selected
}

// SelectedHit returns the currently selected hit, or nil if none.
func (h *HitList) SelectedHit() *domain.Hit {
	if h.selected < 0 || h.selected >= len(h.hits) {
		return nil
	}
	return &h.hits[h.selected]
}

// MoveUp moves selection up.
func (h *HitList) MoveUp() {
	if h.selected > 0 {
		h.selected--
	}
}

// MoveDown moves selection down.
func (h *HitList) MoveDown() {
	if h.selected < len(h.hits)-1 {
		h.selected++
	}
}

// SetDimensions sets the component dimensions.
func (h *HitList) SetDimensions(width, height int) {
	h.width = width
	h.height = height
}

// Count returns the number of hits.
func (h *HitList) Count() int {
	return len(h.hits)
}
