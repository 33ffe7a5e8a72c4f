// Package tui provides an interactive terminal user interface for dquery.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/dquery/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Pipeline ingests documents and answers queries.
	Pipeline driving.PipelineService

	// Extraction loads a PDF's text into the query input. Optional.
	Extraction driving.ExtractionService

	// Settings supplies the default result limit. Optional.
	Settings driving.SettingsService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	pipeline driving.PipelineService,
	extraction driving.ExtractionService,
	settings driving.SettingsService,
) *Ports {
	return &Ports{
		Pipeline:   pipeline,
		Extraction: extraction,
		Settings:   settings,
	}
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Pipeline == nil {
		return ErrMissingPipelineService
	}
	return nil
}
