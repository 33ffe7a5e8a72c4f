package mcp

import (
	"github.com/custodia-labs/dquery/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Pipeline ingests documents and answers queries.
	Pipeline driving.PipelineService

	// Extraction extracts text without indexing. Optional.
	Extraction driving.ExtractionService

	// Settings exposes the active configuration. Optional.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Pipeline == nil {
		return ErrMissingPipelineService
	}
	return nil
}
