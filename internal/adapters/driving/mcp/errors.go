// Package mcp provides an MCP (Model Context Protocol) server adapter for dquery.
// It lets AI assistants search, ingest and extract PDFs through the local pipeline.
package mcp

import "errors"

// ErrMissingPipelineService is returned when the pipeline service is not provided.
var ErrMissingPipelineService = errors.New("mcp: pipeline service is required")
