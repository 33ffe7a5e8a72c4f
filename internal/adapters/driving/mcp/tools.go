package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to find similar documents for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of hits to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Metric string      `json:"metric"`
	Hits   []HitOutput `json:"hits"`
	Count  int         `json:"count"`
}

// HitOutput represents a single search hit.
type HitOutput struct {
	ID       int64   `json:"id"`
	Distance float64 `json:"distance"`
}

// IngestInput is the input schema for the ingest_document tool.
type IngestInput struct {
	Path string `json:"path" jsonschema:"absolute path of the PDF to index"`
	Name string `json:"name,omitempty" jsonschema:"display name stored with the record"`
}

// IngestOutput is the output schema for the ingest_document tool.
type IngestOutput struct {
	ID int64 `json:"id"`
}

// ExtractInput is the input schema for the extract_text tool.
type ExtractInput struct {
	Path string `json:"path" jsonschema:"absolute path of the PDF to read"`
}

// ExtractOutput is the output schema for the extract_text tool.
type ExtractOutput struct {
	Text         string `json:"text"`
	Pages        int    `json:"pages"`
	SkippedPages []int  `json:"skipped_pages,omitempty"`
}

var errExtractionUnavailable = errors.New("text extraction is not available")

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find indexed PDFs whose text is most similar to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "OCR a PDF, embed its text and add it to the vector index",
	}, s.handleIngest)

	if s.ports.Extraction != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "extract_text",
			Description: "OCR a PDF and return its text without indexing it",
		}, s.handleExtract)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	limit := input.Limit
	if limit == 0 {
		limit = s.defaultLimit()
	}

	result, err := s.ports.Pipeline.RunQuery(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Metric: result.Metric.String(),
		Hits:   make([]HitOutput, result.Len()),
		Count:  result.Len(),
	}
	for i, hit := range result.Hits {
		output.Hits[i] = HitOutput{ID: int64(hit.ID), Distance: hit.Score}
	}

	return nil, output, nil
}

// handleIngest handles the ingest_document tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	doc := domain.Document{Path: input.Path, Name: input.Name}
	if doc.IsEmpty() {
		return nil, IngestOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	id, err := s.ports.Pipeline.IngestDocument(ctx, doc)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{ID: int64(id)}, nil
}

// handleExtract handles the extract_text tool invocation.
func (s *Server) handleExtract(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExtractInput,
) (*mcp.CallToolResult, ExtractOutput, error) {
	if s.ports.Extraction == nil {
		return nil, ExtractOutput{}, errExtractionUnavailable
	}
	doc := domain.Document{Path: input.Path}
	if doc.IsEmpty() {
		return nil, ExtractOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	text, err := s.ports.Extraction.ExtractText(ctx, doc)
	if err != nil {
		return nil, ExtractOutput{}, err
	}

	output := ExtractOutput{Text: text.Text, Pages: text.PageCount()}
	for _, skipped := range text.Skipped {
		output.SkippedPages = append(output.SkippedPages, skipped.Page)
	}
	return nil, output, nil
}

func (s *Server) defaultLimit() int {
	if s.ports.Settings == nil {
		return domain.DefaultSearchLimit
	}
	settings, err := s.ports.Settings.Get()
	if err != nil || settings.Search.Limit <= 0 {
		return domain.DefaultSearchLimit
	}
	return settings.Search.Limit
}
