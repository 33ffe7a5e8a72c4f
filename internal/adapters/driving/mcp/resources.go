package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for dquery resources.
	uriScheme = "dquery://"

	redacted = "****"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Number of records in the vector index",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "records/{id}",
		Name:        "record",
		Description: "Metadata stored for one record, by the ID returned from search",
		MIMEType:    "application/json",
	}, s.handleRecordResource)

	if s.ports.Settings == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "settings",
		Name:        "settings",
		Description: "Active configuration with credentials redacted",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "settings/{section}",
		Name:        "settings-section",
		Description: "One configuration section: ocr, embedding, store or search",
		MIMEType:    "application/json",
	}, s.handleSettingsSectionResource)
}

// handleStatsResource returns the record count of the active collection.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	count, err := s.ports.Pipeline.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	return jsonResource(req.Params.URI, map[string]int64{"records": count})
}

// RecordOutput is the JSON form of a stored record.
type RecordOutput struct {
	ID         int64             `json:"id"`
	Dimensions int               `json:"dimensions"`
	Metadata   map[string]string `json:"metadata"`
}

// handleRecordResource returns the metadata of one record.
func (s *Server) handleRecordResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id, ok := extractRecordID(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	rec, err := s.ports.Pipeline.Record(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %d: %w", id, err)
	}

	out := RecordOutput{
		ID:         int64(rec.ID),
		Dimensions: rec.Vector.Dimension(),
		Metadata:   rec.Metadata,
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return jsonResource(req.Params.URI, out)
}

// handleSettingsResource returns all settings.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	settings, err := s.redactedSettings()
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, settings)
}

// handleSettingsSectionResource returns a single settings section.
func (s *Server) handleSettingsSectionResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	section := extractSection(req.Params.URI)
	if section == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	settings, err := s.redactedSettings()
	if err != nil {
		return nil, err
	}

	var value any
	switch section {
	case "ocr":
		value = settings.OCR
	case "embedding":
		value = settings.Embedding
	case "store":
		value = settings.Store
	case "search":
		value = settings.Search
	default:
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, value)
}

func (s *Server) redactedSettings() (*domain.AppSettings, error) {
	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	out := *settings
	if out.Embedding.APIKey != "" {
		out.Embedding.APIKey = redacted
	}
	if out.Store.Token != "" {
		out.Store.Token = redacted
	}
	if out.Store.DSN != "" {
		out.Store.DSN = redacted
	}
	return &out, nil
}

func jsonResource(uri string, value any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractRecordID parses the ID from a URI like dquery://records/{id}.
func extractRecordID(uri string) (domain.RecordID, bool) {
	const prefix = uriScheme + "records/"

	if !strings.HasPrefix(uri, prefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(uri, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return domain.RecordID(n), true
}

// extractSection extracts the section name from a URI like dquery://settings/{section}.
func extractSection(uri string) string {
	const prefix = uriScheme + "settings/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	section := strings.TrimPrefix(uri, prefix)
	if strings.Contains(section, "/") {
		return ""
	}
	return section
}
