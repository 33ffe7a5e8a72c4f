package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dquery/internal/adapters/driving/mcp"
)

// serveMCP runs the server; replaced in tests.
var serveMCP = func(ctx context.Context, server *mcp.Server, addr string) error {
	if addr != "" {
		return server.RunHTTP(ctx, addr)
	}
	return server.Run(ctx)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search,
index and read PDFs through dquery.

Tools: search, ingest_document, extract_text.
Resources: dquery://stats, dquery://settings.

By default, the server communicates over stdio using JSON-RPC.
Use --port to serve streamable HTTP instead.

Examples:
  # Stdio mode (default, for desktop assistants)
  dquery mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  dquery mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "dquery": {
        "command": "/path/to/dquery",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	p, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}
	ext, err := extraction()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Pipeline:   p,
		Extraction: ext,
		Settings:   settingsService,
	})
	if err != nil {
		return err
	}

	var addr string
	if port > 0 {
		addr = fmt.Sprintf(":%d", port)
		// stdout carries JSON-RPC in stdio mode, so only announce HTTP.
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
	}
	return serveMCP(cmd.Context(), server, addr)
}
