package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

var (
	extractPages bool
	extractJSON  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Print the OCR text of a PDF",
	Long: `Rasterises and OCRs a PDF and prints its text without indexing it.
Neither the embedding backend nor the vector store is contacted.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractPages, "pages", false, "print a header before each page")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "output pages as JSON")
	rootCmd.AddCommand(extractCmd)
}

type extractPageJSON struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

type extractJSONOutput struct {
	Path    string            `json:"path"`
	Pages   []extractPageJSON `json:"pages"`
	Skipped []int             `json:"skipped_pages,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	svc, err := extraction()
	if err != nil {
		return err
	}

	doc := domain.Document{Path: args[0]}
	text, err := svc.ExtractText(cmd.Context(), doc)
	if err != nil {
		return fmt.Errorf("extract %s: %w", doc.Path, err)
	}

	for _, skipped := range text.Skipped {
		cmd.PrintErrf("Warning: skipped %v\n", &skipped)
	}

	if extractJSON {
		return outputExtractJSON(cmd, doc.Path, text)
	}

	if !extractPages {
		cmd.Println(text.Text)
		return nil
	}
	for _, page := range text.Pages {
		cmd.Printf("--- page %d ---\n", page.Number)
		cmd.Println(page.Text)
	}
	return nil
}

func outputExtractJSON(cmd *cobra.Command, path string, text *domain.ExtractedText) error {
	out := extractJSONOutput{
		Path:  path,
		Pages: make([]extractPageJSON, 0, len(text.Pages)),
	}
	for _, page := range text.Pages {
		out.Pages = append(out.Pages, extractPageJSON{Page: page.Number, Text: page.Text})
	}
	for _, skipped := range text.Skipped {
		out.Skipped = append(out.Skipped, skipped.Page)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal text: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
