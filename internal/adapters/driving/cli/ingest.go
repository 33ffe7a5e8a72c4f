package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf>...",
	Short: "Index PDF files",
	Long: `Extracts the text of each PDF with OCR, embeds it and stores one record
per file. Files are processed in order; the first failure stops the run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := pipeline(ctx)
	if err != nil {
		return err
	}

	for _, path := range args {
		doc := domain.Document{Path: path}
		id, err := p.IngestDocument(ctx, doc)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		cmd.Printf("Indexed %s as record %d\n", doc.DisplayName(), id)
	}
	return nil
}
