package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
	searchPDF   string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed documents",
	Long: `Embeds the query and prints the nearest indexed records.

With --pdf the query is the OCR text of the given file, so a scanned page
can be used to find similar documents.`,
	Args: cobra.ArbitraryArgs,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultSearchLimit,
		"maximum number of results (default from search.limit)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchPDF, "pdf", "", "use the text of a PDF as the query")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	query, err := searchQuery(cmd, args)
	if err != nil {
		return err
	}

	limit := searchLimit
	if !cmd.Flags().Changed("limit") {
		if settings, err := effectiveSettings(); err == nil && settings.Search.Limit > 0 {
			limit = settings.Search.Limit
		}
	}

	p, err := pipeline(ctx)
	if err != nil {
		return err
	}

	result, err := p.RunQuery(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, result)
	}
	outputSearchHits(cmd, result)
	return nil
}

// searchQuery resolves the query from the arguments or the --pdf flag.
func searchQuery(cmd *cobra.Command, args []string) (string, error) {
	if searchPDF == "" {
		if len(args) == 0 {
			return "", fmt.Errorf("%w: a query or --pdf is required", domain.ErrInvalidInput)
		}
		return strings.Join(args, " "), nil
	}
	if len(args) > 0 {
		return "", fmt.Errorf("%w: use either a query or --pdf, not both", domain.ErrInvalidInput)
	}

	svc, err := extraction()
	if err != nil {
		return "", err
	}
	text, err := svc.ExtractText(cmd.Context(), domain.Document{Path: searchPDF})
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", searchPDF, err)
	}
	if strings.TrimSpace(text.Text) == "" {
		return "", errors.New("no text found in " + searchPDF)
	}
	return text.Text, nil
}

func outputSearchJSON(cmd *cobra.Command, result *domain.QueryResult) error {
	if result.Hits == nil {
		result.Hits = []domain.Hit{}
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchHits(cmd *cobra.Command, result *domain.QueryResult) {
	if result.Len() == 0 {
		cmd.Println("No results found.")
		return
	}
	for _, hit := range result.Hits {
		cmd.Printf("Hit ID: %d, Distance: %v\n", hit.ID, hit.Score)
	}
}
