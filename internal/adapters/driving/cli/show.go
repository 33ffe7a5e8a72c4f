package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the metadata stored for a record",
	Long: `Show looks up a record by the ID printed by search and prints the
metadata stored with its vector: source file, page count, model and
ingestion time. Document text is never stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

type showJSONOutput struct {
	ID         int64             `json:"id"`
	Dimensions int               `json:"dimensions"`
	Metadata   map[string]string `json:"metadata"`
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the record as JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid record id %q", domain.ErrInvalidInput, args[0])
	}

	p, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}

	rec, err := p.Record(cmd.Context(), domain.RecordID(id))
	if err != nil {
		return err
	}

	if showJSON {
		out := showJSONOutput{
			ID:         int64(rec.ID),
			Dimensions: rec.Vector.Dimension(),
			Metadata:   rec.Metadata,
		}
		if out.Metadata == nil {
			out.Metadata = map[string]string{}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Record:     %d\n", rec.ID)
	cmd.Printf("Dimensions: %d\n", rec.Vector.Dimension())

	keys := make([]string, 0, len(rec.Metadata))
	for k := range rec.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Printf("%-12s%s\n", k+":", rec.Metadata[k])
	}
	return nil
}
