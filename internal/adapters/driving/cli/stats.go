package cli

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	settings, err := effectiveSettings()
	if err != nil {
		return err
	}

	p, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}

	count, err := p.Count(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Store:      %s\n", settings.Store.Provider.Description())
	cmd.Printf("Collection: %s\n", settings.Store.Collection)
	cmd.Printf("Metric:     %s\n", settings.Store.Metric)
	cmd.Printf("Records:    %d\n", count)
	return nil
}
