package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dquery/internal/adapters/driving/watcher"
)

var (
	watchDebounce    = watcher.DefaultDebounce
	watchRecursive   bool
	watchInitialScan bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Index PDFs as they are added to a directory",
	Long: `Watches a directory and indexes every PDF that is created or modified.
A file is indexed once it has been quiet for the debounce period. Hidden files
and directories are ignored. Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a file is indexed")
	watchCmd.Flags().BoolVarP(&watchRecursive, "recursive", "r", false, "watch subdirectories")
	watchCmd.Flags().BoolVar(&watchInitialScan, "initial-scan", false, "index PDFs already in the directory")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := pipeline(ctx)
	if err != nil {
		return err
	}

	w := watcher.New(args[0], p, watcher.Config{
		Debounce:    watchDebounce,
		Recursive:   watchRecursive,
		InitialScan: watchInitialScan,
	})

	cmd.Printf("Watching %s for PDF files (Ctrl+C to stop)\n", args[0])
	return w.Run(ctx, func(r watcher.Result) {
		if r.Err != nil {
			cmd.PrintErrf("Failed %s: %v\n", filepath.Base(r.Path), r.Err)
			return
		}
		cmd.Printf("Indexed %s as record %d\n", filepath.Base(r.Path), r.ID)
	})
}
