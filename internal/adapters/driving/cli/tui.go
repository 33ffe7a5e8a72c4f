package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dquery/internal/adapters/driving/tui"
)

// runTUIApp runs the program; replaced in tests.
var runTUIApp = func(app *tui.App) error {
	return app.Run()
}

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for dquery.

Type a query and press Enter to search, or type the path of a PDF and press
Ctrl+O to load its text as the query. Ctrl+S indexes the loaded PDF.

Controls:
  Enter    - Search
  Ctrl+O   - Open PDF
  Ctrl+S   - Index PDF
  ↑/k, ↓/j - Navigate results
  n, Esc   - New search
  ?        - Toggle help
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	p, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}
	ext, err := extraction()
	if err != nil {
		return err
	}

	app, err := tui.NewApp(tui.NewPorts(p, ext, settingsService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := runTUIApp(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
