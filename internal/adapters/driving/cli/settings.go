package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/services"
)

var settingsValidate bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change OCR, embedding, vector store and search settings.

Settings are stored in ~/.dquery/config.toml unless --config is given.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Change a setting",
	Long: `Change a single setting by its dotted key, for example:

  dquery settings set store.provider sqlite
  dquery settings set embedding.api_key

Secret values are read without echo when no value is given.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Restore a setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

func init() {
	settingsSetCmd.Flags().BoolVar(&settingsValidate, "validate", false, "ping the embedding provider after saving")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")

	section := ""
	for _, key := range settingsService.Keys() {
		if s, _, _ := strings.Cut(key, "."); s != section {
			section = s
			cmd.Println()
			cmd.Printf("[%s]\n", section)
		}

		value, _ := services.SettingValue(settings, key)
		switch {
		case services.IsSecretKey(key) && value == "":
			value = "(not set)"
		case services.IsSecretKey(key):
			value = maskAPIKey(value)
		case value == "":
			value = "(default)"
		}
		cmd.Printf("  %-28s %s\n", key, value)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'dquery settings set <key> <value>' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		value = promptValue(cmd, key)
		if value == "" {
			return fmt.Errorf("a value for %s is required", key)
		}
	}

	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	shown := value
	if services.IsSecretKey(key) {
		shown = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)

	if settingsValidate {
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateEmbeddingConfig(cmd.Context()); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}
	return nil
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Unset(args[0]); err != nil {
		return fmt.Errorf("failed to unset %s: %w", args[0], err)
	}
	cmd.Printf("Unset %s\n", args[0])
	return nil
}

// settingChoices lists the accepted values of enumerated settings.
func settingChoices(key string) []string {
	var choices []string
	switch key {
	case services.KeyEmbedProvider:
		for _, p := range domain.AllEmbeddingProviders() {
			choices = append(choices, p.String())
		}
	case services.KeyStoreProvider:
		for _, p := range domain.AllStoreProviders() {
			choices = append(choices, p.String())
		}
	case services.KeyStoreMetric:
		choices = []string{domain.MetricIP.String(), domain.MetricL2.String(), domain.MetricCosine.String()}
	case services.KeyOCRPagePolicy:
		choices = []string{domain.PageFailureAbort.String(), domain.PageFailureSkip.String()}
	}
	return choices
}

// promptValue asks for a setting value on the command input.
func promptValue(cmd *cobra.Command, key string) string {
	if services.IsSecretKey(key) {
		cmd.Printf("Enter %s: ", key)
		value := readPassword(cmd.InOrStdin())
		cmd.Println()
		return value
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	choices := settingChoices(key)
	if len(choices) == 0 {
		cmd.Printf("Enter %s: ", key)
		return readLine(reader)
	}

	cmd.Printf("Select %s\n", key)
	for i, c := range choices {
		cmd.Printf("  %d. %s\n", i+1, c)
	}
	cmd.Print("\nEnter choice: ")
	idx := parseChoice(readLine(reader), len(choices), 0)
	if idx == 0 {
		return ""
	}
	return choices[idx-1]
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a line without echo when in is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(bufio.NewReader(in))
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
