package config

import (
	"fmt"

	"github.com/marmos91/picseq/internal/cli/output"
	"github.com/marmos91/picseq/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the picseq configuration file.

Checks for syntax errors, unknown strategies or locales, and values out of
range.

Examples:
  # Validate default config
  picseq config validate

  # Validate specific config file
  picseq config validate --config ./picseq.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration: %s\n", config.Source(configPath))
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintln(out, "\nConfiguration summary:")
	return output.SimpleTable(out, [][2]string{
		{"Strategy", cfg.Navigation.Strategy},
		{"Locale", cfg.Navigation.Locale},
		{"Prefetch half-width", fmt.Sprint(cfg.Navigation.PrefetchHalfWidth)},
		{"Cache entries", fmt.Sprint(cfg.Navigation.LRUEntries)},
		{"Workers", fmt.Sprint(cfg.Navigation.Workers)},
		{"API port", fmt.Sprint(cfg.API.Port)},
		{"Log level", cfg.Logging.Level},
	})
}

// configWarnings reports settings that are valid but likely unintended.
func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.Navigation.PrefetchHalfWidth == 0 {
		warnings = append(warnings, "navigation.prefetch_half_width is 0: neighbours are never decoded ahead")
	}
	if strat, err := cfg.ParseStrategy(); err == nil && cfg.Navigation.Root != "" && !strat.Tree() {
		warnings = append(warnings, "navigation.root only applies to tree strategies")
	}
	return warnings
}
