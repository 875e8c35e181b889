package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/picseq/internal/cli/prompt"
	"github.com/marmos91/picseq/pkg/config"
	"github.com/spf13/cobra"
)

var (
	initForce bool
	initYes   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with default values",
	Long: `Write a configuration file populated with default values.

The file is written to --config when given, otherwise to
$XDG_CONFIG_HOME/picseq/config.yaml.

Examples:
  # Create the default configuration file
  picseq init

  # Write to a custom location, replacing an existing file
  picseq init --config ./picseq.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file")
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Do not ask before overwriting")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if initForce && !initYes {
		if _, err := os.Stat(path); err == nil {
			ok, err := prompt.Confirm(fmt.Sprintf("Overwrite %s", path), false)
			if err != nil {
				if prompt.IsAborted(err) {
					return nil
				}
				return err
			}
			if !ok {
				return nil
			}
		}
	}

	if err := config.InitConfigToPath(path, initForce); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintf(out, "  1. Edit the file:       picseq config edit --config %s\n", path)
	_, _ = fmt.Fprintln(out, "  2. Browse a directory:  picseq walk ~/Pictures")
	return nil
}
