package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/marmos91/picseq/internal/cli/output"
	"github.com/marmos91/picseq/pkg/apiclient"
	"github.com/spf13/cobra"
)

var (
	remoteServer string
	remoteOutput string
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Drive a running picseq server",
	Long: `Send navigation commands to a session started with 'picseq serve'.

Examples:
  # Step forward on a local server
  picseq remote next

  # Jump 25 images back on another host
  picseq remote move --server http://nas:8080 -- -25

  # Show the cache statistics as JSON
  picseq remote stats -o json`,
}

func init() {
	remoteCmd.PersistentFlags().StringVar(&remoteServer, "server", "http://localhost:8080", "Server URL")
	remoteCmd.PersistentFlags().StringVarP(&remoteOutput, "output", "o", "table", "Output format (table|json|yaml)")

	remoteCmd.AddCommand(
		&cobra.Command{
			Use:   "current",
			Short: "Show the current image",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return remoteImage(cmd, (*apiclient.Client).Display)
			},
		},
		&cobra.Command{
			Use:   "next",
			Short: "Advance to the following image",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return remoteImage(cmd, (*apiclient.Client).Next)
			},
		},
		&cobra.Command{
			Use:   "previous",
			Short: "Step back to the preceding image",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return remoteImage(cmd, (*apiclient.Client).Previous)
			},
		},
		&cobra.Command{
			Use:   "move <diff>",
			Short: "Move by a number of images",
			Args:  cobra.ExactArgs(1),
			RunE:  runRemoteMove,
		},
		&cobra.Command{
			Use:   "jump <path>",
			Short: "Point the cursor at a file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cur, err := remoteClient().SetCurrent(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printRemote(cmd, cur, [][2]string{{"Current", cur.Path}, {"Strategy", cur.Strategy}})
			},
		},
		&cobra.Command{
			Use:               "strategy <name>",
			Short:             "Switch the navigation strategy",
			Args:              cobra.ExactArgs(1),
			ValidArgsFunction: completeStrategies,
			RunE: func(cmd *cobra.Command, args []string) error {
				cur, err := remoteClient().SwitchStrategy(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printRemote(cmd, cur, [][2]string{{"Current", cur.Path}, {"Strategy", cur.Strategy}})
			},
		},
		&cobra.Command{
			Use:   "reload",
			Short: "Rescan the browsed directories",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cur, err := remoteClient().Reload(cmd.Context())
				if err != nil {
					return err
				}
				return printRemote(cmd, cur, [][2]string{{"Current", cur.Path}, {"Strategy", cur.Strategy}})
			},
		},
		&cobra.Command{
			Use:   "window [size]",
			Short: "List the images around the cursor",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runRemoteWindow,
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show image cache statistics",
			Args:  cobra.NoArgs,
			RunE:  runRemoteStats,
		},
	)
}

func remoteClient() *apiclient.Client {
	return apiclient.New(remoteServer)
}

// printRemote prints v as JSON or YAML, or pairs as a key/value table.
func printRemote(cmd *cobra.Command, v any, pairs [][2]string) error {
	format, err := output.ParseFormat(remoteOutput)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		return output.SimpleTable(cmd.OutOrStdout(), pairs)
	}
	return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(v)
}

func remoteImage(cmd *cobra.Command, step func(*apiclient.Client, context.Context) (*apiclient.Image, error)) error {
	img, err := step(remoteClient(), cmd.Context())
	if err != nil {
		return err
	}
	return printRemote(cmd, img, [][2]string{
		{"Path", img.Path},
		{"Format", img.Format},
		{"Dimensions", output.FormatDimensions(img.Width, img.Height)},
		{"Size", output.FormatSize(img.Size)},
		{"Modified", output.FormatTime(img.ModTime)},
	})
}

func runRemoteMove(cmd *cobra.Command, args []string) error {
	diff, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid diff %q: %w", args[0], err)
	}
	res, err := remoteClient().Move(cmd.Context(), diff)
	if err != nil {
		return err
	}
	return printRemote(cmd, res, [][2]string{
		{"Requested", strconv.Itoa(res.Requested)},
		{"Moved", strconv.Itoa(res.Moved)},
		{"Current", res.Current},
	})
}

func runRemoteWindow(cmd *cobra.Command, args []string) error {
	size := 5
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid size %q: %w", args[0], err)
		}
		size = n
	}
	win, err := remoteClient().Window(cmd.Context(), size)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(remoteOutput)
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(win)
	}

	return output.PrintTable(cmd.OutOrStdout(), windowTable(win.Previous, win.Current, win.Next))
}

func runRemoteStats(cmd *cobra.Command, args []string) error {
	st, err := remoteClient().Stats(cmd.Context())
	if err != nil {
		return err
	}
	return printRemote(cmd, st, [][2]string{
		{"Entries", strconv.Itoa(st.Entries)},
		{"Queued", strconv.Itoa(st.Queued)},
		{"Running", strconv.Itoa(st.Running)},
		{"Groups", strconv.Itoa(st.Groups)},
		{"Recent", strconv.Itoa(st.Recent)},
		{"Completed", strconv.Itoa(st.Completed)},
		{"Failed", strconv.Itoa(st.Failed)},
	})
}
