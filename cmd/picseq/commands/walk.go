package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/marmos91/picseq/internal/cli/output"
	"github.com/marmos91/picseq/internal/cli/prompt"
	"github.com/marmos91/picseq/pkg/fileseq"
	"github.com/marmos91/picseq/pkg/imageload"
	"github.com/marmos91/picseq/pkg/navigator"
	"github.com/spf13/cobra"
)

var walkCmd = &cobra.Command{
	Use:   "walk [path]",
	Short: "Step through images interactively",
	Long: `Open a browsing session at path and step through the images with an
interactive menu. The neighbours of the current image are decoded in the
background so that stepping is instant.

Examples:
  # Browse the current directory
  picseq walk

  # Browse a whole tree, newest first
  picseq walk ~/Pictures -s traverse-tree-by-time`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWalk,
}

const (
	actionNext     = "next"
	actionPrevious = "previous"
	actionMove     = "move"
	actionJump     = "jump"
	actionStrategy = "strategy"
	actionReload   = "reload"
	actionWindow   = "window"
	actionQuit     = "quit"
)

var walkActions = []prompt.SelectOption{
	{Label: "Next", Value: actionNext, Description: "Show the following image"},
	{Label: "Previous", Value: actionPrevious, Description: "Show the preceding image"},
	{Label: "Move", Value: actionMove, Description: "Move by a number of images"},
	{Label: "Jump", Value: actionJump, Description: "Jump to a file"},
	{Label: "Strategy", Value: actionStrategy, Description: "Switch the navigation strategy"},
	{Label: "Reload", Value: actionReload, Description: "Rescan directories"},
	{Label: "Window", Value: actionWindow, Description: "List the surrounding images"},
	{Label: "Quit", Value: actionQuit, Description: "End the session"},
}

func runWalk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	shutdown, err := initObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	s, err := openSession(ctx, cfg, arg)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	printer := output.NewPrinter(out, output.FormatTable, false)
	showResult(printer, s.nav, func() (*imageload.Image, error) { return s.nav.Display(ctx) })

	for {
		action, err := prompt.Select(fmt.Sprintf("[%s] %s", s.nav.Strategy(), s.nav.Current()), walkActions)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}

		switch action {
		case actionNext:
			showResult(printer, s.nav, func() (*imageload.Image, error) { return s.nav.Next(ctx) })
		case actionPrevious:
			showResult(printer, s.nav, func() (*imageload.Image, error) { return s.nav.Previous(ctx) })
		case actionMove:
			diff, err := prompt.InputInt("Move by", 10)
			if err != nil {
				if prompt.IsAborted(err) {
					continue
				}
				return err
			}
			moved, err := s.nav.Move(ctx, diff)
			if err != nil {
				printer.Error(err.Error())
				continue
			}
			if moved == 0 {
				printer.Warning("Cursor is already at that end")
				continue
			}
			printer.Printf("Moved %d\n", moved)
			showResult(printer, s.nav, func() (*imageload.Image, error) { return s.nav.Display(ctx) })
		case actionJump:
			path, err := prompt.Input("Path", s.nav.Current())
			if err != nil {
				if prompt.IsAborted(err) {
					continue
				}
				return err
			}
			if err := s.nav.SetCurrent(ctx, path); err != nil {
				printer.Error(err.Error())
				continue
			}
			showResult(printer, s.nav, func() (*imageload.Image, error) { return s.nav.Display(ctx) })
		case actionStrategy:
			name, err := prompt.SelectString("Strategy", strategyNames())
			if err != nil {
				if prompt.IsAborted(err) {
					continue
				}
				return err
			}
			if err := s.nav.SwitchTo(ctx, fileseq.Strategy(name)); err != nil {
				printer.Error(err.Error())
				continue
			}
			printer.Success("Switched to " + name)
		case actionReload:
			if err := s.nav.Reload(ctx); err != nil {
				printer.Error(err.Error())
				continue
			}
			printer.Success("Reloaded")
			showResult(printer, s.nav, func() (*imageload.Image, error) { return s.nav.Display(ctx) })
		case actionWindow:
			printWindow(out, s.nav, 5)
		case actionQuit:
			return nil
		}
	}
}

func strategyNames() []string {
	var names []string
	for _, st := range fileseq.Strategies() {
		names = append(names, st.String())
	}
	return names
}

// showResult runs a navigation step and prints the resulting image. Reaching
// either end of the sequence is reported as a warning.
func showResult(printer *output.Printer, nav *navigator.Navigator, step func() (*imageload.Image, error)) {
	img, err := step()
	switch {
	case errors.Is(err, navigator.ErrLastImage):
		printer.Warning("Already at the last image")
		return
	case errors.Is(err, navigator.ErrFirstImage):
		printer.Warning("Already at the first image")
		return
	case err != nil:
		printer.Error(fmt.Sprintf("%s: %v", nav.Current(), err))
		return
	}

	_ = output.SimpleTable(printer.Writer(), [][2]string{
		{"Path", img.Path},
		{"Format", img.Format},
		{"Dimensions", output.FormatDimensions(img.Width, img.Height)},
		{"Size", output.FormatSize(img.Size)},
		{"Modified", output.FormatTime(img.ModTime)},
	})
}

// printWindow lists up to size images on each side of the current one.
func printWindow(w io.Writer, nav *navigator.Navigator, size int) {
	prev, next := nav.Window(size)
	_ = output.PrintTable(w, windowTable(prev, nav.Current(), next))
}

// windowTable lays out a window with offsets relative to the current image.
func windowTable(prev []string, cur string, next []string) *output.TableData {
	table := output.NewTableData("OFFSET", "PATH")
	for i, p := range prev {
		table.AddRow(strconv.Itoa(i-len(prev)), p)
	}
	table.AddRow("0", cur)
	for i, p := range next {
		table.AddRow("+"+strconv.Itoa(i+1), p)
	}
	return table
}
