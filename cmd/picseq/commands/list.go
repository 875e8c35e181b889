package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/picseq/internal/cli/output"
	"github.com/marmos91/picseq/internal/logger"
	"github.com/marmos91/picseq/pkg/config"
	"github.com/marmos91/picseq/pkg/fileseq"
	prommetrics "github.com/marmos91/picseq/pkg/metrics/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	listLimit   int
	listFromTop bool
	listProbe   bool
	listOutput  string
)

var listCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List images in navigation order",
	Long: `List the images that follow the start file in the order the
configured strategy visits them.

Examples:
  # List the first 20 images of the current directory
  picseq list --limit 20

  # Walk a whole tree by modification time and show image sizes
  picseq list ~/Pictures -s traverse-tree-by-time --probe

  # Machine readable output
  picseq list ./album -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "Maximum number of images to list")
	listCmd.Flags().BoolVar(&listFromTop, "from-start", false, "Rewind to the first image of the sequence before listing")
	listCmd.Flags().BoolVarP(&listProbe, "probe", "p", false, "Read image headers for format and dimensions")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// listedImage is one row of the list output.
type listedImage struct {
	Index   int       `json:"index" yaml:"index"`
	Path    string    `json:"path" yaml:"path"`
	Format  string    `json:"format,omitempty" yaml:"format,omitempty"`
	Width   int       `json:"width,omitempty" yaml:"width,omitempty"`
	Height  int       `json:"height,omitempty" yaml:"height,omitempty"`
	Size    int64     `json:"size,omitempty" yaml:"size,omitempty"`
	ModTime time.Time `json:"mod_time,omitempty" yaml:"mod_time,omitempty"`
	Error   string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// imageList renders listed images as a table.
type imageList []listedImage

func (l imageList) Headers() []string {
	return []string{"#", "PATH", "FORMAT", "SIZE", "DIMENSIONS", "MODIFIED"}
}

func (l imageList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, img := range l {
		if img.Error != "" {
			rows = append(rows, []string{fmt.Sprint(img.Index), img.Path, "-", "-", "-", img.Error})
			continue
		}
		row := []string{fmt.Sprint(img.Index), img.Path, "-", "-", "-", "-"}
		if img.Format != "" {
			row[2] = img.Format
			row[4] = output.FormatDimensions(img.Width, img.Height)
		}
		if img.Size > 0 {
			row[3] = output.FormatSize(img.Size)
		}
		if !img.ModTime.IsZero() {
			row[5] = output.FormatTime(img.ModTime)
		}
		rows = append(rows, row)
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(listOutput)
	if err != nil {
		return err
	}
	if listLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	strat, err := cfg.ParseStrategy()
	if err != nil {
		return err
	}
	opts, err := cfg.ScannerOptions()
	if err != nil {
		return err
	}
	opts.Metrics = prommetrics.NewScannerMetrics(strat)

	fs := afero.NewOsFs()
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	start, err := resolveStart(fs, arg, strat, opts)
	if err != nil {
		return err
	}

	paths, err := collectSequence(cmd.Context(), fs, strat, start, opts, listLimit, listFromTop)
	if err != nil {
		return err
	}

	images := make(imageList, len(paths))
	for i, p := range paths {
		images[i] = listedImage{Index: i, Path: p}
	}
	if listProbe {
		probeImages(cmd.Context(), fs, cfg, images)
	} else {
		for i := range images {
			if info, err := fs.Stat(images[i].Path); err == nil {
				images[i].Size = info.Size()
				images[i].ModTime = info.ModTime()
			}
		}
	}

	return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(images)
}

// collectSequence walks a fresh scanner from start and returns up to limit
// paths in traversal order.
func collectSequence(ctx context.Context, fs afero.Fs, strat fileseq.Strategy, start string, opts fileseq.Options, limit int, fromTop bool) ([]string, error) {
	ready := make(chan struct{})
	scanner, err := fileseq.New(fs, strat, start, opts, func() { close(ready) })
	if err != nil {
		return nil, err
	}
	defer func() { _ = scanner.Close() }()

	select {
	case <-ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if fromTop {
		rewind(scanner, opts.Window)
	}

	paths := []string{scanner.Current()}
	for len(paths) < limit && scanner.MoveNext() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		paths = append(paths, scanner.Current())
	}
	logger.Debug("Sequence collected", logger.Count(len(paths)), logger.Strategy(strat.String()))
	return paths, nil
}

// rewind moves the cursor to the first file, step at most window positions
// at a time.
func rewind(scanner fileseq.Scanner, window int) {
	for {
		if scanner.Move(-window) == 0 {
			return
		}
	}
}

// probeImages reads the headers of images concurrently. Failures are
// reported per row.
func probeImages(ctx context.Context, fs afero.Fs, cfg *config.Config, images imageList) {
	loader := config.CreateLoader(fs, cfg)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Navigation.Workers)
	for i := range images {
		g.Go(func() error {
			img, err := loader.Probe(images[i].Path)
			if err != nil {
				images[i].Error = err.Error()
				return nil
			}
			images[i].Format = img.Format
			images[i].Width = img.Width
			images[i].Height = img.Height
			images[i].Size = img.Size
			images[i].ModTime = img.ModTime
			return nil
		})
	}
	_ = g.Wait()
}
