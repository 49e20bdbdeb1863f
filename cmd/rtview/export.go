package main

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview"
)

var flagWorkers int

var exportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write a header file for every class and protocol",
	Long: `Renders every class and protocol in the snapshot (or in --image) and writes
each to <dir>/<Name>.h; protocols are written to <Name>-Protocol.h. The
directory defaults to the config's export.dir. A failure for one object does
not stop the others.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagImage, "image", "", "only export objects defined by this image path")
	exportCmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent workers (default: export.workers or the number of CPUs)")
	flagOptions.BindFlags(exportCmd.Flags())
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := cfg.Export.Dir
	if len(args) > 0 {
		dir = args[0]
	}

	var opts []rtview.Option
	if flagWorkers > 0 {
		opts = append(opts, rtview.WithWorkers(flagWorkers))
	}
	e, err := openEngine(true, opts...)
	if err != nil {
		return outputError("export", err)
	}
	defer e.Close()

	ids, err := e.Query().AllObjects(ctx, rtview.Filter{Image: flagImage})
	if err != nil {
		return outputError("export", err)
	}
	summary, err := e.Export(ctx, dir, ids, mergeOptions(cmd.Flags(), cfg.Options))
	if summary == nil {
		return outputError("export", err)
	}

	result := CLIExport{
		Dir:     dir,
		Files:   summary.Files,
		Bytes:   summary.Bytes,
		Size:    humanize.Bytes(summary.Bytes),
		Elapsed: summary.Elapsed.Round(time.Millisecond).String(),
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, ferr := range merr.Errors {
			result.Errors = append(result.Errors, ferr.Error())
		}
	} else if err != nil {
		return outputError("export", err)
	}
	if outErr := outputResult(CLIResult{Command: "export", Results: result}); outErr != nil {
		return outErr
	}
	if err != nil {
		errorHandled = true
		return errors.Errorf("%d of %d objects failed to export", len(result.Errors), len(ids))
	}
	return nil
}
