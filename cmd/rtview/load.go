package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview/internal/logging"
)

var (
	flagForce   bool
	flagHeaders []string
)

var loadCmd = &cobra.Command{
	Use:   "load [script.risor|dir]...",
	Short: "Load runtime definition scripts into the snapshot database",
	Long: `Runs snapshot definition scripts into the snapshot database, replacing its
contents, then harvests struct and union layouts from C headers into the
record catalog. Without arguments the config's definitions are loaded.
Loading is skipped when the snapshot was built from the same scripts.`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database and load from scratch")
	loadCmd.Flags().StringSliceVar(&flagHeaders, "headers", nil, "C header files or directories to harvest records from")
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	paths := args
	if len(paths) == 0 {
		paths = cfg.Definitions
	}
	if len(paths) == 0 {
		return outputError("load", errors.New("no definition scripts given and none configured"))
	}
	headers := flagHeaders
	if len(headers) == 0 {
		headers = cfg.Headers
	}

	// Handle --force: delete the DB file entirely.
	if flagForce {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(cfg.DB + suffix); err != nil && !os.IsNotExist(err) {
				return outputError("load", errors.Errorf("removing database for --force: %w", err))
			}
		}
		logging.Ctx(ctx).Info("cleared database", "path", cfg.DB)
	}

	e, err := openEngine(false)
	if err != nil {
		return outputError("load", err)
	}
	defer e.Close()

	result := CLILoad{Database: cfg.DB}
	current, err := e.SnapshotCurrent(paths)
	if err != nil {
		return outputError("load", err)
	}
	if current && len(headers) == 0 {
		result.Skipped = true
		return outputResult(CLIResult{Command: "load", Results: result})
	}

	stats, err := e.Load(ctx, paths)
	if err != nil {
		return outputError("load", err)
	}
	result.Scripts = stats.Scripts
	result.Classes = stats.Classes
	result.Protocols = stats.Protocols

	if len(headers) > 0 {
		n, err := e.HarvestHeaders(ctx, headers)
		if err != nil {
			return outputError("load", errors.Errorf("harvesting headers: %w", err))
		}
		result.Headers = n
	}

	final, err := e.Query().Stats(ctx)
	if err != nil {
		return outputError("load", err)
	}
	result.Records = final.Records
	result.Elapsed = time.Since(start).Round(time.Millisecond).String()
	return outputResult(CLIResult{Command: "load", Results: result})
}
