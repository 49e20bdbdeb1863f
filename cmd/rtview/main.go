package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview"
	"github.com/jward/rtview/internal/config"
	"github.com/jward/rtview/internal/logging"
	"github.com/jward/rtview/scripts"
)

var (
	flagDB         string
	flagConfig     string
	flagFormat     string
	flagLogLevel   string
	flagScriptsDir string
)

// cfg is the loaded configuration with global flag overrides applied.
var cfg = config.Default()

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "rtview",
	Short:         "Reconstruct Objective-C declarations from runtime metadata",
	Long:          "rtview loads runtime snapshots into a SQLite database and renders classes and protocols as Objective-C header declarations.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		if err := loadConfig(cmd); err != nil {
			return err
		}
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		ctx, _ := logging.Setup(cmd.Context(), os.Stderr, logging.Options{
			Level:   level,
			NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
		})
		cmd.SetContext(ctx)
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "snapshot database path (default: rtview.db or the config's db)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: "+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&flagScriptsDir, "scripts-dir", "", "load scripts from disk path instead of embedded")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(hierarchyCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads --config (required to exist) or the default config file
// (optional), then applies global flag overrides.
func loadConfig(cmd *cobra.Command) error {
	var err error
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		cfg, err = config.LoadOptional(config.DefaultFile)
	}
	if err != nil {
		return err
	}
	if flagDB != "" {
		cfg.DB = flagDB
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagScriptsDir != "" {
		cfg.Scripts = flagScriptsDir
	}
	return nil
}

// openEngine opens the snapshot database. With mustExist set, a missing
// database is an error instead of being created empty.
func openEngine(mustExist bool, opts ...rtview.Option) (*rtview.Engine, error) {
	if mustExist {
		if _, err := os.Stat(cfg.DB); os.IsNotExist(err) {
			return nil, errors.Errorf("database not found: %s (run 'rtview load' first)", cfg.DB)
		}
	}
	opts = append([]rtview.Option{
		rtview.WithLookupTimeout(cfg.LookupTimeout),
		rtview.WithWorkers(cfg.Export.Workers),
	}, opts...)

	// Script source: --scripts-dir or the config overrides the embedded FS.
	if cfg.Scripts == "" {
		opts = append(opts, rtview.WithScriptsFS(scripts.FS))
	}
	e, err := rtview.New(cfg.DB, cfg.Scripts, opts...)
	if err != nil {
		return nil, errors.Errorf("opening snapshot: %w", err)
	}
	return e, nil
}
