// Package logging configures slog with a tint terminal handler and carries
// loggers through context.Context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
	slogctx "github.com/veqryn/slog-context"
	"gitlab.com/tozd/go/errors"
)

const timeFormat = "2006-01-02 15:04 05.0000"

// Options configures Setup.
type Options struct {
	Level   slog.Level
	NoColor bool
	// AddSource annotates records with the calling file and line.
	AddSource bool
}

// Setup installs a tint handler writing to w as the default logger and
// returns a context carrying it.
func Setup(ctx context.Context, w io.Writer, opts Options) (context.Context, *slog.Logger) {
	h := tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: timeFormat,
		AddSource:  opts.AddSource,
		NoColor:    opts.NoColor,
	})
	logger := slog.New(slogctx.NewHandler(h, nil))
	slog.SetDefault(logger)
	return slogctx.NewCtx(ctx, logger), logger
}

// Ctx returns the logger carried by ctx, or the default logger.
func Ctx(ctx context.Context) *slog.Logger {
	return slogctx.FromCtx(ctx)
}

// With returns a context whose logger includes args.
func With(ctx context.Context, args ...any) context.Context {
	return slogctx.With(ctx, args...)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.Errorf("unknown log level %q", s)
}
