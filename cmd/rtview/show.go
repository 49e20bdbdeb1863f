package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview"
)

var (
	flagColor   string
	flagOptions rtview.Options
)

var showCmd = &cobra.Command{
	Use:   "show <name>...",
	Short: "Print the declaration of classes or protocols",
	Long: `Renders each named object as an Objective-C header declaration. Names are
class names, or protocols written as <Name>, protocol:Name or @protocol(Name).
Generation option flags override the config's options.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&flagColor, "color", "auto", "color output: auto|always|never (text format only)")
	flagOptions.BindFlags(showCmd.Flags())
}

// mergeOptions overlays the option flags set on the command line onto base.
func mergeOptions(flags *pflag.FlagSet, base rtview.Options) rtview.Options {
	merged := base
	set := func(name string, dst *bool, v bool) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("strip-synthesized", &merged.StripSynthesizedIvars, flagOptions.StripSynthesizedIvars)
	set("sort", &merged.SortMembers, flagOptions.SortMembers)
	set("offsets", &merged.ShowIvarOffsets, flagOptions.ShowIvarOffsets)
	set("encodings", &merged.ShowMethodTypeEncodings, flagOptions.ShowMethodTypeEncodings)
	set("categories", &merged.ShowCategoryNames, flagOptions.ShowCategoryNames)
	set("records", &merged.ShowRecordDefinitions, flagOptions.ShowRecordDefinitions)
	return merged
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	color, err := useColor(flagColor, os.Stdout)
	if err != nil {
		return outputError("show", err)
	}

	ids := make([]rtview.ID, 0, len(args))
	for _, a := range args {
		id, err := rtview.ParseID(a)
		if err != nil {
			return outputError("show", err)
		}
		ids = append(ids, id)
	}

	e, err := openEngine(true)
	if err != nil {
		return outputError("show", err)
	}
	defer e.Close()
	opts := mergeOptions(cmd.Flags(), cfg.Options)

	listings := make([]*rtview.Listing, 0, len(ids))
	for _, id := range ids {
		l, err := e.Listing(ctx, id, opts)
		switch {
		case errors.Is(err, rtview.ErrTimeout):
			return outputError("show", errors.Errorf("%s: lookup timed out", id))
		case errors.Is(err, rtview.ErrNotFound):
			return outputError("show", errors.Errorf("%s not found", id))
		case err != nil:
			return outputError("show", err)
		}
		listings = append(listings, l)
	}

	if flagFormat == "text" && color {
		for i, l := range listings {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			if err := defaultRenderer.Render(os.Stdout, l.Tokens); err != nil {
				return err
			}
		}
		return nil
	}

	results := make([]CLIListing, 0, len(listings))
	for _, l := range listings {
		results = append(results, CLIListing{Kind: l.ID.Kind.String(), Name: l.ID.Name, Listing: l.String()})
	}
	return outputResult(CLIResult{Command: "show", Results: results})
}
