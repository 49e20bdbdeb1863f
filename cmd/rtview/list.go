package main

import (
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview"
)

var (
	flagLimit  int
	flagOffset int
	flagImage  string
	flagPrefix string
	flagSearch string
)

var listCmd = &cobra.Command{
	Use:       "list [objects|classes|protocols|images|records]",
	Short:     "Browse the snapshot",
	Long:      "Lists the classes, protocols, images or catalog records in the snapshot. objects lists classes and protocols together and accepts --search.",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"objects", "classes", "protocols", "images", "records"},
	RunE:      runList,
}

func init() {
	listCmd.Flags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	listCmd.Flags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	listCmd.Flags().StringVar(&flagImage, "image", "", "only objects defined by this image path")
	listCmd.Flags().StringVar(&flagPrefix, "prefix", "", "only names starting with this prefix")
	listCmd.Flags().StringVar(&flagSearch, "search", "", "name pattern for objects; * matches any run of characters")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	what := "objects"
	if len(args) > 0 {
		what = args[0]
	}
	command := "list " + what
	if flagSearch != "" && what != "objects" {
		return outputError(command, errors.New("--search is only supported for objects"))
	}

	e, err := openEngine(true)
	if err != nil {
		return outputError(command, err)
	}
	defer e.Close()
	q := e.Query()

	filter := rtview.Filter{Image: flagImage, Prefix: flagPrefix}
	page := buildPagination()

	var res *rtview.PagedResult[rtview.ObjectSummary]
	switch what {
	case "images":
		images, err := q.Images(ctx)
		if err != nil {
			return outputError(command, err)
		}
		return outputResult(CLIResult{Command: command, Results: images})
	case "records":
		recs, err := q.Records(ctx, flagPrefix, page)
		if err != nil {
			return outputError(command, err)
		}
		items := make([]CLIRecord, 0, len(recs.Items))
		for _, r := range recs.Items {
			items = append(items, CLIRecord{Name: r.Name, Kind: r.Kind, Encoding: r.Encoding, Source: r.Source})
		}
		return outputResult(CLIResult{Command: command, Results: items, TotalCount: &recs.TotalCount})
	case "classes":
		res, err = q.Classes(ctx, filter, page)
	case "protocols":
		res, err = q.Protocols(ctx, filter, page)
	default:
		res, err = q.Search(ctx, flagSearch, filter, page)
	}
	if err != nil {
		return outputError(command, err)
	}
	return outputResult(CLIResult{Command: command, Results: res.Items, TotalCount: &res.TotalCount})
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination() rtview.Pagination {
	return rtview.Pagination{
		Limit:  flagLimit,
		Offset: flagOffset,
	}
}
