package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/rtview"
)

// CLIGraph is the image dependency graph with any cycles found in it.
type CLIGraph struct {
	*rtview.ImageGraph
	Cycles [][]string `json:"cycles"`
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show dependencies between images",
	Long:  "Lists which images depend on which through superclasses, categories and adopted protocols, and reports dependency cycles.",
	Args:  cobra.NoArgs,
	RunE:  runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := openEngine(true)
	if err != nil {
		return outputError("graph", err)
	}
	defer e.Close()

	q := e.Query()
	g, err := q.ImageDependencyGraph(ctx)
	if err != nil {
		return outputError("graph", err)
	}
	cycles, err := q.CircularImageDependencies(ctx)
	if err != nil {
		return outputError("graph", err)
	}
	return outputResult(CLIResult{Command: "graph", Results: CLIGraph{ImageGraph: g, Cycles: cycles}})
}
