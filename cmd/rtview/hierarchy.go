package main

import (
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <name>",
	Short: "Show a class's superclass chain and the objects depending on a name",
	Long:  "Prints the superclass chain and subclasses of a class, plus the classes and protocols adopting a protocol of that name and the objects using a record of that name.",
	Args:  cobra.ExactArgs(1),
	RunE:  runHierarchy,
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := args[0]

	e, err := openEngine(true)
	if err != nil {
		return outputError("hierarchy", err)
	}
	defer e.Close()
	q := e.Query()

	result := CLIHierarchy{Name: name, SuperclassChain: []string{}, Subclasses: []string{}}
	h, err := q.ClassHierarchy(ctx, name)
	if err != nil {
		return outputError("hierarchy", err)
	}
	if h != nil {
		result.SuperclassChain = append(result.SuperclassChain, h.SuperclassChain...)
		result.Subclasses = h.Subclasses
		result.Descendants = h.Descendants
	}

	d, err := q.DependentsOf(ctx, name)
	if err != nil {
		return outputError("hierarchy", err)
	}
	result.AdoptingClasses = d.AdoptingClasses
	result.AdoptingProtocols = d.AdoptingProtocols
	result.RecordUsers = d.RecordUsers

	if h == nil && len(d.AdoptingClasses)+len(d.AdoptingProtocols)+len(d.RecordUsers)+len(d.Subclasses) == 0 {
		return outputError("hierarchy", errors.Errorf("%s not found", name))
	}
	return outputResult(CLIResult{Command: "hierarchy", Results: result})
}
