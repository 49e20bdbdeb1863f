package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview"
)

// formatObjectsText formats object summaries as aligned columns.
func formatObjectsText(w io.Writer, objs []rtview.ObjectSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tSUPERCLASS\tIMAGE")
	for _, o := range objs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.Kind, o.Name, o.Superclass, o.Image)
	}
	tw.Flush()
}

// formatImagesText formats image summaries as aligned columns.
func formatImagesText(w io.Writer, images []rtview.ImageSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASSES\tPROTOCOLS\tPATH")
	for _, im := range images {
		fmt.Fprintf(tw, "%d\t%d\t%s\n", im.Classes, im.Protocols, im.Path)
	}
	tw.Flush()
}

// formatRecordsText formats catalog records as aligned columns.
func formatRecordsText(w io.Writer, records []CLIRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tENCODING")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Kind, r.Encoding)
	}
	tw.Flush()
}

func formatHierarchyText(w io.Writer, h CLIHierarchy) {
	if len(h.SuperclassChain) > 0 {
		fmt.Fprintf(w, "%s : %s\n", h.Name, strings.Join(h.SuperclassChain, " : "))
	} else {
		fmt.Fprintln(w, h.Name)
	}
	list := func(title string, names []string) {
		if len(names) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s:\n", title)
		for _, n := range names {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
	list("Subclasses", h.Subclasses)
	if h.Descendants > len(h.Subclasses) {
		fmt.Fprintf(w, "  (%d descendants in total)\n", h.Descendants)
	}
	list("Adopting classes", h.AdoptingClasses)
	list("Adopting protocols", h.AdoptingProtocols)
	list("Record users", h.RecordUsers)
}

func formatLoadText(w io.Writer, l CLILoad) {
	if l.Skipped {
		fmt.Fprintf(w, "Snapshot %s is up to date\n", l.Database)
		return
	}
	fmt.Fprintf(w, "Loaded %d script(s) into %s in %s: %d classes, %d protocols, %d records",
		l.Scripts, l.Database, l.Elapsed, l.Classes, l.Protocols, l.Records)
	if l.Headers > 0 {
		fmt.Fprintf(w, " (%d headers harvested)", l.Headers)
	}
	fmt.Fprintln(w)
}

func formatGraphText(w io.Writer, g CLIGraph) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tTO\tREFERENCES")
	for _, e := range g.Edges {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", e.From, e.To, e.References)
	}
	tw.Flush()
	for _, c := range g.Cycles {
		fmt.Fprintf(w, "\ncycle: %s\n", strings.Join(c, " -> "))
	}
}

func formatExportText(w io.Writer, e CLIExport) {
	fmt.Fprintf(w, "Exported %d files, %s to %s in %s\n", e.Files, e.Size, e.Dir, e.Elapsed)
	for _, msg := range e.Errors {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []rtview.ObjectSummary:
		formatObjectsText(w, v)
	case []rtview.ImageSummary:
		formatImagesText(w, v)
	case []CLIRecord:
		formatRecordsText(w, v)
	case []CLIListing:
		for i, l := range v {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprint(w, l.Listing)
		}
	case CLIHierarchy:
		formatHierarchyText(w, v)
	case CLILoad:
		formatLoadText(w, v)
	case CLIExport:
		formatExportText(w, v)
	case CLIGraph:
		formatGraphText(w, v)
	case string:
		fmt.Fprint(w, v)
	case nil:
	default:
		return errors.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []rtview.ObjectSummary:
		return len(r)
	case []rtview.ImageSummary:
		return len(r)
	case []CLIRecord:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return errors.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
