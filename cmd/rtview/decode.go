package main

import (
	"fmt"
	"os"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/jward/rtview"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <encoding>",
	Short: "Decode a runtime type encoding",
	Long:  "Decodes a type encoding such as {CGRect={CGPoint=dd}{CGSize=dd}} or a method encoding such as v24@0:8@16, printing the canonical form, the C spelling and, in text format, the decoded tree.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	d, err := rtview.DescribeType(args[0])
	if err != nil {
		return outputError("decode", err)
	}
	if flagFormat != "text" {
		return outputResult(CLIResult{Command: "decode", Results: d})
	}

	w := os.Stdout
	fmt.Fprintf(w, "canonical: %s\n", d.Canonical)
	if d.Method != nil {
		fmt.Fprintf(w, "returns:   %s\n", d.Method.Return)
		for i, p := range d.Method.Params {
			fmt.Fprintf(w, "arg%d:      %s\n", i+1, p)
		}
		return nil
	}
	fmt.Fprintf(w, "c type:    %s\n", d.CType)
	printer := pp.New()
	printer.SetOutput(w)
	color, _ := useColor("auto", w)
	printer.SetColoringEnabled(color)
	printer.SetExportedOnly(true)
	_, err = printer.Println(d.Tree)
	return err
}
