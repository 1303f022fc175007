package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jward/mongoidx/internal/hover"
	"github.com/jward/mongoidx/internal/index"
)

// formatMethodsText formats CLIMethod results as aligned columns.
func formatMethodsText(w io.Writer, methods []CLIMethod) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tVISIBILITY\tFILE\tLINE\tDOC")
	for _, m := range methods {
		params := make([]string, len(m.Params))
		for i, p := range m.Params {
			params[i] = hover.FormatParameter(index.Parameter{Kind: index.ParamKind(p.Kind), Name: p.Name})
		}
		fmt.Fprintf(tw, "%s(%s)\t%s\t%s\t%d\t%s\n",
			m.Display, strings.Join(params, ", "), m.Visibility, m.File, m.StartLine, m.Comments)
	}
	tw.Flush()
}

// formatDocumentsText formats CLIDocument results as aligned columns.
func formatDocumentsText(w io.Writer, docs []CLIDocument) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tMETHODS\tFILE\tLINE")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n", d.Name, d.Methods, d.File, d.Line)
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIMethod:
		formatMethodsText(w, v)
	case []CLIDocument:
		formatDocumentsText(w, v)
	case CLIHover:
		fmt.Fprintln(w, v.Contents)
	case nil:
		// No output for nil results (e.g., hover on a non-macro call).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputResult writes a CLIResult to stdout in the selected format.
func (c *cli) outputResult(result CLIResult) error {
	if c.flagFormat == "text" {
		return outputResultText(c.stdout, result)
	}
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func (c *cli) outputError(command string, err error) error {
	c.errorHandled = true
	if c.flagFormat == "text" {
		fmt.Fprintf(c.stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
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
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
