package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/mongoidx/internal/discover"
)

func (c *cli) hoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hover <file> <line> <col>",
		Short: "Show hover documentation for the Mongoid macro at a position",
		Long:  "Lines are 1-based and columns 0-based.",
		Args:  cobra.ExactArgs(3),
		RunE:  c.runHover,
	}
}

func (c *cli) runHover(cmd *cobra.Command, args []string) error {
	file, err := filepath.Abs(args[0])
	if err != nil {
		return c.outputError("hover", fmt.Errorf("resolving file path %q: %w", args[0], err))
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return c.outputError("hover", err)
	}
	if line == 0 {
		return c.outputError("hover", fmt.Errorf("invalid line %q: lines start at 1", args[1]))
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return c.outputError("hover", err)
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return c.outputError("hover", err)
	}

	p, err := c.loadProject(filepath.Dir(file))
	if err != nil {
		return c.outputError("hover", err)
	}
	s, err := openExistingStore(p.dbPath)
	if err != nil {
		return c.outputError("hover", err)
	}
	defer s.Close()

	addon := p.addon(s, c.logger())
	text, ok, err := addon.HoverAt(cmd.Context(), discover.URI(file), src, line, col)
	if err != nil {
		return c.outputError("hover", err)
	}
	if !ok {
		return c.outputResult(CLIResult{Command: "hover", Results: nil})
	}
	one := 1
	return c.outputResult(CLIResult{
		Command:    "hover",
		Results:    CLIHover{File: file, Line: line, Col: col, Contents: text},
		TotalCount: &one,
	})
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}
