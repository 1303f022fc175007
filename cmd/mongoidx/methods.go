package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/mongoidx"
	"github.com/jward/mongoidx/internal/discover"
	"github.com/jward/mongoidx/internal/index"
)

func (c *cli) methodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods <Owner>",
		Short: "List the instance and class methods indexed for a class or module",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runMethods,
	}
}

func (c *cli) runMethods(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return c.outputError("methods", err)
	}
	p, err := c.loadProject(cwd)
	if err != nil {
		return c.outputError("methods", err)
	}
	s, err := openExistingStore(p.dbPath)
	if err != nil {
		return c.outputError("methods", err)
	}
	defer s.Close()

	entries, err := mongoidx.NewQueryBuilder(s).Methods(args[0])
	if err != nil {
		return c.outputError("methods", err)
	}
	methods := make([]CLIMethod, 0, len(entries))
	for _, e := range entries {
		methods = append(methods, methodToCLI(e))
	}
	total := len(methods)
	return c.outputResult(CLIResult{
		Command:    "methods",
		Results:    methods,
		TotalCount: &total,
	})
}

// methodToCLI converts an index entry to a CLIMethod.
func methodToCLI(e index.Entry) CLIMethod {
	m := CLIMethod{
		Name:       e.Name,
		Owner:      e.Owner,
		Display:    e.Display(),
		Visibility: string(e.Visibility),
		Params:     []CLIParameter{},
		Comments:   e.Comments,
		File:       discover.Path(e.Location.URI),
		StartLine:  e.Location.StartLine,
		StartCol:   e.Location.StartCol,
	}
	if len(e.Signatures) > 0 {
		for _, p := range e.Signatures[0].Params {
			m.Params = append(m.Params, CLIParameter{Kind: string(p.Kind), Name: p.Name})
		}
	}
	return m
}

func (c *cli) documentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List the classes recognized as Mongoid documents",
		Args:  cobra.NoArgs,
		RunE:  c.runDocuments,
	}
}

func (c *cli) runDocuments(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return c.outputError("documents", err)
	}
	p, err := c.loadProject(cwd)
	if err != nil {
		return c.outputError("documents", err)
	}
	s, err := openExistingStore(p.dbPath)
	if err != nil {
		return c.outputError("documents", err)
	}
	defer s.Close()

	docs, err := mongoidx.NewQueryBuilder(s).Documents()
	if err != nil {
		return c.outputError("documents", err)
	}
	out := make([]CLIDocument, len(docs))
	for i, d := range docs {
		out[i] = CLIDocument{
			Name:    d.Name,
			File:    discover.Path(d.Location.URI),
			Line:    d.Location.StartLine,
			Methods: d.Methods,
		}
	}
	total := len(out)
	return c.outputResult(CLIResult{
		Command:    "documents",
		Results:    out,
		TotalCount: &total,
	})
}
