package main

// CLIResult is the top-level JSON envelope for all read commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIMethod is a JSON-friendly method entry.
type CLIMethod struct {
	Name       string         `json:"name"`
	Owner      string         `json:"owner"`
	Display    string         `json:"display"`
	Visibility string         `json:"visibility"`
	Params     []CLIParameter `json:"params"`
	Comments   string         `json:"comments,omitempty"`
	File       string         `json:"file"`
	StartLine  int            `json:"start_line"`
	StartCol   int            `json:"start_col"`
}

// CLIParameter is one method parameter.
type CLIParameter struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// CLIHover is the hover text for a DSL call.
type CLIHover struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Contents string `json:"contents"`
}

// CLIDocument is a JSON-friendly document summary.
type CLIDocument struct {
	Name    string `json:"name"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Methods int    `json:"methods"`
}
