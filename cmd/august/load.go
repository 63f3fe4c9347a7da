package main

import (
	"fmt"
	"os"

	"github.com/ScratchCat458/august-build/internal/diag"
	"github.com/ScratchCat458/august-build/internal/lexer"
	"github.com/ScratchCat458/august-build/internal/module"
	"github.com/ScratchCat458/august-build/internal/parser"
)

// load lexes, parses, and lowers the script at path, printing any
// diagnostics to stderr. If the file cannot be read or the script does not
// lower cleanly, it exits the process with status 1 instead of returning.
func load(path string) (*module.Module, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}
	source := string(data)

	l := lexer.New(source)
	p := parser.New(l)
	items := p.ParseProgram()

	if errs := p.Errors(); errs.HasErrors() {
		printDiagnostics(source, errs)
		os.Exit(1)
	}

	mod, errs := module.Lower(items)
	if errs.HasErrors() {
		printDiagnostics(source, errs)
		os.Exit(1)
	}

	return mod, source
}

func printDiagnostics(source string, errs diag.List) {
	for _, d := range errs {
		fmt.Fprint(os.Stderr, diag.Render(source, d))
	}
}
