package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ScratchCat458/august-build/internal/ast"
	"github.com/ScratchCat458/august-build/internal/runtime"
)

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	unitFlag := fs.String("u", "", "unit to run (overrides -pragma)")
	pragmaFlag := fs.String("pragma", "build", "expose pragma to run when -u is not given (build|test)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: august run [-u <unit>] [-pragma build|test] <script>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	mod, _ := load(fs.Arg(0))

	unitName := *unitFlag
	if unitName == "" {
		var pragma ast.Pragma
		switch *pragmaFlag {
		case "build":
			pragma = ast.Build
		case "test":
			pragma = ast.Test
		default:
			fmt.Fprintf(os.Stderr, "Error: -pragma must be \"build\" or \"test\", got %q\n", *pragmaFlag)
			os.Exit(1)
		}
		exposed, ok := mod.Expose(pragma)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: no unit exposed as %q\n", *pragmaFlag)
			os.Exit(1)
		}
		unitName = exposed.Value
	}

	if _, ok := mod.Units[unitName]; !ok {
		fmt.Fprintf(os.Stderr, "Error: no such unit %q\n", unitName)
		os.Exit(1)
	}

	// The scheduler itself has no cancellation contract (see DESIGN.md): an
	// interrupt here stops the CLI process, not the in-flight unit tree.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		os.Exit(130)
	}()

	sched := runtime.New(mod, runtime.NewTextNotifier(os.Stdout))
	if err := sched.Run(unitName); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
