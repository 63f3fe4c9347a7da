package main

import (
	"flag"
	"fmt"
	"os"
)

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: august check <script>\n")
	}
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	mod, _ := load(fs.Arg(0))
	fmt.Printf("ok: %d unit(s) defined\n", len(mod.Units))
}
