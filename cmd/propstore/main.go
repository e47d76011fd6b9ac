// Package main is the entry point for the propstore command line tool.
package main

import (
	"fmt"
	"os"

	"code.byted.org/khicago/propstore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "propstore:", err)
		os.Exit(1)
	}
}
