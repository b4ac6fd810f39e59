// Package main is the codegraft CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "codegraft",
		Short:         "Apply structural rewrite rules to source files",
		Long:          `codegraft rewrites source trees to a fixpoint using a graph of structural match/replace rules (a polyglot, config-driven Piranha).`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	initRun(root)
	initCheck(root)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}
