package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codegraft/codegraft/v1/config"
	"github.com/codegraft/codegraft/v1/lang"
	"github.com/codegraft/codegraft/v1/rewrite"
)

type checkCmdParams struct {
	rulesDir string
	scopeDir string
}

func initCheck(root *cobra.Command) {
	params := checkCmdParams{}

	checkCommand := &cobra.Command{
		Use:   "check",
		Short: "Load and validate a rule graph without touching any source file",
		Long: `Check loads rules.toml, edges.toml, and piranha_arguments.toml from
--rules-dir (and scope_config.toml from --scope-dir, defaulting to
--rules-dir), builds the rule graph and seeds the global worklist
exactly as "codegraft run" would, and reports rule/edge/seed counts.
It never reads or writes a source file; this is the config-validation
counterpart to OPA's "opa check".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return runCheck(cmd, params)
		},
	}

	checkCommand.Flags().StringVar(&params.rulesDir, "rules-dir", ".", "directory containing rules.toml, edges.toml, and piranha_arguments.toml")
	checkCommand.Flags().StringVar(&params.scopeDir, "scope-dir", "", "directory containing scope_config.toml (defaults to --rules-dir)")

	root.AddCommand(checkCommand)
}

func runCheck(cmd *cobra.Command, params checkCmdParams) error {
	scopeDir := params.scopeDir
	if scopeDir == "" {
		scopeDir = params.rulesDir
	}

	cfg, err := config.Load(params.rulesDir, scopeDir)
	if err != nil {
		return err
	}

	binding, err := lang.Lookup(cfg.Language)
	if err != nil {
		return err
	}

	store, err := rewrite.NewRuleStore(cfg.Rules, cfg.Edges, cfg.Scopes, binding, cfg.InputSubstitutions, cfg.GlobalTagPrefix, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "language: %s\n", cfg.Language)
	fmt.Fprintf(out, "rules: %d\n", len(store.Rules))
	fmt.Fprintf(out, "edges: %d\n", store.Graph.NumEdges())
	fmt.Fprintf(out, "seed rules queued: %d\n", len(store.GlobalRules()))
	fmt.Fprintln(out, "OK")
	return nil
}
