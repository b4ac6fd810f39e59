package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codegraft/codegraft/v1/config"
	"github.com/codegraft/codegraft/v1/engine"
	"github.com/codegraft/codegraft/v1/lang"
	"github.com/codegraft/codegraft/v1/logging"
	"github.com/codegraft/codegraft/v1/rewrite"
)

type runCmdParams struct {
	rulesDir    string
	scopeDir    string
	logLevel    string
	dryRun      bool
	concurrency int
}

func newRunParams() runCmdParams {
	return runCmdParams{concurrency: 4, logLevel: "info"}
}

func initRun(root *cobra.Command) {
	params := newRunParams()

	runCommand := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Rewrite source files in place to a fixpoint",
		Long: `Run loads rules.toml, edges.toml, and piranha_arguments.toml from
--rules-dir (and scope_config.toml from --scope-dir, defaulting to
--rules-dir), then applies the resulting rule graph to every file
under the given directories whose extension matches
piranha_arguments.toml's "language", and to every file path given
directly. Without --dry-run, changed files are overwritten; with it,
only a summary is printed and nothing is written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return runRun(cmd, params, args)
		},
	}

	runCommand.Flags().StringVar(&params.rulesDir, "rules-dir", ".", "directory containing rules.toml, edges.toml, and piranha_arguments.toml")
	runCommand.Flags().StringVar(&params.scopeDir, "scope-dir", "", "directory containing scope_config.toml (defaults to --rules-dir)")
	runCommand.Flags().StringVarP(&params.logLevel, "log-level", "l", params.logLevel, "set log level: debug, info, warn, error")
	runCommand.Flags().BoolVar(&params.dryRun, "dry-run", false, "report matches and would-be edits without writing any file")
	runCommand.Flags().IntVarP(&params.concurrency, "concurrency", "c", params.concurrency, "max files rewritten in parallel (<=0 means unbounded)")

	root.AddCommand(runCommand)
}

func runRun(cmd *cobra.Command, params runCmdParams, paths []string) error {
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

	log := newCLILogger(params.logLevel)

	store, err := rewrite.NewRuleStore(cfg.Rules, cfg.Edges, cfg.Scopes, binding, cfg.InputSubstitutions, cfg.GlobalTagPrefix, log)
	if err != nil {
		return err
	}
	store.CleanupComments = cfg.CleanupComments

	files, err := collectFiles(paths, lang.Extensions(cfg.Language))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no matching files under the given paths")
		return nil
	}

	contents := make(map[string][]byte, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return rewrite.NewError(rewrite.ConfigErr, &rewrite.Location{File: f}, "read: %v", err)
		}
		contents[f] = data
	}

	summaries, err := engine.RunMany(context.Background(), store, contents, params.concurrency)
	if err != nil {
		return err
	}

	var changed int
	var diagnostics rewrite.Errors
	for _, s := range summaries {
		if len(s.Diagnostics) > 0 {
			for _, d := range s.Diagnostics {
				fmt.Fprintln(cmd.ErrOrStderr(), d.Error())
			}
			diagnostics = append(diagnostics, s.Diagnostics...)
		}
		if len(s.Rewrites) == 0 {
			continue
		}
		changed++
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d edit(s) across %d match(es)\n", s.Path, len(s.Rewrites), len(s.Matches))
		if params.dryRun {
			continue
		}
		if err := os.WriteFile(s.Path, s.ContentAfter, 0o644); err != nil {
			return rewrite.NewError(rewrite.ConfigErr, &rewrite.Location{File: s.Path}, "write: %v", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) scanned, %d changed\n", len(summaries), changed)
	if len(diagnostics) > 0 {
		return diagnostics
	}
	return nil
}

// collectFiles walks paths (which may each be a file or a directory)
// and returns every file under a directory whose extension is in
// exts, sorted by filepath.WalkDir's natural lexical order within
// each root. A path that names a file is returned as given, without
// the extension check.
func collectFiles(paths []string, exts []string) ([]string, error) {
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[e] = true
	}

	var out []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, rewrite.NewError(rewrite.ConfigErr, &rewrite.Location{File: root}, "%v", err)
		}
		if !info.IsDir() {
			out = append(out, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if extSet[filepath.Ext(path)] {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, rewrite.NewError(rewrite.ConfigErr, &rewrite.Location{File: root}, "walk: %v", err)
		}
	}
	return out, nil
}

func newCLILogger(level string) logging.Logger {
	log := logging.New(nil)
	switch level {
	case "debug":
		log.SetLevel(logging.LevelDebug)
	case "warn":
		log.SetLevel(logging.LevelWarn)
	case "error":
		log.SetLevel(logging.LevelError)
	default:
		log.SetLevel(logging.LevelInfo)
	}
	return log
}
