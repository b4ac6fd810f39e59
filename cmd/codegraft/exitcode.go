package main

import (
	"errors"

	"github.com/codegraft/codegraft/v1/rewrite"
)

// Process exit codes (spec.md section 6): 0 on success, 2 for a malformed or inconsistent
// configuration, 3 when a source file fails to parse, 4 for any other
// fatal rule-instantiation failure.
const (
	exitOK          = 0
	exitConfigErr   = 2
	exitParseErr    = 3
	exitRuleFailure = 4
)

// exitCode maps err to the process exit code codegraft should report.
// It unwraps a *rewrite.Error or rewrite.Errors to recover the
// underlying failure kind; any other error (a bare I/O error, a cobra
// usage error) falls back to exitRuleFailure.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var errs rewrite.Errors
	if errors.As(err, &errs) {
		return exitCodeForErrors(errs)
	}

	var single *rewrite.Error
	if errors.As(err, &single) {
		return exitCodeForErrors(rewrite.Errors{single})
	}

	return exitRuleFailure
}

// exitCodeForErrors picks the most specific code across a collection of
// diagnostics, preferring a config error, then a parse error, then
// falling back to the generic fatal-failure code.
func exitCodeForErrors(errs rewrite.Errors) int {
	sawParseErr := false
	for _, e := range errs {
		if e.Code == rewrite.ConfigErr {
			return exitConfigErr
		}
		if e.Code == rewrite.PostEditParseErr {
			sawParseErr = true
		}
	}
	if sawParseErr {
		return exitParseErr
	}
	return exitRuleFailure
}
