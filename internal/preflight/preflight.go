// Package preflight runs readiness checks before the daemon begins
// processing jobs: directory access and LLM API reachability. Failures are
// reported, not fatal; the daemon starts either way and individual jobs
// surface the underlying configuration errors.
package preflight

import (
	"context"

	"forge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckLLM(ctx, "LLM API", cfg.GetLLM()),
	}

	return results
}
