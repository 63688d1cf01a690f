package preflight

import (
	"context"
	"net/http"

	"mediafetch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// catalogProbeURL is the endpoint used to confirm the catalog service is
// reachable with the configured identification headers.
const catalogProbeURL = "https://www.youtube.com/"

// RunAll executes the filesystem and network checks for cfg. client should
// carry the configured identification headers; nil skips the network check.
func RunAll(ctx context.Context, cfg *config.Config, client *http.Client) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
	}
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("History database", parentDir(cfg.Paths.HistoryDB)))
	}
	if client != nil {
		results = append(results, CheckEndpoint(ctx, client, "Catalog service", catalogProbeURL))
	}
	return results
}
