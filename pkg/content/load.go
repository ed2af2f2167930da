package content

import (
	"context"
	"fmt"

	"github.com/dshills/contentguide/pkg/modpack"
	"github.com/dshills/contentguide/pkg/schedule"
)

// LoadEngine loads the configured corpus and mods from disk and wraps
// the result in an Engine. The Yielder governs the load pass's
// relinquish points; pass nil (or configure Synchronous) to load
// without yielding.
func LoadEngine(ctx context.Context, cfg *Config, y schedule.Yielder) (*Engine, error) {
	if cfg.Synchronous {
		y = nil
	}

	catalog, err := modpack.LoadCatalogDir(cfg.CorpusDir, cfg.ModsDir)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}

	st, prov, err := modpack.LoadWithSchedule(ctx, catalog, cfg.Mods, y)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}

	return NewEngine(NewCorpus(st, prov)), nil
}
