package corpus

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/postgres"
)

// Open returns the Source selected by cfg.Source. The close function
// releases the database pool for the postgres source and is a no-op
// otherwise.
func Open(ctx context.Context, cfg config.CorpusConfig, pg config.PostgresConfig) (Source, func() error, error) {
	switch cfg.Source {
	case config.SourceDir, "":
		src := DirSource{Dir: cfg.Dir, Ext: cfg.Extension, Concurrency: cfg.Concurrency}
		return src, func() error { return nil }, nil
	case config.SourcePostgres:
		db, err := postgres.New(ctx, pg)
		if err != nil {
			return nil, nil, fmt.Errorf("opening corpus database: %w", err)
		}
		return NewPostgresSource(db, cfg.Query), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown corpus source %q", cfg.Source)
	}
}
