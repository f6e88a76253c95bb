package store

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/config"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		zap.L().Info("opening postgres store")
		s, err := NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite", "":
		zap.L().Info("opening sqlite store", zap.String("path", cfg.DatabaseURL))
		s, err := NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// UniqueSlugs returns orgs with slugs made unique for the canonical table:
// an empty slug falls back to the canonical id and repeats get a numeric
// suffix in input order.
func UniqueSlugs(orgs []model.Organization) []model.Organization {
	out := make([]model.Organization, len(orgs))
	seen := make(map[string]bool, len(orgs))
	for i, o := range orgs {
		base := o.Slug
		if base == "" {
			base = o.CanonicalID
		}
		slug := base
		for n := 2; seen[slug]; n++ {
			slug = base + "-" + strconv.Itoa(n)
		}
		seen[slug] = true
		if slug != o.Slug {
			zap.L().Debug("renamed duplicate canonical slug",
				zap.String("name", o.Name), zap.String("slug", slug))
		}
		o.Slug = slug
		out[i] = o
	}
	return out
}
