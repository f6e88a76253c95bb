package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ketankauntia/gsoc-orgs/internal/align"
	"github.com/ketankauntia/gsoc-orgs/internal/config"
	"github.com/ketankauntia/gsoc-orgs/internal/fetcher"
	"github.com/ketankauntia/gsoc-orgs/internal/grouping"
	"github.com/ketankauntia/gsoc-orgs/internal/identity"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
	"github.com/ketankauntia/gsoc-orgs/internal/reconcile"
	"github.com/ketankauntia/gsoc-orgs/internal/store"
)

// openStore opens the configured store and applies migrations. Callers
// should defer st.Close().
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// newFetcher builds the HTTP fetcher from the archive settings.
func newFetcher(c config.ArchiveConfig) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.UserAgent,
		Timeout:    time.Duration(c.TimeoutSecs) * time.Second,
		MaxRetries: c.MaxRetries,
		HostRates: map[string]rate.Limit{
			fetcher.ArchiveHost: rate.Limit(c.RatePerSecond),
		},
	})
}

// reconcileEnv holds the pieces built from the rules file.
type reconcileEnv struct {
	Rules      *config.Rules
	Normalizer *identity.Normalizer
	Pipeline   *reconcile.Pipeline
}

// initReconcile loads the rules and builds the pipeline. A nil recorder
// keeps the run in memory.
func initReconcile(c config.ReconcileConfig, rec reconcile.RunRecorder) (*reconcileEnv, error) {
	rules, err := config.LoadRules(c.RulesPath)
	if err != nil {
		return nil, err
	}

	deny := identity.DefaultDenylist()
	if len(rules.Denylist) > 0 {
		deny = identity.NewDenylist(rules.Denylist...)
	}
	norm := identity.NewNormalizer(deny)

	grouper := grouping.NewGrouper(norm, grouping.Options{
		FuzzyThreshold: c.FuzzyThreshold,
		Workers:        c.Workers,
	})
	reconciler := align.NewReconciler(align.AliasTable(rules.Aliases), align.Options{
		Threshold:   c.AlignThreshold,
		ReviewBelow: c.ReviewBelow,
	})

	zap.L().Debug("reconcile rules loaded",
		zap.Int("aliases", len(rules.Aliases)),
		zap.Int("denylist", len(deny)),
	)
	return &reconcileEnv{
		Rules:      rules,
		Normalizer: norm,
		Pipeline:   reconcile.New(grouper, reconciler, rec),
	}, nil
}

// readOrganizations decodes a JSON array of organization documents.
func readOrganizations(ctx context.Context, path string) ([]model.Organization, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck

	orgs, err := fetcher.CollectJSONArray[model.Organization](ctx, f)
	if err != nil {
		return nil, eris.Wrapf(err, "decode %s", path)
	}
	return orgs, nil
}
