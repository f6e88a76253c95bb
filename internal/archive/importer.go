package archive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

// Sink receives imported records. store.Store satisfies it.
type Sink interface {
	UpsertOrganizations(ctx context.Context, orgs []model.Organization) (int64, error)
	UpsertProjects(ctx context.Context, projects []model.Project) (int64, error)
}

// ImporterOptions tunes an Importer.
type ImporterOptions struct {
	// Concurrency bounds in-flight detail requests. Default: 4.
	Concurrency int
	// Now stamps created_at/updated_at. Default: time.Now.
	Now func() time.Time
}

// Importer scrapes program years into a Sink.
type Importer struct {
	client Client
	sink   Sink
	opts   ImporterOptions
}

// YearResult summarizes one imported program year.
type YearResult struct {
	Year          int    `json:"year"`
	Current       bool   `json:"current"`
	Organizations int    `json:"organizations"`
	Projects      int    `json:"projects"`
	DetailMisses  int    `json:"detail_misses"`
	Error         string `json:"error,omitempty"`
}

// NewImporter creates an Importer.
func NewImporter(client Client, sink Sink, opts ImporterOptions) *Importer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Importer{client: client, sink: sink, opts: opts}
}

// ImportYears imports each year in order. A year whose list cannot be
// fetched is recorded and skipped; only cancellation stops the loop.
func (im *Importer) ImportYears(ctx context.Context, years []int) ([]YearResult, error) {
	results := make([]YearResult, 0, len(years))
	for _, y := range years {
		res, err := im.ImportYear(ctx, y)
		if ctx.Err() != nil {
			return results, eris.Wrap(ctx.Err(), "archive: import cancelled")
		}
		if err != nil {
			zap.L().Error("year import failed", zap.Int("year", y), zap.Error(err))
			res = &YearResult{Year: y, Error: err.Error()}
		}
		results = append(results, *res)
	}
	return results, nil
}

// ImportYear fetches every organization of a program year, maps it to a
// raw record and writes organizations and projects to the sink.
func (im *Importer) ImportYear(ctx context.Context, year int) (*YearResult, error) {
	listed, current, err := im.client.ListOrganizations(ctx, year)
	if err != nil {
		return nil, err
	}
	zap.L().Info("importing organizations",
		zap.Int("year", year),
		zap.Int("count", len(listed)),
		zap.Bool("current", current),
	)

	now := im.opts.Now().UTC()
	orgs := make([]model.Organization, len(listed))
	projectsByOrg := make([][]model.Project, len(listed))
	var mu sync.Mutex
	misses := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.opts.Concurrency)
	for i, entry := range listed {
		g.Go(func() error {
			detail, projects, missed := im.fetchOrg(gctx, year, entry, current)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if missed {
				mu.Lock()
				misses++
				mu.Unlock()
			}
			source := im.client.DetailURL(year, entry.Slug, current)
			orgs[i] = ToOrganization(detail, year, source, len(projects), now)
			projectsByOrg[i] = ToProjects(detail, year, projects)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "archive: import %d", year)
	}

	var projects []model.Project
	for _, ps := range projectsByOrg {
		projects = append(projects, ps...)
	}

	if _, err := im.sink.UpsertOrganizations(ctx, orgs); err != nil {
		return nil, eris.Wrapf(err, "archive: store organizations %d", year)
	}
	if _, err := im.sink.UpsertProjects(ctx, projects); err != nil {
		return nil, eris.Wrapf(err, "archive: store projects %d", year)
	}

	res := &YearResult{
		Year:          year,
		Current:       current,
		Organizations: len(orgs),
		Projects:      len(projects),
		DetailMisses:  misses,
	}
	zap.L().Info("year imported",
		zap.Int("year", year),
		zap.Int("organizations", res.Organizations),
		zap.Int("projects", res.Projects),
		zap.Int("detail_misses", misses),
	)
	return res, nil
}

// fetchOrg loads the detail and projects of one listed organization. A
// failed detail request falls back to the list entry; failed project
// requests yield no projects.
func (im *Importer) fetchOrg(ctx context.Context, year int, entry APIOrg, current bool) (APIOrg, []APIProject, bool) {
	detail := entry
	missed := false
	d, err := im.client.GetOrganization(ctx, year, entry.Slug, current)
	if err != nil {
		missed = true
		zap.L().Warn("organization detail failed, using list entry",
			zap.String("slug", entry.Slug), zap.Int("year", year), zap.Error(err))
	} else {
		detail = *d
	}
	if detail.Slug == "" {
		detail.Slug = entry.Slug
	}

	if !current {
		return detail, detail.Projects, missed
	}
	projects, err := im.client.ListProjects(ctx, year, entry.Slug)
	if err != nil {
		zap.L().Warn("project list failed",
			zap.String("slug", entry.Slug), zap.Int("year", year), zap.Error(err))
		return detail, nil, missed
	}
	return detail, projects, missed
}

// String implements fmt.Stringer for log output.
func (r YearResult) String() string {
	if r.Error != "" {
		return fmt.Sprintf("%d: failed: %s", r.Year, r.Error)
	}
	return fmt.Sprintf("%d: %d organizations, %d projects", r.Year, r.Organizations, r.Projects)
}
