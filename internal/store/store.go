// Package store persists raw and canonical organizations, projects, the
// authoritative list and reconcile runs.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

// likeEscaper escapes LIKE wildcards with a backslash.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// OrgFilter specifies criteria for listing organizations.
type OrgFilter struct {
	Year   int    `json:"year,omitempty"`
	Slug   string `json:"slug,omitempty"`
	// Query matches names containing it, ignoring case.
	Query  string `json:"q,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ProjectFilter specifies criteria for listing projects.
type ProjectFilter struct {
	OrgSlug string `json:"org_slug,omitempty"`
	Year    int    `json:"year,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface.
type Store interface {
	// Raw per-year organizations, keyed by canonical id
	UpsertOrganizations(ctx context.Context, orgs []model.Organization) (int64, error)
	ListOrganizations(ctx context.Context, filter OrgFilter) ([]model.Organization, error)

	// Canonical merged organizations, keyed by slug
	ReplaceCanonical(ctx context.Context, orgs []model.Organization) error
	ListCanonical(ctx context.Context, filter OrgFilter) ([]model.Organization, error)
	GetCanonical(ctx context.Context, slug string) (*model.Organization, error)
	SetLogo(ctx context.Context, slug, filename, url string) error

	// Projects
	UpsertProjects(ctx context.Context, projects []model.Project) (int64, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error)

	// Authoritative list
	ReplaceAuthoritative(ctx context.Context, orgs []model.AuthoritativeOrg) error
	ListAuthoritative(ctx context.Context) ([]model.AuthoritativeOrg, error)

	// Runs
	CreateRun(ctx context.Context, input model.RunInput) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultLimit = 100

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
