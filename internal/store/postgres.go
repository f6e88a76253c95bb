package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"

	"github.com/ketankauntia/gsoc-orgs/internal/db"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
	"github.com/ketankauntia/gsoc-orgs/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	raw     *pgxpool.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var (
	rawOrgUpsert = db.UpsertConfig{
		Table:        "raw_organizations",
		Columns:      []string{"canonical_id", "slug", "name", "doc", "created_at", "updated_at"},
		ConflictKeys: []string{"canonical_id"},
		// created_at keeps the first import time.
		UpdateCols: []string{"slug", "name", "doc", "updated_at"},
	}
	projectUpsert = db.UpsertConfig{
		Table:        "projects",
		Columns:      []string{"project_id", "org_canonical_id", "org_slug", "year", "doc"},
		ConflictKeys: []string{"project_id"},
	}
	canonicalColumns     = []string{"slug", "name", "doc", "updated_at"}
	authoritativeColumns = []string{"name", "doc"}
)

// NewPostgres creates a PostgresStore with a connection pool. The initial
// ping is retried while the database comes up.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = func(error) bool { return true }
	retry.OnRetry = resilience.RetryLogger("postgres", "ping")
	if err := resilience.Do(ctx, retry, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, raw: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if s.raw == nil {
		return eris.New("postgres: migrate requires a live pool")
	}
	conn := stdlib.OpenDBFromPool(s.raw)
	defer conn.Close() //nolint:errcheck
	return eris.Wrap(runMigrations(ctx, conn, goose.DialectPostgres, "postgres"), "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertOrganizations(ctx context.Context, orgs []model.Organization) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(orgs))
	for i := range orgs {
		doc, err := json.Marshal(orgs[i])
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal organization %s", orgs[i].CanonicalID)
		}
		rows = append(rows, []any{orgs[i].CanonicalID, orgs[i].Slug, orgs[i].Name, doc, now, now})
	}
	n, err := db.BulkUpsert(ctx, s.pool, rawOrgUpsert, rows)
	return n, eris.Wrap(err, "postgres: upsert organizations")
}

func (s *PostgresStore) ListOrganizations(ctx context.Context, filter OrgFilter) ([]model.Organization, error) {
	query, args := orgFilterPostgres(`SELECT doc, created_at FROM raw_organizations WHERE 1=1`, filter)
	query += ` ORDER BY canonical_id`
	query, args = pagePostgres(query, args, filter.Limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list organizations")
	}
	defer rows.Close()

	var out []model.Organization
	for rows.Next() {
		var doc []byte
		var created time.Time
		if err := rows.Scan(&doc, &created); err != nil {
			return nil, eris.Wrap(err, "postgres: scan organization")
		}
		org, err := decodeOrg(doc)
		if err != nil {
			return nil, err
		}
		org.CreatedAt = model.NewTimestamp(created)
		out = append(out, *org)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list organizations iterate")
}

func orgFilterPostgres(query string, filter OrgFilter) (string, []any) {
	var args []any
	if filter.Slug != "" {
		args = append(args, filter.Slug)
		query += ` AND slug = ` + placeholder(len(args))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		query += ` AND doc->'years_appeared' @> to_jsonb(` + placeholder(len(args)) + `::int)`
	}
	if filter.Query != "" {
		args = append(args, "%"+likeEscaper.Replace(filter.Query)+"%")
		query += ` AND name ILIKE ` + placeholder(len(args))
	}
	return query, args
}

func pagePostgres(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT ` + placeholder(len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += ` OFFSET ` + placeholder(len(args))
	}
	return query, args
}

func (s *PostgresStore) ReplaceCanonical(ctx context.Context, orgs []model.Organization) error {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(orgs))
	for i := range orgs {
		doc, err := json.Marshal(orgs[i])
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal canonical %s", orgs[i].Slug)
		}
		rows = append(rows, []any{orgs[i].Slug, orgs[i].Name, doc, now})
	}
	return s.replaceTable(ctx, "canonical_organizations", canonicalColumns, rows)
}

// replaceTable swaps the contents of table in one transaction.
func (s *PostgresStore) replaceTable(ctx context.Context, table string, columns []string, rows [][]any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "postgres: begin replace %s", table)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM `+pgx.Identifier{table}.Sanitize()); err != nil {
		return eris.Wrapf(err, "postgres: clear %s", table)
	}
	if _, err := db.CopyFrom(ctx, tx, table, columns, rows); err != nil {
		return eris.Wrapf(err, "postgres: replace %s", table)
	}
	return eris.Wrapf(tx.Commit(ctx), "postgres: commit replace %s", table)
}

func (s *PostgresStore) ListCanonical(ctx context.Context, filter OrgFilter) ([]model.Organization, error) {
	query, args := orgFilterPostgres(`SELECT doc FROM canonical_organizations WHERE 1=1`, filter)
	query += ` ORDER BY lower(name)`
	query, args = pagePostgres(query, args, filter.Limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list canonical")
	}
	defer rows.Close()

	var out []model.Organization
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan canonical")
		}
		org, err := decodeOrg(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *org)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list canonical iterate")
}

func (s *PostgresStore) GetCanonical(ctx context.Context, slug string) (*model.Organization, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM canonical_organizations WHERE slug = $1`, slug).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: canonical %s", slug)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get canonical %s", slug)
	}
	return decodeOrg(doc)
}

func (s *PostgresStore) SetLogo(ctx context.Context, slug, filename, url string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE canonical_organizations SET doc = jsonb_set(jsonb_set(doc, '{logo_local_filename}', to_jsonb($1::text)), '{logo_r2_url}', to_jsonb($2::text)), updated_at = $3 WHERE slug = $4`,
		filename, url, time.Now().UTC(), slug,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set logo %s", slug)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "canonical organization %s", slug)
	}
	return nil
}

func (s *PostgresStore) UpsertProjects(ctx context.Context, projects []model.Project) (int64, error) {
	rows := make([][]any, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		doc, err := json.Marshal(p)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal project %s", p.ProjectID)
		}
		rows = append(rows, []any{p.ProjectID, p.OrgCanonicalID, p.OrgSlug, p.Year, doc})
	}
	n, err := db.BulkUpsert(ctx, s.pool, projectUpsert, rows)
	return n, eris.Wrap(err, "postgres: upsert projects")
}

func (s *PostgresStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error) {
	query := `SELECT doc FROM projects WHERE 1=1`
	var args []any
	if filter.OrgSlug != "" {
		args = append(args, filter.OrgSlug)
		query += ` AND org_slug = ` + placeholder(len(args))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		query += ` AND year = ` + placeholder(len(args))
	}
	query += ` ORDER BY year, project_id`
	query, args = pagePostgres(query, args, filter.Limit, 0)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list projects")
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan project")
		}
		var p model.Project
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal project")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list projects iterate")
}

func (s *PostgresStore) ReplaceAuthoritative(ctx context.Context, orgs []model.AuthoritativeOrg) error {
	seen := make(map[string]bool, len(orgs))
	rows := make([][]any, 0, len(orgs))
	for i := range orgs {
		if seen[orgs[i].Name] {
			continue
		}
		seen[orgs[i].Name] = true
		doc, err := json.Marshal(orgs[i])
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal authoritative %s", orgs[i].Name)
		}
		rows = append(rows, []any{orgs[i].Name, doc})
	}
	return s.replaceTable(ctx, "authoritative_organizations", authoritativeColumns, rows)
}

func (s *PostgresStore) ListAuthoritative(ctx context.Context) ([]model.AuthoritativeOrg, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM authoritative_organizations ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list authoritative")
	}
	defer rows.Close()

	var out []model.AuthoritativeOrg
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan authoritative")
		}
		var a model.AuthoritativeOrg
		if err := json.Unmarshal(doc, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal authoritative")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list authoritative iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context, input model.RunInput) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal run input")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, input, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, inputJSON, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Input:     input,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, input, status, result, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	return r, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, input, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = ` + placeholder(len(args))
	}
	query += ` ORDER BY created_at DESC`
	query, args = pagePostgres(query, args, limitOr(filter.Limit, defaultLimit), filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, runID, name, string(model.PhaseStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert phase for run %s", runID)
	}

	return &model.RunPhase{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal phase result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE run_phases SET status = $1, result = $2 WHERE id = $3`,
		string(result.Status), resultJSON, phaseID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete phase %s", phaseID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "phase %s", phaseID)
	}
	return nil
}

func scanPgRun(row scannable) (*model.Run, error) {
	var r model.Run
	var inputJSON, resultJSON []byte
	var status string

	if err := row.Scan(&r.ID, &inputJSON, &status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Status = model.RunStatus(status)

	if err := json.Unmarshal(inputJSON, &r.Input); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal run input")
	}
	if len(resultJSON) > 0 {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
