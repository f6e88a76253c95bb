package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return eris.Wrap(runMigrations(ctx, s.db, goose.DialectSQLite3, "sqlite"), "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, committing when it returns nil.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck
	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) UpsertOrganizations(ctx context.Context, orgs []model.Organization) (int64, error) {
	if len(orgs) == 0 {
		return 0, nil
	}
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO raw_organizations (canonical_id, slug, name, doc, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(canonical_id) DO UPDATE SET
				slug = excluded.slug, name = excluded.name,
				doc = excluded.doc, updated_at = excluded.updated_at`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare upsert organization")
		}
		defer stmt.Close() //nolint:errcheck

		now := time.Now().UTC()
		for i := range orgs {
			doc, err := json.Marshal(orgs[i])
			if err != nil {
				return eris.Wrapf(err, "sqlite: marshal organization %s", orgs[i].CanonicalID)
			}
			if _, err := stmt.ExecContext(ctx, orgs[i].CanonicalID, orgs[i].Slug, orgs[i].Name, string(doc), now, now); err != nil {
				return eris.Wrapf(err, "sqlite: upsert organization %s", orgs[i].CanonicalID)
			}
			n++
		}
		return nil
	})
	return n, err
}

func (s *SQLiteStore) ListOrganizations(ctx context.Context, filter OrgFilter) ([]model.Organization, error) {
	query := `SELECT doc, created_at FROM raw_organizations WHERE 1=1`
	query, args := orgFilterSQLite(query, filter)
	query += ` ORDER BY canonical_id LIMIT ? OFFSET ?`
	args = append(args, limitOr(filter.Limit, -1), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list organizations")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Organization
	for rows.Next() {
		var doc string
		var created time.Time
		if err := rows.Scan(&doc, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan organization")
		}
		org, err := decodeOrg([]byte(doc))
		if err != nil {
			return nil, err
		}
		org.CreatedAt = model.NewTimestamp(created)
		out = append(out, *org)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list organizations iterate")
}

func orgFilterSQLite(query string, filter OrgFilter) (string, []any) {
	var args []any
	if filter.Slug != "" {
		query += ` AND slug = ?`
		args = append(args, filter.Slug)
	}
	if filter.Year > 0 {
		query += ` AND EXISTS (SELECT 1 FROM json_each(doc, '$.years_appeared') WHERE value = ?)`
		args = append(args, filter.Year)
	}
	if filter.Query != "" {
		query += ` AND name LIKE ? ESCAPE '\'`
		args = append(args, "%"+likeEscaper.Replace(filter.Query)+"%")
	}
	return query, args
}

func (s *SQLiteStore) ReplaceCanonical(ctx context.Context, orgs []model.Organization) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM canonical_organizations`); err != nil {
			return eris.Wrap(err, "sqlite: clear canonical organizations")
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO canonical_organizations (slug, name, doc, updated_at) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare insert canonical")
		}
		defer stmt.Close() //nolint:errcheck

		now := time.Now().UTC()
		for i := range orgs {
			doc, err := json.Marshal(orgs[i])
			if err != nil {
				return eris.Wrapf(err, "sqlite: marshal canonical %s", orgs[i].Slug)
			}
			if _, err := stmt.ExecContext(ctx, orgs[i].Slug, orgs[i].Name, string(doc), now); err != nil {
				return eris.Wrapf(err, "sqlite: insert canonical %s", orgs[i].Slug)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) ListCanonical(ctx context.Context, filter OrgFilter) ([]model.Organization, error) {
	query := `SELECT doc FROM canonical_organizations WHERE 1=1`
	query, args := orgFilterSQLite(query, filter)
	query += ` ORDER BY name COLLATE NOCASE LIMIT ? OFFSET ?`
	args = append(args, limitOr(filter.Limit, -1), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list canonical")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Organization
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan canonical")
		}
		org, err := decodeOrg([]byte(doc))
		if err != nil {
			return nil, err
		}
		out = append(out, *org)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list canonical iterate")
}

func (s *SQLiteStore) GetCanonical(ctx context.Context, slug string) (*model.Organization, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM canonical_organizations WHERE slug = ?`, slug).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: canonical %s", slug)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get canonical %s", slug)
	}
	return decodeOrg([]byte(doc))
}

func (s *SQLiteStore) SetLogo(ctx context.Context, slug, filename, url string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE canonical_organizations SET doc = json_set(doc, '$.logo_local_filename', ?, '$.logo_r2_url', ?), updated_at = ? WHERE slug = ?`,
		filename, url, time.Now().UTC(), slug,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set logo %s", slug)
	}
	return checkRowsAffected(res, "canonical organization", slug)
}

func (s *SQLiteStore) UpsertProjects(ctx context.Context, projects []model.Project) (int64, error) {
	if len(projects) == 0 {
		return 0, nil
	}
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO projects (project_id, org_canonical_id, org_slug, year, doc)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(project_id) DO UPDATE SET
				org_canonical_id = excluded.org_canonical_id, org_slug = excluded.org_slug,
				year = excluded.year, doc = excluded.doc`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare upsert project")
		}
		defer stmt.Close() //nolint:errcheck

		for i := range projects {
			p := &projects[i]
			doc, err := json.Marshal(p)
			if err != nil {
				return eris.Wrapf(err, "sqlite: marshal project %s", p.ProjectID)
			}
			if _, err := stmt.ExecContext(ctx, p.ProjectID, p.OrgCanonicalID, p.OrgSlug, p.Year, string(doc)); err != nil {
				return eris.Wrapf(err, "sqlite: upsert project %s", p.ProjectID)
			}
			n++
		}
		return nil
	})
	return n, err
}

func (s *SQLiteStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error) {
	query := `SELECT doc FROM projects WHERE 1=1`
	var args []any
	if filter.OrgSlug != "" {
		query += ` AND org_slug = ?`
		args = append(args, filter.OrgSlug)
	}
	if filter.Year > 0 {
		query += ` AND year = ?`
		args = append(args, filter.Year)
	}
	query += ` ORDER BY year, project_id LIMIT ?`
	args = append(args, limitOr(filter.Limit, -1))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list projects")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Project
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project")
		}
		var p model.Project
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal project")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list projects iterate")
}

func (s *SQLiteStore) ReplaceAuthoritative(ctx context.Context, orgs []model.AuthoritativeOrg) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM authoritative_organizations`); err != nil {
			return eris.Wrap(err, "sqlite: clear authoritative")
		}
		for i := range orgs {
			doc, err := json.Marshal(orgs[i])
			if err != nil {
				return eris.Wrapf(err, "sqlite: marshal authoritative %s", orgs[i].Name)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO authoritative_organizations (name, doc) VALUES (?, ?)
				 ON CONFLICT(name) DO UPDATE SET doc = excluded.doc`,
				orgs[i].Name, string(doc),
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert authoritative %s", orgs[i].Name)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) ListAuthoritative(ctx context.Context) ([]model.AuthoritativeOrg, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM authoritative_organizations ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list authoritative")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.AuthoritativeOrg
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan authoritative")
		}
		var a model.AuthoritativeOrg
		if err := json.Unmarshal([]byte(doc), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal authoritative")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list authoritative iterate")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, input model.RunInput) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal run input")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(inputJSON), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Input:     input,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, status, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, input, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limitOr(filter.Limit, defaultLimit), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, runID, name, string(model.PhaseStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert phase for run %s", runID)
	}

	return &model.RunPhase{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal phase result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE run_phases SET status = ?, result = ? WHERE id = ?`,
		string(result.Status), string(resultJSON), phaseID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete phase %s", phaseID)
	}
	return checkRowsAffected(res, "phase", phaseID)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func decodeOrg(doc []byte) (*model.Organization, error) {
	var org model.Organization
	if err := json.Unmarshal(doc, &org); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal organization")
	}
	return &org, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var inputJSON string
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &inputJSON, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "sqlite: get run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(inputJSON), &r.Input); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal run input")
	}
	if resultJSON.Valid {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}
