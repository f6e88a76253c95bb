package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, input, status, result, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "input", "status", "result", "created_at", "updated_at"}).
		AddRow("run-1", []byte(`{"source":"store","raw_records":5}`), "complete", []byte(`{"stats":{"groups":3}}`), now, now)
	mock.ExpectQuery(`FROM runs WHERE id = \$1`).WithArgs("run-1").WillReturnRows(rows)

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 5, run.Input.RawRecords)
	require.NotNil(t, run.Result)
	assert.Equal(t, 3, run.Result.Stats.Groups)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), model.RunInput{Source: "file"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "file", run.Input.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("merging", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusMerging)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET result`).
		WithArgs(pgxmock.AnyArg(), "failed", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateRunResult(context.Background(), "run-1", model.RunStatusFailed, &model.RunResult{Error: "boom"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Phases(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO run_phases`).
		WithArgs(pgxmock.AnyArg(), "run-1", "1_group", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE run_phases SET status`).
		WithArgs("complete", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	phase, err := s.CreatePhase(context.Background(), "run-1", "1_group")
	require.NoError(t, err)
	require.NoError(t, s.CompletePhase(context.Background(), phase.ID, &model.PhaseResult{Status: model.PhaseStatusComplete}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertOrganizations(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_raw_organizations"}, rawOrgUpsert.Columns).WillReturnResult(2)
	mock.ExpectExec("DELETE FROM").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO "raw_organizations"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.UpsertOrganizations(context.Background(), []model.Organization{
		rawOrg(2016, "kodi", "Kodi"), rawOrg(2017, "kodi", "Kodi"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertOrganizations_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.UpsertOrganizations(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListOrganizations_YearFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"doc", "created_at"}).
		AddRow([]byte(`{"canonical_id":"2016-kodi","slug":"kodi","name":"Kodi","years_appeared":[2016]}`), now)
	mock.ExpectQuery(`FROM raw_organizations WHERE 1=1 AND doc->'years_appeared' @> to_jsonb\(\$1::int\) ORDER BY canonical_id LIMIT \$2`).
		WithArgs(2016, 10).
		WillReturnRows(rows)

	orgs, err := s.ListOrganizations(context.Background(), OrgFilter{Year: 2016, Limit: 10})
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "Kodi", orgs[0].Name)
	require.NotNil(t, orgs[0].CreatedAt)
	assert.True(t, orgs[0].CreatedAt.Equal(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceCanonical(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "canonical_organizations"`).WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCopyFrom(pgx.Identifier{"canonical_organizations"}, canonicalColumns).WillReturnResult(1)
	mock.ExpectCommit()

	err := s.ReplaceCanonical(context.Background(), []model.Organization{rawOrg(2016, "kodi", "Kodi")})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceCanonical_CopyFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "canonical_organizations"`).WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCopyFrom(pgx.Identifier{"canonical_organizations"}, canonicalColumns).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := s.ReplaceCanonical(context.Background(), []model.Organization{rawOrg(2016, "kodi", "Kodi")})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCanonical(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM canonical_organizations WHERE slug = \$1`).
		WithArgs("kodi").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow([]byte(`{"slug":"kodi","name":"Kodi","years_appeared":[2016,2017]}`)))
	mock.ExpectQuery(`SELECT doc FROM canonical_organizations WHERE slug = \$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	org, err := s.GetCanonical(context.Background(), "kodi")
	require.NoError(t, err)
	assert.Equal(t, []int{2016, 2017}, org.YearsAppeared)

	_, err = s.GetCanonical(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetLogo(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE canonical_organizations SET doc = jsonb_set`).
		WithArgs("kodi.png", "https://cdn/kodi.png", pgxmock.AnyArg(), "kodi").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE canonical_organizations SET doc = jsonb_set`).
		WithArgs("x.png", "x", pgxmock.AnyArg(), "nope").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, s.SetLogo(context.Background(), "kodi", "kodi.png", "https://cdn/kodi.png"))
	assert.True(t, errors.Is(s.SetLogo(context.Background(), "nope", "x.png", "x"), ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProjects(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM projects WHERE 1=1 AND org_slug = \$1 AND year = \$2 ORDER BY year, project_id`).
		WithArgs("kodi", 2016).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow([]byte(`{"project_id":"p1","title":"Skins","year":2016}`)))

	ps, err := s.ListProjects(context.Background(), ProjectFilter{OrgSlug: "kodi", Year: 2016})
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "Skins", ps[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceAuthoritative_Dedup(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "authoritative_organizations"`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"authoritative_organizations"}, authoritativeColumns).WillReturnResult(1)
	mock.ExpectCommit()

	err := s.ReplaceAuthoritative(context.Background(), []model.AuthoritativeOrg{{Name: "Kodi"}, {Name: "Kodi"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "input", "status", "result", "created_at", "updated_at"}).
		AddRow("r1", []byte(`{}`), "failed", []byte(nil), now, now)
	mock.ExpectQuery(`FROM runs WHERE 1=1 AND status = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("failed", defaultLimit).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MigrateNeedsPool(t *testing.T) {
	s, _ := newMockPostgresStore(t)
	assert.Error(t, s.Migrate(context.Background()))
}
