package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/models"
	"docverify/internal/store"
)

var created = time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

var caseCols = []string{
	"id", "kind", "citizen_name", "citizen_id", "citizen_email", "citizen_phone", "document_type", "description",
	"status", "stage", "priority", "verdict", "confidence", "registry_match", "registry_boosted", "feedback",
	"local_feedback", "officer_id", "officer_notes", "documents", "verdicts", "version", "created_at", "updated_at",
}

func caseRow(rows *sqlmock.Rows, id string, status models.CaseStatus, version int64) *sqlmock.Rows {
	return rows.AddRow(
		id, "application", "JOHN DOE", "1199", "john@example.com", "", "passport", "",
		string(status), "local", "normal", "authentic", 87.5, false, false, "AI Processing complete",
		"", "", "", `[{"id":"DOC-1","filename":"front.png","storageKey":"APP/DOC-1.png","verdict":"authentic"}]`, `[]`,
		version, created, created,
	)
}

func setup(t *testing.T, d Dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, d, logger.NewTestLogger(t)), mock
}

// ==========================
// Dialect
// ==========================

func TestRebind(t *testing.T) {
	q := "SELECT * FROM cases WHERE a = ? AND b = '?' AND c IN (?, ?)"

	assert.Equal(t, "SELECT * FROM cases WHERE a = $1 AND b = '?' AND c IN ($2, $3)", Postgres.Rebind(q))
	assert.Equal(t, q, MySQL.Rebind(q))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("mysql")
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name)

	_, err = DialectFor("sqlite")
	assert.Error(t, err)
}

// ==========================
// Cases
// ==========================

func TestGetCase(t *testing.T) {
	s, mock := setup(t, Postgres)

	mock.ExpectQuery(`SELECT id, kind, .* FROM cases WHERE id = \$1`).
		WithArgs("APP-2026-ABC").
		WillReturnRows(caseRow(sqlmock.NewRows(caseCols), "APP-2026-ABC", models.StatusPending, 2))

	c, err := s.GetCase(context.Background(), "APP-2026-ABC")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, int64(2), c.Version)
	require.Len(t, c.Documents, 1)
	assert.Equal(t, "APP/DOC-1.png", c.Documents[0].StorageKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCase_NotFound(t *testing.T) {
	s, mock := setup(t, MySQL)

	mock.ExpectQuery(`SELECT id, kind, .* FROM cases WHERE id = \?`).
		WithArgs("APP-2026-XXX").
		WillReturnRows(sqlmock.NewRows(caseCols))

	_, err := s.GetCase(context.Background(), "APP-2026-XXX")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCases_FilterAndPage(t *testing.T) {
	s, mock := setup(t, Postgres)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM cases WHERE document_type = \$1 AND status = \$2`).
		WithArgs("passport", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`SELECT .* FROM cases WHERE document_type = \$1 AND status = \$2 ORDER BY created_at DESC, id DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("passport", "pending", 5, 5).
		WillReturnRows(caseRow(sqlmock.NewRows(caseCols), "APP-2026-001", models.StatusPending, 1))

	cases, total, err := s.ListCases(context.Background(),
		models.CaseFilter{DocumentType: "passport", Status: models.StatusPending},
		models.Page{Number: 2, PerPage: 5})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Len(t, cases, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAhead(t *testing.T) {
	s, mock := setup(t, MySQL)
	at := created.Add(time.Hour)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM cases WHERE document_type = \? AND status = \? AND created_at < \?`).
		WithArgs("passport", "pending", at).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := s.CountAhead(context.Background(), "passport", at)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCase_BumpsVersion(t *testing.T) {
	s, mock := setup(t, MySQL)
	c := &models.Case{ID: "APP-2026-ABC", Status: models.StatusUnderReview, Version: 3, UpdatedAt: created}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE cases SET status = \?, .* WHERE id = \? AND version = \?`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.UpdateCase(context.Background(), c)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), c.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCase_StaleVersion(t *testing.T) {
	s, mock := setup(t, Postgres)
	c := &models.Case{ID: "APP-2026-ABC", Status: models.StatusRejected, Version: 2}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE cases SET .* WHERE id = \$15 AND version = \$16`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM cases WHERE id = \$1`).
		WithArgs("APP-2026-ABC").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(3))
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.UpdateCase(context.Background(), c)
	})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_ApprovalRollsBackWhenIssuanceFails(t *testing.T) {
	s, mock := setup(t, Postgres)
	c := &models.Case{ID: "APP-2026-ABC", Status: models.StatusApproved, Version: 1}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE cases SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO issued_documents`).WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	ctx := context.Background()
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.UpdateCase(ctx, c); err != nil {
			return err
		}
		return tx.InsertIssuedDocument(ctx, &models.IssuedDocument{ID: "ISSUED-1", CaseID: c.ID, IssuedAt: created})
	})
	assert.True(t, errors.Is(err, apperrors.ErrDatabase))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCase(t *testing.T) {
	s, mock := setup(t, Postgres)
	c := &models.Case{
		ID: "APP-2026-ABC", Kind: models.KindApplication, DocumentType: "passport",
		Status: models.StatusPending, Stage: models.StageLocal, Priority: models.PriorityNormal,
		CreatedAt: created, UpdatedAt: created,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO cases \(id, kind, .*\) VALUES \(\$1, .* \$24\)`).
		WithArgs("APP-2026-ABC", "application", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"passport", sqlmock.AnyArg(), "pending", "local", "normal", sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"[]", "[]", int64(1), created, created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertCase(context.Background(), c)
	}))
	assert.Equal(t, int64(1), c.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCase_DuplicateID(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
	}{
		{name: "postgres unique violation", dialect: Postgres, err: &pq.Error{Code: "23505"}},
		{name: "mysql duplicate entry", dialect: MySQL, err: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := setup(t, tt.dialect)
			mock.ExpectBegin()
			mock.ExpectExec(`INSERT INTO cases`).WillReturnError(tt.err)
			mock.ExpectRollback()

			err := s.WithinTx(context.Background(), func(tx store.Tx) error {
				return tx.InsertCase(context.Background(), &models.Case{ID: "APP-2026-ABC", CreatedAt: created, UpdatedAt: created})
			})
			assert.True(t, errors.Is(err, apperrors.ErrDuplicate))
			assert.False(t, errors.Is(err, apperrors.ErrInvalidInput))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	s, mock := setup(t, MySQL)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO cases`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()
	err := s.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertCase(context.Background(), &models.Case{ID: "APP-2026-ABC"})
	})
	assert.True(t, errors.Is(err, apperrors.ErrDatabase))
}

func TestGetIssuedDocument(t *testing.T) {
	s, mock := setup(t, Postgres)

	mock.ExpectQuery(`SELECT id, case_id, .* FROM issued_documents WHERE case_id = \$1`).
		WithArgs("APP-2026-ABC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "case_id", "officer_id", "notes", "status", "download_locator", "verification_id", "issued_at"}).
			AddRow("ISSUED-1", "APP-2026-ABC", "OFF-7", "", "approved", "downloads/APP-2026-ABC/ISSUED-1", "VER-0123456789AB", created))

	d, err := s.GetIssuedDocument(context.Background(), "APP-2026-ABC")
	require.NoError(t, err)
	assert.Equal(t, "VER-0123456789AB", d.VerificationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Appeals
// ==========================

func TestCountAppealsByStatus(t *testing.T) {
	s, mock := setup(t, MySQL)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM appeals GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 4).
			AddRow("approved", 1))

	counts, err := s.CountAppealsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[models.AppealPending])
	assert.Equal(t, 1, counts[models.AppealApproved])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAppeal_NotFound(t *testing.T) {
	s, mock := setup(t, Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM appeals WHERE id = \$1`).
		WithArgs("APPEAL-404").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.DeleteAppeal(context.Background(), "APPEAL-404")
	})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppeals(t *testing.T) {
	s, mock := setup(t, Postgres)
	cols := []string{"id", "case_id", "citizen_id", "reason", "status", "notes", "reviewed_by", "reevaluation_verdict", "version", "created_at", "updated_at"}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appeals WHERE citizen_id = \$1`).
		WithArgs("1199").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .* FROM appeals WHERE citizen_id = \$1 ORDER BY created_at DESC, id DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("1199", 10, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("APPEAL-1", "APP-2026-ABC", "1199", "photo was blurry", "pending", "", "", "", 1, created, created))

	appeals, total, err := s.ListAppeals(context.Background(), models.AppealFilter{CitizenID: "1199"}, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, appeals, 1)
	assert.Equal(t, "photo was blurry", appeals[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Registry
// ==========================

func TestFindRecord(t *testing.T) {
	s, mock := setup(t, Postgres)
	cols := []string{"id", "citizen_id", "document_type", "issued_date", "source_file_ref", "metadata"}

	mock.ExpectQuery(`SELECT .* FROM registry_records WHERE citizen_id = \$1 AND document_type = \$2`).
		WithArgs("1199", "passport").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("REG-1", "1199", "passport", created, "passport/1199.pdf", `{"office":"Kigali"}`))
	mock.ExpectQuery(`SELECT .* FROM registry_records`).
		WithArgs("1199", "birth_certificate").
		WillReturnError(sql.ErrNoRows)

	rec, err := s.FindRecord(context.Background(), "1199", "passport")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Kigali", rec.Metadata["office"])

	rec, err = s.FindRecord(context.Background(), "1199", "birth_certificate")
	assert.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRecord_DialectSpecific(t *testing.T) {
	tests := []struct {
		dialect Dialect
		pattern string
	}{
		{Postgres, `INSERT INTO registry_records .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\) ON CONFLICT \(citizen_id, document_type\) DO UPDATE`},
		{MySQL, `INSERT INTO registry_records .* VALUES \(\?, \?, \?, \?, \?, \?\) ON DUPLICATE KEY UPDATE`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name, func(t *testing.T) {
			s, mock := setup(t, tt.dialect)
			mock.ExpectBegin()
			mock.ExpectExec(tt.pattern).
				WithArgs("REG-1", "1199", "passport", created, "", "{}").
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()

			err := s.WithinTx(context.Background(), func(tx store.Tx) error {
				return tx.UpsertRecord(context.Background(), &models.RegistryRecord{
					ID: "REG-1", CitizenID: "1199", DocumentType: "passport", IssuedDate: created,
				})
			})
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMigrate(t *testing.T) {
	s, mock := setup(t, MySQL)
	for range mysqlSchema {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
