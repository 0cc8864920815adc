// Package sqlstore persists cases, appeals, issued documents and registry
// records in PostgreSQL or MySQL through database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/models"
	"docverify/internal/store"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  logger.Logger
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB, dialect Dialect, log logger.Logger) *Store {
	return &Store{db: db, dialect: dialect, logger: log}
}

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewDatabaseError("migrate", err)
		}
	}
	s.logger.Info("schema ready", map[string]interface{}{"dialect": s.dialect.Name})
	return nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError("begin", err)
	}

	if err := fn(&queries{q: sqlTx, d: s.dialect}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", map[string]interface{}{"error": rbErr.Error()})
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return apperrors.NewDatabaseError("commit", err)
	}
	return nil
}

func (s *Store) read() *queries {
	return &queries{q: s.db, d: s.dialect}
}

func (s *Store) GetCase(ctx context.Context, id string) (*models.Case, error) {
	return s.read().GetCase(ctx, id)
}

func (s *Store) ListCases(ctx context.Context, f models.CaseFilter, p models.Page) ([]*models.Case, int, error) {
	return s.read().ListCases(ctx, f, p)
}

func (s *Store) CountAhead(ctx context.Context, documentType string, createdAt time.Time) (int, error) {
	return s.read().CountAhead(ctx, documentType, createdAt)
}

func (s *Store) GetIssuedDocument(ctx context.Context, caseID string) (*models.IssuedDocument, error) {
	return s.read().GetIssuedDocument(ctx, caseID)
}

func (s *Store) GetAppeal(ctx context.Context, id string) (*models.Appeal, error) {
	return s.read().GetAppeal(ctx, id)
}

func (s *Store) ListAppeals(ctx context.Context, f models.AppealFilter, p models.Page) ([]*models.Appeal, int, error) {
	return s.read().ListAppeals(ctx, f, p)
}

func (s *Store) CountAppealsByStatus(ctx context.Context) (map[models.AppealStatus]int, error) {
	return s.read().CountAppealsByStatus(ctx)
}

func (s *Store) FindRecord(ctx context.Context, citizenID, documentType string) (*models.RegistryRecord, error) {
	return s.read().FindRecord(ctx, citizenID, documentType)
}

// queries implements store.Tx over either a pool or a transaction.
type queries struct {
	q querier
	d Dialect
}

func (x *queries) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return x.q.ExecContext(ctx, x.d.Rebind(query), args...)
}

func (x *queries) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return x.q.QueryContext(ctx, x.d.Rebind(query), args...)
}

func (x *queries) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return x.q.QueryRowContext(ctx, x.d.Rebind(query), args...)
}

// isDuplicateKey reports a primary or unique key violation from either driver.
func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

func (x *queries) count(ctx context.Context, op, query string, args ...interface{}) (int, error) {
	var n int
	if err := x.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperrors.NewDatabaseError(op, err)
	}
	return n, nil
}

// where joins conditions with AND. An empty list yields an empty clause.
func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	clause := " WHERE " + conds[0]
	for _, c := range conds[1:] {
		clause += " AND " + c
	}
	return clause
}

func pageArgs(args []interface{}, p models.Page) (string, []interface{}) {
	p = p.Normalize()
	return " LIMIT ? OFFSET ?", append(args, p.PerPage, p.Offset())
}

func affectedOne(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewDatabaseError(op, err)
	}
	if n > 1 {
		return false, apperrors.NewDatabaseError(op, fmt.Errorf("%d rows affected", n))
	}
	return n == 1, nil
}
