// Package store defines the persistence boundary for cases, appeals, issued
// documents and registry records. Implementations live in sqlstore
// (postgres, mysql) and memory.
package store

import (
	"context"
	"time"

	"docverify/internal/models"
)

// Reader is the read side shared by Store and Tx. Lookups of a missing id
// return an error matching errors.ErrNotFound.
type Reader interface {
	GetCase(ctx context.Context, id string) (*models.Case, error)
	ListCases(ctx context.Context, filter models.CaseFilter, page models.Page) ([]*models.Case, int, error)
	// CountAhead counts pending cases of documentType created strictly before createdAt.
	CountAhead(ctx context.Context, documentType string, createdAt time.Time) (int, error)
	GetIssuedDocument(ctx context.Context, caseID string) (*models.IssuedDocument, error)

	GetAppeal(ctx context.Context, id string) (*models.Appeal, error)
	ListAppeals(ctx context.Context, filter models.AppealFilter, page models.Page) ([]*models.Appeal, int, error)
	CountAppealsByStatus(ctx context.Context) (map[models.AppealStatus]int, error)

	// FindRecord returns nil, nil when no registry record exists.
	FindRecord(ctx context.Context, citizenID, documentType string) (*models.RegistryRecord, error)
}

// Tx is a unit of work. UpdateCase and UpdateAppeal compare the Version
// field; a stale one fails with errors.ErrConflict and the stored version is
// bumped on success.
type Tx interface {
	Reader

	InsertCase(ctx context.Context, c *models.Case) error
	UpdateCase(ctx context.Context, c *models.Case) error
	InsertIssuedDocument(ctx context.Context, d *models.IssuedDocument) error

	InsertAppeal(ctx context.Context, a *models.Appeal) error
	UpdateAppeal(ctx context.Context, a *models.Appeal) error
	DeleteAppeal(ctx context.Context, id string) error

	UpsertRecord(ctx context.Context, r *models.RegistryRecord) error
}

// Store commits everything fn did, or nothing if fn returns an error.
type Store interface {
	Reader
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}
