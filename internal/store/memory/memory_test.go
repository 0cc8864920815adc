package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/models"
	"docverify/internal/store"
)

var t0 = time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

func seedCase(id, docType string, status models.CaseStatus, created time.Time) *models.Case {
	return &models.Case{
		ID:           id,
		Kind:         models.KindApplication,
		Citizen:      models.Citizen{FullName: "JOHN DOE", IDNumber: "1199"},
		DocumentType: docType,
		Status:       status,
		Stage:        models.StageLocal,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func insert(t *testing.T, s *Store, cases ...*models.Case) {
	t.Helper()
	require.NoError(t, s.WithinTx(context.Background(), func(tx store.Tx) error {
		for _, c := range cases {
			if err := tx.InsertCase(context.Background(), c); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	insert(t, s, seedCase("APP-2026-001", "passport", models.StatusPending, t0))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		c, err := tx.GetCase(ctx, "APP-2026-001")
		require.NoError(t, err)
		c.Status = models.StatusApproved
		require.NoError(t, tx.UpdateCase(ctx, c))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetCase(ctx, "APP-2026-001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, int64(1), got.Version)
}

func TestUpdateCase_StaleVersionConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()
	insert(t, s, seedCase("APP-2026-001", "passport", models.StatusPending, t0))

	stale, _ := s.GetCase(ctx, "APP-2026-001")

	require.NoError(t, s.WithinTx(ctx, func(tx store.Tx) error {
		c, _ := tx.GetCase(ctx, "APP-2026-001")
		c.Feedback = "first"
		return tx.UpdateCase(ctx, c)
	}))

	err := s.WithinTx(ctx, func(tx store.Tx) error {
		stale.Feedback = "second"
		return tx.UpdateCase(ctx, stale)
	})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	got, _ := s.GetCase(ctx, "APP-2026-001")
	assert.Equal(t, "first", got.Feedback)
	assert.Equal(t, int64(2), got.Version)
}

func TestListCases_FilterAndPaginate(t *testing.T) {
	s := New()
	insert(t, s,
		seedCase("APP-2026-001", "passport", models.StatusPending, t0),
		seedCase("APP-2026-002", "passport", models.StatusApproved, t0.Add(time.Hour)),
		seedCase("APP-2026-003", "birth_certificate", models.StatusPending, t0.Add(2*time.Hour)),
	)
	ctx := context.Background()

	all, total, err := s.ListCases(ctx, models.CaseFilter{}, models.Page{Number: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 2)
	assert.Equal(t, "APP-2026-003", all[0].ID)

	pending, total, err := s.ListCases(ctx, models.CaseFilter{Status: models.StatusPending}, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, pending, 2)

	beyond, total, err := s.ListCases(ctx, models.CaseFilter{}, models.Page{Number: 5, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, beyond)
}

func TestCountAhead_OnlyPendingSameType(t *testing.T) {
	s := New()
	insert(t, s,
		seedCase("A", "passport", models.StatusPending, t0),
		seedCase("B", "passport", models.StatusRejected, t0.Add(time.Minute)),
		seedCase("C", "birth_certificate", models.StatusPending, t0.Add(2*time.Minute)),
		seedCase("D", "passport", models.StatusUnderReview, t0.Add(3*time.Minute)),
		seedCase("E", "passport", models.StatusPendingIrembo, t0.Add(4*time.Minute)),
		seedCase("F", "passport", models.StatusPending, t0.Add(5*time.Minute)),
		seedCase("G", "passport", models.StatusPending, t0.Add(2*time.Hour)),
	)

	n, err := s.CountAhead(context.Background(), "passport", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountAhead(context.Background(), "passport", t0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInsertCase_DuplicateID(t *testing.T) {
	s := New()
	insert(t, s, seedCase("APP-2026-001", "passport", models.StatusPending, t0))

	err := s.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertCase(context.Background(), seedCase("APP-2026-001", "birth_certificate", models.StatusPending, t0))
	})
	assert.True(t, errors.Is(err, apperrors.ErrDuplicate))
	assert.False(t, errors.Is(err, apperrors.ErrInvalidInput))

	got, err := s.GetCase(context.Background(), "APP-2026-001")
	require.NoError(t, err)
	assert.Equal(t, "passport", got.DocumentType)
}

func TestFailOn_InjectsDatabaseError(t *testing.T) {
	s := New()
	s.FailOn("InsertIssuedDocument", errors.New("disk full"))

	err := s.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertIssuedDocument(context.Background(), &models.IssuedDocument{ID: "ISSUED-1", CaseID: "A"})
	})
	assert.True(t, errors.Is(err, apperrors.ErrDatabase))

	s.FailOn("InsertIssuedDocument", nil)
	_, err = s.GetIssuedDocument(context.Background(), "A")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestAppeals(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.WithinTx(ctx, func(tx store.Tx) error {
		for i, st := range []models.AppealStatus{models.AppealPending, models.AppealApproved, models.AppealPending} {
			a := &models.Appeal{
				ID: []string{"APPEAL-1", "APPEAL-2", "APPEAL-3"}[i], CaseID: "A", CitizenID: "1199",
				Status: st, CreatedAt: t0.Add(time.Duration(i) * time.Minute),
			}
			if err := tx.InsertAppeal(ctx, a); err != nil {
				return err
			}
		}
		return nil
	}))

	counts, err := s.CountAppealsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.AppealPending])
	assert.Equal(t, 1, counts[models.AppealApproved])

	list, total, err := s.ListAppeals(ctx, models.AppealFilter{Status: models.AppealPending}, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "APPEAL-3", list[0].ID)

	require.NoError(t, s.WithinTx(ctx, func(tx store.Tx) error { return tx.DeleteAppeal(ctx, "APPEAL-1") }))
	_, err = s.GetAppeal(ctx, "APPEAL-1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestFindRecord(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.WithinTx(ctx, func(tx store.Tx) error {
		return tx.UpsertRecord(ctx, &models.RegistryRecord{ID: "REG-1", CitizenID: "1199", DocumentType: "passport"})
	}))

	rec, err := s.FindRecord(ctx, "1199", "passport")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "REG-1", rec.ID)

	rec, err = s.FindRecord(ctx, "1199", "birth_certificate")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}
