package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/models"
)

const appealColumns = `id, case_id, citizen_id, reason, status, notes, reviewed_by, reevaluation_verdict, version, created_at, updated_at`

func scanAppeal(row scanner) (*models.Appeal, error) {
	var a models.Appeal
	err := row.Scan(&a.ID, &a.CaseID, &a.CitizenID, &a.Reason, &a.Status, &a.Notes, &a.ReviewedBy,
		&a.ReevaluationVerdict, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (x *queries) GetAppeal(ctx context.Context, id string) (*models.Appeal, error) {
	a, err := scanAppeal(x.queryRow(ctx, "SELECT "+appealColumns+" FROM appeals WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("appeal", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get appeal", err)
	}
	return a, nil
}

func (x *queries) ListAppeals(ctx context.Context, f models.AppealFilter, p models.Page) ([]*models.Appeal, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.CitizenID != "" {
		conds = append(conds, "citizen_id = ?")
		args = append(args, f.CitizenID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	clause := where(conds)

	total, err := x.count(ctx, "count appeals", "SELECT COUNT(*) FROM appeals"+clause, args...)
	if err != nil {
		return nil, 0, err
	}

	limit, pargs := pageArgs(append([]interface{}(nil), args...), p)
	rows, err := x.query(ctx, "SELECT "+appealColumns+" FROM appeals"+clause+" ORDER BY created_at DESC, id DESC"+limit, pargs...)
	if err != nil {
		return nil, 0, apperrors.NewDatabaseError("list appeals", err)
	}
	defer rows.Close()

	out := []*models.Appeal{}
	for rows.Next() {
		a, err := scanAppeal(rows)
		if err != nil {
			return nil, 0, apperrors.NewDatabaseError("scan appeal", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewDatabaseError("list appeals", err)
	}
	return out, total, nil
}

func (x *queries) CountAppealsByStatus(ctx context.Context) (map[models.AppealStatus]int, error) {
	rows, err := x.query(ctx, "SELECT status, COUNT(*) FROM appeals GROUP BY status")
	if err != nil {
		return nil, apperrors.NewDatabaseError("count appeals", err)
	}
	defer rows.Close()

	counts := map[models.AppealStatus]int{}
	for rows.Next() {
		var (
			status models.AppealStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperrors.NewDatabaseError("count appeals", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("count appeals", err)
	}
	return counts, nil
}

func (x *queries) InsertAppeal(ctx context.Context, a *models.Appeal) error {
	a.Version = 1
	_, err := x.exec(ctx, "INSERT INTO appeals ("+appealColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		a.ID, a.CaseID, a.CitizenID, a.Reason, a.Status, a.Notes, a.ReviewedBy, a.ReevaluationVerdict,
		a.Version, a.CreatedAt, a.UpdatedAt)
	if isDuplicateKey(err) {
		return apperrors.NewDuplicateError("appeal", a.ID)
	}
	if err != nil {
		return apperrors.NewDatabaseError("insert appeal", err)
	}
	return nil
}

func (x *queries) UpdateAppeal(ctx context.Context, a *models.Appeal) error {
	res, err := x.exec(ctx, `UPDATE appeals SET status = ?, notes = ?, reviewed_by = ?, reevaluation_verdict = ?,
version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		a.Status, a.Notes, a.ReviewedBy, a.ReevaluationVerdict, a.UpdatedAt, a.ID, a.Version)
	if err != nil {
		return apperrors.NewDatabaseError("update appeal", err)
	}
	ok, err := affectedOne(res, "update appeal")
	if err != nil {
		return err
	}
	if !ok {
		return x.missingOrStale(ctx, "appeals", "appeal", a.ID, a.Version)
	}
	a.Version++
	return nil
}

func (x *queries) DeleteAppeal(ctx context.Context, id string) error {
	res, err := x.exec(ctx, "DELETE FROM appeals WHERE id = ?", id)
	if err != nil {
		return apperrors.NewDatabaseError("delete appeal", err)
	}
	ok, err := affectedOne(res, "delete appeal")
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewNotFoundError("appeal", id)
	}
	return nil
}
