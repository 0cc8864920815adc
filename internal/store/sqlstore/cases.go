package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/models"
)

const caseColumns = `id, kind, citizen_name, citizen_id, citizen_email, citizen_phone, document_type, description,
status, stage, priority, verdict, confidence, registry_match, registry_boosted, feedback, local_feedback,
officer_id, officer_notes, documents, verdicts, version, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCase(row scanner) (*models.Case, error) {
	var (
		c                   models.Case
		documents, verdicts string
	)
	err := row.Scan(
		&c.ID, &c.Kind, &c.Citizen.FullName, &c.Citizen.IDNumber, &c.Citizen.Email, &c.Citizen.Phone,
		&c.DocumentType, &c.Description, &c.Status, &c.Stage, &c.Priority, &c.Verdict, &c.Confidence,
		&c.RegistryMatch, &c.RegistryBoosted, &c.Feedback, &c.LocalFeedback, &c.OfficerID, &c.OfficerNotes,
		&documents, &verdicts, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(documents), &c.Documents); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(verdicts), &c.Verdicts); err != nil {
		return nil, err
	}
	return &c, nil
}

func caseJSON(c *models.Case) (string, string, error) {
	docs := c.Documents
	if docs == nil {
		docs = []models.DocumentDescriptor{}
	}
	vs := c.Verdicts
	if vs == nil {
		vs = []models.VerdictRecord{}
	}
	d, err := json.Marshal(docs)
	if err != nil {
		return "", "", err
	}
	v, err := json.Marshal(vs)
	if err != nil {
		return "", "", err
	}
	return string(d), string(v), nil
}

func (x *queries) GetCase(ctx context.Context, id string) (*models.Case, error) {
	row := x.queryRow(ctx, "SELECT "+caseColumns+" FROM cases WHERE id = ?", id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("case", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get case", err)
	}
	return c, nil
}

func (x *queries) ListCases(ctx context.Context, f models.CaseFilter, p models.Page) ([]*models.Case, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.CitizenID != "" {
		conds = append(conds, "citizen_id = ?")
		args = append(args, f.CitizenID)
	}
	if f.DocumentType != "" {
		conds = append(conds, "document_type = ?")
		args = append(args, f.DocumentType)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	clause := where(conds)

	total, err := x.count(ctx, "count cases", "SELECT COUNT(*) FROM cases"+clause, args...)
	if err != nil {
		return nil, 0, err
	}

	limit, pargs := pageArgs(append([]interface{}(nil), args...), p)
	rows, err := x.query(ctx, "SELECT "+caseColumns+" FROM cases"+clause+" ORDER BY created_at DESC, id DESC"+limit, pargs...)
	if err != nil {
		return nil, 0, apperrors.NewDatabaseError("list cases", err)
	}
	defer rows.Close()

	out := []*models.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, apperrors.NewDatabaseError("scan case", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewDatabaseError("list cases", err)
	}
	return out, total, nil
}

func (x *queries) CountAhead(ctx context.Context, documentType string, createdAt time.Time) (int, error) {
	return x.count(ctx, "count queue",
		"SELECT COUNT(*) FROM cases WHERE document_type = ? AND status = ? AND created_at < ?",
		documentType, models.StatusPending, createdAt)
}

func (x *queries) InsertCase(ctx context.Context, c *models.Case) error {
	docs, verdicts, err := caseJSON(c)
	if err != nil {
		return apperrors.NewDatabaseError("encode case", err)
	}
	c.Version = 1
	_, err = x.exec(ctx, "INSERT INTO cases ("+caseColumns+`) VALUES
(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Kind, c.Citizen.FullName, c.Citizen.IDNumber, c.Citizen.Email, c.Citizen.Phone,
		c.DocumentType, c.Description, c.Status, c.Stage, c.Priority, c.Verdict, c.Confidence,
		c.RegistryMatch, c.RegistryBoosted, c.Feedback, c.LocalFeedback, c.OfficerID, c.OfficerNotes,
		docs, verdicts, c.Version, c.CreatedAt, c.UpdatedAt,
	)
	if isDuplicateKey(err) {
		return apperrors.NewDuplicateError("case", c.ID)
	}
	if err != nil {
		return apperrors.NewDatabaseError("insert case", err)
	}
	return nil
}

func (x *queries) UpdateCase(ctx context.Context, c *models.Case) error {
	docs, verdicts, err := caseJSON(c)
	if err != nil {
		return apperrors.NewDatabaseError("encode case", err)
	}
	res, err := x.exec(ctx, `UPDATE cases SET status = ?, stage = ?, priority = ?, verdict = ?, confidence = ?,
registry_match = ?, registry_boosted = ?, feedback = ?, local_feedback = ?, officer_id = ?, officer_notes = ?,
documents = ?, verdicts = ?, version = version + 1, updated_at = ?
WHERE id = ? AND version = ?`,
		c.Status, c.Stage, c.Priority, c.Verdict, c.Confidence,
		c.RegistryMatch, c.RegistryBoosted, c.Feedback, c.LocalFeedback, c.OfficerID, c.OfficerNotes,
		docs, verdicts, c.UpdatedAt,
		c.ID, c.Version,
	)
	if err != nil {
		return apperrors.NewDatabaseError("update case", err)
	}
	ok, err := affectedOne(res, "update case")
	if err != nil {
		return err
	}
	if !ok {
		return x.missingOrStale(ctx, "cases", "case", c.ID, c.Version)
	}
	c.Version++
	return nil
}

// missingOrStale tells a vanished row from a version mismatch after an
// update touched nothing.
func (x *queries) missingOrStale(ctx context.Context, table, kind, id string, version int64) error {
	var current int64
	err := x.queryRow(ctx, "SELECT version FROM "+table+" WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(kind, id)
	}
	if err != nil {
		return apperrors.NewDatabaseError("check version", err)
	}
	return apperrors.NewConflictError(id, version)
}

func (x *queries) GetIssuedDocument(ctx context.Context, caseID string) (*models.IssuedDocument, error) {
	var d models.IssuedDocument
	err := x.queryRow(ctx, `SELECT id, case_id, officer_id, notes, status, download_locator, verification_id, issued_at
FROM issued_documents WHERE case_id = ?`, caseID).
		Scan(&d.ID, &d.CaseID, &d.OfficerID, &d.Notes, &d.Status, &d.DownloadLocator, &d.VerificationID, &d.IssuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("issued document", caseID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get issued document", err)
	}
	return &d, nil
}

func (x *queries) InsertIssuedDocument(ctx context.Context, d *models.IssuedDocument) error {
	_, err := x.exec(ctx, `INSERT INTO issued_documents (id, case_id, officer_id, notes, status, download_locator, verification_id, issued_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CaseID, d.OfficerID, d.Notes, d.Status, d.DownloadLocator, d.VerificationID, d.IssuedAt)
	if err != nil {
		return apperrors.NewDatabaseError("insert issued document", err)
	}
	return nil
}
