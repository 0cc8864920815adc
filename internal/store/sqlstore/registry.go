package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/models"
)

func (x *queries) FindRecord(ctx context.Context, citizenID, documentType string) (*models.RegistryRecord, error) {
	var (
		r        models.RegistryRecord
		metadata string
	)
	err := x.queryRow(ctx, `SELECT id, citizen_id, document_type, issued_date, source_file_ref, metadata
FROM registry_records WHERE citizen_id = ? AND document_type = ?`, citizenID, documentType).
		Scan(&r.ID, &r.CitizenID, &r.DocumentType, &r.IssuedDate, &r.SourceFileRef, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("find registry record", err)
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &r.Metadata); err != nil {
			return nil, apperrors.NewDatabaseError("decode registry metadata", err)
		}
	}
	return &r, nil
}

func (x *queries) UpsertRecord(ctx context.Context, r *models.RegistryRecord) error {
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return apperrors.NewDatabaseError("encode registry metadata", err)
	}
	_, err = x.exec(ctx, x.d.upsertRecord,
		r.ID, r.CitizenID, r.DocumentType, r.IssuedDate, r.SourceFileRef, string(encoded))
	if err != nil {
		return apperrors.NewDatabaseError("upsert registry record", err)
	}
	return nil
}
