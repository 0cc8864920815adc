package main

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"docverify/internal/common/logger"
	"docverify/internal/common/storage"
	"docverify/internal/models"
	"docverify/internal/store"
)

// SeedFile is the YAML document the seeder reads. SourceFile paths are
// relative to the seed file.
type SeedFile struct {
	Records []SeedRecord `yaml:"records"`
}

type SeedRecord struct {
	models.RegistryRecord `yaml:",inline"`
	SourceFile            string `yaml:"source_file"`
}

// Invalidator drops cached registry lookups.
type Invalidator interface {
	Invalidate(ctx context.Context, citizenID, documentType string) error
}

type Seeder struct {
	store  store.Store
	blobs  storage.BlobStore
	bucket string
	cache  Invalidator
	logger logger.Logger
}

func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f SeedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, r := range f.Records {
		if r.ID == "" || r.CitizenID == "" || r.DocumentType == "" {
			return nil, fmt.Errorf("record %d: id, citizen_id and document_type are required", i)
		}
	}
	return &f, nil
}

// Seed uploads each record's source file, upserts all records in one
// transaction and then invalidates their cache entries.
func (s *Seeder) Seed(ctx context.Context, baseDir string, f *SeedFile) (int, error) {
	records := make([]*models.RegistryRecord, 0, len(f.Records))
	for _, r := range f.Records {
		rec := r.RegistryRecord
		if rec.IssuedDate.IsZero() {
			rec.IssuedDate = time.Now().UTC()
		}
		if r.SourceFile != "" {
			key, err := s.upload(ctx, baseDir, &rec, r.SourceFile)
			if err != nil {
				return 0, err
			}
			rec.SourceFileRef = key
		}
		records = append(records, &rec)
	}

	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		for _, rec := range records {
			if err := tx.UpsertRecord(ctx, rec); err != nil {
				return fmt.Errorf("record %s: %w", rec.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, rec := range records {
		if s.cache == nil {
			break
		}
		if err := s.cache.Invalidate(ctx, rec.CitizenID, rec.DocumentType); err != nil {
			s.logger.Warn("cache invalidation failed", map[string]interface{}{
				"citizenId": rec.CitizenID, "documentType": rec.DocumentType, "error": err.Error(),
			})
		}
	}
	return len(records), nil
}

func (s *Seeder) upload(ctx context.Context, baseDir string, rec *models.RegistryRecord, file string) (string, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(baseDir, file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("record %s: %w", rec.ID, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	key := fmt.Sprintf("%s/%s/%s", rec.CitizenID, rec.DocumentType, filepath.Base(file))
	if err := s.blobs.Put(ctx, s.bucket, key, data, contentType); err != nil {
		return "", fmt.Errorf("record %s: %w", rec.ID, err)
	}
	s.logger.Debug("uploaded registry source", map[string]interface{}{"bucket": s.bucket, "key": key})
	return key, nil
}
