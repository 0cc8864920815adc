package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/common/logger"
	"docverify/internal/common/storage/storagetest"
	"docverify/internal/registry"
	"docverify/internal/store/memory"
)

const seedYAML = `records:
  - id: REG-001
    citizen_id: "1199080012345678"
    document_type: birth_certificate
    issued_date: 2001-04-12T00:00:00Z
    source_file: scans/birth.png
    metadata:
      district: Gasabo
  - id: REG-002
    citizen_id: "1199080012345678"
    document_type: national_id
`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scans"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scans", "birth.png"), []byte("\x89PNG\r\n\x1a\nfake"), 0o644))
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// ==========================
// Seed File
// ==========================

func TestLoadSeedFile(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		wantLen int
	}{
		{name: "valid", body: seedYAML, wantLen: 2},
		{name: "missing citizen", body: "records:\n  - id: REG-9\n    document_type: passport\n", wantErr: true},
		{name: "malformed", body: "records: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := LoadSeedFile(writeSeed(t, tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, f.Records, tt.wantLen)
			assert.Equal(t, "Gasabo", f.Records[0].Metadata["district"])
			assert.Equal(t, 2001, f.Records[0].IssuedDate.Year())
		})
	}
}

// ==========================
// Seeding
// ==========================

func TestSeeder_Seed(t *testing.T) {
	ctx := context.Background()
	path := writeSeed(t, seedYAML)
	f, err := LoadSeedFile(path)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := memory.New()
	blobs := storagetest.New()
	log := logger.NewTestLogger(t)
	matcher := registry.NewMatcher(st, client, time.Hour, log)

	// A miss before seeding is cached and must be dropped by the seeder.
	require.False(t, matcher.Match(ctx, "1199080012345678", "birth_certificate").Matched)

	s := &Seeder{store: st, blobs: blobs, bucket: "registry", cache: matcher, logger: log}
	n, err := s.Seed(ctx, filepath.Dir(path), f)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res := matcher.Match(ctx, "1199080012345678", "birth_certificate")
	require.True(t, res.Matched)
	assert.Equal(t, "1199080012345678/birth_certificate/birth.png", res.Record.SourceFileRef)

	data, err := blobs.Get(ctx, "registry", res.Record.SourceFileRef)
	require.NoError(t, err)
	assert.Contains(t, string(data), "PNG")

	rec, err := st.FindRecord(ctx, "1199080012345678", "national_id")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.IssuedDate.IsZero())
	assert.Empty(t, rec.SourceFileRef)
}

func TestSeeder_MissingSourceFileWritesNothing(t *testing.T) {
	ctx := context.Background()
	path := writeSeed(t, `records:
  - id: REG-003
    citizen_id: "1199"
    document_type: passport
    source_file: missing.pdf
`)
	f, err := LoadSeedFile(path)
	require.NoError(t, err)

	st := memory.New()
	s := &Seeder{store: st, blobs: storagetest.New(), bucket: "registry", logger: logger.NewTestLogger(t)}
	_, err = s.Seed(ctx, filepath.Dir(path), f)
	require.Error(t, err)

	rec, err := st.FindRecord(ctx, "1199", "passport")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
