package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    port: 5432
    database: docverify
    user: docverify
  redis:
    address: localhost:6379
storage:
  endpoint: localhost:9000
workers:
  submit-documents:
    enabled: true
`

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 0.84, cfg.Engine.ConfidenceThreshold)
	assert.Equal(t, 224, cfg.Engine.TargetSize)
	assert.Equal(t, int64(10*1024*1024), cfg.Engine.MaxFileSizeBytes())
	assert.Equal(t, 50_000_000, cfg.Engine.MaxPixels())
	assert.Equal(t, "JOHN DOE", cfg.OCR.FullName)
	assert.Equal(t, "ID-884-221", cfg.OCR.IDNumber)
	assert.Equal(t, "documents", cfg.Storage.DocumentsBucket)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)

	w := cfg.Workers["submit-documents"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_MINIO_ENDPOINT", "minio.internal:9000")
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
engine:
  manifest_path: ${TEST_MINIO_ENDPOINT}/ignored
`))
	require.NoError(t, err)
	assert.Equal(t, "minio.internal:9000/ignored", cfg.Engine.ManifestPath)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "database:\n  postgres:\n    host: db\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "unknown driver",
			body: `
camunda:
  broker_address: zeebe:26500
database:
  driver: sqlite
`,
			wantErr: "database.driver must be",
		},
		{
			name: "mysql without host",
			body: `
camunda:
  broker_address: zeebe:26500
database:
  driver: mysql
`,
			wantErr: "database.mysql.host is required",
		},
		{
			name: "threshold out of range",
			body: minimalConfig + `
engine:
  confidence_threshold: 1.5
`,
			wantErr: "engine.confidence_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"update-case": {Enabled: false}}}

	assert.False(t, IsWorkerEnabled(cfg, "update-case"))
	assert.True(t, IsWorkerEnabled(cfg, "list-cases"))
	assert.Equal(t, 5, GetWorkerConfig(cfg, "list-cases").MaxJobsActive)
}
