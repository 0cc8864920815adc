// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top,
// expands ${VAR} placeholders and applies defaults.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // environment overlay is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory to the go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are conventionally supplied through
// plain environment variables rather than the YAML tree.
func overrideEmptyConfig(cfg *Config) {
	overrides := []struct {
		target *string
		env    string
	}{
		{&cfg.Database.Postgres.User, "DB_USER"},
		{&cfg.Database.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Database.MySQL.User, "MYSQL_USER"},
		{&cfg.Database.MySQL.Password, "MYSQL_PASSWORD"},
		{&cfg.Storage.AccessKeyID, "MINIO_ACCESS_KEY"},
		{&cfg.Storage.SecretAccessKey, "MINIO_SECRET_KEY"},
		{&cfg.Engine.ManifestPath, "MODEL_MANIFEST_PATH"},
	}
	for _, o := range overrides {
		if *o.target == "" {
			if val := os.Getenv(o.env); val != "" {
				*o.target = val
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "docverify-workers"
	}
	if cfg.App.ActivityRegistryPath == "" {
		cfg.App.ActivityRegistryPath = "configs/activity-registry.json"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.MySQL.Port == 0 {
		cfg.Database.MySQL.Port = 3306
	}
	if cfg.Database.MySQL.MaxConnections == 0 {
		cfg.Database.MySQL.MaxConnections = 25
	}
	if cfg.Database.MySQL.MaxIdle == 0 {
		cfg.Database.MySQL.MaxIdle = 5
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.CaseIndex == "" {
		cfg.Database.Elasticsearch.CaseIndex = "cases"
	}

	if cfg.Database.Redis.PoolSize == 0 {
		cfg.Database.Redis.PoolSize = 10
	}
	if cfg.Database.Redis.MinIdleConns == 0 {
		cfg.Database.Redis.MinIdleConns = 2
	}

	if cfg.Storage.DocumentsBucket == "" {
		cfg.Storage.DocumentsBucket = "documents"
	}
	if cfg.Storage.RegistryBucket == "" {
		cfg.Storage.RegistryBucket = "registry"
	}
	if cfg.Storage.DownloadsBucket == "" {
		cfg.Storage.DownloadsBucket = "downloads"
	}

	if cfg.Engine.ConfidenceThreshold == 0 {
		cfg.Engine.ConfidenceThreshold = 0.84
	}
	if cfg.Engine.TargetSize == 0 {
		cfg.Engine.TargetSize = 224
	}
	if cfg.Engine.MaxFileSizeMB == 0 {
		cfg.Engine.MaxFileSizeMB = 10
	}
	if cfg.Engine.MaxMegapixels == 0 {
		cfg.Engine.MaxMegapixels = 50
	}

	if cfg.OCR.FullName == "" {
		cfg.OCR.FullName = "JOHN DOE"
	}
	if cfg.OCR.IDNumber == "" {
		cfg.OCR.IDNumber = "ID-884-221"
	}
	if cfg.OCR.ExpiryDate == "" {
		cfg.OCR.ExpiryDate = "2029-12-31"
	}

	if cfg.Registry.CacheTTL == 0 {
		cfg.Registry.CacheTTL = 600
	}

	if cfg.Certificate.Width == 0 {
		cfg.Certificate.Width = 1200
	}
	if cfg.Certificate.Height == 0 {
		cfg.Certificate.Height = 800
	}
	if cfg.Certificate.FontSize == 0 {
		cfg.Certificate.FontSize = 28
	}
	if cfg.Certificate.Issuer == "" {
		cfg.Certificate.Issuer = "Civil Registration Office"
	}

	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "us-east-1"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	switch cfg.Database.Driver {
	case DriverPostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case DriverMySQL:
		if cfg.Database.MySQL.Host == "" {
			return fmt.Errorf("database.mysql.host is required")
		}
		if cfg.Database.MySQL.Database == "" {
			return fmt.Errorf("database.mysql.database is required")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverMySQL, cfg.Database.Driver)
	}

	if cfg.Database.Elasticsearch.Enabled && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required when enabled")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Storage.Endpoint == "" {
		return fmt.Errorf("storage.endpoint is required")
	}
	if cfg.Engine.ConfidenceThreshold <= 0 || cfg.Engine.ConfidenceThreshold > 1 {
		return fmt.Errorf("engine.confidence_threshold must be in (0, 1], got %v", cfg.Engine.ConfidenceThreshold)
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
