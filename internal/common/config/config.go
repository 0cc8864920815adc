// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Storage       StorageConfig           `mapstructure:"storage"`
	Engine        EngineConfig            `mapstructure:"engine"`
	OCR           OCRConfig               `mapstructure:"ocr"`
	Registry      RegistryConfig          `mapstructure:"registry"`
	Certificate   CertificateConfig       `mapstructure:"certificate"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Server        ServerConfig            `mapstructure:"server"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name                 string `mapstructure:"name"`
	Version              string `mapstructure:"version"`
	Environment          string `mapstructure:"environment"`
	ActivityRegistryPath string `mapstructure:"activity_registry_path"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	UseTLS         bool   `mapstructure:"use_tls"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// DatabaseConfig selects one relational backend via Driver ("postgres" or "mysql").
type DatabaseConfig struct {
	Driver        string              `mapstructure:"driver"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	MySQL         MySQLConfig         `mapstructure:"mysql"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type MySQLConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
}

type ElasticsearchConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"`
	CaseIndex  string   `mapstructure:"case_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// RedisConfig backs the registry match cache.
type RedisConfig struct {
	Address      string `mapstructure:"address"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// StorageConfig points at the S3-compatible object store holding retained
// uploads, registry source files and generated downloads.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	DocumentsBucket string `mapstructure:"documents_bucket"`
	RegistryBucket  string `mapstructure:"registry_bucket"`
	DownloadsBucket string `mapstructure:"downloads_bucket"`
}

type EngineConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	TargetSize          int     `mapstructure:"target_size"`
	ManifestPath        string  `mapstructure:"manifest_path"`
	MaxFileSizeMB       int     `mapstructure:"max_file_size_mb"`
	MaxMegapixels       int     `mapstructure:"max_megapixels"`
}

// MaxFileSizeBytes converts the configured limit to bytes.
func (e EngineConfig) MaxFileSizeBytes() int64 {
	return int64(e.MaxFileSizeMB) * 1024 * 1024
}

// MaxPixels converts the configured decode cap to pixels.
func (e EngineConfig) MaxPixels() int {
	return e.MaxMegapixels * 1_000_000
}

// OCRConfig holds the identity fields returned by the static extractor and
// the defaults used when a citizen declares none.
type OCRConfig struct {
	FullName   string `mapstructure:"full_name"`
	IDNumber   string `mapstructure:"id_number"`
	ExpiryDate string `mapstructure:"expiry_date"`
}

type RegistryConfig struct {
	CacheTTL int `mapstructure:"cache_ttl"` // seconds
}

type CertificateConfig struct {
	Width    int    `mapstructure:"width"`
	Height   int    `mapstructure:"height"`
	FontPath string `mapstructure:"font_path"`
	FontSize int    `mapstructure:"font_size"`
	Issuer   string `mapstructure:"issuer"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// NotificationConfig holds settings for the send-decision-notification worker.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
