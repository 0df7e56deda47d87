// Package config loads the recorder's YAML configuration.
package config

import "time"

// RecorderConfig is the root configuration.
type RecorderConfig struct {
	Instance        InstanceConfig `yaml:"instance"`
	Logging         LoggingConfig  `yaml:"logging"`
	Output          OutputConfig   `yaml:"output"`
	Batching        BatchingConfig `yaml:"batching"`
	Rotation        RotationConfig `yaml:"rotation"`
	Venues          []VenueConfig  `yaml:"venues"`
	Catalog         CatalogConfig  `yaml:"catalog"`
	Notify          NotifyConfig   `yaml:"notify"`
	Health          HealthConfig   `yaml:"health"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"`
}

// InstanceConfig identifies this recorder.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// OutputConfig controls where and how files are written.
type OutputConfig struct {
	Directory   string   `yaml:"directory"`
	Clean       bool     `yaml:"clean"`  // delete existing venue output at start
	Tables      []string `yaml:"tables"` // empty records every table
	Compression string   `yaml:"compression"`
}

// BatchingConfig bounds a batch before it is written as a row-group.
type BatchingConfig struct {
	MaxRecords int           `yaml:"max_records"`
	MaxAge     time.Duration `yaml:"max_age"`
}

// RotationConfig bounds a file. Zero disables a bound.
type RotationConfig struct {
	MaxFileBytes int64         `yaml:"max_file_bytes"`
	MaxRowGroups int           `yaml:"max_row_groups"`
	MaxRecords   int64         `yaml:"max_records"`
	MaxAge       time.Duration `yaml:"max_age"`
}

// VenueConfig configures one venue pipeline.
type VenueConfig struct {
	Name       string           `yaml:"name"`
	WSURL      string           `yaml:"ws_url"`
	RestURL    string           `yaml:"rest_url"`
	Channels   []string         `yaml:"channels"`
	ProductIDs []string         `yaml:"product_ids"`
	Auth       AuthConfig       `yaml:"auth"`
	Connection ConnectionConfig `yaml:"connection"`
	Reconnect  ReconnectConfig  `yaml:"reconnect"`
	BookPoller BookPollerConfig `yaml:"book_poller"`
	API        VenueAPIConfig   `yaml:"api"`
}

// AuthConfig holds optional API credentials.
type AuthConfig struct {
	Key        string `yaml:"key"`
	Secret     string `yaml:"secret"`
	Passphrase string `yaml:"passphrase"`
}

// Enabled reports whether credentials are configured.
func (a AuthConfig) Enabled() bool { return a.Key != "" }

// ConnectionConfig holds WebSocket timings.
type ConnectionConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	SubscribeTimeout time.Duration `yaml:"subscribe_timeout"`
	ReadLimit        int64         `yaml:"read_limit"`
	BufferSize       int           `yaml:"buffer_size"`
}

// ReconnectConfig holds reconnect backoff settings.
type ReconnectConfig struct {
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
	Jitter    float64       `yaml:"jitter"`
}

// BookPollerConfig configures REST book snapshots.
type BookPollerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// VenueAPIConfig configures the REST client.
type VenueAPIConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
	CheckProducts bool          `yaml:"check_products"` // warn about unknown product ids at start
}

// CatalogConfig configures the Postgres file catalog.
type CatalogConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Database DBConfig `yaml:"database"`
	Table    string   `yaml:"table"`
}

// DBConfig holds connection settings for a single database.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// NotifyConfig configures NATS publication of finalized files.
type NotifyConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	Name          string        `yaml:"name"`
	Timeout       time.Duration `yaml:"timeout"`
}

// HealthConfig configures the health endpoint. Port 0 disables it.
type HealthConfig struct {
	Port int `yaml:"port"`
}
