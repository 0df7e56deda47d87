package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
	DefaultDirectory           = "data"
	DefaultCompression         = "zstd"
	DefaultBatchMaxRecords     = 1000
	DefaultBatchMaxAge         = 5 * time.Second
	DefaultMaxFileBytes        = 256 << 20
	DefaultRotationMaxAge      = time.Hour
	DefaultVenue               = "coinbase"
	DefaultWSURL               = "wss://ws-feed.exchange.coinbase.com"
	DefaultRestURL             = "https://api.exchange.coinbase.com"
	DefaultChannel             = "rfq_matches"
	DefaultHandshakeTimeout    = 10 * time.Second
	DefaultPingInterval        = 15 * time.Second
	DefaultPingTimeout         = 60 * time.Second
	DefaultWriteTimeout        = 5 * time.Second
	DefaultSubscribeTimeout    = 10 * time.Second
	DefaultReadLimit           = 16 << 20
	DefaultBufferSize          = 4096
	DefaultReconnectBaseDelay  = 1 * time.Second
	DefaultReconnectMaxDelay   = 60 * time.Second
	DefaultReconnectJitter     = 0.2
	DefaultPollInterval        = time.Minute
	DefaultPollConcurrency     = 4
	DefaultPollTimeout         = 10 * time.Second
	DefaultAPITimeout          = 30 * time.Second
	DefaultMaxRetries          = 3
	DefaultRetryBackoff        = time.Second
	DefaultDBPort              = 5432
	DefaultDBSSLMode           = "prefer"
	DefaultMaxConns            = 4
	DefaultMinConns            = 1
	DefaultCatalogTable        = "recorder_files"
	DefaultNotifySubjectPrefix = "recorder.files"
	DefaultNotifyTimeout       = 5 * time.Second
	DefaultShutdownTimeout     = 30 * time.Second
)

func (c *RecorderConfig) applyDefaults() {
	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	// Output defaults
	if c.Output.Directory == "" {
		c.Output.Directory = DefaultDirectory
	}
	if c.Output.Compression == "" {
		c.Output.Compression = DefaultCompression
	}

	// Batching defaults
	if c.Batching.MaxRecords == 0 {
		c.Batching.MaxRecords = DefaultBatchMaxRecords
	}
	if c.Batching.MaxAge == 0 {
		c.Batching.MaxAge = DefaultBatchMaxAge
	}

	// Rotation defaults; row-group and record bounds stay off unless set.
	if c.Rotation.MaxFileBytes == 0 {
		c.Rotation.MaxFileBytes = DefaultMaxFileBytes
	}
	if c.Rotation.MaxAge == 0 {
		c.Rotation.MaxAge = DefaultRotationMaxAge
	}

	// Venue defaults
	if len(c.Venues) == 0 {
		c.Venues = []VenueConfig{{Name: DefaultVenue}}
	}
	for i := range c.Venues {
		applyVenueDefaults(&c.Venues[i])
	}

	// Catalog defaults
	applyDBDefaults(&c.Catalog.Database)
	if c.Catalog.Table == "" {
		c.Catalog.Table = DefaultCatalogTable
	}

	// Notify defaults
	if c.Notify.SubjectPrefix == "" {
		c.Notify.SubjectPrefix = DefaultNotifySubjectPrefix
	}
	if c.Notify.Name == "" {
		c.Notify.Name = c.Instance.ID
	}
	if c.Notify.Timeout == 0 {
		c.Notify.Timeout = DefaultNotifyTimeout
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyVenueDefaults(v *VenueConfig) {
	if v.WSURL == "" {
		v.WSURL = DefaultWSURL
	}
	if v.RestURL == "" {
		v.RestURL = DefaultRestURL
	}
	if len(v.Channels) == 0 {
		v.Channels = []string{DefaultChannel}
	}

	conn := &v.Connection
	if conn.HandshakeTimeout == 0 {
		conn.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if conn.PingInterval == 0 {
		conn.PingInterval = DefaultPingInterval
	}
	if conn.PingTimeout == 0 {
		conn.PingTimeout = DefaultPingTimeout
	}
	if conn.WriteTimeout == 0 {
		conn.WriteTimeout = DefaultWriteTimeout
	}
	if conn.SubscribeTimeout == 0 {
		conn.SubscribeTimeout = DefaultSubscribeTimeout
	}
	if conn.ReadLimit == 0 {
		conn.ReadLimit = DefaultReadLimit
	}
	if conn.BufferSize == 0 {
		conn.BufferSize = DefaultBufferSize
	}

	rc := &v.Reconnect
	if rc.BaseDelay == 0 {
		rc.BaseDelay = DefaultReconnectBaseDelay
	}
	if rc.MaxDelay == 0 {
		rc.MaxDelay = DefaultReconnectMaxDelay
	}
	if rc.Jitter == 0 {
		rc.Jitter = DefaultReconnectJitter
	}

	bp := &v.BookPoller
	if bp.Interval == 0 {
		bp.Interval = DefaultPollInterval
	}
	if bp.Concurrency == 0 {
		bp.Concurrency = DefaultPollConcurrency
	}
	if bp.Timeout == 0 {
		bp.Timeout = DefaultPollTimeout
	}

	if v.API.Timeout == 0 {
		v.API.Timeout = DefaultAPITimeout
	}
	if v.API.MaxRetries == 0 {
		v.API.MaxRetries = DefaultMaxRetries
	}
	if v.API.RetryBackoff == 0 {
		v.API.RetryBackoff = DefaultRetryBackoff
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
