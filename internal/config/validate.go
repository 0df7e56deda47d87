package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rickgao/market-recorder/internal/model"
	"github.com/rickgao/market-recorder/internal/venue/coinbase"
	"github.com/rickgao/market-recorder/internal/writer"
)

// KnownTables lists the tables a recorder can write.
var KnownTables = []string{
	model.RfqMatch{}.TableName(),
	model.Ticker{}.TableName(),
	model.BookSnapshot{}.TableName(),
}

// Validate checks that all required fields are set and values are valid.
func (c *RecorderConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Output.Directory == "" {
		return errors.New("output.directory is required")
	}
	if _, err := writer.ParseCompression(c.Output.Compression); err != nil {
		return fmt.Errorf("output.compression: %w", err)
	}
	for _, table := range c.Output.Tables {
		if !slices.Contains(KnownTables, table) {
			return fmt.Errorf("output.tables: unknown table %q", table)
		}
	}

	if c.Batching.MaxRecords < 1 {
		return errors.New("batching.max_records must be >= 1")
	}
	if c.Batching.MaxAge < 0 {
		return errors.New("batching.max_age must be >= 0")
	}

	if c.Rotation.MaxFileBytes < 0 || c.Rotation.MaxRowGroups < 0 || c.Rotation.MaxRecords < 0 || c.Rotation.MaxAge < 0 {
		return errors.New("rotation bounds must be >= 0")
	}

	if len(c.Venues) == 0 {
		return errors.New("at least one venue is required")
	}
	seen := make(map[string]bool, len(c.Venues))
	for i := range c.Venues {
		prefix := fmt.Sprintf("venues[%d]", i)
		if err := c.Venues[i].validate(prefix); err != nil {
			return err
		}
		if seen[c.Venues[i].Name] {
			return fmt.Errorf("%s.name %q is duplicated", prefix, c.Venues[i].Name)
		}
		seen[c.Venues[i].Name] = true
	}

	if c.Catalog.Enabled {
		if err := c.Catalog.Database.validate("catalog.database"); err != nil {
			return err
		}
		if c.Catalog.Table == "" {
			return errors.New("catalog.table is required")
		}
	}

	if c.Notify.Enabled && c.Notify.URL == "" {
		return errors.New("notify.url is required")
	}

	if c.Health.Port < 0 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 0 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (v *VenueConfig) validate(prefix string) error {
	if v.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if v.Name != coinbase.Name {
		return fmt.Errorf("%s.name: unsupported venue %q", prefix, v.Name)
	}
	if v.WSURL == "" {
		return fmt.Errorf("%s.ws_url is required", prefix)
	}
	if len(v.Channels) == 0 {
		return fmt.Errorf("%s.channels is required", prefix)
	}
	if _, err := coinbase.NewDecoder(coinbase.Config{ProductIDs: v.ProductIDs, Channels: v.Channels}); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}

	if v.Auth.Enabled() && (v.Auth.Secret == "" || v.Auth.Passphrase == "") {
		return fmt.Errorf("%s.auth requires key, secret and passphrase", prefix)
	}

	if v.Reconnect.BaseDelay <= 0 {
		return fmt.Errorf("%s.reconnect.base_delay must be > 0", prefix)
	}
	if v.Reconnect.MaxDelay < v.Reconnect.BaseDelay {
		return fmt.Errorf("%s.reconnect.max_delay (%v) cannot be less than base_delay (%v)",
			prefix, v.Reconnect.MaxDelay, v.Reconnect.BaseDelay)
	}
	if v.Reconnect.Jitter < 0 || v.Reconnect.Jitter >= 1 {
		return fmt.Errorf("%s.reconnect.jitter must be in [0, 1)", prefix)
	}

	if v.BookPoller.Enabled {
		if len(v.ProductIDs) == 0 {
			return fmt.Errorf("%s.book_poller requires product_ids", prefix)
		}
		if v.BookPoller.Concurrency < 1 {
			return fmt.Errorf("%s.book_poller.concurrency must be >= 1", prefix)
		}
		if v.BookPoller.Interval <= 0 {
			return fmt.Errorf("%s.book_poller.interval must be > 0", prefix)
		}
		if v.RestURL == "" {
			return fmt.Errorf("%s.rest_url is required", prefix)
		}
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
