package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/google/uuid"
)

// Errors
var (
	// ErrWriterFailed wraps every filesystem or encoding failure. Once a
	// writer has failed it rejects further calls with the same error.
	ErrWriterFailed = errors.New("writer failed")
	ErrClosed       = errors.New("writer closed")
)

// Metadata keys stored in every file footer.
const (
	MetaVenue   = "recorder.venue"
	MetaTable   = "recorder.table"
	MetaRunID   = "recorder.run_id"
	MetaSeq     = "recorder.seq"
	MetaVersion = "recorder.version"
)

// Config holds writer configuration. A zero threshold disables that
// rotation trigger.
type Config struct {
	Directory   string // Root output directory
	Venue       string // Subdirectory under Directory
	Clean       bool   // Delete the table directory before the first file
	Compression string // none, snappy, gzip, brotli, zstd (default)

	// MaxFileBytes is checked after each row-group against bytes flushed
	// to disk. The last column chunk of a row-group may still be buffered,
	// so a file can exceed the bound by up to one row-group plus footer.
	MaxFileBytes int64
	MaxRowGroups int
	MaxRecords   int64
	MaxFileAge   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Directory:    "data",
		Compression:  "zstd",
		MaxFileBytes: 256 << 20,
		MaxFileAge:   time.Hour,
	}
}

// ParseCompression maps a config name to a parquet codec.
func ParseCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "zstd":
		return compress.Codecs.Zstd, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, fmt.Errorf("unknown compression %q", name)
}

// FileInfo describes a finalized file.
type FileInfo struct {
	Path      string    `json:"path"`
	Venue     string    `json:"venue"`
	Table     string    `json:"table"`
	RunID     uuid.UUID `json:"run_id"`
	Seq       int       `json:"seq"`
	Records   int64     `json:"records"`
	RowGroups int       `json:"row_groups"`
	Bytes     int64     `json:"bytes"`
	OpenedAt  time.Time `json:"opened_at"`
	ClosedAt  time.Time `json:"closed_at"`
}

// FileObserver is told about every finalized file. Errors are logged; the
// file on disk is already complete.
type FileObserver interface {
	FileClosed(ctx context.Context, info FileInfo) error
}

// FileObserverFunc is a function adapter for FileObserver.
type FileObserverFunc func(context.Context, FileInfo) error

func (f FileObserverFunc) FileClosed(ctx context.Context, info FileInfo) error {
	return f(ctx, info)
}

// Metrics tracks writer statistics.
type Metrics struct {
	FilesOpened int64
	FilesClosed int64
	RowGroups   int64
	Records     int64
	Bytes       int64
	Failures    int64
}
