package writer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/google/uuid"

	"github.com/rickgao/market-recorder/internal/persist"
	"github.com/rickgao/market-recorder/internal/version"
)

// Writer appends batches of T as row-groups to a sequence of Parquet files
// under <Directory>/<Venue>/<table>/.
//
// A Writer is owned by one goroutine. It does no locking and must not be
// shared between concurrent callers.
type Writer[T any] struct {
	cfg    Config
	codec  *persist.Codec[T]
	logger *slog.Logger

	dir       string
	table     string
	runID     uuid.UUID
	codecType compress.Compression
	mem       memory.Allocator
	now       func() time.Time
	observers []FileObserver

	cur     *openFile
	nextSeq int
	err     error
	closed  bool

	metrics Metrics
}

// Option configures a Writer.
type Option func(*options)

type options struct {
	runID     uuid.UUID
	mem       memory.Allocator
	now       func() time.Time
	observers []FileObserver
}

// WithRunID sets the run id stored in file metadata.
func WithRunID(id uuid.UUID) Option {
	return func(o *options) { o.runID = id }
}

// WithAllocator sets the Arrow allocator used for encoding.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithObserver registers a FileObserver.
func WithObserver(obs FileObserver) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// New creates a Writer for the codec's table. No file is created until the
// first Submit.
func New[T any](cfg Config, codec *persist.Codec[T], logger *slog.Logger, opts ...Option) (*Writer[T], error) {
	if logger == nil {
		logger = slog.Default()
	}

	o := options{
		runID: uuid.New(),
		mem:   memory.DefaultAllocator,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	codecType, err := ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	table := codec.Schema().Name()
	dir := filepath.Join(cfg.Directory, cfg.Venue, table)

	if cfg.Clean {
		logger.Warn("deleting existing output", "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("clean output dir: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	seq, err := nextSeq(dir)
	if err != nil {
		return nil, err
	}

	return &Writer[T]{
		cfg:       cfg,
		codec:     codec,
		logger:    logger.With("table", table),
		dir:       dir,
		table:     table,
		runID:     o.runID,
		codecType: codecType,
		mem:       o.mem,
		now:       o.now,
		observers: o.observers,
		nextSeq:   seq,
	}, nil
}

// Table returns the table name.
func (w *Writer[T]) Table() string { return w.table }

// Dir returns the directory files are written to.
func (w *Writer[T]) Dir() string { return w.dir }

// Err returns the error that failed the writer, if any.
func (w *Writer[T]) Err() error { return w.err }

// Stats returns current metrics.
func (w *Writer[T]) Stats() Metrics { return w.metrics }

// Submit writes batch as one row-group. The writer takes ownership of the
// slice. An empty batch is a no-op.
func (w *Writer[T]) Submit(ctx context.Context, batch []T) error {
	if err := w.usable(); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	if w.cur == nil {
		if err := w.open(); err != nil {
			return w.fail(err)
		}
	}

	if err := w.writeRowGroup(batch); err != nil {
		return w.fail(err)
	}

	if w.rotationDue(w.now()) {
		return w.finalize(ctx)
	}
	return nil
}

// RotateIfDue closes the open file when it has been open for MaxFileAge.
func (w *Writer[T]) RotateIfDue(ctx context.Context, now time.Time) error {
	if err := w.usable(); err != nil {
		return err
	}
	if w.cur == nil || w.cfg.MaxFileAge <= 0 {
		return nil
	}
	if now.Sub(w.cur.openedAt) < w.cfg.MaxFileAge {
		return nil
	}
	return w.finalize(ctx)
}

// Close finalizes the open file. Calling Close again is a no-op.
func (w *Writer[T]) Close(ctx context.Context) error {
	if w.closed {
		return nil
	}
	if w.err != nil {
		w.closed = true
		return w.err
	}
	err := w.finalize(ctx)
	w.closed = true
	if err != nil {
		return err
	}
	w.logger.Info("writer closed",
		"files", w.metrics.FilesClosed,
		"records", w.metrics.Records,
		"bytes", w.metrics.Bytes,
	)
	return nil
}

func (w *Writer[T]) usable() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrClosed
	}
	return nil
}

func (w *Writer[T]) open() error {
	file, seq, err := createPartial(w.dir, w.nextSeq)
	if err != nil {
		return err
	}
	w.nextSeq = seq + 1

	schema := w.codec.Schema().WithMetadata(
		[]string{MetaVenue, MetaTable, MetaRunID, MetaSeq, MetaVersion},
		[]string{w.cfg.Venue, w.table, w.runID.String(), strconv.Itoa(seq), version.Version},
	)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(w.codecType),
		parquet.WithCompressionLevel(1),
		parquet.WithCreatedBy(version.CreatedBy()),
		parquet.WithAllocator(w.mem),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
		pqarrow.WithAllocator(w.mem),
	)

	counter := &countingWriter{w: file}
	fw, err := pqarrow.NewFileWriter(schema, counter, props, arrowProps)
	if err != nil {
		file.Close()
		return fmt.Errorf("create parquet writer: %w", err)
	}

	final := filepath.Join(w.dir, FileName(seq))
	w.cur = &openFile{
		seq:      seq,
		path:     final,
		partial:  final + partialExt,
		file:     file,
		counter:  counter,
		fw:       fw,
		schema:   schema,
		openedAt: w.now(),
	}
	w.metrics.FilesOpened++

	w.logger.Debug("file opened", "path", w.cur.partial, "seq", seq)
	return nil
}

func (w *Writer[T]) writeRowGroup(batch []T) error {
	f := w.cur
	cols := w.codec.Encode(w.mem, batch)
	rec := array.NewRecord(f.schema, cols, int64(len(batch)))
	for _, c := range cols {
		c.Release()
	}
	defer rec.Release()

	before := f.counter.n
	if err := f.fw.Write(rec); err != nil {
		return fmt.Errorf("write row group: %w", err)
	}

	f.records += int64(len(batch))
	f.rowGroups++
	w.metrics.Records += int64(len(batch))
	w.metrics.RowGroups++
	w.metrics.Bytes += f.counter.n - before
	return nil
}

func (w *Writer[T]) rotationDue(now time.Time) bool {
	f := w.cur
	switch {
	case w.cfg.MaxRecords > 0 && f.records >= w.cfg.MaxRecords:
		return true
	case w.cfg.MaxRowGroups > 0 && f.rowGroups >= w.cfg.MaxRowGroups:
		return true
	case w.cfg.MaxFileBytes > 0 && f.counter.n >= w.cfg.MaxFileBytes:
		return true
	case w.cfg.MaxFileAge > 0 && now.Sub(f.openedAt) >= w.cfg.MaxFileAge:
		return true
	}
	return false
}

// finalize writes the footer, syncs, and renames the open file into place.
func (w *Writer[T]) finalize(ctx context.Context) error {
	f := w.cur
	if f == nil {
		return nil
	}
	w.cur = nil

	before := f.counter.n
	if err := f.fw.Close(); err != nil {
		f.abandon()
		return w.fail(fmt.Errorf("close parquet writer: %w", err))
	}
	w.metrics.Bytes += f.counter.n - before

	if err := f.file.Sync(); err != nil {
		f.abandon()
		return w.fail(fmt.Errorf("sync file: %w", err))
	}
	if err := f.file.Close(); err != nil {
		return w.fail(fmt.Errorf("close file: %w", err))
	}
	if err := os.Rename(f.partial, f.path); err != nil {
		return w.fail(fmt.Errorf("rename file: %w", err))
	}

	info := FileInfo{
		Path:      f.path,
		Venue:     w.cfg.Venue,
		Table:     w.table,
		RunID:     w.runID,
		Seq:       f.seq,
		Records:   f.records,
		RowGroups: f.rowGroups,
		Bytes:     f.counter.n,
		OpenedAt:  f.openedAt,
		ClosedAt:  w.now(),
	}
	w.metrics.FilesClosed++

	w.logger.Info("file closed",
		"path", info.Path,
		"records", info.Records,
		"row_groups", info.RowGroups,
		"bytes", info.Bytes,
	)

	for _, obs := range w.observers {
		if err := obs.FileClosed(ctx, info); err != nil {
			w.logger.Warn("file observer failed", "path", info.Path, "error", err)
		}
	}
	return nil
}

// fail records err as fatal and drops the open file, leaving the .partial
// on disk.
func (w *Writer[T]) fail(err error) error {
	if w.cur != nil {
		w.cur.abandon()
		w.cur = nil
	}
	w.err = fmt.Errorf("%w: %s: %w", ErrWriterFailed, w.table, err)
	w.metrics.Failures++
	w.logger.Error("writer failed", "error", err)
	return w.err
}
