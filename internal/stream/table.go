package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/market-recorder/internal/writer"
)

// Table batches records of one type and submits them to a writer.
// Like the writer it wraps, a Table is owned by one goroutine.
type Table interface {
	// Name returns the table name records are routed by.
	Name() string

	// Add appends rec to the pending batch and submits the batch when it
	// is full.
	Add(ctx context.Context, rec any, now time.Time) error

	// Tick submits the batch if it is older than MaxAge and rotates the
	// open file if it is due.
	Tick(ctx context.Context, now time.Time) error

	// Flush submits the pending batch.
	Flush(ctx context.Context) error

	// Close flushes and closes the writer.
	Close(ctx context.Context) error

	// Pending returns the number of records not yet submitted.
	Pending() int

	// Stats returns the writer's metrics.
	Stats() writer.Metrics
}

type table[T any] struct {
	w     *writer.Writer[T]
	cfg   BatchConfig
	batch []T
	first time.Time // arrival of the oldest pending record
}

// NewTable wraps w with a batch bounded by cfg.
func NewTable[T any](w *writer.Writer[T], cfg BatchConfig) Table {
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = DefaultBatchConfig().MaxRecords
	}
	return &table[T]{
		w:     w,
		cfg:   cfg,
		batch: make([]T, 0, cfg.MaxRecords),
	}
}

func (t *table[T]) Name() string { return t.w.Table() }

func (t *table[T]) Add(ctx context.Context, rec any, now time.Time) error {
	v, ok := rec.(T)
	if !ok {
		return fmt.Errorf("%w: table %s got %T", ErrRecordType, t.Name(), rec)
	}

	if len(t.batch) == 0 {
		t.first = now
	}
	t.batch = append(t.batch, v)

	if len(t.batch) >= t.cfg.MaxRecords {
		return t.Flush(ctx)
	}
	return nil
}

func (t *table[T]) Tick(ctx context.Context, now time.Time) error {
	if len(t.batch) > 0 && t.cfg.MaxAge > 0 && now.Sub(t.first) >= t.cfg.MaxAge {
		if err := t.Flush(ctx); err != nil {
			return err
		}
	}
	return t.w.RotateIfDue(ctx, now)
}

func (t *table[T]) Flush(ctx context.Context) error {
	if len(t.batch) == 0 {
		return nil
	}
	// The writer owns the submitted slice.
	batch := t.batch
	t.batch = make([]T, 0, t.cfg.MaxRecords)
	return t.w.Submit(ctx, batch)
}

func (t *table[T]) Close(ctx context.Context) error {
	flushErr := t.Flush(ctx)
	closeErr := t.w.Close(ctx)
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (t *table[T]) Pending() int { return len(t.batch) }

func (t *table[T]) Stats() writer.Metrics { return t.w.Stats() }
