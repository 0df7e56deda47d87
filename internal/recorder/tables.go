package recorder

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/rickgao/market-recorder/internal/model"
	"github.com/rickgao/market-recorder/internal/persist"
	"github.com/rickgao/market-recorder/internal/stream"
	"github.com/rickgao/market-recorder/internal/writer"
)

// tableSpec builds a writer-backed table for one record type.
type tableSpec func(wcfg writer.Config, bcfg stream.BatchConfig, logger *slog.Logger, opts ...writer.Option) (stream.Table, error)

func tableOf[T any]() tableSpec {
	codec := persist.MustCodec[T]()
	return func(wcfg writer.Config, bcfg stream.BatchConfig, logger *slog.Logger, opts ...writer.Option) (stream.Table, error) {
		w, err := writer.New(wcfg, codec, logger, opts...)
		if err != nil {
			return nil, err
		}
		return stream.NewTable(w, bcfg), nil
	}
}

// tableSpecs maps table names to their record types.
var tableSpecs = map[string]tableSpec{
	model.RfqMatch{}.TableName():     tableOf[model.RfqMatch](),
	model.Ticker{}.TableName():       tableOf[model.Ticker](),
	model.BookSnapshot{}.TableName(): tableOf[model.BookSnapshot](),
}

// enabled reports whether table passes the output filter. An empty filter
// enables every table.
func enabled(filter []string, table string) bool {
	return len(filter) == 0 || slices.Contains(filter, table)
}

func newTable(name string, wcfg writer.Config, bcfg stream.BatchConfig, logger *slog.Logger, opts ...writer.Option) (stream.Table, error) {
	build, ok := tableSpecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", name)
	}
	t, err := build(wcfg, bcfg, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("create %s writer: %w", name, err)
	}
	return t, nil
}
