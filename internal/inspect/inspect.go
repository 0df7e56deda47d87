// Package inspect reads recorder output independently of the writer.
//
// It uses parquet-go rather than the Arrow reader the writer is built on,
// so a summary doubles as a compatibility check.
package inspect

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

// arrowSchemaKey holds the serialized Arrow schema; it is not shown.
const arrowSchemaKey = "ARROW:schema"

// ColumnInfo describes one top-level column.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional"`
}

// Summary describes one Parquet file.
type Summary struct {
	Path      string            `json:"path"`
	Bytes     int64             `json:"bytes"`
	Rows      int64             `json:"rows"`
	RowGroups []int64           `json:"row_groups"` // rows per row-group
	Columns   []ColumnInfo      `json:"columns"`
	Metadata  map[string]string `json:"metadata"`
	CreatedBy string            `json:"created_by"`
}

// open opens path with parquet-go. The caller closes the returned file.
func open(path string) (*os.File, *parquet.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return f, pf, nil
}

// Summarize reads the footer of a file.
func Summarize(path string) (*Summary, error) {
	f, pf, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := &Summary{
		Path:      path,
		Bytes:     pf.Size(),
		Rows:      pf.NumRows(),
		Metadata:  make(map[string]string),
		CreatedBy: pf.Metadata().CreatedBy,
	}
	for _, rg := range pf.RowGroups() {
		s.RowGroups = append(s.RowGroups, rg.NumRows())
	}
	for _, field := range pf.Schema().Fields() {
		s.Columns = append(s.Columns, ColumnInfo{
			Name:     field.Name(),
			Type:     field.Type().String(),
			Optional: field.Optional(),
		})
	}
	for _, kv := range pf.Metadata().KeyValueMetadata {
		if kv.Key == arrowSchemaKey {
			continue
		}
		s.Metadata[kv.Key] = kv.Value
	}
	return s, nil
}

// Print writes a human-readable summary.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "file:       %s\n", s.Path)
	fmt.Fprintf(w, "bytes:      %d\n", s.Bytes)
	fmt.Fprintf(w, "rows:       %d\n", s.Rows)
	fmt.Fprintf(w, "row groups: %d %v\n", len(s.RowGroups), s.RowGroups)
	if s.CreatedBy != "" {
		fmt.Fprintf(w, "created by: %s\n", s.CreatedBy)
	}

	keys := make([]string, 0, len(s.Metadata))
	for k := range s.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "meta:       %s=%s\n", k, s.Metadata[k])
	}

	fmt.Fprintln(w, "columns:")
	for _, c := range s.Columns {
		opt := ""
		if c.Optional {
			opt = " (optional)"
		}
		fmt.Fprintf(w, "  %-20s %s%s\n", c.Name, c.Type, opt)
	}
}

// Dump writes up to limit rows as JSON lines, in file order. A limit <= 0
// dumps every row. It returns the number of rows written.
func Dump(path string, limit int, w io.Writer) (int, error) {
	f, pf, err := open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	fields := pf.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
	}

	written := 0
	buf := make([]parquet.Row, 128)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				if limit > 0 && written >= limit {
					rows.Close()
					return written, nil
				}
				line, lerr := formatRow(names, fields, row)
				if lerr != nil {
					rows.Close()
					return written, lerr
				}
				if _, werr := fmt.Fprintln(w, line); werr != nil {
					rows.Close()
					return written, werr
				}
				written++
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rows.Close()
				return written, fmt.Errorf("read rows: %w", err)
			}
		}
		rows.Close()
	}
	return written, nil
}

// formatRow renders one flat row as a JSON object in column order.
func formatRow(names []string, fields []parquet.Field, row parquet.Row) (string, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range row {
		col := v.Column()
		if col < 0 || col >= len(names) {
			return "", fmt.Errorf("value for unknown column %d", col)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(names[col])
		val, err := json.Marshal(convert(fields[col].Type(), v))
		if err != nil {
			return "", err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.String(), nil
}

// convert maps a parquet value to a JSON-friendly Go value, honoring the
// timestamp and unsigned integer logical types.
func convert(t parquet.Type, v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	lt := t.LogicalType()

	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		if lt != nil && lt.Integer != nil && !lt.Integer.IsSigned {
			return uint32(v.Int32())
		}
		return v.Int32()
	case parquet.Int64:
		if lt != nil && lt.Timestamp != nil {
			return timestamp(v.Int64(), lt.Timestamp.Unit).Format(time.RFC3339Nano)
		}
		if lt != nil && lt.Integer != nil && !lt.Integer.IsSigned {
			return uint64(v.Int64())
		}
		return v.Int64()
	case parquet.Float:
		return v.Float()
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}

func timestamp(n int64, unit format.TimeUnit) time.Time {
	switch {
	case unit.Nanos != nil:
		return time.Unix(0, n).UTC()
	case unit.Micros != nil:
		return time.UnixMicro(n).UTC()
	default:
		return time.UnixMilli(n).UTC()
	}
}
