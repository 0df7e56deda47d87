package persist

import (
	"errors"
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
)

// Errors
var (
	ErrEmptySchema     = errors.New("record type has no columns")
	ErrEmptyName       = errors.New("column name is empty")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrUnsupportedKind = errors.New("unsupported column kind")
	ErrInvalidUnit     = errors.New("invalid timestamp unit")
	ErrUnsupportedType = errors.New("unsupported field type")
	ErrKindMismatch    = errors.New("declared kind does not match field type")
	ErrNotStruct       = errors.New("record type must be a struct")
)

// SemanticKey is the field metadata key marking timestamp columns.
const SemanticKey = "semantic"

// Field is one entry of a record type description.
type Field struct {
	Name string
	Kind Kind
	Unit Unit // timestamps only
}

// Column is a mapped field.
type Column struct {
	Name     string
	Kind     Kind
	Unit     Unit
	Nullable bool
	Type     arrow.DataType
}

// Schema is the columnar layout of one record type. It is immutable.
type Schema struct {
	name    string
	columns []Column
	arrow   *arrow.Schema
}

// Map derives a Schema from an ordered field list. The same fields always
// produce the same columns in the same order.
func Map(name string, fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("map %s: %w", name, ErrEmptySchema)
	}

	seen := make(map[string]struct{}, len(fields))
	columns := make([]Column, 0, len(fields))
	arrowFields := make([]arrow.Field, 0, len(fields))

	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("map %s: field %d: %w", name, i, ErrEmptyName)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("map %s: %w: %q", name, ErrDuplicateColumn, f.Name)
		}
		seen[f.Name] = struct{}{}

		col, err := mapField(f)
		if err != nil {
			return nil, fmt.Errorf("map %s: column %q: %w", name, f.Name, err)
		}
		columns = append(columns, col)

		af := arrow.Field{Name: col.Name, Type: col.Type, Nullable: col.Nullable}
		if col.Kind == KindTimestamp {
			af.Metadata = arrow.NewMetadata([]string{SemanticKey}, []string{"timestamp"})
		}
		arrowFields = append(arrowFields, af)
	}

	return &Schema{
		name:    name,
		columns: columns,
		arrow:   arrow.NewSchema(arrowFields, nil),
	}, nil
}

func mapField(f Field) (Column, error) {
	if f.Kind == KindTimestamp {
		if _, ok := unitNames[f.Unit]; !ok {
			return Column{}, ErrInvalidUnit
		}
		return Column{
			Name: f.Name,
			Kind: f.Kind,
			Unit: f.Unit,
			Type: &arrow.TimestampType{Unit: f.Unit.arrow(), TimeZone: "UTC"},
		}, nil
	}

	dt, ok := physical[f.Kind]
	if !ok {
		return Column{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, f.Kind)
	}
	if f.Unit != UnitNone {
		return Column{}, fmt.Errorf("%w: unit on %s column", ErrInvalidUnit, f.Kind)
	}
	return Column{
		Name:     f.Name,
		Kind:     f.Kind,
		Nullable: f.Kind == KindText,
		Type:     dt,
	}, nil
}

// Name returns the table name.
func (s *Schema) Name() string { return s.name }

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.columns) }

// Columns returns a copy of the columns in order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Column returns the i-th column.
func (s *Schema) Column(i int) Column { return s.columns[i] }

// Arrow returns the Arrow schema without schema-level metadata.
func (s *Schema) Arrow() *arrow.Schema { return s.arrow }

// WithMetadata returns an Arrow schema with the same fields and the given
// key-value metadata, in key order as supplied.
func (s *Schema) WithMetadata(keys, values []string) *arrow.Schema {
	md := arrow.NewMetadata(keys, values)
	return arrow.NewSchema(s.arrow.Fields(), &md)
}
