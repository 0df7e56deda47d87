package persist

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

// ContractError reports a value that does not fit its declared column. It is
// raised with panic: it means the record type declaration is wrong.
type ContractError struct {
	Table  string
	Column string
	Kind   Kind
	Value  string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("persist: %s.%s: value %s does not fit %s column", e.Table, e.Column, e.Value, e.Kind)
}

// Codec encodes batches of T. Build one per record type at startup and
// reuse it; it is safe for concurrent use.
type Codec[T any] struct {
	schema   *Schema
	bindings []binding
}

// NewCodec derives the schema of T and prepares its field accessors.
func NewCodec[T any]() (*Codec[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()

	bindings, err := compile(t)
	if err != nil {
		return nil, err
	}

	fields := make([]Field, len(bindings))
	for i, b := range bindings {
		fields[i] = b.field
	}

	schema, err := Map(TableName(t), fields)
	if err != nil {
		return nil, err
	}

	return &Codec[T]{schema: schema, bindings: bindings}, nil
}

// MustCodec is like NewCodec but panics on error. For package-level vars.
func MustCodec[T any]() *Codec[T] {
	c, err := NewCodec[T]()
	if err != nil {
		panic(err)
	}
	return c
}

// Schema returns the derived schema.
func (c *Codec[T]) Schema() *Schema { return c.schema }

// Encode returns one array per schema column, each of len(batch), in batch
// order. The caller owns the arrays and must Release them.
func (c *Codec[T]) Encode(mem memory.Allocator, batch []T) []arrow.Array {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	rows := reflect.ValueOf(batch)
	cols := make([]arrow.Array, len(c.bindings))
	for i := range c.bindings {
		cols[i] = c.encodeColumn(mem, i, rows)
	}
	return cols
}

func (c *Codec[T]) encodeColumn(mem memory.Allocator, i int, rows reflect.Value) arrow.Array {
	b := &c.bindings[i]
	col := c.schema.columns[i]

	bld := array.NewBuilder(mem, col.Type)
	defer bld.Release()

	n := rows.Len()
	bld.Reserve(n)

	for r := 0; r < n; r++ {
		v := b.walk(rows.Index(r))
		c.appendValue(bld, b, v)
	}
	return bld.NewArray()
}

func (c *Codec[T]) appendValue(bld array.Builder, b *binding, v reflect.Value) {
	switch bb := bld.(type) {
	case *array.Uint8Builder:
		bb.Append(uint8(c.unsigned(b, v)))
	case *array.Uint16Builder:
		bb.Append(uint16(c.unsigned(b, v)))
	case *array.Uint32Builder:
		bb.Append(uint32(c.unsigned(b, v)))
	case *array.Uint64Builder:
		bb.Append(c.unsigned(b, v))
	case *array.Int8Builder:
		bb.Append(int8(c.signed(b, v)))
	case *array.Int16Builder:
		bb.Append(int16(c.signed(b, v)))
	case *array.Int32Builder:
		bb.Append(int32(c.signed(b, v)))
	case *array.Int64Builder:
		bb.Append(c.signed(b, v))
	case *array.Float32Builder:
		f := v.Float()
		if b.checked && !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			c.violate(b, v)
		}
		bb.Append(float32(f))
	case *array.Float64Builder:
		bb.Append(v.Float())
	case *array.BooleanBuilder:
		bb.Append(v.Bool())
	case *array.TimestampBuilder:
		bb.Append(arrow.Timestamp(c.timestamp(b, v)))
	case *array.StringBuilder:
		if b.src == srcStringPtr {
			if v.IsNil() {
				bb.AppendNull()
				return
			}
			v = v.Elem()
		}
		bb.Append(v.String())
	default:
		panic(fmt.Sprintf("persist: no encoder for %T", bld))
	}
}

func (c *Codec[T]) unsigned(b *binding, v reflect.Value) uint64 {
	if b.src == srcInt {
		i := v.Int()
		if i < 0 || (b.checked && uint64(i) > b.umax) {
			c.violate(b, v)
		}
		return uint64(i)
	}
	u := v.Uint()
	if b.checked && u > b.umax {
		c.violate(b, v)
	}
	return u
}

func (c *Codec[T]) signed(b *binding, v reflect.Value) int64 {
	if b.src == srcUint {
		u := v.Uint()
		if b.checked && u > uint64(b.imax) {
			c.violate(b, v)
		}
		return int64(u)
	}
	i := v.Int()
	if b.checked && (i < b.imin || i > b.imax) {
		c.violate(b, v)
	}
	return i
}

func (c *Codec[T]) timestamp(b *binding, v reflect.Value) int64 {
	if b.src != srcTime {
		return c.signed(b, v)
	}

	var t time.Time
	if v.CanAddr() {
		t = *v.Addr().Interface().(*time.Time)
	} else {
		t = v.Interface().(time.Time)
	}
	if t.IsZero() {
		return 0
	}

	switch b.field.Unit {
	case UnitSecond:
		return t.Unix()
	case UnitMilli:
		return t.UnixMilli()
	case UnitMicro:
		return t.UnixMicro()
	default:
		return t.UnixNano()
	}
}

func (c *Codec[T]) violate(b *binding, v reflect.Value) {
	panic(&ContractError{
		Table:  c.schema.name,
		Column: b.field.Name,
		Kind:   b.field.Kind,
		Value:  fmt.Sprint(v.Interface()),
	})
}
