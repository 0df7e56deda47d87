package persist

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
)

// Kind is the semantic type of a column.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindBool
	KindTimestamp
	KindText
)

var kindNames = map[Kind]string{
	KindUint8:     "uint8",
	KindUint16:    "uint16",
	KindUint32:    "uint32",
	KindUint64:    "uint64",
	KindInt8:      "int8",
	KindInt16:     "int16",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindBool:      "bool",
	KindTimestamp: "timestamp",
	KindText:      "text",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind returns the Kind with the given tag name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// physical is the static kind to column type table. Timestamps are absent
// because their type depends on the unit.
var physical = map[Kind]arrow.DataType{
	KindUint8:   arrow.PrimitiveTypes.Uint8,
	KindUint16:  arrow.PrimitiveTypes.Uint16,
	KindUint32:  arrow.PrimitiveTypes.Uint32,
	KindUint64:  arrow.PrimitiveTypes.Uint64,
	KindInt8:    arrow.PrimitiveTypes.Int8,
	KindInt16:   arrow.PrimitiveTypes.Int16,
	KindInt32:   arrow.PrimitiveTypes.Int32,
	KindInt64:   arrow.PrimitiveTypes.Int64,
	KindFloat32: arrow.PrimitiveTypes.Float32,
	KindFloat64: arrow.PrimitiveTypes.Float64,
	KindBool:    arrow.FixedWidthTypes.Boolean,
	KindText:    arrow.BinaryTypes.String,
}

// bits returns the width of an integer kind, or 0.
func (k Kind) bits() int {
	switch k {
	case KindUint8, KindInt8:
		return 8
	case KindUint16, KindInt16:
		return 16
	case KindUint32, KindInt32:
		return 32
	case KindUint64, KindInt64:
		return 64
	}
	return 0
}

func (k Kind) unsigned() bool {
	return k >= KindUint8 && k <= KindUint64
}

func (k Kind) signed() bool {
	return k >= KindInt8 && k <= KindInt64
}

func (k Kind) float() bool {
	return k == KindFloat32 || k == KindFloat64
}

// Unit is the resolution of a timestamp column.
type Unit uint8

const (
	UnitNone Unit = iota
	UnitSecond
	UnitMilli
	UnitMicro
	UnitNano
)

var unitNames = map[Unit]string{
	UnitSecond: "s",
	UnitMilli:  "ms",
	UnitMicro:  "us",
	UnitNano:   "ns",
}

func (u Unit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return ""
}

// ParseUnit parses s, ms, us or ns.
func ParseUnit(s string) (Unit, error) {
	for u, name := range unitNames {
		if name == s {
			return u, nil
		}
	}
	return UnitNone, fmt.Errorf("%w: %q", ErrInvalidUnit, s)
}

func (u Unit) arrow() arrow.TimeUnit {
	switch u {
	case UnitSecond:
		return arrow.Second
	case UnitMilli:
		return arrow.Millisecond
	case UnitMicro:
		return arrow.Microsecond
	default:
		return arrow.Nanosecond
	}
}
