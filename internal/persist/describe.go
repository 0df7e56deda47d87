package persist

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// TagName is the struct tag key read by Describe.
const TagName = "persist"

// Tabler lets a record type choose its table name.
type Tabler interface {
	TableName() string
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	stringPtrType = reflect.TypeOf((*string)(nil))
)

// source is how a Go value is read.
type source uint8

const (
	srcInt source = iota + 1
	srcUint
	srcFloat
	srcBool
	srcString
	srcStringPtr
	srcTime
)

// step walks one level into a value: a struct field or an array element.
type step struct {
	index int
	elem  bool
}

// binding ties a column to the Go value that feeds it.
type binding struct {
	field Field
	path  []step
	src   source

	// range accepted by the column when it is narrower than the Go type
	checked bool
	imin    int64
	imax    int64
	umax    uint64
}

func (b *binding) walk(v reflect.Value) reflect.Value {
	for _, s := range b.path {
		if s.elem {
			v = v.Index(s.index)
		} else {
			v = v.Field(s.index)
		}
	}
	return v
}

// Describe returns the ordered field list declared by a struct type.
func Describe(t reflect.Type) ([]Field, error) {
	bindings, err := compile(t)
	if err != nil {
		return nil, err
	}
	fields := make([]Field, len(bindings))
	for i, b := range bindings {
		fields[i] = b.field
	}
	return fields, nil
}

// TableName returns the table name for t: its TableName method if it has
// one, otherwise the snake_case type name.
func TableName(t reflect.Type) string {
	if t.Implements(reflect.TypeOf((*Tabler)(nil)).Elem()) {
		return reflect.Zero(t).Interface().(Tabler).TableName()
	}
	return snakeCase(t.Name())
}

func compile(t reflect.Type) ([]binding, error) {
	if t == nil || t.Kind() != reflect.Struct || t == timeType {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, t)
	}
	var out []binding
	if err := compileStruct(t, "", nil, &out); err != nil {
		return nil, fmt.Errorf("describe %s: %w", t.Name(), err)
	}
	return out, nil
}

type tag struct {
	name string
	kind Kind
	unit Unit
	skip bool
}

func parseTag(raw string) (tag, error) {
	if raw == "-" {
		return tag{skip: true}, nil
	}
	parts := strings.Split(raw, ",")
	tg := tag{name: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case strings.HasPrefix(p, "unit="):
			u, err := ParseUnit(strings.TrimPrefix(p, "unit="))
			if err != nil {
				return tag{}, err
			}
			tg.unit = u
		default:
			k, err := ParseKind(p)
			if err != nil {
				return tag{}, err
			}
			tg.kind = k
		}
	}
	return tg, nil
}

func compileStruct(t reflect.Type, prefix string, path []step, out *[]binding) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tg, err := parseTag(sf.Tag.Get(TagName))
		if err != nil {
			return fmt.Errorf("field %s: %w", sf.Name, err)
		}
		if tg.skip {
			continue
		}
		name := tg.name
		if name == "" {
			name = snakeCase(sf.Name)
		}
		fieldPath := append(append([]step(nil), path...), step{index: i})
		if err := compileValue(sf.Type, prefix+name, tg, fieldPath, out); err != nil {
			return fmt.Errorf("field %s: %w", sf.Name, err)
		}
	}
	return nil
}

func compileValue(t reflect.Type, name string, tg tag, path []step, out *[]binding) error {
	switch {
	case t == timeType:
		return bindLeaf(t, name, tg, path, out)
	case t.Kind() == reflect.Struct:
		if tg.kind != KindInvalid || tg.unit != UnitNone {
			return fmt.Errorf("%w: kind on nested struct", ErrKindMismatch)
		}
		return compileStruct(t, name+"_", path, out)
	case t.Kind() == reflect.Array:
		for j := 0; j < t.Len(); j++ {
			elemPath := append(append([]step(nil), path...), step{index: j, elem: true})
			if err := compileValue(t.Elem(), name+"_"+strconv.Itoa(j), tg, elemPath, out); err != nil {
				return err
			}
		}
		return nil
	default:
		return bindLeaf(t, name, tg, path, out)
	}
}

func bindLeaf(t reflect.Type, name string, tg tag, path []step, out *[]binding) error {
	src, inferred, err := inferKind(t)
	if err != nil {
		return err
	}

	kind := inferred
	if tg.kind != KindInvalid {
		kind = tg.kind
	}
	unit := tg.unit
	if kind == KindTimestamp && unit == UnitNone {
		unit = UnitNano
	}

	b := binding{
		field: Field{Name: name, Kind: kind, Unit: unit},
		path:  path,
		src:   src,
	}
	if err := b.checkSource(t, inferred); err != nil {
		return err
	}
	*out = append(*out, b)
	return nil
}

func inferKind(t reflect.Type) (source, Kind, error) {
	if t == timeType {
		return srcTime, KindTimestamp, nil
	}
	if t == stringPtrType {
		return srcStringPtr, KindText, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return srcBool, KindBool, nil
	case reflect.Int8:
		return srcInt, KindInt8, nil
	case reflect.Int16:
		return srcInt, KindInt16, nil
	case reflect.Int32:
		return srcInt, KindInt32, nil
	case reflect.Int64, reflect.Int:
		return srcInt, KindInt64, nil
	case reflect.Uint8:
		return srcUint, KindUint8, nil
	case reflect.Uint16:
		return srcUint, KindUint16, nil
	case reflect.Uint32:
		return srcUint, KindUint32, nil
	case reflect.Uint64, reflect.Uint:
		return srcUint, KindUint64, nil
	case reflect.Float32:
		return srcFloat, KindFloat32, nil
	case reflect.Float64:
		return srcFloat, KindFloat64, nil
	case reflect.String:
		return srcString, KindText, nil
	}
	return 0, KindInvalid, fmt.Errorf("%w: %v", ErrUnsupportedType, t)
}

// checkSource verifies the declared kind can hold values of the Go type and
// records the accepted range when it is narrower.
func (b *binding) checkSource(t reflect.Type, inferred Kind) error {
	kind := b.field.Kind
	mismatch := fmt.Errorf("%w: %v as %s", ErrKindMismatch, t, kind)

	switch b.src {
	case srcTime:
		if kind != KindTimestamp {
			return mismatch
		}
	case srcString, srcStringPtr:
		if kind != KindText {
			return mismatch
		}
	case srcBool:
		if kind != KindBool {
			return mismatch
		}
	case srcFloat:
		if !kind.float() {
			return mismatch
		}
		b.checked = kind == KindFloat32 && inferred == KindFloat64
	case srcInt, srcUint:
		switch {
		case kind == KindTimestamp:
			b.setRange(KindInt64, inferred)
		case kind.signed() || kind.unsigned():
			b.setRange(kind, inferred)
		default:
			return mismatch
		}
	}
	return nil
}

func (b *binding) setRange(target, inferred Kind) {
	bits := target.bits()
	if target.unsigned() {
		b.umax = math.MaxUint64 >> (64 - bits)
	} else {
		b.imax = math.MaxInt64 >> (64 - bits)
		b.imin = -b.imax - 1
	}
	switch {
	case target.unsigned() == inferred.unsigned():
		b.checked = bits < inferred.bits()
	case target.unsigned():
		// signed source into an unsigned column: negatives never fit
		b.checked = true
	default:
		b.checked = bits <= inferred.bits()
	}
}

// snakeCase converts MakerOrderID to maker_order_id.
func snakeCase(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sb.WriteByte('_')
				}
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
