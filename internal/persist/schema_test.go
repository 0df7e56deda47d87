package persist

import (
	"errors"
	"testing"

	"github.com/apache/arrow/go/v14/arrow"
)

func TestMap_Deterministic(t *testing.T) {
	fields := []Field{
		{Name: "time", Kind: KindTimestamp, Unit: UnitNano},
		{Name: "trade_id", Kind: KindUint64},
		{Name: "price", Kind: KindFloat64},
		{Name: "side", Kind: KindText},
		{Name: "flags", Kind: KindUint8},
	}

	first, err := Map("trades", fields)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		again, err := Map("trades", fields)
		if err != nil {
			t.Fatalf("Map failed: %v", err)
		}
		if !again.Arrow().Equal(first.Arrow()) {
			t.Fatalf("schema changed between calls:\n%v\n%v", first.Arrow(), again.Arrow())
		}
		for j, col := range again.Columns() {
			if col.Name != fields[j].Name {
				t.Errorf("column %d = %q, want %q", j, col.Name, fields[j].Name)
			}
		}
	}
}

func TestMap_PhysicalTypes(t *testing.T) {
	fields := []Field{
		{Name: "a", Kind: KindUint16},
		{Name: "b", Kind: KindInt32},
		{Name: "c", Kind: KindFloat32},
		{Name: "d", Kind: KindBool},
		{Name: "e", Kind: KindTimestamp, Unit: UnitMilli},
		{Name: "f", Kind: KindText},
	}

	s, err := Map("t", fields)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	want := []struct {
		id       arrow.Type
		nullable bool
	}{
		{arrow.UINT16, false},
		{arrow.INT32, false},
		{arrow.FLOAT32, false},
		{arrow.BOOL, false},
		{arrow.TIMESTAMP, false},
		{arrow.STRING, true},
	}

	for i, w := range want {
		f := s.Arrow().Field(i)
		if f.Type.ID() != w.id {
			t.Errorf("column %s type = %v, want %v", f.Name, f.Type.ID(), w.id)
		}
		if f.Nullable != w.nullable {
			t.Errorf("column %s nullable = %v, want %v", f.Name, f.Nullable, w.nullable)
		}
	}

	ts := s.Arrow().Field(4)
	tt, ok := ts.Type.(*arrow.TimestampType)
	if !ok {
		t.Fatalf("timestamp column type = %T", ts.Type)
	}
	if tt.Unit != arrow.Millisecond || tt.TimeZone != "UTC" {
		t.Errorf("timestamp type = %v, want ms UTC", tt)
	}
	if v, ok := ts.Metadata.GetValue(SemanticKey); !ok || v != "timestamp" {
		t.Errorf("timestamp metadata = %q, %v", v, ok)
	}
}

func TestMap_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		want   error
	}{
		{"empty", nil, ErrEmptySchema},
		{"blank name", []Field{{Name: "", Kind: KindInt64}}, ErrEmptyName},
		{
			"duplicate",
			[]Field{{Name: "x", Kind: KindInt64}, {Name: "x", Kind: KindText}},
			ErrDuplicateColumn,
		},
		{"invalid kind", []Field{{Name: "x", Kind: KindInvalid}}, ErrUnsupportedKind},
		{"timestamp without unit", []Field{{Name: "x", Kind: KindTimestamp}}, ErrInvalidUnit},
		{"unit on integer", []Field{{Name: "x", Kind: KindInt64, Unit: UnitMilli}}, ErrInvalidUnit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Map("t", tt.fields)
			if !errors.Is(err, tt.want) {
				t.Errorf("Map() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSchema_WithMetadata(t *testing.T) {
	s, err := Map("t", []Field{{Name: "x", Kind: KindInt64}})
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	withMeta := s.WithMetadata([]string{"recorder.venue"}, []string{"coinbase"})
	if v, ok := withMeta.Metadata().GetValue("recorder.venue"); !ok || v != "coinbase" {
		t.Errorf("metadata recorder.venue = %q, %v", v, ok)
	}
	if s.Arrow().HasMetadata() {
		t.Error("WithMetadata should not modify the base schema")
	}
}

func TestParseKind(t *testing.T) {
	for k, name := range kindNames {
		got, err := ParseKind(name)
		if err != nil {
			t.Errorf("ParseKind(%q) error: %v", name, err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", name, got, k)
		}
	}

	if _, err := ParseKind("decimal"); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("ParseKind(decimal) error = %v, want ErrUnsupportedKind", err)
	}
}
