package persist

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

type level struct {
	Price float64
	Size  float64 `persist:"qty"`
}

type snapshot struct {
	At       time.Time `persist:"at,timestamp,unit=us"`
	Product  string
	Bids     [2]level
	Sequence int64 `persist:"seq"`
	Note     *string
	internal int
	Skipped  string `persist:"-"`
}

func (snapshot) TableName() string { return "book" }

func TestDescribe_FlattensNestedAndArrays(t *testing.T) {
	fields, err := Describe(reflect.TypeOf(snapshot{}))
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}

	want := []Field{
		{Name: "at", Kind: KindTimestamp, Unit: UnitMicro},
		{Name: "product", Kind: KindText},
		{Name: "bids_0_price", Kind: KindFloat64},
		{Name: "bids_0_qty", Kind: KindFloat64},
		{Name: "bids_1_price", Kind: KindFloat64},
		{Name: "bids_1_qty", Kind: KindFloat64},
		{Name: "seq", Kind: KindInt64},
		{Name: "note", Kind: KindText},
	}

	if !reflect.DeepEqual(fields, want) {
		t.Errorf("Describe() =\n%v\nwant\n%v", fields, want)
	}
}

func TestTableName(t *testing.T) {
	if got := TableName(reflect.TypeOf(snapshot{})); got != "book" {
		t.Errorf("TableName(snapshot) = %q, want %q", got, "book")
	}
	if got := TableName(reflect.TypeOf(level{})); got != "level" {
		t.Errorf("TableName(level) = %q, want %q", got, "level")
	}
}

func TestDescribe_Rejects(t *testing.T) {
	type withSlice struct {
		Levels []float64
	}
	type withMap struct {
		Attrs map[string]string
	}
	type wrongKind struct {
		Name string `persist:"name,int64"`
	}
	type badUnit struct {
		At time.Time `persist:"at,timestamp,unit=days"`
	}
	type kindOnStruct struct {
		L level `persist:"l,float64"`
	}
	type intPointer struct {
		N *int
	}

	tests := []struct {
		name string
		typ  reflect.Type
		want error
	}{
		{"slice", reflect.TypeOf(withSlice{}), ErrUnsupportedType},
		{"map", reflect.TypeOf(withMap{}), ErrUnsupportedType},
		{"pointer to int", reflect.TypeOf(intPointer{}), ErrUnsupportedType},
		{"text as int64", reflect.TypeOf(wrongKind{}), ErrKindMismatch},
		{"bad unit", reflect.TypeOf(badUnit{}), ErrInvalidUnit},
		{"kind on struct", reflect.TypeOf(kindOnStruct{}), ErrKindMismatch},
		{"not a struct", reflect.TypeOf(0), ErrNotStruct},
		{"time is not a record", reflect.TypeOf(time.Time{}), ErrNotStruct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Describe(tt.typ)
			if !errors.Is(err, tt.want) {
				t.Errorf("Describe() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDescribe_Stable(t *testing.T) {
	first, err := Describe(reflect.TypeOf(snapshot{}))
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := Describe(reflect.TypeOf(snapshot{}))
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Describe() changed between calls")
		}
	}
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Price", "price"},
		{"MakerOrderID", "maker_order_id"},
		{"TradeID", "trade_id"},
		{"Volume24h", "volume24h"},
		{"HTTPStatus", "http_status"},
		{"BestBid", "best_bid"},
		{"X", "x"},
	}
	for _, tt := range tests {
		if got := snakeCase(tt.in); got != tt.want {
			t.Errorf("snakeCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
