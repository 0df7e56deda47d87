package persist

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

type quote struct {
	Time    time.Time `persist:"time"`
	TradeID uint64    `persist:"trade_id"`
	Qty     int       `persist:"qty,int32"`
	Price   float64   `persist:"price"`
	Live    bool      `persist:"live"`
	Venue   string    `persist:"venue"`
	Reason  *string   `persist:"reason"`
	EpochMS int64     `persist:"epoch_ms,timestamp,unit=ms"`
}

func strPtr(s string) *string { return &s }

func TestCodec_Encode(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	codec, err := NewCodec[quote]()
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	if codec.Schema().Name() != "quote" {
		t.Errorf("Schema().Name() = %q, want %q", codec.Schema().Name(), "quote")
	}

	ts := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	batch := []quote{
		{Time: ts, TradeID: 1, Qty: 10, Price: 100.5, Live: true, Venue: "cb", Reason: strPtr("x"), EpochMS: 1000},
		{Time: ts.Add(time.Second), TradeID: math.MaxUint64, Qty: -3, Price: 0, Venue: "", EpochMS: 2000},
	}

	cols := codec.Encode(mem, batch)
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	if len(cols) != codec.Schema().Len() {
		t.Fatalf("len(cols) = %d, want %d", len(cols), codec.Schema().Len())
	}
	for i, c := range cols {
		if c.Len() != len(batch) {
			t.Errorf("column %d length = %d, want %d", i, c.Len(), len(batch))
		}
	}

	times := cols[0].(*array.Timestamp)
	if times.Value(0) != arrow.Timestamp(ts.UnixNano()) {
		t.Errorf("time[0] = %d, want %d", times.Value(0), ts.UnixNano())
	}
	if got := cols[1].(*array.Uint64).Value(1); got != math.MaxUint64 {
		t.Errorf("trade_id[1] = %d, want max uint64", got)
	}
	if got := cols[2].(*array.Int32).Value(1); got != -3 {
		t.Errorf("qty[1] = %d, want -3", got)
	}
	if got := cols[3].(*array.Float64).Value(0); got != 100.5 {
		t.Errorf("price[0] = %v, want 100.5", got)
	}
	if got := cols[4].(*array.Boolean).Value(0); !got {
		t.Error("live[0] = false, want true")
	}

	venue := cols[5].(*array.String)
	if venue.IsNull(1) || venue.Value(1) != "" {
		t.Errorf("venue[1] should be an empty, non-null string")
	}

	reason := cols[6].(*array.String)
	if reason.Value(0) != "x" {
		t.Errorf("reason[0] = %q, want %q", reason.Value(0), "x")
	}
	if !reason.IsNull(1) {
		t.Error("reason[1] should be null")
	}

	if got := cols[7].(*array.Timestamp).Value(1); got != 2000 {
		t.Errorf("epoch_ms[1] = %d, want 2000", got)
	}
}

func TestCodec_EncodeDoesNotMutate(t *testing.T) {
	codec := MustCodec[quote]()
	batch := []quote{{TradeID: 7, Venue: "a", Reason: strPtr("r")}}
	before := batch[0]

	cols := codec.Encode(nil, batch)
	for _, c := range cols {
		c.Release()
	}

	if batch[0].TradeID != before.TradeID || batch[0].Venue != before.Venue || batch[0].Reason != before.Reason {
		t.Errorf("batch modified: %+v, was %+v", batch[0], before)
	}
}

func TestCodec_EmptyBatch(t *testing.T) {
	codec := MustCodec[quote]()
	cols := codec.Encode(nil, nil)
	for _, c := range cols {
		if c.Len() != 0 {
			t.Errorf("column length = %d, want 0", c.Len())
		}
		c.Release()
	}
}

func TestCodec_ZeroTime(t *testing.T) {
	codec := MustCodec[quote]()
	cols := codec.Encode(nil, []quote{{}})
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	if got := cols[0].(*array.Timestamp).Value(0); got != 0 {
		t.Errorf("zero time encoded as %d, want 0", got)
	}
}

func TestCodec_ContractViolation(t *testing.T) {
	codec := MustCodec[quote]()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for out-of-range value")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value = %T, want error", r)
		}
		var ce *ContractError
		if !errors.As(err, &ce) {
			t.Fatalf("panic = %v, want *ContractError", err)
		}
		if ce.Column != "qty" {
			t.Errorf("Column = %q, want %q", ce.Column, "qty")
		}
	}()

	codec.Encode(nil, []quote{{Qty: math.MaxInt32 + 1}})
}

func TestCodec_SignedIntoUnsigned(t *testing.T) {
	type counts struct {
		N int64 `persist:"n,uint32"`
	}
	codec := MustCodec[counts]()

	cols := codec.Encode(nil, []counts{{N: 42}})
	if got := cols[0].(*array.Uint32).Value(0); got != 42 {
		t.Errorf("n = %d, want 42", got)
	}
	cols[0].Release()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative value in unsigned column")
		}
	}()
	codec.Encode(nil, []counts{{N: -1}})
}

func TestNewCodec_Rejects(t *testing.T) {
	type bad struct {
		Tags []string
	}
	if _, err := NewCodec[bad](); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("NewCodec error = %v, want ErrUnsupportedType", err)
	}

	type empty struct{}
	if _, err := NewCodec[empty](); !errors.Is(err, ErrEmptySchema) {
		t.Errorf("NewCodec error = %v, want ErrEmptySchema", err)
	}

	if _, err := NewCodec[*quote](); !errors.Is(err, ErrNotStruct) {
		t.Errorf("NewCodec error = %v, want ErrNotStruct", err)
	}
}
