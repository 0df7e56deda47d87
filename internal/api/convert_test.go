package api

import (
	"testing"
	"time"

	"github.com/rickgao/market-recorder/internal/model"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"6247.58", 6247.58, false},
		{"0.00000001", 0.00000001, false},
		{"  0.52  ", 0.52, false},
		{"0.00104\n", 0.00104, false},
		{"1e3", 1000, false},
		{"", 0, false},
		{"   ", 0, false},
		{"1,000", 0, true},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDecimal(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimal(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDecimal(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("2024-03-01T12:00:00.123456Z")
	if err != nil {
		t.Fatalf("ParseTimestamp failed: %v", err)
	}
	want := time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseTimestamp = %v, want %v", got, want)
	}

	if got, err := ParseTimestamp(""); err != nil || !got.IsZero() {
		t.Errorf("ParseTimestamp(\"\") = %v, %v; want zero", got, err)
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("expected error for invalid timestamp")
	}
}

func TestToSnapshot(t *testing.T) {
	book := &BookResponse{
		Sequence: 42,
		Time:     "2024-03-01T12:00:00Z",
		Bids: [][]any{
			{"100.5", "1.25", float64(3)},
			{"100.4", "2", float64(1)},
			{"100.3", "3", float64(1)},
			{"100.2", "4", float64(1)},
			{"100.1", "5", float64(1)},
			{"100.0", "6", float64(9)},
		},
		Asks: [][]any{
			{"100.6", "0.5", float64(2)},
		},
	}
	received := time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC)

	snap, err := ToSnapshot("BTC-USD", book, received)
	if err != nil {
		t.Fatalf("ToSnapshot failed: %v", err)
	}

	if snap.ProductID != "BTC-USD" || snap.Sequence != 42 || !snap.ReceivedAt.Equal(received) {
		t.Errorf("header = %+v", snap)
	}
	if snap.Bids[0] != (model.Level{Price: 100.5, Size: 1.25, Orders: 3}) {
		t.Errorf("Bids[0] = %+v", snap.Bids[0])
	}
	if snap.Bids[4].Price != 100.1 {
		t.Errorf("Bids[4] = %+v, want the fifth level", snap.Bids[4])
	}
	if snap.Asks[0] != (model.Level{Price: 100.6, Size: 0.5, Orders: 2}) {
		t.Errorf("Asks[0] = %+v", snap.Asks[0])
	}
	if snap.Asks[1] != (model.Level{}) {
		t.Errorf("Asks[1] = %+v, want zero level", snap.Asks[1])
	}
}

func TestToSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name string
		book BookResponse
	}{
		{"bad time", BookResponse{Time: "later"}},
		{"short level", BookResponse{Bids: [][]any{{"1"}}}},
		{"bad price", BookResponse{Asks: [][]any{{"x", "1", float64(1)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ToSnapshot("BTC-USD", &tt.book, time.Now()); err == nil {
				t.Error("expected error")
			}
		})
	}
}
