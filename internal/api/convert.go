package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/market-recorder/internal/model"
)

// ParseDecimal converts a decimal string to float64.
// Returns 0 for empty input.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// ParseTimestamp parses an RFC 3339 timestamp.
// Returns the zero time for empty input.
func ParseTimestamp(iso string) (time.Time, error) {
	if iso == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ToSnapshot keeps the top model.BookDepth levels of each side of book.
func ToSnapshot(productID string, book *BookResponse, receivedAt time.Time) (model.BookSnapshot, error) {
	ts, err := ParseTimestamp(book.Time)
	if err != nil {
		return model.BookSnapshot{}, fmt.Errorf("parse book time: %w", err)
	}

	snap := model.BookSnapshot{
		ProductID:  productID,
		Sequence:   book.Sequence,
		Time:       ts,
		ReceivedAt: receivedAt,
	}
	if err := parseLevels(book.Bids, snap.Bids[:]); err != nil {
		return model.BookSnapshot{}, fmt.Errorf("parse bids: %w", err)
	}
	if err := parseLevels(book.Asks, snap.Asks[:]); err != nil {
		return model.BookSnapshot{}, fmt.Errorf("parse asks: %w", err)
	}
	return snap, nil
}

// parseLevels fills dst from [["price", "size", num_orders], ...].
func parseLevels(levels [][]any, dst []model.Level) error {
	for i := 0; i < len(dst) && i < len(levels); i++ {
		level := levels[i]
		if len(level) < 2 {
			return fmt.Errorf("level %d has %d fields", i, len(level))
		}

		price, _ := level[0].(string)
		size, _ := level[1].(string)

		var err error
		if dst[i].Price, err = ParseDecimal(price); err != nil {
			return fmt.Errorf("level %d price: %w", i, err)
		}
		if dst[i].Size, err = ParseDecimal(size); err != nil {
			return fmt.Errorf("level %d size: %w", i, err)
		}
		if len(level) > 2 {
			if n, ok := level[2].(float64); ok && n > 0 {
				dst[i].Orders = uint32(n)
			}
		}
	}
	return nil
}
