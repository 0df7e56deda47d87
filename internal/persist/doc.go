// Package persist maps Go record types onto columnar schemas and encodes
// batches of records into Arrow column arrays.
//
// A record type declares its columns with struct tags:
//
//	type Trade struct {
//	    Time      time.Time `persist:"time,timestamp,unit=us"`
//	    ProductID string    `persist:"product_id"`
//	    Price     float64   `persist:"price"`
//	    Size      float64   `persist:"size,float32"`
//	    Note      *string   `persist:"note"`
//	    Internal  string    `persist:"-"`
//	}
//
// The tag is read once, when a Codec is built. Untagged exported fields get a
// snake_case column name and the kind inferred from their Go type. Nested
// structs are flattened into parent_child columns and fixed-size arrays expand
// to name_0..name_{N-1}. Variable-length types are rejected.
//
// Supported kinds and their physical columns:
//   - uint8, uint16, uint32, uint64, int8, int16, int32, int64: fixed-width integers
//   - float32, float64: floating point
//   - bool: boolean
//   - timestamp: 64-bit count of a unit since the epoch, tagged semantic=timestamp
//   - text: nullable UTF-8 string
//
// All columns except text are non-nullable.
package persist
