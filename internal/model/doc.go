// Package model defines the records persisted by the recorder.
//
// Each record is a flat struct whose persist tags declare its columns; see
// package persist for the tag grammar.
//
// Conventions:
//   - Prices and sizes: float64 parsed from the venue's decimal strings
//   - Exchange timestamps: nanoseconds since Unix epoch, UTC
//   - ReceivedAt: local receive time, microseconds since Unix epoch
package model
