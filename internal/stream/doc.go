// Package stream records a venue feed into Parquet tables.
//
// A Consumer owns one venue connection and moves through the states
//
//	Disconnected -> Connecting -> Subscribing -> Streaming -> Disconnected
//
// Frames are decoded by a venue.Decoder and routed by table name to a Table,
// which batches records and submits each full or expired batch to its
// writer as one row-group. Lost connections are retried forever with capped
// exponential backoff; each recovery is logged as a coverage gap.
package stream
