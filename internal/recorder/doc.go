// Package recorder assembles and runs the recording pipelines.
//
// For each configured venue it builds:
//   - A venue decoder and a WebSocket dialer
//   - One Parquet writer and batch per recorded table
//   - A stream consumer owning the connection and those tables
//   - Optionally a REST book poller with its own book_snapshot writer
//
// Finalized files are reported to the optional catalog and NATS
// observers. A pipeline that fails stops alone; the others keep
// recording until shutdown.
package recorder
