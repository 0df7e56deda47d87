// Package writer persists batches of records as Parquet files.
//
// Each Writer owns one table directory, <dir>/<venue>/<table>/, and appends
// every submitted batch as one row-group. Files are named by a nine-digit
// sequence number (000000000.parquet, 000000001.parquet, ...) and carry a
// .partial suffix until their footer is written, so a reader never sees an
// incomplete file under its final name.
//
// Files rotate when any configured threshold is reached:
//   - MaxRecords: records in the file
//   - MaxRowGroups: row-groups in the file
//   - MaxFileBytes: bytes written
//   - MaxFileAge: time since the file was opened
//
// Any filesystem error fails the writer permanently.
package writer
