// Package database connects to PostgreSQL and maintains the file catalog.
//
// The catalog is optional. When enabled, every finalized Parquet file gets
// one row keyed by its path, so downstream jobs can find new files without
// listing the output directory. Catalog failures never affect the files
// themselves.
package database
