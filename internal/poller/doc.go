// Package poller implements the book snapshot poller.
//
// The poller:
//   - Fetches level 2 books over REST on a fixed interval
//   - Keeps the top five levels per side of each product
//   - Writes one row-group per cycle to the book_snapshot table
//   - Bounds concurrent requests with a semaphore
package poller
