// Package connection implements the WebSocket transport used by the stream
// consumer.
//
// A Client:
//   - Dials one venue endpoint and never reconnects by itself
//   - Reads frames in a dedicated goroutine into an unbounded buffer
//   - Pings the server and closes the socket when traffic stops
//   - Closes Messages() once every buffered frame has been delivered
//
// Reconnection with backoff lives in package stream.
package connection
