package auxbus

import "io"

// Channel is the transport for one bus link. Implementations enforce a
// per-read timeout: a Read that times out returns the bytes received so far
// (possibly zero) with a nil error. The transaction layer treats a zero-byte
// read as a failed attempt.
//
// Channels are not safe for concurrent transactions; callers must serialize
// access themselves.
type Channel interface {
	io.ReadWriter

	// Flush discards buffered input and any pending output, so a new
	// transaction does not see stale bytes from an earlier one.
	Flush() error
}
