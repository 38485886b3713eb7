package auxbus

import "fmt"

// StructuralError indicates a raw buffer that is not even a well-formed
// packet: too short, wrong header byte, or a declared length that disagrees
// with the actual buffer size.
type StructuralError struct {
	Reason string
}

// Error implements error.
func (e *StructuralError) Error() string {
	return "malformed packet: " + e.Reason
}

// ChecksumError indicates a structurally valid packet whose checksum does not
// verify. The packet fields are populated but must not be trusted.
type ChecksumError struct {
	Want byte
	Got  byte
}

// Error implements error.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: computed 0x%02X, packet carries 0x%02X", e.Want, e.Got)
}

// TransportError wraps a failure of the underlying channel primitive, either
// an I/O error or a timed-out/short read.
type TransportError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying channel error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// MismatchError indicates a valid packet that does not belong to the
// outstanding request: wrong command, wrong source, or not addressed back to
// the host. Expected on a shared bus with cross-talk.
type MismatchError struct {
	WantCommand Command
	WantSource  Target
	Reply       *Packet
}

// Error implements error.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("reply mismatch: want command %s from %s to %s, got command %s from %s to %s",
		e.WantCommand, e.WantSource, TargetApp,
		e.Reply.Command, e.Reply.Source, e.Reply.Destination)
}
