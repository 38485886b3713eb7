package auxbus

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
)

// Defaults for the transaction layer, matching the bus convention of short
// per-read timeouts and three attempts per transaction.
const (
	DefaultRetries     = 3
	DefaultReadTimeout = 2 * time.Second
)

var (
	// ErrTimeout indicates a channel read returned no bytes within its
	// timeout.
	ErrTimeout = errors.New("read timed out")
	// ErrDeadline indicates the overall ReadPacket deadline expired before a
	// complete packet arrived. This bounds header seeking on a noisy line.
	ErrDeadline = errors.New("packet deadline exceeded")
)

// Communicator executes request/reply transactions on a bus channel. It is
// stateless apart from the address it speaks as and its tuning; it does not
// own the channel and retains no transaction history.
type Communicator struct {
	// Source is the address this instance represents on the bus.
	Source Target
	// Device labels diagnostic log lines, typically the driver or port name.
	Device string
	// Retries is the number of attempts per transaction.
	Retries int
	// ReadTimeout is the aggregate deadline for receiving one packet,
	// covering header seek, length and body.
	ReadTimeout time.Duration
}

// Option configures a Communicator.
type Option func(*Communicator)

// WithSource sets the address the communicator speaks as.
func WithSource(t Target) Option {
	return func(c *Communicator) { c.Source = t }
}

// WithDevice sets the diagnostic label used in log lines.
func WithDevice(name string) Option {
	return func(c *Communicator) { c.Device = name }
}

// WithRetries sets the number of attempts per transaction.
func WithRetries(n int) Option {
	return func(c *Communicator) {
		if n > 0 {
			c.Retries = n
		}
	}
}

// WithReadTimeout sets the aggregate per-packet read deadline.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Communicator) {
		if d > 0 {
			c.ReadTimeout = d
		}
	}
}

// NewCommunicator creates a Communicator. By default it speaks as the remote
// proxy address.
func NewCommunicator(opts ...Option) *Communicator {
	c := &Communicator{
		Source:      TargetNexRemote,
		Retries:     DefaultRetries,
		ReadTimeout: DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendPacket serializes and writes one packet. The channel is flushed first
// so the transaction does not trip over stale bytes. A write failure means
// the link itself is suspect and is not worth retrying.
func (c *Communicator) SendPacket(ch Channel, dest Target, cmd Command, data []byte) error {
	raw := NewPacket(c.Source, dest, cmd, data).Bytes()
	if err := ch.Flush(); err != nil {
		return &TransportError{Op: "flush", Err: err}
	}
	if glog.V(1) {
		glog.Infof("[%s] CMD <%s>", c.Device, HexStr(raw))
	}
	n, err := ch.Write(raw)
	if err != nil {
		glog.Errorf("[%s] write failed after %d bytes: %v", c.Device, n, err)
		return &TransportError{Op: "write", Err: err}
	}
	if n != len(raw) {
		return &TransportError{Op: "write", Err: io.ErrShortWrite}
	}
	return nil
}

// ReadPacket receives one packet from the channel: it seeks the header byte,
// reads the declared length, reads the body, and parses the assembled frame.
// The whole sequence runs under the communicator's read deadline. On a
// checksum failure the packet is returned alongside the error so callers can
// inspect the untrusted fields.
func (c *Communicator) ReadPacket(ch Channel) (*Packet, error) {
	deadline := time.Now().Add(c.ReadTimeout)

	var b [1]byte
	for {
		if err := c.readFull(ch, b[:], deadline, "read header"); err != nil {
			return nil, err
		}
		if b[0] == HeaderByte {
			break
		}
	}

	if err := c.readFull(ch, b[:], deadline, "read length"); err != nil {
		return nil, err
	}
	length := int(b[0])

	// length covers source, destination, command and payload; the one extra
	// byte is the checksum.
	raw := make([]byte, length+3)
	raw[0], raw[1] = HeaderByte, byte(length)
	if err := c.readFull(ch, raw[2:], deadline, "read body"); err != nil {
		return nil, err
	}

	if glog.V(1) {
		glog.Infof("[%s] RES <%s>", c.Device, HexStr(raw))
	}

	pkt := new(Packet)
	if err := pkt.Parse(raw); err != nil {
		glog.Errorf("[%s] %v <%s>", c.Device, err, HexStr(raw))
		var cerr *ChecksumError
		if errors.As(err, &cerr) {
			return pkt, err
		}
		return nil, err
	}
	return pkt, nil
}

// readFull fills buf from the channel, failing on any zero-byte (timed out)
// read or once the deadline passes.
func (c *Communicator) readFull(ch Channel, buf []byte, deadline time.Time, op string) error {
	for off := 0; off < len(buf); {
		if !time.Now().Before(deadline) {
			return &TransportError{Op: op, Err: ErrDeadline}
		}
		n, err := ch.Read(buf[off:])
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		if n == 0 {
			return &TransportError{Op: op, Err: ErrTimeout}
		}
		off += n
	}
	return nil
}

// SendCommand executes one transaction: send the request, receive a reply,
// and validate that the reply answers this request. A failed read or a reply
// that belongs to some other exchange on the shared bus is retried, up to the
// configured attempt count. A write failure aborts immediately. On success it
// returns the reply payload.
func (c *Communicator) SendCommand(ch Channel, dest Target, cmd Command, data []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.Retries; attempt++ {
		if err := c.SendPacket(ch, dest, cmd, data); err != nil {
			return nil, err
		}

		reply, err := c.ReadPacket(ch)
		if err != nil {
			lastErr = err
			continue
		}

		if reply.Command != cmd || reply.Destination != TargetApp || reply.Source != dest {
			lastErr = &MismatchError{WantCommand: cmd, WantSource: dest, Reply: reply}
			glog.Errorf("[%s] %v", c.Device, lastErr)
			continue
		}

		return reply.Data, nil
	}
	return nil, fmt.Errorf("no valid reply from %s for command %s after %d attempts: %w",
		dest, cmd, c.Retries, lastErr)
}

// Command executes a transaction with an empty payload.
func (c *Communicator) Command(ch Channel, dest Target, cmd Command) ([]byte, error) {
	return c.SendCommand(ch, dest, cmd, nil)
}

// CommandBlind executes a transaction and discards the reply payload. The
// reply is still read and validated with the full retry rigor.
func (c *Communicator) CommandBlind(ch Channel, dest Target, cmd Command, data []byte) error {
	_, err := c.SendCommand(ch, dest, cmd, data)
	return err
}
