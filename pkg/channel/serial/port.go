// Package serial provides a serial port bus channel.
package serial

import (
	"io"
	"time"

	"github.com/tarm/serial"
)

// Config describes the port to open. The bus convention is 19200 8N1.
type Config struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

// Port is an open serial port implementing auxbus.Channel.
type Port struct {
	port *serial.Port
}

// Open opens the port. Baud defaults to 19200 and ReadTimeout to 2s when
// unset.
func Open(cfg Config) (*Port, error) {
	if cfg.Baud == 0 {
		cfg.Baud = 19200
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &Port{port: p}, nil
}

// Read implements io.Reader. A timed-out read returns 0 bytes with a nil
// error; tarm/serial reports it as EOF on POSIX.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if n == 0 && err == io.EOF {
		return 0, nil
	}
	return n, err
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Flush discards unread input and unsent output.
func (p *Port) Flush() error {
	return p.port.Flush()
}

// Close closes the port.
func (p *Port) Close() error {
	return p.port.Close()
}
