// Package ws provides a websocket-backed bus channel.
package ws

import (
	"net"
	"time"

	"golang.org/x/net/websocket"
)

// Channel implements auxbus.Channel over a websocket connection carrying raw
// bus bytes in binary frames.
type Channel struct {
	ReadTimeout time.Duration

	conn *websocket.Conn
}

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *Channel {
	return &Channel{
		ReadTimeout: 2 * time.Second,
		conn:        conn,
	}
}

// Dial connects to a websocket bus endpoint.
func Dial(wsURL string) (*Channel, error) {
	conn, err := websocket.Dial(wsURL, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Read implements io.Reader. A timed-out read returns 0 bytes.
func (c *Channel) Read(p []byte) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.ReadTimeout)); err != nil {
		return 0, err
	}
	n, err := c.conn.Read(p)
	if isTimeout(err) {
		return n, nil
	}
	return n, err
}

// Write implements io.Writer.
func (c *Channel) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

// Flush discards any bytes already buffered on the connection.
func (c *Channel) Flush() error {
	var scratch [64]byte
	for {
		if err := c.conn.SetReadDeadline(time.Now()); err != nil {
			return err
		}
		n, err := c.conn.Read(scratch[:])
		if isTimeout(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// Close closes the connection.
func (c *Channel) Close() error {
	return c.conn.Close()
}

func isTimeout(err error) bool {
	nerr, ok := err.(net.Error)
	return ok && nerr.Timeout()
}
