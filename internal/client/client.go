// Package client speaks the control-socket protocol: one command per connection,
// the reply is everything the daemon writes before closing.
package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client dials the daemon's unix socket.
type Client struct {
	SocketPath string
	Timeout    time.Duration
}

func New(socketPath string) *Client {
	return &Client{SocketPath: socketPath, Timeout: defaultTimeout}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.SocketPath, err)
	}
	if c.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.Timeout))
	}
	return conn, nil
}

// Send writes cmd followed by a newline and returns the reply.
func (c *Client) Send(ctx context.Context, cmd string) (string, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if _, err := io.WriteString(conn, strings.TrimRight(cmd, "\n")+"\n"); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	return readReply(conn)
}

// Upload sends "<verb> <name> <size>\n" followed by exactly size bytes from r.
func (c *Client) Upload(ctx context.Context, verb, name string, r io.Reader, size int64) (string, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s %s %d\n", verb, name, size); err != nil {
		return "", fmt.Errorf("send header: %w", err)
	}
	if _, err := io.CopyN(conn, r, size); err != nil {
		return "", fmt.Errorf("send payload: %w", err)
	}
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
	return readReply(conn)
}

func readReply(conn net.Conn) (string, error) {
	b, err := io.ReadAll(conn)
	if err != nil && len(b) == 0 {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return string(b), nil
}
