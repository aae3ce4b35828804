package protocol

import (
	"net"
	"time"
)

// IdleConn refreshes the read deadline before every read, so a stalled peer
// releases the reactor after timeout instead of holding it forever. A zero timeout
// leaves reads unbounded.
type IdleConn struct {
	net.Conn
	Timeout time.Duration
}

func (c IdleConn) Read(p []byte) (int, error) {
	if c.Timeout > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.Timeout))
	}
	return c.Conn.Read(p)
}

func (c IdleConn) Write(p []byte) (int, error) {
	if c.Timeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Timeout))
	}
	return c.Conn.Write(p)
}
