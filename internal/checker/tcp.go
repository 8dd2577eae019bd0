package checker

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Default port probe settings.
const (
	DefaultProbeTimeout     = 2 * time.Second
	DefaultProbeInterval    = 200 * time.Millisecond
	DefaultProbeDialTimeout = 500 * time.Millisecond
)

// PortProbe polls a TCP port until it accepts a connection or the window
// closes. Zero fields take the package defaults.
type PortProbe struct {
	Timeout     time.Duration
	Interval    time.Duration
	DialTimeout time.Duration
}

func (p PortProbe) withDefaults() PortProbe {
	if p.Timeout <= 0 {
		p.Timeout = DefaultProbeTimeout
	}
	if p.Interval <= 0 {
		p.Interval = DefaultProbeInterval
	}
	if p.DialTimeout <= 0 {
		p.DialTimeout = DefaultProbeDialTimeout
	}
	return p
}

// Wait reports whether host:port accepted a TCP connection within the
// probe window.
func (p PortProbe) Wait(ctx context.Context, host string, port int) bool {
	p = p.withDefaults()
	target := net.JoinHostPort(host, strconv.Itoa(port))
	deadline := time.Now().Add(p.Timeout)
	dialer := &net.Dialer{Timeout: p.DialTimeout}

	for time.Now().Before(deadline) {
		conn, err := dialer.DialContext(ctx, "tcp", target)
		if err == nil {
			conn.Close()
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.Interval):
		}
	}
	return false
}
