// Package netutil provides TCP reachability probing for miner hosts.
package netutil

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Prober checks whether TCP ports are reachable on a host.
type Prober struct {
	timeout time.Duration
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProbeTimeout sets the timeout for each probe attempt.
func WithProbeTimeout(timeout time.Duration) ProberOption {
	return func(p *Prober) {
		p.timeout = timeout
	}
}

// NewProber creates a new prober.
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		timeout: 2 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// IsPortOpen checks if a TCP port is open on the given host.
func (p *Prober) IsPortOpen(ctx context.Context, host string, port int) bool {
	address := fmt.Sprintf("%s:%d", host, port)

	dialer := &net.Dialer{
		Timeout: p.timeout,
	}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
