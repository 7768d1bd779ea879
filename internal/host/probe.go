package host

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Prober checks that address is reachable. port is the management port
// saved with the address; probers that do not dial a port ignore it.
type Prober interface {
	Probe(ctx context.Context, address, port string) error
}

// ProbeFunc adapts a function to Prober.
type ProbeFunc func(ctx context.Context, address, port string) error

// Probe implements Prober.
func (f ProbeFunc) Probe(ctx context.Context, address, port string) error {
	return f(ctx, address, port)
}

// DefaultProbeTimeout bounds a single reachability probe.
const DefaultProbeTimeout = 5 * time.Second

// PingProber sends one ICMP echo request with the system ping binary.
type PingProber struct {
	Runner  Runner
	Timeout time.Duration
}

// Probe implements Prober. The port is not used.
func (p *PingProber) Probe(ctx context.Context, address, _ string) error {
	if address == "" {
		return &ProbeError{Address: address, Err: fmt.Errorf("no server configured")}
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	secs := int(timeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if _, err := p.Runner.Run(ctx, "", "ping", "-c", "1", "-W", strconv.Itoa(secs), address); err != nil {
		return &ProbeError{Address: address, Err: err}
	}
	return nil
}

// DialProber opens a TCP connection to the probed address and port. It
// works where ICMP is filtered.
type DialProber struct {
	Timeout time.Duration
}

// Probe implements Prober.
func (p *DialProber) Probe(ctx context.Context, address, port string) error {
	if address == "" {
		return &ProbeError{Address: address, Err: fmt.Errorf("no server configured")}
	}
	if port == "" {
		return &ProbeError{Address: address, Err: fmt.Errorf("no port configured")}
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	dialer := net.Dialer{
		Timeout: timeout,
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(address, port))
	if err != nil {
		return &ProbeError{Address: address, Err: err}
	}
	defer conn.Close()

	return nil
}
