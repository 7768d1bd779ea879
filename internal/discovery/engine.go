package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Engine is a management engine found on the local network.
type Engine struct {
	// Instance is the advertised service instance name
	Instance string

	// Hostname is the mDNS hostname (e.g., "engine.local.")
	Hostname string

	// IP is the address to register against, IPv4 when available
	IP string

	// Port is the management port the engine accepts registrations on
	Port int

	// Metadata contains the TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the engine was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the engine
func (e *Engine) String() string {
	return fmt.Sprintf("oVirt Engine %s (%s) at %s", e.Instance, e.Hostname, e.Address())
}

// Address returns "ip:port", bracketing IPv6 addresses.
func (e *Engine) Address() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(e.Port))
}

// PortString returns the port in the form stored by the Engine page.
func (e *Engine) PortString() string {
	return strconv.Itoa(e.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (e *Engine) GetMetadata(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}
