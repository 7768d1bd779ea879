// Package discovery finds management engines on the local network with
// multicast DNS.
//
// Engines advertise themselves as "_ovirt-engine._tcp" in "local.". The
// scanner collects every answer received before its timeout:
//
//	engines, err := discovery.NewScanner().ScanForEngines(ctx)
//	for _, e := range engines {
//	    fmt.Println(e.Instance, e.Address())
//	}
//
// The port comes from the service record, a "port" TXT record overrides it,
// and DefaultPort is used when neither is set.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - The engine must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
