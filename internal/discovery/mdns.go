package discovery

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/ovirt/node-setup/internal/logging"
)

const (
	// ServiceType is the mDNS service type engines advertise
	ServiceType = "_ovirt-engine._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for engine discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is used when an entry carries neither a port nor a
	// "port" TXT record
	DefaultPort = 7634
)

// BrowseFunc starts browsing for service in domain and sends entries until
// ctx is done.
type BrowseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Scanner handles mDNS engine discovery
type Scanner struct {
	// Timeout is the maximum time to wait for engine discovery
	Timeout time.Duration

	// Browse defaults to a zeroconf resolver on all interfaces
	Browse BrowseFunc

	Logger *zap.Logger
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		Browse:  zeroconfBrowse,
		Logger:  logging.GetLogger(),
	}
}

func zeroconfBrowse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// zeroconf wants a bidirectional channel.
	bridge := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range bridge {
			select {
			case entries <- entry:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, service, domain, bridge); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// ScanForEngines collects engines until the timeout or ctx expires. Entries
// are deduplicated by instance name and returned sorted by instance.
func (s *Scanner) ScanForEngines(ctx context.Context) ([]*Engine, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	browse := s.Browse
	if browse == nil {
		browse = zeroconfBrowse
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu    sync.Mutex
		found = make(map[string]*Engine)
		wg    sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case entry := <-entries:
				engine := parseServiceEntry(entry)
				if engine == nil {
					continue
				}
				s.logger().Debug("Discovered engine",
					zap.String("instance", engine.Instance),
					zap.String("address", engine.Address()),
				)
				mu.Lock()
				found[engine.Instance] = engine
				mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		cancel()
		wg.Wait()
		return nil, err
	}

	<-ctx.Done()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	engines := make([]*Engine, 0, len(found))
	for _, e := range found {
		engines = append(engines, e)
	}
	sort.Slice(engines, func(i, j int) bool { return engines[i].Instance < engines[j].Instance })
	return engines, nil
}

// WaitForEngine returns the first engine advertised under instance.
func (s *Scanner) WaitForEngine(ctx context.Context, instance string) (*Engine, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	browse := s.Browse
	if browse == nil {
		browse = zeroconfBrowse
	}

	entries := make(chan *zeroconf.ServiceEntry)
	engineChan := make(chan *Engine, 1)

	go func() {
		for {
			select {
			case entry := <-entries:
				engine := parseServiceEntry(entry)
				if engine != nil && engine.Instance == instance {
					engineChan <- engine
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, err
	}

	select {
	case engine := <-engineChan:
		return engine, nil
	case <-ctx.Done():
		// The finder may have won the race against cancel.
		select {
		case engine := <-engineChan:
			return engine, nil
		default:
		}
		return nil, fmt.Errorf("engine %q not found within %s", instance, s.Timeout)
	}
}

func (s *Scanner) logger() *zap.Logger {
	if s.Logger == nil {
		return logging.GetLogger()
	}
	return s.Logger
}

// parseServiceEntry converts a zeroconf service entry to an Engine.
// Returns nil for entries without a usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Engine {
	if entry == nil {
		return nil
	}

	// Prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	port := entry.Port
	if p, err := strconv.Atoi(metadata["port"]); err == nil && p > 0 && p <= 65535 {
		port = p
	}
	if port == 0 {
		port = DefaultPort
	}

	instance := entry.Instance
	if instance == "" {
		instance = strings.TrimSuffix(entry.HostName, ".")
	}

	return &Engine{
		Instance:     instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
