package host

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ovirt/node-setup/internal/logging"
)

// Host bundles the collaborators used by transaction elements.
type Host struct {
	Prober    Prober
	Passwords PasswordSetter
	Services  ServiceManager
	Agent     Agent
}

// Probe methods accepted by Options.
const (
	ProbePing = "ping"
	ProbeTCP  = "tcp"
)

// Options configures an exec-backed Host.
type Options struct {
	Probe          string // ProbePing or ProbeTCP
	ProbeTimeout   time.Duration
	CommandTimeout time.Duration
	AgentHook      string
}

// NewExec returns a Host that changes the running system.
func NewExec(opts Options, logger *zap.Logger) (*Host, error) {
	runner := NewExecRunner(opts.CommandTimeout, logger)
	services := &Systemctl{Runner: runner}

	var prober Prober
	switch opts.Probe {
	case ProbePing, "":
		prober = &PingProber{Runner: runner, Timeout: opts.ProbeTimeout}
	case ProbeTCP:
		prober = &DialProber{Timeout: opts.ProbeTimeout}
	default:
		return nil, fmt.Errorf("unknown probe method %q", opts.Probe)
	}

	return &Host{
		Prober:    prober,
		Passwords: &Chpasswd{Runner: runner},
		Services:  services,
		Agent:     &VDSMAgent{Services: services, Runner: runner, Hook: opts.AgentHook},
	}, nil
}

// NewDryRun returns a Host that only logs and records changes. Probes are
// delegated to prober so that validation still happens; a nil prober
// accepts every address.
func NewDryRun(prober Prober) (*Host, *DryRun) {
	d := &DryRun{}
	if prober == nil {
		prober = d
	}
	return &Host{Prober: prober, Passwords: d, Services: d, Agent: d}, d
}

// DryRun records calls instead of executing them.
type DryRun struct {
	mu    sync.Mutex
	calls []string

	// Fail maps a call prefix such as "enable cim" to the error it returns.
	// The longest matching prefix wins.
	Fail map[string]error
}

// Calls returns the recorded calls in order.
func (d *DryRun) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *DryRun) record(call string) error {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	var err error
	longest := -1
	for prefix, e := range d.Fail {
		if strings.HasPrefix(call, prefix) && len(prefix) > longest {
			err, longest = e, len(prefix)
		}
	}
	d.mu.Unlock()

	logging.Warn("Dry run, not changing the system", zap.String("call", call))
	return err
}

// Probe implements Prober.
func (d *DryRun) Probe(_ context.Context, address, _ string) error {
	if err := d.record("probe " + address); err != nil {
		return &ProbeError{Address: address, Err: err}
	}
	return nil
}

// SetPassword implements PasswordSetter. The password is not recorded.
func (d *DryRun) SetPassword(_ context.Context, user, _ string) error {
	return d.record("password " + user)
}

// Enable implements ServiceManager.
func (d *DryRun) Enable(_ context.Context, name string) error {
	return d.record("enable " + name)
}

// Disable implements ServiceManager.
func (d *DryRun) Disable(_ context.Context, name string) error {
	return d.record("disable " + name)
}

// Restart implements ServiceManager.
func (d *DryRun) Restart(_ context.Context, name string) error {
	return d.record("restart " + name)
}

// Configure implements Agent.
func (d *DryRun) Configure(_ context.Context, server, port string) error {
	return d.record("configure " + server + ":" + port)
}

// Activate implements Agent.
func (d *DryRun) Activate(context.Context) error {
	return d.record("activate")
}
