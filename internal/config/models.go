package config

import (
	"time"

	"github.com/ovirt/node-setup/internal/host"
)

// Settings is the node-setup tool configuration. It describes where page
// values are persisted and how the host is reached; it never holds the
// page values themselves.
type Settings struct {
	Version int           `yaml:"version" mapstructure:"version"`
	Store   StoreSettings `yaml:"store" mapstructure:"store"`
	Probe   ProbeSettings `yaml:"probe" mapstructure:"probe"`
	Agent   AgentSettings `yaml:"agent" mapstructure:"agent"`
	Log     LogSettings   `yaml:"log" mapstructure:"log"`
	DryRun  bool          `yaml:"dry_run" mapstructure:"dry_run"`
}

// StoreSettings selects the configuration store backend.
type StoreSettings struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // file, sqlite or memory
	Path    string `yaml:"path" mapstructure:"path"`
}

// ProbeSettings controls the reachability check run before activation.
type ProbeSettings struct {
	Method  string        `yaml:"method" mapstructure:"method"` // ping or tcp
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// AgentSettings configures the management agent commands.
type AgentSettings struct {
	Hook           string        `yaml:"hook,omitempty" mapstructure:"hook"`
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
}

// LogSettings mirrors NODE_SETUP_LOG_LEVEL and NODE_SETUP_LOG_FILE.
type LogSettings struct {
	Level string `yaml:"level,omitempty" mapstructure:"level"`
	File  string `yaml:"file,omitempty" mapstructure:"file"`
}

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Store: StoreSettings{
			Backend: "file",
			Path:    DefaultStorePath(),
		},
		Probe: ProbeSettings{
			Method:  host.ProbePing,
			Timeout: host.DefaultProbeTimeout,
		},
		Agent: AgentSettings{
			CommandTimeout: host.DefaultCommandTimeout,
		},
	}
}

// HostOptions converts the probe and agent settings for host.NewExec.
func (s *Settings) HostOptions() host.Options {
	return host.Options{
		Probe:          s.Probe.Method,
		ProbeTimeout:   s.Probe.Timeout,
		CommandTimeout: s.Agent.CommandTimeout,
		AgentHook:      s.Agent.Hook,
	}
}
