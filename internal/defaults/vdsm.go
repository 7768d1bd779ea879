package defaults

import (
	"context"

	"go.uber.org/zap"

	"github.com/ovirt/node-setup/internal/host"
	"github.com/ovirt/node-setup/internal/logging"
	"github.com/ovirt/node-setup/internal/store"
	"github.com/ovirt/node-setup/internal/transaction"
	"github.com/ovirt/node-setup/internal/valid"
)

// Store keys of the management server section.
const (
	KeyManagementServer = "OVIRT_MANAGEMENT_SERVER"
	KeyManagementPort   = "OVIRT_MANAGEMENT_PORT"
)

// DefaultManagementPort is used until a port is saved.
const DefaultManagementPort = "7634"

// VDSMConfig is a snapshot of the management server settings.
type VDSMConfig struct {
	Server string
	Port   string
}

// VDSM is the management server section.
type VDSM struct {
	*Section
}

// NewVDSM returns the management server section over st.
func NewVDSM(st store.Store) *VDSM {
	return &VDSM{Section: NewSection(st, "VDSM",
		Field{
			Key:       KeyManagementServer,
			Name:      "server",
			Validator: valid.Or(valid.Empty(), valid.FQDNOrIPAddress()),
		},
		Field{
			Key:       KeyManagementPort,
			Name:      "port",
			Default:   DefaultManagementPort,
			Validator: valid.Or(valid.Empty(), valid.Port()),
		},
	)}
}

// Update validates and saves server and port.
func (v *VDSM) Update(server, port string) error {
	return v.Section.Update(server, port)
}

// Config reads the current settings.
func (v *VDSM) Config() (VDSMConfig, error) {
	cfg, err := v.Retrieve()
	if err != nil {
		return VDSMConfig{}, err
	}
	return VDSMConfig{Server: cfg["server"], Port: cfg["port"]}, nil
}

// Transaction returns the steps applying the saved settings. The settings
// are read now; later store changes do not affect the returned steps.
func (v *VDSM) Transaction(agent host.Agent) (*transaction.Transaction, error) {
	cfg, err := v.Config()
	if err != nil {
		return nil, err
	}
	return transaction.New("Configuring VDSM", &ConfigureVDSM{Config: cfg, Agent: agent}), nil
}

// ConfigureVDSM hands a server and port to the node agent.
type ConfigureVDSM struct {
	Config VDSMConfig
	Agent  host.Agent
}

// Title implements transaction.Element.
func (c *ConfigureVDSM) Title() string { return "Setting VDSM server and port" }

// Prepare implements transaction.Element.
func (c *ConfigureVDSM) Prepare(context.Context) error { return nil }

// Commit implements transaction.Element.
func (c *ConfigureVDSM) Commit(ctx context.Context) error {
	logging.Info("Setting: "+c.Config.Server+":"+c.Config.Port,
		zap.String("server", c.Config.Server),
		zap.String("port", c.Config.Port),
	)
	return c.Agent.Configure(ctx, c.Config.Server, c.Config.Port)
}
