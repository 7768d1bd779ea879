package defaults

import (
	"context"

	"github.com/ovirt/node-setup/internal/changeset"
	"github.com/ovirt/node-setup/internal/host"
	"github.com/ovirt/node-setup/internal/store"
	"github.com/ovirt/node-setup/internal/transaction"
	"github.com/ovirt/node-setup/internal/valid"
)

// KeyCIMEnabled is the store key of the CIM switch.
const KeyCIMEnabled = "OVIRT_CIM_ENABLED"

// CIM service and account names.
const (
	CIMService = "sblim-sfcb"
	CIMUser    = "cim"
)

// CIMConfig is a snapshot of the CIM settings.
type CIMConfig struct {
	Enabled bool
}

// CIM is the CIM section.
type CIM struct {
	*Section
}

// NewCIM returns the CIM section over st.
func NewCIM(st store.Store) *CIM {
	return &CIM{Section: NewSection(st, "CIM",
		Field{
			Key:       KeyCIMEnabled,
			Name:      "enabled",
			Validator: valid.Or(valid.Empty(), valid.Boolean()),
		},
	)}
}

// Update saves the enabled flag.
func (c *CIM) Update(enabled bool) error {
	v := ""
	if enabled {
		v = "1"
	}
	return c.Section.Update(v)
}

// Config reads the current settings.
func (c *CIM) Config() (CIMConfig, error) {
	cfg, err := c.Retrieve()
	if err != nil {
		return CIMConfig{}, err
	}
	return CIMConfig{Enabled: changeset.AsBool(cfg["enabled"])}, nil
}

// Transaction returns the steps applying the saved settings and, when
// password is not empty, setting the CIM account password.
func (c *CIM) Transaction(h *host.Host, password string) (*transaction.Transaction, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}

	tx := transaction.New("Configuring CIM", &ConfigureCIM{Config: cfg, Services: h.Services})
	if password != "" {
		if err := tx.Append(&SetCIMPassword{Password: password, Passwords: h.Passwords}); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

// ConfigureCIM starts or stops the CIM service.
type ConfigureCIM struct {
	Config   CIMConfig
	Services host.ServiceManager
}

// Title implements transaction.Element.
func (c *ConfigureCIM) Title() string {
	if c.Config.Enabled {
		return "Enabling CIM"
	}
	return "Disabling CIM"
}

// Prepare implements transaction.Element.
func (c *ConfigureCIM) Prepare(context.Context) error { return nil }

// Commit implements transaction.Element.
func (c *ConfigureCIM) Commit(ctx context.Context) error {
	if c.Config.Enabled {
		return c.Services.Enable(ctx, CIMService)
	}
	return c.Services.Disable(ctx, CIMService)
}

// SetCIMPassword sets the password of the CIM account.
type SetCIMPassword struct {
	transaction.Base
	Password  string
	Passwords host.PasswordSetter
}

// Title implements transaction.Element.
func (s *SetCIMPassword) Title() string { return "Setting CIM password" }

// Commit implements transaction.Element.
func (s *SetCIMPassword) Commit(ctx context.Context) error {
	return s.Passwords.SetPassword(ctx, CIMUser, s.Password)
}
