package setup

import (
	"context"

	"github.com/ovirt/node-setup/internal/changeset"
	"github.com/ovirt/node-setup/internal/defaults"
	"github.com/ovirt/node-setup/internal/host"
	"github.com/ovirt/node-setup/internal/store"
	"github.com/ovirt/node-setup/internal/transaction"
	"github.com/ovirt/node-setup/internal/valid"
)

// CIM page keys.
const (
	KeyCIMEnabled      = "cim.enabled"
	KeyCIMPassword     = "cim.password"
	KeyCIMConfirmation = "cim.password_confirmation"
)

// CIM configures the CIM service.
type CIM struct {
	base
	store store.Store
	host  *host.Host
}

// NewCIM returns the CIM page.
func NewCIM(st store.Store, h *host.Host) *CIM {
	return &CIM{
		base:  newBase("CIM", "Updating CIM configuration"),
		store: st,
		host:  h,
	}
}

// Rank implements Page.
func (c *CIM) Rank() int { return 45 }

// Model returns the CIM keys. Passwords always start empty.
func (c *CIM) Model() (changeset.Model, error) {
	cfg, err := defaults.NewCIM(c.store).Config()
	if err != nil {
		return nil, err
	}
	return changeset.Model{
		KeyCIMEnabled:      cfg.Enabled,
		KeyCIMPassword:     "",
		KeyCIMConfirmation: "",
	}, nil
}

// Validators implements Page.
func (c *CIM) Validators() map[string]valid.Chain {
	return map[string]valid.Chain{
		KeyCIMEnabled:      valid.Or(valid.Boolean()),
		KeyCIMPassword:     valid.Or(valid.Text()),
		KeyCIMConfirmation: valid.Or(valid.SameAs("Password", func() string { return c.value(KeyCIMPassword) })),
	}
}

// Layout implements Page.
func (c *CIM) Layout() []Widget {
	return []Widget{
		{Kind: WidgetHeader, Label: "CIM"},
		{Kind: WidgetCheckbox, Key: KeyCIMEnabled, Label: "Enable CIM"},
		{Kind: WidgetHeader, Label: "CIM Password"},
		{Kind: WidgetPassword, Key: KeyCIMPassword, Label: "Password:"},
		{Kind: WidgetPassword, Key: KeyCIMConfirmation, Label: "Confirm Password:"},
	}
}

// OnChange validates changes and records them as pending.
func (c *CIM) OnChange(changes changeset.ChangeSet) error {
	return c.onChange(c, changes)
}

// Merge runs the transaction for the pending changes.
func (c *CIM) Merge(ctx context.Context, effective changeset.ChangeSet) (*transaction.Result, error) {
	return c.merge(ctx, c, effective)
}

// Rules returns the key groups of the page in application order.
func (c *CIM) Rules() []Rule {
	return []Rule{
		{
			Name:  "cim",
			Keys:  []string{KeyCIMPassword, KeyCIMEnabled},
			Build: c.buildCIM,
		},
	}
}

// BuildTransaction implements Page.
func (c *CIM) BuildTransaction(changes, effective changeset.ChangeSet) (*transaction.Transaction, error) {
	return buildFromRules(c.title, c.Rules(), changes, effective)
}

func (c *CIM) buildCIM(effective changeset.ChangeSet) (*transaction.Transaction, error) {
	section := defaults.NewCIM(c.store)
	if err := section.Update(effective.GetBool(KeyCIMEnabled)); err != nil {
		return nil, err
	}
	return section.Transaction(c.host, effective.GetString(KeyCIMPassword))
}
