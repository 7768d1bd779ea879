package setup

import (
	"context"

	"go.uber.org/zap"

	"github.com/ovirt/node-setup/internal/changeset"
	"github.com/ovirt/node-setup/internal/defaults"
	"github.com/ovirt/node-setup/internal/host"
	"github.com/ovirt/node-setup/internal/logging"
	"github.com/ovirt/node-setup/internal/store"
	"github.com/ovirt/node-setup/internal/transaction"
	"github.com/ovirt/node-setup/internal/valid"
)

// Engine page keys.
const (
	KeyEngineAddress      = "vdsm.address"
	KeyEnginePort         = "vdsm.port"
	KeyEngineConnect      = "vdsm.connect_and_validate"
	KeyEnginePassword     = "vdsm.password"
	KeyEngineConfirmation = "vdsm.password_confirmation"
)

// EngineUser is the account the engine logs in with to add the node.
const EngineUser = "root"

// Engine configures the connection to the management engine.
type Engine struct {
	base
	store store.Store
	host  *host.Host
}

// NewEngine returns the engine page.
func NewEngine(st store.Store, h *host.Host) *Engine {
	return &Engine{
		base:  newBase("oVirt Engine", "Configuring oVirt Engine"),
		store: st,
		host:  h,
	}
}

// Rank implements Page.
func (e *Engine) Rank() int { return 100 }

// Model returns the engine keys. Address and port show the saved values.
func (e *Engine) Model() (changeset.Model, error) {
	cfg, err := defaults.NewVDSM(e.store).Config()
	if err != nil {
		return nil, err
	}
	return changeset.Model{
		KeyEngineAddress:      cfg.Server,
		KeyEnginePort:         cfg.Port,
		KeyEngineConnect:      false,
		KeyEnginePassword:     "",
		KeyEngineConfirmation: "",
	}, nil
}

// Validators returns the field validators. The confirmation is checked
// against the pending password.
func (e *Engine) Validators() map[string]valid.Chain {
	return map[string]valid.Chain{
		KeyEngineAddress:      valid.Or(valid.FQDNOrIPAddress(), valid.Empty()),
		KeyEnginePort:         valid.Or(valid.Port()),
		KeyEngineConnect:      valid.Or(valid.Boolean()),
		KeyEnginePassword:     valid.Or(valid.Text()),
		KeyEngineConfirmation: valid.Or(valid.SameAs("Password", func() string { return e.value(KeyEnginePassword) })),
	}
}

// Layout implements Page.
func (e *Engine) Layout() []Widget {
	return []Widget{
		{Kind: WidgetHeader, Label: "oVirt Engine Configuration"},
		{Kind: WidgetEntry, Key: KeyEngineAddress, Label: "Management Server:"},
		{Kind: WidgetEntry, Key: KeyEnginePort, Label: "Management Server Port:"},
		{Kind: WidgetCheckbox, Key: KeyEngineConnect, Label: "Connect to oVirt Engine and Validate Certificate"},
		{Kind: WidgetLabel, Label: "Optional password for adding Node through oVirt Engine UI"},
		{Kind: WidgetPassword, Key: KeyEnginePassword, Label: "Password:"},
		{Kind: WidgetPassword, Key: KeyEngineConfirmation, Label: "Confirm Password:"},
	}
}

// OnChange validates changes and records them as pending.
func (e *Engine) OnChange(changes changeset.ChangeSet) error {
	return e.onChange(e, changes)
}

// Merge runs the transaction for the pending changes.
func (e *Engine) Merge(ctx context.Context, effective changeset.ChangeSet) (*transaction.Result, error) {
	return e.merge(ctx, e, effective)
}

// Rules returns the key groups of the page in application order.
func (e *Engine) Rules() []Rule {
	return []Rule{
		{
			Name:  "server",
			Keys:  []string{KeyEngineAddress, KeyEnginePort},
			Build: e.buildServer,
		},
		{
			Name:  "password",
			Keys:  []string{KeyEngineConfirmation},
			Build: e.buildPassword,
		},
		{
			Name:  "activate",
			Keys:  []string{KeyEngineConnect},
			Build: e.buildActivate,
		},
	}
}

// BuildTransaction implements Page.
func (e *Engine) BuildTransaction(changes, effective changeset.ChangeSet) (*transaction.Transaction, error) {
	return buildFromRules(e.title, e.Rules(), changes, effective)
}

func (e *Engine) buildServer(effective changeset.ChangeSet) (*transaction.Transaction, error) {
	values := effective.Strings(KeyEngineAddress, KeyEnginePort)
	logging.Debug("Setting VDSM server and port", zap.Strings("values", values))

	vdsm := defaults.NewVDSM(e.store)
	if err := vdsm.Update(values[0], values[1]); err != nil {
		return nil, err
	}
	return vdsm.Transaction(e.host.Agent)
}

func (e *Engine) buildPassword(effective changeset.ChangeSet) (*transaction.Transaction, error) {
	logging.Debug("Setting engine password")
	return transaction.New("", &SetEnginePassword{
		Password:  effective.GetString(KeyEnginePassword),
		Passwords: e.host.Passwords,
	}), nil
}

func (e *Engine) buildActivate(changeset.ChangeSet) (*transaction.Transaction, error) {
	logging.Debug("Connecting to engine")
	return transaction.New("", &ActivateVDSM{
		VDSM:   defaults.NewVDSM(e.store),
		Prober: e.host.Prober,
		Agent:  e.host.Agent,
	}), nil
}

// SetEnginePassword sets the password the engine uses to add the node.
type SetEnginePassword struct {
	Password  string
	Passwords host.PasswordSetter
}

// Title implements transaction.Element.
func (s *SetEnginePassword) Title() string { return "Setting Engine password" }

// Prepare has nothing to check; an empty password is passed on as is.
func (s *SetEnginePassword) Prepare(context.Context) error { return nil }

// Commit sets the password of the engine account.
func (s *SetEnginePassword) Commit(ctx context.Context) error {
	logging.Info("Setting Engine password")
	return s.Passwords.SetPassword(ctx, EngineUser, s.Password)
}

// ActivateVDSM connects the node agent to the saved management server.
// Prepare checks that the server is reachable.
type ActivateVDSM struct {
	VDSM   *defaults.VDSM
	Prober host.Prober
	Agent  host.Agent
}

// Title implements transaction.Element.
func (a *ActivateVDSM) Title() string { return "Activating VDSM" }

// Prepare probes the management server saved in the store. Elements that
// run earlier in the same transaction may have just saved it.
func (a *ActivateVDSM) Prepare(ctx context.Context) error {
	cfg, err := a.VDSM.Config()
	if err != nil {
		return err
	}
	err = a.Prober.Probe(ctx, cfg.Server, cfg.Port)
	logging.Debug("Pinged server",
		zap.String("server", cfg.Server),
		zap.String("port", cfg.Port),
		zap.Error(err))
	return err
}

// Commit activates the node agent.
func (a *ActivateVDSM) Commit(ctx context.Context) error {
	logging.Info("Connecting to VDSM server")
	return a.Agent.Activate(ctx)
}
