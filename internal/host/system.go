package host

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ovirt/node-setup/internal/logging"
)

// PasswordSetter changes the password of a local account.
type PasswordSetter interface {
	SetPassword(ctx context.Context, user, password string) error
}

// ServiceManager controls system services.
type ServiceManager interface {
	Enable(ctx context.Context, name string) error
	Disable(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
}

// Agent is the node agent that registers the host with a management
// engine.
type Agent interface {
	Configure(ctx context.Context, server, port string) error
	Activate(ctx context.Context) error
}

// Chpasswd sets passwords with chpasswd(8). The password travels on stdin
// and never appears in a process listing.
type Chpasswd struct {
	Runner Runner
}

// SetPassword implements PasswordSetter.
func (c *Chpasswd) SetPassword(ctx context.Context, user, password string) error {
	if user == "" {
		return fmt.Errorf("user is required")
	}
	if _, err := c.Runner.Run(ctx, user+":"+password+"\n", "chpasswd"); err != nil {
		return fmt.Errorf("failed to set password for %s: %w", user, err)
	}
	logging.Info("Password updated", zap.String("user", user))
	return nil
}

// Systemctl manages services with systemctl(1).
type Systemctl struct {
	Runner Runner
}

// Enable implements ServiceManager. The service is started as well.
func (s *Systemctl) Enable(ctx context.Context, name string) error {
	return s.run(ctx, "enable", "--now", name)
}

// Disable implements ServiceManager. The service is stopped as well.
func (s *Systemctl) Disable(ctx context.Context, name string) error {
	return s.run(ctx, "disable", "--now", name)
}

// Restart implements ServiceManager.
func (s *Systemctl) Restart(ctx context.Context, name string) error {
	return s.run(ctx, "restart", name)
}

func (s *Systemctl) run(ctx context.Context, args ...string) error {
	if _, err := s.Runner.Run(ctx, "", "systemctl", args...); err != nil {
		return err
	}
	return nil
}

// VDSMService is the registration service restarted on activation.
const VDSMService = "vdsm-reg"

// VDSMAgent drives the node agent.
type VDSMAgent struct {
	// Services restarts the registration service on Activate.
	Services ServiceManager

	// Runner and Hook, when Hook is set, run "Hook server port" on
	// Configure.
	Runner Runner
	Hook   string
}

// Configure implements Agent.
func (a *VDSMAgent) Configure(ctx context.Context, server, port string) error {
	logging.Info("Setting VDSM server", zap.String("server", server), zap.String("port", port))
	if a.Hook == "" {
		return nil
	}
	if _, err := a.Runner.Run(ctx, "", a.Hook, server, port); err != nil {
		return fmt.Errorf("failed to configure VDSM: %w", err)
	}
	return nil
}

// Activate implements Agent.
func (a *VDSMAgent) Activate(ctx context.Context) error {
	logging.Info("Connecting to VDSM server")
	if err := a.Services.Restart(ctx, VDSMService); err != nil {
		return fmt.Errorf("failed to activate VDSM: %w", err)
	}
	return nil
}
