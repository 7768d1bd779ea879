// Node-setup configures an oVirt Node for management by an oVirt Engine.
//
// It edits the Engine and CIM pages of the node: the management server the
// node registers with, the password the engine uses to add the node, and the
// CIM service. Changes are validated, saved to the node's configuration store
// and applied to the running system step by step.
//
// Usage:
//
//	node-setup [command] [flags]
//
// Running without arguments launches the interactive setup.
// See 'node-setup --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ovirt/node-setup/internal/config"
	"github.com/ovirt/node-setup/internal/discovery"
	"github.com/ovirt/node-setup/internal/host"
	"github.com/ovirt/node-setup/internal/logging"
	"github.com/ovirt/node-setup/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(newApp(os.Stdin, os.Stdout)).ExecuteContext(ctx)
	logging.Sync()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// errReported marks failures whose details were already printed.
var errReported = errors.New("failed")

// app holds what every command needs once flags are parsed.
type app struct {
	settings *config.Settings
	in       io.Reader
	out      io.Writer

	// newScanner returns the mDNS scanner for discovery
	newScanner func() *discovery.Scanner
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{in: in, out: out, newScanner: discovery.NewScanner}
}

func newRootCmd(a *app) *cobra.Command {

	rootCmd := &cobra.Command{
		Use:   "node-setup",
		Short: "oVirt Node setup",
		Long: `Configure an oVirt Node for management by an oVirt Engine.

The Engine page sets the management server and port, the password used to
add the node from the engine, and can connect the node right away. The CIM
page enables the CIM service and sets its password.

If no command is specified, the interactive setup will launch automatically.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		RunE: a.runWizard,
	}
	rootCmd.SetIn(a.in)
	rootCmd.SetOut(a.out)

	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.String("store", config.DefaultStorePath(), "Configuration store location")
	flags.String("store-backend", "file", "Configuration store backend (file, sqlite, memory)")
	flags.String("probe", "ping", "How the management server is probed before activation (ping, tcp)")
	flags.Duration("probe-timeout", host.DefaultProbeTimeout, "Probe timeout")
	flags.String("agent-hook", "", "Command run to register the node with the management server")
	flags.Bool("dry-run", false, "Record system changes instead of making them")
	flags.String("log-level", "", "Log level (debug, info, warn, error); silent when empty")

	rootCmd.AddCommand(
		newEngineCmd(a),
		newCIMCmd(a),
		newShowCmd(a),
		newDiscoverCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return rootCmd
}

// load resolves settings from the config file, NODE_SETUP_* variables and
// flags, then starts logging.
func (a *app) load(cmd *cobra.Command) error {
	v := config.NewViper()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}

	settings, err := config.Load(v)
	if err != nil {
		return err
	}
	a.settings = settings

	if err := logging.InitializeWithOutput(settings.Log.Level, settings.Log.File); err != nil {
		return err
	}
	logging.Debug("Settings loaded")
	return nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "node-setup %s\n", version.Full())
		},
	}
}
