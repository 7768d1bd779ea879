package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ovirt/node-setup/internal/changeset"
	"github.com/ovirt/node-setup/internal/defaults"
	"github.com/ovirt/node-setup/internal/host"
	"github.com/ovirt/node-setup/internal/logging"
	"github.com/ovirt/node-setup/internal/setup"
	"github.com/ovirt/node-setup/internal/store"
	"github.com/ovirt/node-setup/internal/transaction"
	"github.com/ovirt/node-setup/internal/ui"
)

func newEngineCmd(a *app) *cobra.Command {
	var (
		yes            bool
		promptPassword bool
	)

	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Configure the oVirt Engine connection",
		Long: `Set the management server the node registers with.

Only the given flags are changed. A new server or port is saved and handed
to the node agent; --connect probes the saved server and activates the agent;
a password lets the engine add the node from its UI.`,
		Example: `  # Point the node at an engine
  node-setup engine --address engine.example.com

  # Use a non-default port and connect right away
  node-setup engine --address 192.168.1.10 --port 8443 --connect

  # Set the password used by the engine, prompting for it
  node-setup engine --prompt-password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			changes := changeset.Model{}
			flags := cmd.Flags()
			if flags.Changed("address") {
				v, _ := flags.GetString("address")
				changes[setup.KeyEngineAddress] = v
			}
			if flags.Changed("port") {
				v, _ := flags.GetString("port")
				changes[setup.KeyEnginePort] = v
			}
			if flags.Changed("connect") {
				v, _ := flags.GetBool("connect")
				changes[setup.KeyEngineConnect] = v
			}
			if err := a.passwordChanges(cmd, changes, setup.KeyEnginePassword, setup.KeyEngineConfirmation, promptPassword); err != nil {
				return err
			}
			if len(changes) == 0 {
				return fmt.Errorf("nothing to change: give --address, --port, --connect or a password")
			}

			st, err := a.settings.OpenStore()
			if err != nil {
				return err
			}
			defer st.Close()

			h, err := a.newHost()
			if err != nil {
				return err
			}
			return a.apply(cmd, setup.NewEngine(st, h), changes, yes)
		},
	}

	cmd.Flags().String("address", "", "Management server address (FQDN or IP, empty to clear)")
	cmd.Flags().String("port", defaults.DefaultManagementPort, "Management server port")
	cmd.Flags().Bool("connect", false, "Connect to the engine and validate its certificate")
	cmd.Flags().String("password", "", "Password used by the engine to add this node")
	cmd.Flags().BoolVar(&promptPassword, "prompt-password", false, "Prompt for the password")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newCIMCmd(a *app) *cobra.Command {
	var (
		yes            bool
		enable         bool
		disable        bool
		promptPassword bool
	)

	cmd := &cobra.Command{
		Use:   "cim",
		Short: "Configure the CIM service",
		Long: `Enable or disable the CIM service and set the password of its account.

The service is started or stopped whenever the setting or the password
changes.`,
		Example: `  # Enable CIM and set its password
  node-setup cim --enable --prompt-password

  # Disable CIM
  node-setup cim --disable`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if enable && disable {
				return fmt.Errorf("--enable and --disable are mutually exclusive")
			}
			changes := changeset.Model{}
			if enable || disable {
				changes[setup.KeyCIMEnabled] = enable
			}
			if err := a.passwordChanges(cmd, changes, setup.KeyCIMPassword, setup.KeyCIMConfirmation, promptPassword); err != nil {
				return err
			}
			if len(changes) == 0 {
				return fmt.Errorf("nothing to change: give --enable, --disable or a password")
			}

			st, err := a.settings.OpenStore()
			if err != nil {
				return err
			}
			defer st.Close()

			h, err := a.newHost()
			if err != nil {
				return err
			}
			return a.apply(cmd, setup.NewCIM(st, h), changes, yes)
		},
	}

	cmd.Flags().BoolVar(&enable, "enable", false, "Enable the CIM service")
	cmd.Flags().BoolVar(&disable, "disable", false, "Disable the CIM service")
	cmd.Flags().String("password", "", "Password of the CIM account")
	cmd.Flags().BoolVar(&promptPassword, "prompt-password", false, "Prompt for the password")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// passwordChanges adds the password and its confirmation to changes when
// --password is given or prompt is set.
func (a *app) passwordChanges(cmd *cobra.Command, changes changeset.Model, key, confirmKey string, prompt bool) error {
	if cmd.Flags().Changed("password") {
		v, _ := cmd.Flags().GetString("password")
		changes[key] = v
		changes[confirmKey] = v
		return nil
	}
	if !prompt {
		return nil
	}

	password, err := a.readPassword("Password: ")
	if err != nil {
		return err
	}
	confirmation, err := a.readPassword("Confirm Password: ")
	if err != nil {
		return err
	}
	changes[key] = password
	changes[confirmKey] = confirmation
	return nil
}

// readPassword reads a line without echo when input is a terminal.
func (a *app) readPassword(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	r, ok := a.in.(*bufio.Reader)
	if !ok {
		r = bufio.NewReader(a.in)
		a.in = r
	}
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(a.out)
	return strings.TrimRight(line, "\r\n"), nil
}

// newHost returns the system the pages change.
func (a *app) newHost() (*host.Host, error) {
	h, err := host.NewExec(a.settings.HostOptions(), logging.GetLogger())
	if err != nil {
		return nil, err
	}
	if a.settings.DryRun {
		// Probes only read, so they still run.
		dry, _ := host.NewDryRun(h.Prober)
		return dry, nil
	}
	return h, nil
}

// apply shows changes, asks for confirmation unless yes is set, and saves
// them on page with live progress.
func (a *app) apply(cmd *cobra.Command, page setup.Page, changes changeset.Model, yes bool) error {
	printer := ui.NewPrinter(a.out)
	printer.PrintSettings("Changes to "+page.Name(), sortedKeys(changes), displayValues(changes))

	if !yes {
		warnings := []string{fmt.Sprintf("Settings are saved to %s", a.storeLocation())}
		if a.settings.DryRun {
			warnings = append(warnings, "Dry run: the system itself is not changed")
		}
		if !ui.Confirm(a.in, a.out, "Apply changes to "+page.Name(), warnings) {
			return nil
		}
	}

	progress := ui.NewTransactionProgress(a.out, map[string]string{
		"Page":  page.Name(),
		"Store": a.storeLocation(),
	})
	page.SetObserver(transaction.Multi(progress, transaction.NewLogObserver(nil)))

	res, err := setup.Apply(cmd.Context(), page, changes)
	if err != nil {
		printer.PrintError("Cannot apply changes to "+page.Name(), err, ui.TroubleshootingHints(err))
		return errReported
	}
	if !res.Success {
		return errReported
	}
	return nil
}

func (a *app) storeLocation() string {
	if a.settings.Store.Backend == store.BackendMemory {
		return "memory"
	}
	return a.settings.Store.Backend + ":" + a.settings.Store.Path
}

func sortedKeys(m changeset.Model) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// displayValues renders values as strings with passwords masked.
func displayValues(m changeset.Model) map[string]string {
	values := make(map[string]string, len(m))
	for k, v := range m {
		values[k] = changeset.AsString(v)
	}
	return logging.MaskSecrets(values)
}
