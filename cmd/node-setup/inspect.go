package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ovirt/node-setup/internal/changeset"
	"github.com/ovirt/node-setup/internal/config"
	"github.com/ovirt/node-setup/internal/discovery"
	"github.com/ovirt/node-setup/internal/host"
	"github.com/ovirt/node-setup/internal/logging"
	"github.com/ovirt/node-setup/internal/setup"
	"github.com/ovirt/node-setup/internal/ui"
)

func newShowCmd(a *app) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the saved page settings",
		Long: `Display the settings of every page as saved in the configuration store.

Passwords are never stored and are not shown.`,
		Example: `  # Show all pages
  node-setup show

  # YAML output for scripting
  node-setup show --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.settings.OpenStore()
			if err != nil {
				return err
			}
			defer st.Close()

			// Reading a page never touches the host.
			h, _ := host.NewDryRun(nil)

			type pageValues struct {
				name   string
				keys   []string
				values map[string]string
			}
			var pages []pageValues
			for _, p := range setup.Pages(st, h) {
				model, err := p.Model()
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", p.Name(), err)
				}
				pv := pageValues{name: p.Name(), values: map[string]string{}}
				for _, w := range p.Layout() {
					if !w.Editable() || w.Kind == setup.WidgetPassword {
						continue
					}
					pv.keys = append(pv.keys, w.Key)
					pv.values[w.Key] = changeset.AsString(model[w.Key])
				}
				pv.values = logging.MaskSecrets(pv.values)
				pages = append(pages, pv)
			}

			switch outputFormat {
			case "yaml", "json":
				out := make(map[string]map[string]string, len(pages))
				for _, p := range pages {
					out[p.name] = p.values
				}
				var data []byte
				if outputFormat == "yaml" {
					data, err = yaml.Marshal(out)
				} else {
					data, err = json.MarshalIndent(out, "", "  ")
					data = append(data, '\n')
				}
				if err != nil {
					return fmt.Errorf("failed to marshal %s: %w", outputFormat, err)
				}
				_, err = a.out.Write(data)
				return err
			case "detailed":
				printer := ui.NewPrinter(a.out)
				for _, p := range pages {
					printer.PrintSettings(p.name, p.keys, p.values)
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (expected detailed, yaml or json)", outputFormat)
			}
		},
	}

	cmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, yaml, json)")
	return cmd
}

func newDiscoverCmd(a *app) *cobra.Command {
	var (
		timeout time.Duration
		use     string
		yes     bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find oVirt Engines on the local network",
		Long: `Browse for engines advertising ` + discovery.ServiceType + ` over mDNS.

With --use the engine with the given instance name is saved as the
management server of this node.`,
		Example: `  # Scan for 5 seconds (default)
  node-setup discover

  # Use a discovered engine
  node-setup discover --use engine01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner := a.newScanner()
			scanner.Timeout = timeout
			scanner.Logger = logging.GetLogger()

			if use != "" {
				engine, err := scanner.WaitForEngine(cmd.Context(), use)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Found %s\n\n", engine)

				st, err := a.settings.OpenStore()
				if err != nil {
					return err
				}
				defer st.Close()

				h, err := a.newHost()
				if err != nil {
					return err
				}
				return a.apply(cmd, setup.NewEngine(st, h), changeset.Model{
					setup.KeyEngineAddress: engine.IP,
					setup.KeyEnginePort:    engine.PortString(),
				}, yes)
			}

			fmt.Fprintf(a.out, "Scanning for oVirt Engines (timeout: %s)...\n\n", timeout)
			engines, err := scanner.ScanForEngines(cmd.Context())
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			if len(engines) == 0 {
				fmt.Fprintln(a.out, "No engines found.")
				fmt.Fprintln(a.out, "\nTroubleshooting:")
				fmt.Fprintln(a.out, "  - Ensure the engine advertises "+discovery.ServiceType)
				fmt.Fprintln(a.out, "  - Check that the network allows multicast (UDP 5353)")
				fmt.Fprintln(a.out, "  - Try increasing --timeout for slower networks")
				fmt.Fprintln(a.out, "  - Use 'node-setup engine --address <host>' to set the engine by hand")
				return nil
			}

			fmt.Fprintf(a.out, "Found %d engine(s):\n\n", len(engines))
			for i, e := range engines {
				fmt.Fprintf(a.out, "%d. %s\n", i+1, e.Instance)
				fmt.Fprintf(a.out, "   Host:    %s\n", e.Hostname)
				fmt.Fprintf(a.out, "   Address: %s\n", e.Address())
				if len(e.Metadata) > 0 {
					fmt.Fprintf(a.out, "   Metadata: %v\n", e.Metadata)
				}
				fmt.Fprintln(a.out)
			}
			fmt.Fprintln(a.out, "Use 'node-setup discover --use <instance>' to register with an engine")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", discovery.DefaultScanTimeout, "Scan timeout")
	cmd.Flags().StringVar(&use, "use", "", "Save the engine with this instance name")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or save the tool settings",
		Long: `The tool settings choose the configuration store and how the host is
probed. They are read from ` + "$XDG_CONFIG_HOME/node-setup/config.yaml" + ` and can be
overridden by NODE_SETUP_* environment variables and flags.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(a.settings)
			if err != nil {
				return fmt.Errorf("failed to marshal settings: %w", err)
			}
			_, err = a.out.Write(data)
			return err
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective settings to the settings file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := config.GetConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := a.settings.Save(path); err != nil {
				return err
			}
			ui.NewPrinter(a.out).PrintSuccess("Settings saved", map[string]string{"Path": path})
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}
