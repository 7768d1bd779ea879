package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ovirt/node-setup/internal/discovery"
	"github.com/ovirt/node-setup/internal/logging"
	"github.com/ovirt/node-setup/internal/setup"
	"github.com/ovirt/node-setup/internal/ui"
	"github.com/ovirt/node-setup/internal/wizard/tui"
)

func (a *app) runWizard(cmd *cobra.Command, args []string) error {
	if f, ok := a.in.(*os.File); !ok || !ui.IsTerminal(f) {
		return fmt.Errorf("the interactive setup needs a terminal; use the engine and cim commands instead")
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
	pages := setup.Pages(st, h)

	scanner := a.newScanner()
	scanner.Logger = logging.GetLogger()
	model := tui.NewAppModel(cmd.Context(), pages, tui.Options{
		Scan: func(ctx context.Context) ([]*discovery.Engine, error) {
			return scanner.ScanForEngines(ctx)
		},
		ScanTimeout: scanner.Timeout,
		DryRun:      a.settings.DryRun,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running setup: %w", err)
	}
	return nil
}
