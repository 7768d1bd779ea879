// Package tui implements the interactive node-setup wizard.
//
// The wizard lists the configuration pages ordered by rank. Opening a page
// builds a form from its layout: entries and password fields become text
// inputs, checkboxes become toggles. Saving with ctrl+s hands the edited
// fields to Page.OnChange; a validation error is shown under the field it
// names and nothing is applied. Otherwise Page.Merge runs in a tea.Cmd and
// the transaction steps stream into the form as they start, commit or fail.
// When the run ends the form reloads from the page model.
//
// # Screens
//
//   - Pages: page list; d opens engine discovery
//   - Form: one page; esc returns to the list
//   - Discovery: mDNS scan for engines; enter fills the engine page
//
// # Usage Example
//
//	pages := setup.Pages(st, h)
//	app := tui.NewAppModel(ctx, pages, tui.Options{Scan: scanner.ScanForEngines})
//	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
//	    return err
//	}
package tui
