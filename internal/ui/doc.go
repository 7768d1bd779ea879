// Package ui renders non-interactive terminal output for node-setup
// commands: a header, a live step list while a transaction runs, and a
// success or failure box with troubleshooting hints.
//
// TransactionProgress ties these together. Pass it to a page as its
// observer and it prints each step as it commits:
//
//	obs := ui.NewTransactionProgress(os.Stdout, map[string]string{"Store": path})
//	page.SetObserver(obs)
//	err := setup.Apply(ctx, page, changes)
//
// Zap logging is silent unless NODE_SETUP_LOG_LEVEL is set, so the rendered
// output is not interleaved with log lines by default.
package ui
