package ui

import (
	"errors"
	"fmt"

	"github.com/ovirt/node-setup/internal/host"
	"github.com/ovirt/node-setup/internal/store"
	"github.com/ovirt/node-setup/internal/transaction"
	"github.com/ovirt/node-setup/internal/valid"
)

// TroubleshootingHints returns suggestions for err, most specific first.
func TroubleshootingHints(err error) []string {
	if err == nil {
		return nil
	}

	var (
		verr  *valid.ValidationError
		perr  *host.ProbeError
		cerr  *host.CommandError
		serr  *store.Error
		hints []string
	)

	switch {
	case errors.As(err, &verr):
		hints = append(hints,
			fmt.Sprintf("Check the value entered for %s", verr.Field),
			"Nothing was applied; correct the value and save again",
		)
	case errors.As(err, &perr):
		hints = append(hints,
			fmt.Sprintf("Verify that %s resolves and answers from this host", perr.Address),
			"Check the management network and any firewall between node and engine",
			"The address and port were saved; activation can be retried",
		)
	case errors.As(err, &cerr):
		hints = append(hints, fmt.Sprintf("Command %q exited with code %d", cerr.Command, cerr.ExitCode))
		if cerr.Stderr != "" {
			hints = append(hints, "Output: "+cerr.Stderr)
		}
		hints = append(hints, "Re-run with NODE_SETUP_LOG_LEVEL=debug for the full command log")
	case errors.As(err, &serr):
		hints = append(hints,
			fmt.Sprintf("The %s configuration store could not be used", serr.Backend),
			"Check that the store location exists and is writable (usually requires root)",
		)
	}

	if transaction.IsCommitFailure(err) {
		hints = append(hints, "Steps completed before the failure were not rolled back")
	}
	return hints
}
