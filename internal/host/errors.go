package host

import (
	"errors"
	"fmt"
	"strings"
)

// CommandError represents a failed external command.
type CommandError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	cmd := strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
	msg := fmt.Sprintf("%s failed (exit code %d)", cmd, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ProbeError reports an unreachable server.
type ProbeError struct {
	Address string
	Err     error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("Unable to reach given server: %s", e.Address)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// IsProbeError checks if an error is a failed reachability probe.
func IsProbeError(err error) bool {
	var pe *ProbeError
	return errors.As(err, &pe)
}

// IsCommandError checks if an error is a failed external command.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
