package host

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovirt/node-setup/internal/logging"
)

// Runner runs an external command.
type Runner interface {
	// Run executes name with args, feeding stdin when it is not empty. A
	// non-zero exit status is returned as a *CommandError.
	Run(ctx context.Context, stdin string, name string, args ...string) (stdout string, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Timeout time.Duration
	logger  *zap.Logger
}

// DefaultCommandTimeout bounds every external command.
const DefaultCommandTimeout = 30 * time.Second

// NewExecRunner creates a runner. A zero timeout uses DefaultCommandTimeout.
func NewExecRunner(timeout time.Duration, logger *zap.Logger) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &ExecRunner{Timeout: timeout, logger: logger}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	exitCode := 0
	if err != nil {
		exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}

	r.logger.Debug("command finished",
		zap.String("command", name),
		zap.Strings("args", args),
		zap.Int("exit_code", exitCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("stderr", stderr.String()),
	)

	if err != nil {
		if timeoutCtx.Err() == context.DeadlineExceeded {
			err = timeoutCtx.Err()
		}
		return stdout.String(), &CommandError{
			Command:  name,
			Args:     args,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	return stdout.String(), nil
}
