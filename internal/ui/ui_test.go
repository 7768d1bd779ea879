package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovirt/node-setup/internal/host"
	"github.com/ovirt/node-setup/internal/store"
	"github.com/ovirt/node-setup/internal/transaction"
	"github.com/ovirt/node-setup/internal/valid"
)

func TestProgressStepLifecycle(t *testing.T) {
	p := NewProgress("Configuring CIM", []string{"Enabling CIM", "Setting CIM password"}).SetWidth(80)

	assert.Equal(t, 2, p.Total())
	assert.Equal(t, 0.0, p.Percent())

	p.UpdateStep(1, StepRunning, "")
	assert.Equal(t, 1, p.Current)
	p.UpdateStep(1, StepComplete, "")
	assert.Equal(t, 0.5, p.Percent())

	// Out of range updates are ignored.
	p.UpdateStep(0, StepFailed, "x")
	p.UpdateStep(3, StepFailed, "x")

	p.SkipRemaining()
	second, ok := p.Step(2)
	require.True(t, ok)
	assert.Equal(t, StepSkipped, second.Status)

	line := p.RenderStepLine(second)
	assert.Contains(t, line, "[2/2]")
	assert.Contains(t, line, "Setting CIM password")
	assert.Contains(t, line, StepMarkerSkipped)
}

func TestProgressEmptyIsComplete(t *testing.T) {
	p := NewProgress("Nothing", nil)
	assert.Equal(t, 1.0, p.Percent())
}

func TestResultRendersSortedDetails(t *testing.T) {
	out := NewSuccessResult("Configuring oVirt Engine", map[string]string{
		"Steps":    "3/3",
		"Duration": "12ms",
	}).SetWidth(80).Render()

	assert.Contains(t, out, "SUCCESS")
	assert.Contains(t, out, "Configuring oVirt Engine")
	assert.Less(t, strings.Index(out, "Duration"), strings.Index(out, "Steps"))
}

func TestFailureResultShowsErrorAndHints(t *testing.T) {
	out := NewFailureResult("Configuring CIM", errors.New("boom"), []string{"try again"}).
		SetWidth(80).
		Render()

	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, "Troubleshooting:")
	assert.Contains(t, out, "try again")
}

func TestHeaderListsParams(t *testing.T) {
	out := NewHeader("Configuring oVirt Engine", "3 steps", map[string]string{
		"Server": "engine.example.com",
	}).SetWidth(80).Render()

	assert.Contains(t, out, "CONFIGURING OVIRT ENGINE")
	assert.Contains(t, out, "3 steps")
	assert.Contains(t, out, "engine.example.com")
}

func TestTransactionProgressSuccess(t *testing.T) {
	var buf bytes.Buffer
	obs := NewTransactionProgress(&buf, nil).WithWidth(80)

	tx := transaction.New("Configuring oVirt Engine",
		transaction.NewElement("Setting VDSM server and port", nil, nil),
		transaction.NewElement("Activating VDSM", nil, nil),
	)
	res := tx.Run(context.Background(), obs)
	require.True(t, res.Success)

	out := buf.String()
	assert.Contains(t, out, "CONFIGURING OVIRT ENGINE")
	assert.Contains(t, out, "[1/2]")
	assert.Contains(t, out, "[2/2]")
	assert.Contains(t, out, "Activating VDSM")
	assert.Contains(t, out, "SUCCESS")
	assert.Contains(t, out, "2/2")

	p := obs.Progress()
	require.NotNil(t, p)
	assert.Equal(t, 1.0, p.Percent())
}

func TestTransactionProgressFailure(t *testing.T) {
	var buf bytes.Buffer
	obs := NewTransactionProgress(&buf, nil).WithWidth(100)

	probeErr := &host.ProbeError{Address: "engine.example.com", Err: errors.New("timeout")}
	tx := transaction.New("Configuring oVirt Engine",
		transaction.NewElement("Setting VDSM server and port", nil, nil),
		transaction.NewElement("Activating VDSM", func(context.Context) error { return probeErr }, nil),
		transaction.NewElement("Setting Engine password", nil, nil),
	)
	res := tx.Run(context.Background(), obs)
	require.False(t, res.Success)

	out := buf.String()
	assert.Contains(t, out, StepMarkerComplete)
	assert.Contains(t, out, FailureMarker)
	assert.Contains(t, out, "(prepare: Unable to reach given server: engine.example.com)")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "Phase")
	assert.Contains(t, out, "Troubleshooting:")

	p := obs.Progress()
	third, ok := p.Step(3)
	require.True(t, ok)
	assert.Equal(t, StepSkipped, third.Status)
}

func TestTransactionProgressWithoutPlan(t *testing.T) {
	var buf bytes.Buffer
	obs := NewTransactionProgress(&buf, nil).WithWidth(80)

	obs.OnStart(transaction.Step{Transaction: "T", Index: 0, Total: 2, Title: "first"})
	obs.OnComplete(transaction.Step{Transaction: "T", Index: 0, Total: 2, Title: "first"})

	assert.Contains(t, buf.String(), "first")
	assert.Equal(t, 2, obs.Progress().Total())
}

func TestTroubleshootingHints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", valid.NewValidationError("server", "bad host", "must be a FQDN"), "Check the value entered for server"},
		{"probe", &host.ProbeError{Address: "10.0.0.1", Err: errors.New("x")}, "Verify that 10.0.0.1 resolves"},
		{"command", &host.CommandError{Command: "chpasswd", ExitCode: 1, Err: errors.New("x")}, `Command "chpasswd" exited with code 1`},
		{"store", &store.Error{Op: "write", Backend: "file", Err: errors.New("x")}, "The file configuration store"},
		{
			"commit failure",
			&transaction.StepError{Phase: transaction.PhaseCommit, Title: "Enabling CIM", Err: errors.New("x")},
			"were not rolled back",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := TroubleshootingHints(tt.err)
			if tt.want == "" {
				assert.Empty(t, hints)
				return
			}
			assert.Contains(t, strings.Join(hints, "\n"), tt.want)
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"yes", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := Confirm(strings.NewReader(tt.input), &out, "Configuring CIM", []string{"Enabling CIM"})
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "Proceed?")
	}
}

func TestPrinterSettings(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).WithWidth(80).PrintSettings("Engine", []string{"a", "b"}, map[string]string{"a": "1"})

	out := buf.String()
	assert.Contains(t, out, "Engine")
	assert.Contains(t, out, "1")
	assert.Contains(t, out, "(unset)")
}
