package host

import (
	"context"
	"errors"
	"net"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	stdin string
	name  string
	args  []string
}

type fakeRunner struct {
	calls []call
	err   error
}

func (f *fakeRunner) Run(_ context.Context, stdin string, name string, args ...string) (string, error) {
	f.calls = append(f.calls, call{stdin: stdin, name: name, args: args})
	return "", f.err
}

func TestPingProber(t *testing.T) {
	r := &fakeRunner{}
	p := &PingProber{Runner: r, Timeout: 3 * time.Second}

	require.NoError(t, p.Probe(context.Background(), "engine.example.com", "7634"))
	require.Len(t, r.calls, 1)
	assert.Equal(t, "ping", r.calls[0].name)
	assert.Equal(t, []string{"-c", "1", "-W", "3", "engine.example.com"}, r.calls[0].args)
}

func TestPingProberFailure(t *testing.T) {
	cmdErr := &CommandError{Command: "ping", ExitCode: 2}
	p := &PingProber{Runner: &fakeRunner{err: cmdErr}}

	err := p.Probe(context.Background(), "eng.example.com", "")

	require.Error(t, err)
	assert.True(t, IsProbeError(err))
	assert.True(t, IsCommandError(err))
	assert.Equal(t, "Unable to reach given server: eng.example.com", err.Error())
}

func TestProbeWithoutServer(t *testing.T) {
	r := &fakeRunner{}
	for _, p := range []Prober{&PingProber{Runner: r}, &DialProber{}} {
		err := p.Probe(context.Background(), "", "443")
		assert.True(t, IsProbeError(err))
	}
	assert.Empty(t, r.calls)
}

func TestDialProber(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	p := &DialProber{Timeout: time.Second}
	assert.NoError(t, p.Probe(context.Background(), "127.0.0.1", port))
}

func TestDialProberClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()

	p := &DialProber{Timeout: time.Second}
	err = p.Probe(context.Background(), "127.0.0.1", port)

	require.Error(t, err)
	assert.True(t, IsProbeError(err))
}

func TestChpasswd(t *testing.T) {
	r := &fakeRunner{}
	c := &Chpasswd{Runner: r}

	require.NoError(t, c.SetPassword(context.Background(), "root", "s3cret"))
	require.Len(t, r.calls, 1)
	assert.Equal(t, "chpasswd", r.calls[0].name)
	assert.Empty(t, r.calls[0].args)
	assert.Equal(t, "root:s3cret\n", r.calls[0].stdin)

	assert.Error(t, c.SetPassword(context.Background(), "", "x"))
}

func TestChpasswdFailure(t *testing.T) {
	c := &Chpasswd{Runner: &fakeRunner{err: &CommandError{Command: "chpasswd", ExitCode: 1}}}

	err := c.SetPassword(context.Background(), "cim", "pw")

	require.Error(t, err)
	assert.True(t, IsCommandError(err))
	assert.Contains(t, err.Error(), "failed to set password for cim")
}

func TestSystemctl(t *testing.T) {
	r := &fakeRunner{}
	s := &Systemctl{Runner: r}
	ctx := context.Background()

	require.NoError(t, s.Enable(ctx, "sblim-sfcb"))
	require.NoError(t, s.Disable(ctx, "sblim-sfcb"))
	require.NoError(t, s.Restart(ctx, VDSMService))

	var got [][]string
	for _, c := range r.calls {
		assert.Equal(t, "systemctl", c.name)
		got = append(got, c.args)
	}
	assert.Equal(t, [][]string{
		{"enable", "--now", "sblim-sfcb"},
		{"disable", "--now", "sblim-sfcb"},
		{"restart", "vdsm-reg"},
	}, got)
}

func TestVDSMAgent(t *testing.T) {
	r := &fakeRunner{}
	_, dry := NewDryRun(nil)
	a := &VDSMAgent{Services: dry, Runner: r, Hook: "/usr/libexec/vdsm-configure"}
	ctx := context.Background()

	require.NoError(t, a.Configure(ctx, "engine.example.com", "7634"))
	require.NoError(t, a.Activate(ctx))

	require.Len(t, r.calls, 1)
	assert.Equal(t, "/usr/libexec/vdsm-configure", r.calls[0].name)
	assert.Equal(t, []string{"engine.example.com", "7634"}, r.calls[0].args)
	assert.Equal(t, []string{"restart vdsm-reg"}, dry.Calls())

	noHook := &VDSMAgent{Services: dry}
	assert.NoError(t, noHook.Configure(ctx, "engine.example.com", "7634"))
}

func TestDryRunRecordsAndFails(t *testing.T) {
	h, dry := NewDryRun(nil)
	dry.Fail = map[string]error{"enable cim": errors.New("unit not found")}
	ctx := context.Background()

	assert.NoError(t, h.Prober.Probe(ctx, "engine.example.com", "7634"))
	assert.NoError(t, h.Passwords.SetPassword(ctx, "root", "never-recorded"))
	assert.EqualError(t, h.Services.Enable(ctx, "cim"), "unit not found")
	assert.NoError(t, h.Agent.Configure(ctx, "engine.example.com", "7634"))
	assert.NoError(t, h.Agent.Activate(ctx))

	calls := dry.Calls()
	assert.Equal(t, []string{
		"probe engine.example.com",
		"password root",
		"enable cim",
		"configure engine.example.com:7634",
		"activate",
	}, calls)
	for _, c := range calls {
		assert.NotContains(t, c, "never-recorded")
	}
}

func TestDialProberNeedsPort(t *testing.T) {
	err := (&DialProber{}).Probe(context.Background(), "127.0.0.1", "")
	assert.True(t, IsProbeError(err))
}

func TestDryRunLongestFailPrefixWins(t *testing.T) {
	_, dry := NewDryRun(nil)
	dry.Fail = map[string]error{
		"enable":          errors.New("systemd unavailable"),
		"enable cim":      errors.New("unit not found"),
		"enable cim-extra": errors.New("never matched"),
	}
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		assert.EqualError(t, dry.Enable(ctx, "cim"), "unit not found")
	}
	assert.EqualError(t, dry.Enable(ctx, "vdsmd"), "systemd unavailable")
	assert.NoError(t, dry.Disable(ctx, "cim"))
}

func TestDryRunDelegatesProbe(t *testing.T) {
	probed := ""
	h, dry := NewDryRun(ProbeFunc(func(_ context.Context, address, port string) error {
		probed = net.JoinHostPort(address, port)
		return &ProbeError{Address: address}
	}))

	err := h.Prober.Probe(context.Background(), "10.0.0.1", "8443")

	assert.True(t, IsProbeError(err))
	assert.Equal(t, "10.0.0.1:8443", probed)
	assert.Empty(t, dry.Calls())
}

func TestNewExec(t *testing.T) {
	h, err := NewExec(Options{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &PingProber{}, h.Prober)
	assert.IsType(t, &Chpasswd{}, h.Passwords)
	assert.IsType(t, &Systemctl{}, h.Services)
	assert.IsType(t, &VDSMAgent{}, h.Agent)

	h, err = NewExec(Options{Probe: ProbeTCP}, nil)
	require.NoError(t, err)
	assert.IsType(t, &DialProber{}, h.Prober)

	_, err = NewExec(Options{Probe: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	r := NewExecRunner(5*time.Second, nil)
	ctx := context.Background()

	out, err := r.Run(ctx, "hello", "sh", "-c", "cat")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	_, err = r.Run(ctx, "", "sh", "-c", "echo oops >&2; exit 3")
	require.Error(t, err)
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.ExitCode)
	assert.Equal(t, "oops", strings.TrimSpace(ce.Stderr))
	assert.Contains(t, err.Error(), "sh -c echo oops >&2; exit 3 failed (exit code 3)")
}

func TestExecRunnerTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	r := NewExecRunner(50*time.Millisecond, nil)

	_, err := r.Run(context.Background(), "", "sleep", "5")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
