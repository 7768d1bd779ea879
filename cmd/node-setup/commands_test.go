package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovirt/node-setup/internal/discovery"
)

type testEnv struct {
	t     *testing.T
	store string
	scan  []*zeroconf.ServiceEntry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("NODE_SETUP_LOG_LEVEL", "")
	return &testEnv{t: t, store: filepath.Join(dir, "ovirt.yaml")}
}

// run executes node-setup with args against the test store in dry-run
// mode and returns its output.
func (e *testEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	var out bytes.Buffer
	a := newApp(strings.NewReader(stdin), &out)
	a.newScanner = func() *discovery.Scanner {
		s := discovery.NewScanner()
		s.Browse = e.browse
		return s
	}

	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{"--store", e.store, "--dry-run"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	go func() {
		for _, entry := range e.scan {
			select {
			case entries <- entry:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (e *testEnv) show() map[string]map[string]string {
	e.t.Helper()
	out, err := e.run("", "show", "--format", "json")
	require.NoError(e.t, err)
	var pages map[string]map[string]string
	require.NoError(e.t, json.Unmarshal([]byte(out), &pages))
	return pages
}

func engineEntry(instance, ip string, port int) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, discovery.ServiceType, discovery.ServiceDomain)
	entry.HostName = instance + ".local."
	entry.Port = port
	entry.AddrIPv4 = []net.IP{net.ParseIP(ip)}
	return entry
}

func TestEngineCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("", "engine", "--address", "engine.example.com", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Setting VDSM server and port")
	assert.Contains(t, out, "SUCCESS")

	engine := env.show()["oVirt Engine"]
	assert.Equal(t, "engine.example.com", engine["vdsm.address"])
	assert.Equal(t, "7634", engine["vdsm.port"])

	data, err := os.ReadFile(env.store)
	require.NoError(t, err)
	assert.Contains(t, string(data), "OVIRT_MANAGEMENT_SERVER")
}

func TestEngineCommandRejectsInvalidPort(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("", "engine", "--address", "engine.example.com", "--port", "99999", "--yes")
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "vdsm.port")

	assert.Empty(t, env.show()["oVirt Engine"]["vdsm.address"], "nothing is saved")
}

func TestEngineCommandNothingToChange(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("", "engine")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to change")
}

func TestEngineCommandDeclined(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("n\n", "engine", "--address", "engine.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Proceed?")
	assert.Contains(t, out, "Operation cancelled.")

	assert.Empty(t, env.show()["oVirt Engine"]["vdsm.address"])
}

func TestEngineCommandConfirmed(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("yes\n", "engine", "--address", "10.0.0.5", "--port", "8443")
	require.NoError(t, err)

	engine := env.show()["oVirt Engine"]
	assert.Equal(t, "10.0.0.5", engine["vdsm.address"])
	assert.Equal(t, "8443", engine["vdsm.port"])
}

func TestCIMCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("s3cret\ns3cret\n", "cim", "--enable", "--prompt-password", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Enabling CIM")
	assert.Contains(t, out, "Setting CIM password")
	assert.NotContains(t, out, "s3cret", "passwords are masked")

	assert.Equal(t, "true", env.show()["CIM"]["cim.enabled"])
}

func TestCIMCommandPasswordMismatch(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("one\ntwo\n", "cim", "--prompt-password", "--yes")
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "cim.password_confirmation")
}

func TestCIMCommandConflictingFlags(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("", "cim", "--enable", "--disable")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestShowFormats(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("", "engine", "--address", "engine.example.com", "--yes")
	require.NoError(t, err)

	out, err := env.run("", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "oVirt Engine")
	assert.Contains(t, out, "engine.example.com")
	assert.NotContains(t, out, "vdsm.password")

	out, err = env.run("", "show", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "vdsm.address: engine.example.com")

	_, err = env.run("", "show", "--format", "xml")
	require.Error(t, err)
}

func TestDiscoverCommand(t *testing.T) {
	env := newTestEnv(t)
	env.scan = []*zeroconf.ServiceEntry{
		engineEntry("engine02", "10.0.0.2", 7634),
		engineEntry("engine01", "10.0.0.1", 8443),
	}

	out, err := env.run("", "discover", "--timeout", "200ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 engine(s)")
	assert.Less(t, strings.Index(out, "engine01"), strings.Index(out, "engine02"))
	assert.Contains(t, out, "10.0.0.1:8443")
}

func TestDiscoverCommandNoEngines(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("", "discover", "--timeout", "100ms")
	require.NoError(t, err)
	assert.Contains(t, out, "No engines found.")
}

func TestDiscoverCommandUse(t *testing.T) {
	env := newTestEnv(t)
	env.scan = []*zeroconf.ServiceEntry{engineEntry("engine01", "10.0.0.1", 8443)}

	out, err := env.run("", "discover", "--use", "engine01", "--timeout", "2s", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "SUCCESS")

	engine := env.show()["oVirt Engine"]
	assert.Equal(t, "10.0.0.1", engine["vdsm.address"])
	assert.Equal(t, "8443", engine["vdsm.port"])
}

func TestConfigInit(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := env.run("", "--probe", "tcp", "config", "init", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "method: tcp")
	assert.Contains(t, string(data), env.store)

	_, err = env.run("", "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInvalidSettings(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("", "--probe", "carrier-pigeon", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown probe method")
}

func TestWizardNeedsTerminal(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a terminal")
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "node-setup "))
}
