package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func TestGetConfigPathFollowsXDG(t *testing.T) {
	dir := isolate(t)

	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config", "node-setup", "config.yaml"), path)
}

func TestDefaultStorePath(t *testing.T) {
	dir := isolate(t)

	got := DefaultStorePath()
	if os.Geteuid() == 0 {
		assert.Equal(t, SystemStorePath, got)
	} else {
		assert.Equal(t, filepath.Join(dir, "data", "node-setup", "ovirt.yaml"), got)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)

	s, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, 1, s.Version)
	assert.Equal(t, "file", s.Store.Backend)
	assert.Equal(t, DefaultStorePath(), s.Store.Path)
	assert.Equal(t, "ping", s.Probe.Method)
	assert.Equal(t, 5*time.Second, s.Probe.Timeout)
	assert.Equal(t, 30*time.Second, s.Agent.CommandTimeout)
	assert.False(t, s.DryRun)
}

func TestSaveThenLoad(t *testing.T) {
	isolate(t)
	path, err := GetConfigPath()
	require.NoError(t, err)

	want := NewSettings()
	want.Store.Backend = "sqlite"
	want.Store.Path = "/var/lib/node-setup/settings.db"
	want.Probe.Method = "tcp"
	want.Probe.Timeout = 2 * time.Second
	require.NoError(t, want.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# node-setup configuration file"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", got.Store.Backend)
	assert.Equal(t, "/var/lib/node-setup/settings.db", got.Store.Path)
	assert.Equal(t, "tcp", got.Probe.Method)
	assert.Equal(t, 2*time.Second, got.Probe.Timeout)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	path, err := GetConfigPath()
	require.NoError(t, err)
	require.NoError(t, NewSettings().Save(path))

	t.Setenv("NODE_SETUP_STORE_BACKEND", "memory")
	t.Setenv("NODE_SETUP_PROBE_TIMEOUT", "750ms")
	t.Setenv("NODE_SETUP_DRY_RUN", "true")

	s, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Store.Backend)
	assert.Equal(t, 750*time.Millisecond, s.Probe.Timeout)
	assert.True(t, s.DryRun)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("NODE_SETUP_PROBE_METHOD", "ping")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("probe", "ping", "")
	flags.String("store", "", "")
	flags.Bool("dry-run", false, "")
	require.NoError(t, flags.Parse([]string{"--probe=tcp", "--store=/tmp/x.yaml", "--dry-run"}))

	v := NewViper()
	require.NoError(t, BindFlags(v, flags))

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "tcp", s.Probe.Method)
	assert.Equal(t, "/tmp/x.yaml", s.Store.Path)
	assert.True(t, s.DryRun)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"backend", map[string]string{"NODE_SETUP_STORE_BACKEND": "postgres"}, "unknown store backend"},
		{"probe", map[string]string{"NODE_SETUP_PROBE_METHOD": "arp"}, "unknown probe method"},
		{"timeout", map[string]string{"NODE_SETUP_PROBE_TIMEOUT": "0s"}, "probe.timeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(NewViper())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	isolate(t)
	path, err := GetConfigPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("store: [unterminated"), 0600))

	_, err = Load(NewViper())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestOpenStoreCreatesDirectory(t *testing.T) {
	dir := isolate(t)

	s := NewSettings()
	s.Store.Path = filepath.Join(dir, "nested", "ovirt.yaml")
	st, err := s.OpenStore()
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Write(map[string]string{"OVIRT_MANAGEMENT_SERVER": "engine.example.com"}))
	_, err = os.Stat(s.Store.Path)
	assert.NoError(t, err)
}

func TestHostOptions(t *testing.T) {
	s := NewSettings()
	s.Probe.Method = "tcp"
	s.Agent.Hook = "/usr/libexec/vdsm/register"

	opts := s.HostOptions()
	assert.Equal(t, "tcp", opts.Probe)
	assert.Equal(t, s.Probe.Timeout, opts.ProbeTimeout)
	assert.Equal(t, "/usr/libexec/vdsm/register", opts.AgentHook)
}

func TestValidateRequiresStorePath(t *testing.T) {
	s := NewSettings()
	s.Store.Backend = "sqlite"
	s.Store.Path = ""

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")
}
