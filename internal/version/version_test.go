package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromSettings(t *testing.T) {
	vcs := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2024-03-05T10:00:00Z"},
		{Key: "vcs.modified", Value: "false"},
	}

	tests := []struct {
		name        string
		version     string
		commit      string
		settings    []debug.BuildSetting
		wantVersion string
		wantCommit  string
	}{
		{
			name:        "filled from vcs",
			settings:    vcs,
			wantVersion: "dev-20240305",
			wantCommit:  "0123456",
		},
		{
			name:        "dirty tree",
			settings:    append([]debug.BuildSetting{{Key: "vcs.modified", Value: "true"}}, vcs[:2]...),
			wantVersion: "dev-20240305",
			wantCommit:  "0123456-dirty",
		},
		{
			name:        "ldflags win",
			version:     "v2.0.1",
			commit:      "abc1234",
			settings:    vcs,
			wantVersion: "v2.0.1",
			wantCommit:  "abc1234",
		},
		{
			name:        "no vcs stamp",
			wantVersion: "",
			wantCommit:  "",
		},
		{
			name:        "unparsable time",
			settings:    []debug.BuildSetting{{Key: "vcs.time", Value: "yesterday"}},
			wantVersion: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, c := fromSettings(tt.version, tt.commit, tt.settings)
			assert.Equal(t, tt.wantVersion, v)
			assert.Equal(t, tt.wantCommit, c)
		})
	}
}

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
	assert.Contains(t, info.Platform, "/")
	assert.Equal(t, Version+" (commit: "+Commit+")", Full())
}
