package cmd

import (
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestSetVersionInfo(t *testing.T) {
	// Save original values
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{
			name:      "set all values",
			version:   "1.0.0",
			commit:    "abc123",
			buildDate: "2026-01-15",
		},
		{
			name:      "set dev version",
			version:   "dev",
			commit:    "HEAD",
			buildDate: "unknown",
		},
		{
			name:      "set empty values",
			version:   "",
			commit:    "",
			buildDate: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	setDefaults()

	// Verify server defaults
	assert.Equal(t, "0.0.0.0", viper.GetString("server.host"))
	assert.Equal(t, 8888, viper.GetInt("server.port"))
	assert.Equal(t, "30s", viper.GetString("server.read_timeout"))
	assert.Equal(t, "30s", viper.GetString("server.write_timeout"))
	assert.Equal(t, "120s", viper.GetString("server.idle_timeout"))
	assert.Equal(t, "10s", viper.GetString("server.shutdown_timeout"))

	// Verify logging defaults
	assert.Equal(t, "info", viper.GetString("logging.level"))
	assert.Equal(t, "structured", viper.GetString("logging.profile"))

	// Verify path defaults
	assert.Equal(t, "/var/python/openalgo-flask", viper.GetString("paths.instances_root"))
	assert.Equal(t, "/etc/openalgo/vhosts", viper.GetString("paths.vhost_dir"))

	// Verify job defaults
	assert.Equal(t, 50, viper.GetInt("jobs.capacity"))
	assert.Equal(t, 30, viper.GetInt("jobs.rate_per_minute"))

	// Verify readiness defaults
	assert.Equal(t, "Asia/Kolkata", viper.GetString("readiness.timezone"))
	assert.Equal(t, 8, viper.GetInt("readiness.cutover_hour"))
}

func TestExitError(t *testing.T) {
	base := errors.New("boom")
	err := exitError(4, "Invalid configuration", base)

	var cerr *commandError
	assert.True(t, errors.As(err, &cerr))
	assert.Equal(t, 4, cerr.code)
	assert.Contains(t, err.Error(), "Invalid configuration")
	assert.Contains(t, err.Error(), "boom")
	assert.ErrorIs(t, err, base)
}

func TestExitError_NoCause(t *testing.T) {
	err := exitError(2, "Cannot reach server", nil)
	assert.Equal(t, "Cannot reach server", err.Error())
}
