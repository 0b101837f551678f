package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.beaconmc.dev/beacon/internal/proto/version"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadResolvesMinimumVersion(t *testing.T) {
	path := writeConfig(t, `
minimum-version = "1.12.2"

[[servers]]
name = "lobby"
address = "127.0.0.1:25566"
`)
	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, version.Minecraft_1_12_2.Protocol, cfg.MinimumProtocol())
}

func TestLoadAppliesConnectionRateLimitDefault(t *testing.T) {
	path := writeConfig(t, `
[[servers]]
name = "lobby"
address = "127.0.0.1:25566"
`)
	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, cfg.ConnectionRateLimit)
}

func TestLoadRejectsUnknownMinimumVersion(t *testing.T) {
	path := writeConfig(t, `
minimum-version = "not-a-version"

[[servers]]
name = "lobby"
address = "127.0.0.1:25566"
`)
	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsDuplicateServers(t *testing.T) {
	cfg := &Config{
		MinimumVersion: "1.7.2",
		Servers: []BackendConfig{
			{Name: "lobby", Address: "a:1"},
			{Name: "lobby", Address: "b:1"},
		},
	}
	_, errs := cfg.Validate()
	assert.NotEmpty(t, errs)
}

func TestValidateRejectsUnknownFallback(t *testing.T) {
	cfg := &Config{
		MinimumVersion: "1.7.2",
		Servers: []BackendConfig{
			{Name: "lobby", Address: "a:1"},
		},
		Fallbacks: []string{"does-not-exist"},
	}
	_, errs := cfg.Validate()
	assert.NotEmpty(t, errs)
}
