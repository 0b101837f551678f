package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.beaconmc.dev/beacon/internal/config"
	"go.beaconmc.dev/beacon/internal/forwarding"
)

func withDefaultForwarding(cfg *config.Config) *config.Config {
	cfg.Forwarding.Mode = string(forwarding.None)
	return cfg
}

type fakeCounter map[string]int

func (f fakeCounter) PlayerCount(name string) int { return f[name] }

func reloadedMap(t *testing.T, servers []config.BackendConfig, fallbacks []string) *Map {
	t.Helper()
	m := NewMap()
	cfg := withDefaultForwarding(&config.Config{Servers: servers, Fallbacks: fallbacks})
	require.NoError(t, m.Reload(cfg))
	return m
}

func TestLeastPopulatedFallbackPicksFewestPlayers(t *testing.T) {
	m := reloadedMap(t, []config.BackendConfig{
		{Name: "a", Address: "h:1", Fallback: true},
		{Name: "b", Address: "h:2", Fallback: true},
		{Name: "c", Address: "h:3", Fallback: true},
	}, nil)

	info, ok := m.LeastPopulatedFallback(fakeCounter{"a": 4, "b": 2, "c": 7})
	require.True(t, ok)
	assert.Equal(t, "b", info.Name)
}

func TestLeastPopulatedFallbackTiesBreakFirstDeclared(t *testing.T) {
	m := reloadedMap(t, []config.BackendConfig{
		{Name: "a", Address: "h:1", Fallback: true},
		{Name: "b", Address: "h:2", Fallback: true},
	}, nil)

	info, ok := m.LeastPopulatedFallback(fakeCounter{"a": 3, "b": 3})
	require.True(t, ok)
	assert.Equal(t, "a", info.Name, "equal counts must break toward the first-declared fallback")
}

func TestNextFallbackCyclesAcrossCalls(t *testing.T) {
	m := reloadedMap(t, []config.BackendConfig{
		{Name: "a", Address: "h:1", Fallback: true},
		{Name: "b", Address: "h:2", Fallback: true},
	}, nil)

	first, ok := m.NextFallback()
	require.True(t, ok)
	second, ok := m.NextFallback()
	require.True(t, ok)
	third, ok := m.NextFallback()
	require.True(t, ok)

	assert.NotEqual(t, first.Name, second.Name, "consecutive picks should spread across the fallback set")
	assert.Equal(t, first.Name, third.Name, "the cycle wraps back to the first fallback")
}

func TestGetAndDuplicateNameRejected(t *testing.T) {
	m := NewMap()
	cfg := withDefaultForwarding(&config.Config{Servers: []config.BackendConfig{
		{Name: "lobby", Address: "h:1"},
		{Name: "lobby", Address: "h:2"},
	}})
	err := m.Reload(cfg)
	assert.Error(t, err)
}

func TestFallbackViaFallbacksList(t *testing.T) {
	m := reloadedMap(t, []config.BackendConfig{
		{Name: "lobby", Address: "h:1"},
	}, []string{"lobby"})

	info, ok := m.Get("lobby")
	require.True(t, ok)
	assert.True(t, info.Fallback, "a server named in the top-level fallbacks list is a fallback even without its own flag")
}
