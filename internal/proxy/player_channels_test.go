package proxy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"go.beaconmc.dev/beacon/internal/profile"
)

func TestPlayerRegisterChannelsAccumulatesAcrossCalls(t *testing.T) {
	p := newPlayer(nil, profile.GameProfile{ID: uuid.New(), Name: "Alice"}, true)

	p.RegisterChannels([]string{"example:one"})
	p.RegisterChannels([]string{"example:two", "example:one"})

	assert.ElementsMatch(t, []string{"example:one", "example:two"}, p.KnownChannels())
}

func TestPlayerUnregisterChannelsRemovesOnlyNamed(t *testing.T) {
	p := newPlayer(nil, profile.GameProfile{ID: uuid.New(), Name: "Alice"}, true)
	p.RegisterChannels([]string{"example:one", "example:two"})

	p.UnregisterChannels([]string{"example:one"})

	assert.Equal(t, []string{"example:two"}, p.KnownChannels())
}

func TestPlayerKnownChannelsEmptyByDefault(t *testing.T) {
	p := newPlayer(nil, profile.GameProfile{ID: uuid.New(), Name: "Alice"}, true)
	assert.Empty(t, p.KnownChannels())
}

func TestBeginSwitchRejectsASecondConcurrentSwitch(t *testing.T) {
	p := newPlayer(nil, profile.GameProfile{ID: uuid.New(), Name: "Alice"}, true)

	assert.True(t, p.BeginSwitch())
	assert.False(t, p.BeginSwitch(), "a second switch must fail fast while one is in flight")

	p.EndSwitch()
	assert.True(t, p.BeginSwitch(), "a new switch may begin once the prior one ended")
}
