package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRegisterMatchesLegacyAndModernChannel(t *testing.T) {
	assert.True(t, IsRegister("REGISTER"))
	assert.True(t, IsRegister("minecraft:register"))
	assert.False(t, IsRegister("minecraft:brand"))
}

func TestIsUnregisterMatchesLegacyAndModernChannel(t *testing.T) {
	assert.True(t, IsUnregister("UNREGISTER"))
	assert.True(t, IsUnregister("minecraft:unregister"))
	assert.False(t, IsUnregister("minecraft:register"))
}

func TestChannelsRoundTripsThroughEncodeChannels(t *testing.T) {
	names := []string{"example:one", "example:two", "example:three"}
	assert.Equal(t, names, Channels(EncodeChannels(names)))
}

func TestChannelsOnEmptyPayloadIsNil(t *testing.T) {
	assert.Nil(t, Channels(nil))
}
