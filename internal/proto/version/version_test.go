package version

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.beaconmc.dev/beacon/internal/proto"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported(MinimumVersion.Protocol))
	assert.True(t, Supported(MaximumVersion.Protocol))
	assert.False(t, Supported(MinimumVersion.Protocol-1))
	assert.False(t, Supported(MaximumVersion.Protocol+1))
}

func TestUsesConfigPhase(t *testing.T) {
	assert.False(t, UsesConfigPhase(Minecraft_1_20.Protocol))
	assert.True(t, UsesConfigPhase(Minecraft_1_20_2.Protocol))
	assert.True(t, UsesConfigPhase(Minecraft_1_21.Protocol))
}

func TestByProtocol(t *testing.T) {
	v, ok := ByProtocol(Minecraft_1_8.Protocol)
	assert.True(t, ok)
	assert.Equal(t, Minecraft_1_8, v)

	_, ok = ByProtocol(proto.Protocol(-999))
	assert.False(t, ok)
}

func TestByName(t *testing.T) {
	v, ok := ByName("1.12.2")
	assert.True(t, ok)
	assert.Equal(t, Minecraft_1_12_2, v)

	v, ok = ByName("1.20.4")
	assert.True(t, ok)
	assert.Equal(t, Minecraft_1_20_3, v, "1.20.4 shares a protocol number with 1.20.3")

	_, ok = ByName("1.999")
	assert.False(t, ok)
}

func TestFallbackVersionName(t *testing.T) {
	assert.Equal(t, Minecraft_1_8.String(), FallbackVersionName(Minecraft_1_8.Protocol))
	assert.Equal(t, MaximumVersion.String(), FallbackVersionName(MaximumVersion.Protocol+100))
	assert.Equal(t, MinimumVersion.String(), FallbackVersionName(MinimumVersion.Protocol-100))
}
