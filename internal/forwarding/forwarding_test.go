package forwarding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.beaconmc.dev/beacon/internal/proto"
)

func TestCheckModernSupportedRejectsPre1_13Clients(t *testing.T) {
	err := CheckModernSupported(proto.Protocol(340)) // 1.12.2
	assert.Error(t, err)
}

func TestCheckModernSupportedAcceptsExactly1_13(t *testing.T) {
	err := CheckModernSupported(proto.Protocol(393)) // 1.13
	assert.NoError(t, err)
}

func TestCheckModernSupportedAcceptsNewerClients(t *testing.T) {
	err := CheckModernSupported(proto.Protocol(767)) // 1.21
	assert.NoError(t, err)
}

func TestParseModeRejectsUnknownMode(t *testing.T) {
	_, err := ParseMode("BOGUS")
	assert.Error(t, err)
}

func TestParseModeAcceptsEveryKnownMode(t *testing.T) {
	for _, m := range []Mode{None, Legacy, BungeeGuard, Modern} {
		parsed, err := ParseMode(string(m))
		assert.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
}
