// Package plugin recognizes the REGISTER/UNREGISTER plugin-message channel
// used by clients and backends to advertise which custom channels they
// speak, the same convention the teacher's proto/packet/plugin package
// implements.
package plugin

import "strings"

const (
	RegisterChannelLegacy   = "REGISTER"
	RegisterChannel         = "minecraft:register"
	UnregisterChannelLegacy = "UNREGISTER"
	UnregisterChannel       = "minecraft:unregister"
)

// IsRegister reports whether channel is a (un)register control channel
// asking to add entries, as opposed to an ordinary payload channel.
func IsRegister(channel string) bool {
	return strings.EqualFold(channel, RegisterChannelLegacy) || strings.EqualFold(channel, RegisterChannel)
}

// IsUnregister reports the same for the unregister variant.
func IsUnregister(channel string) bool {
	return strings.EqualFold(channel, UnregisterChannelLegacy) || strings.EqualFold(channel, UnregisterChannel)
}

// Channels splits a (un)register packet's NUL-separated payload into the
// individual channel names it lists.
func Channels(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	return strings.Split(string(data), "\x00")
}

// EncodeChannels joins channel names back into a NUL-separated register
// payload, the inverse of Channels.
func EncodeChannels(channels []string) []byte {
	return []byte(strings.Join(channels, "\x00"))
}
