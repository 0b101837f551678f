package proxy

import (
	"go.beaconmc.dev/beacon/internal/chat"
	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/packet"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/version"
)

// kickJSON marshals msg as a plain chat-component JSON string in the
// dialect of version.MinimumVersion, the oldest one; kickJSONFor takes the
// client's protocol instead.
func kickJSON(msg string) string {
	return chat.Text(version.MinimumVersion.Protocol, msg)
}

func kickJSONFor(p proto.Protocol, msg string) string {
	return chat.Text(p, msg)
}

// disconnectPacketFor builds the right kick packet for c's current state:
// PlayDisconnect in the Config and Play states, the login-phase Disconnect
// otherwise.
func disconnectPacketFor(c *conn, reason string) proto.Packet {
	msg := kickJSONFor(c.Protocol(), reason)
	if c.State() == state.Play || c.State() == state.Config {
		return &packet.PlayDisconnect{Reason: msg}
	}
	return &packet.Disconnect{Reason: msg}
}
