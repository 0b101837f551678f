package proxy

import (
	"net"

	"go.beaconmc.dev/beacon/internal/profile"
)

// HandshakeEvent fires for a login Handshake once the client's protocol has
// passed the version and login-rate checks; status pings and rejected
// handshakes do not fire it.
type HandshakeEvent struct {
	inbound Inbound
}

func (e *HandshakeEvent) Inbound() Inbound { return e.inbound }

// LoginEvent fires once a player has been fully authenticated (or admitted
// under offline mode) but before it is registered and connected to a
// backend; a subscriber can deny it by calling Deny.
type LoginEvent struct {
	player *Player
	denied bool
	reason string
}

func (e *LoginEvent) Player() *Player { return e.player }
func (e *LoginEvent) Deny(reason string) {
	e.denied = true
	e.reason = reason
}
func (e *LoginEvent) Denied() (bool, string) { return e.denied, e.reason }

// ServerPreConnectEvent fires before the proxy dials a backend on a
// player's behalf, for both the initial connect and later switches. A
// subscriber may redirect the attempt by setting Server to a different
// backend name. An empty or unknown Server makes the proxy pick a fallback;
// the event has no way to cancel the attempt.
type ServerPreConnectEvent struct {
	player *Player
	Server string
}

func (e *ServerPreConnectEvent) Player() *Player { return e.player }

// ServerConnectedEvent fires once the backend-side login has completed and
// the relay from the new link has started; a Config-phase client is still
// in Config at that point, not yet in Play.
type ServerConnectedEvent struct {
	player   *Player
	server   string
	previous string
}

func (e *ServerConnectedEvent) Player() *Player  { return e.player }
func (e *ServerConnectedEvent) Server() string   { return e.server }
func (e *ServerConnectedEvent) Previous() string { return e.previous }

// DisconnectEvent fires when a player's connection to the proxy ends while
// the client is in the Play state. A connection that ends during login or
// the Config state does not fire it.
type DisconnectEvent struct {
	player *Player
	reason string
}

func (e *DisconnectEvent) Player() *Player { return e.player }
func (e *DisconnectEvent) Reason() string  { return e.reason }

// PluginMessageEvent fires for every plugin message relayed between a
// player and its current backend, in either direction.
type PluginMessageEvent struct {
	player  *Player
	Channel string
	Data    []byte
	Forward bool // subscribers may set false to swallow the message
}

func (e *PluginMessageEvent) Player() *Player { return e.player }

// PingEvent fires when the proxy is about to answer a status-list ping,
// letting a subscriber rewrite the MOTD/player-sample/version payload.
type PingEvent struct {
	inbound Inbound
	Status  *ServerPing
}

func (e *PingEvent) Inbound() Inbound { return e.inbound }

// ServerPing is the mutable status-response document a PingEvent exposes.
type ServerPing struct {
	VersionName     string
	VersionProtocol int
	MaxPlayers      int
	OnlinePlayers   int
	SamplePlayers   []profile.GameProfile
	DescriptionJSON string
	Favicon         string
}

// PreLoginEvent fires before authentication, letting a subscriber force a
// particular forwarding/auth decision or deny the attempt outright.
type PreLoginEvent struct {
	username   string
	remoteAddr net.Addr
	denied     bool
	reason     string
}

func (e *PreLoginEvent) Username() string     { return e.username }
func (e *PreLoginEvent) RemoteAddr() net.Addr { return e.remoteAddr }
func (e *PreLoginEvent) Deny(reason string) {
	e.denied = true
	e.reason = reason
}
func (e *PreLoginEvent) Denied() (bool, string) { return e.denied, e.reason }
