package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-logr/logr"

	"go.beaconmc.dev/beacon/internal/forwarding"
	"go.beaconmc.dev/beacon/internal/profile"
	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/codec"
	"go.beaconmc.dev/beacon/internal/proto/packet"
	"go.beaconmc.dev/beacon/internal/proto/state"
)

// Link is the proxy's outbound half of a player's connection: the TCP
// connection to a backend, opened on the player's behalf and carrying its
// own codec and connection state, independent from the client-facing side
// so that a CONFIG<->PLAY switch can re-dial without disturbing the player's
// session with the proxy.
type Link struct {
	Target *Info

	conn    net.Conn
	Decoder *codec.Decoder
	Encoder *codec.Encoder
	State   state.ConnectionState
}

// DialOptions carries everything Dial needs to know about the player it is
// connecting on behalf of.
type DialOptions struct {
	Protocol proto.Protocol
	Profile  profile.GameProfile
	ClientIP string
	Secret   string // forwarding-secret, required for BungeeGuard/Modern
	Timeout  time.Duration
	Log      logr.Logger
}

// Dial opens a connection to target, writes the opening Handshake packet
// carrying whatever player-info forwarding the target's mode requires, and
// returns a Link in the Login state, ready for the backend-side login.
func Dial(ctx context.Context, target *Info, opts DialOptions) (*Link, error) {
	d := net.Dialer{Timeout: opts.Timeout}
	conn, err := d.DialContext(ctx, "tcp", target.Address)
	if err != nil {
		return nil, fmt.Errorf("server: dialing %s (%s): %w", target.Name, target.Address, err)
	}

	enc := codec.NewEncoder(conn, proto.ServerBound)
	enc.SetProtocol(opts.Protocol)
	dec := codec.NewDecoder(conn, proto.ClientBound, opts.Log)
	dec.SetProtocol(opts.Protocol)

	link := &Link{
		Target:  target,
		conn:    conn,
		Decoder: dec,
		Encoder: enc,
		State:   state.Handshake,
	}

	host, err := handshakeAddress(target, opts)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := link.writeHandshake(host, opts.Protocol); err != nil {
		conn.Close()
		return nil, err
	}
	return link, nil
}

// handshakeAddress builds the server-address field of the outgoing
// Handshake packet, folding in whatever player-info forwarding payload the
// target's forwarding mode requires.
func handshakeAddress(target *Info, opts DialOptions) (string, error) {
	host, _, _ := net.SplitHostPort(target.Address)
	if host == "" {
		host = target.Address
	}

	switch target.ForwardingMode {
	case forwarding.None, forwarding.Modern:
		// Modern forwarding rides a plugin message sent after login, not the
		// handshake host field; the handshake itself stays untouched.
		return host, nil
	case forwarding.Legacy:
		return forwarding.LegacyHandshakeAddress(host, opts.ClientIP, opts.Profile)
	case forwarding.BungeeGuard:
		return forwarding.BungeeGuardHandshakeAddress(host, opts.ClientIP, opts.Secret, opts.Profile)
	default:
		return host, nil
	}
}

func (l *Link) writeHandshake(serverAddress string, p proto.Protocol) error {
	_, port, _ := net.SplitHostPort(l.Target.Address)
	var portNum uint16 = 25565
	if port != "" {
		fmt.Sscanf(port, "%d", &portNum)
	}
	if err := l.Encoder.WritePacket(&packet.Handshake{
		ProtocolVersion: int(p),
		ServerAddress:   serverAddress,
		ServerPort:      portNum,
		NextState:       2, // login
	}); err != nil {
		return err
	}
	l.State = state.Login
	l.Encoder.SetState(state.Login)
	l.Decoder.SetState(state.Login)
	return nil
}

// ModernForwardingPayload builds the velocity:player_info plugin message
// body for this link's target, or nil if the target's mode isn't Modern.
// clientProtocol is the connecting client's own protocol, not this link's
// backend-facing one: MODERN forwarding requires a client on 1.13 or newer
// (the plugin-message handshake it relies on doesn't exist before that),
// and the connection attempt must abort rather than forward anyway.
func (l *Link) ModernForwardingPayload(clientProtocol proto.Protocol, clientIP string, p profile.GameProfile, secret []byte, requested int) ([]byte, error) {
	if l.Target.ForwardingMode != forwarding.Modern {
		return nil, nil
	}
	if err := forwarding.CheckModernSupported(clientProtocol); err != nil {
		return nil, err
	}
	return forwarding.BuildModernPayload(secret, clientIP, p, requested)
}

// SetState transitions the link's codec and bookkeeping into s, used once a
// backend-side login or Config<->Play switch completes.
func (l *Link) SetState(s state.ConnectionState) {
	l.State = s
	l.Encoder.SetState(s)
	l.Decoder.SetState(s)
}

func (l *Link) Close() error { return l.conn.Close() }
