package proxy

import (
	"errors"
	"fmt"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/packet"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/version"
	"go.beaconmc.dev/beacon/internal/proxyerr"
	"go.beaconmc.dev/beacon/internal/util/netutil"
)

// handshakeHandler is the session handler for a freshly-accepted client
// connection: it owns nothing but the Handshake packet and decides which
// state (status or login) the connection moves into next.
type handshakeHandler struct {
	c *conn
	nopSessionHandler
}

func newHandshakeHandler(c *conn) sessionHandler { return &handshakeHandler{c: c} }

func (h *handshakeHandler) handlePacket(pc *proto.PacketContext) {
	if !pc.KnownPacket() {
		_ = h.c.closeProto(proxyerr.Silently(proxyerr.KindProtocolViolation, errors.New("unknown packet in handshake state")))
		return
	}
	hs, ok := pc.Packet.(*packet.Handshake)
	if !ok {
		_ = h.c.closeProto(proxyerr.Silently(proxyerr.KindProtocolViolation, errors.New("first packet in handshake state was not Handshake")))
		return
	}
	h.handleHandshake(hs)
}

func (h *handshakeHandler) handleHandshake(hs *packet.Handshake) {
	vHost := netutil.NewAddr(hs.ServerAddress, hs.ServerPort)
	inbound := newInitialInbound(h.c, vHost)

	next := hs.NextConnState()
	if next != state.Status && next != state.Login {
		_ = h.c.closeProto(proxyerr.Silently(proxyerr.KindProtocolViolation, fmt.Errorf("invalid next state %d requested in handshake", hs.NextState)))
		return
	}

	h.c.setState(next)
	h.c.setProtocol(proto.Protocol(hs.ProtocolVersion))

	switch next {
	case state.Status:
		h.c.setSessionHandler(newStatusHandler(h.c, inbound))
	case state.Login:
		h.handleLogin(hs, inbound)
	}
}

func (h *handshakeHandler) handleLogin(hs *packet.Handshake, inbound *initialInbound) {
	p := proto.Protocol(hs.ProtocolVersion)
	cfg := h.c.p.Config()
	if p.Lower(cfg.MinimumProtocol()) {
		_ = h.c.closeWithProto(
			proxyerr.Silently(proxyerr.KindProtocolViolation, fmt.Errorf("client protocol %d below minimum %d", p, cfg.MinimumProtocol())),
			fmt.Sprintf("Outdated client! Please use %s.", cfg.MinimumVersion))
		return
	}
	if p.Greater(version.MaximumVersion.Protocol) {
		_ = h.c.closeWithProto(
			proxyerr.Silently(proxyerr.KindProtocolViolation, fmt.Errorf("client protocol %d above maximum %d", p, version.MaximumVersion.Protocol)),
			"Outdated proxy! This client version is not yet supported.")
		return
	}

	proxy := h.c.p
	if proxy.loginQuota != nil && proxy.loginQuota.Blocked(inbound.RemoteAddr()) {
		_ = h.c.closeWithProto(
			proxyerr.Silently(proxyerr.KindOverload, errors.New("login rate limit exceeded")),
			"You are logging in too fast, please calm down and retry.")
		return
	}

	proxy.event.Fire(&HandshakeEvent{inbound: inbound})
	h.c.setSessionHandler(newLoginHandler(h.c, inbound))
}
