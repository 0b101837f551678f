package proxy

import (
	"errors"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/packet"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proxyerr"
	"go.beaconmc.dev/beacon/internal/server"
)

// loginAckHandler waits for a modern (1.20.2+) client's LoginAcknowledged,
// the one packet still exchanged under the Login registry after
// LoginSuccess, before the session actually moves into Config.
type loginAckHandler struct {
	c      *conn
	player *Player
	nopSessionHandler
}

func newLoginAckHandler(c *conn, player *Player) sessionHandler {
	return &loginAckHandler{c: c, player: player}
}

func (h *loginAckHandler) handlePacket(pc *proto.PacketContext) {
	if _, ok := pc.Packet.(*packet.LoginAcknowledged); !ok {
		_ = h.c.closeProto(proxyerr.Silently(proxyerr.KindProtocolViolation, errors.New("expected LoginAcknowledged")))
		return
	}
	h.c.setState(state.Config)
	connectToInitialServer(h.player)
}

func (h *loginAckHandler) disconnected() {
	h.c.p.players.Unregister(h.player)
}

// configHandler steers a client through the Config state: it relays
// whatever the backend sends (registry data, tags, plugin messages) until
// the backend signals FinishConfiguration, then acknowledges and moves the
// client into Play.
type configHandler struct {
	player *Player
	// oldLink is the backend connection a switch is replacing, closed only
	// once this handler moves the client onto the new link's Play state.
	// Nil for an initial (non-switch) connect, which has no old link.
	oldLink *server.Link
	nopSessionHandler
}

func newConfigHandler(player *Player) sessionHandler {
	return &configHandler{player: player}
}

// newConfigHandlerForSwitch is newConfigHandler for a mid-session server
// switch: oldLink is closed once the client reaches Play on the new link,
// never before, so the client always has one working backend connection.
func newConfigHandlerForSwitch(player *Player, oldLink *server.Link) sessionHandler {
	return &configHandler{player: player, oldLink: oldLink}
}

func (h *configHandler) handlePacket(pc *proto.PacketContext) {
	if !pc.KnownPacket() {
		_ = h.player.conn.closeProto(proxyerr.Silently(proxyerr.KindProtocolViolation, errors.New("unknown packet in config state")))
		return
	}
	link := h.player.link()
	if link == nil {
		return
	}
	switch t := pc.Packet.(type) {
	case *packet.PluginMessage:
		h.handlePluginMessage(t)
	case *packet.AcknowledgeFinishConfiguration:
		_ = link.Encoder.WritePacket(&packet.AcknowledgeFinishConfiguration{})
		link.SetState(state.Play)
		h.player.conn.setState(state.Play)
		h.player.conn.setSessionHandler(newPlayHandler(h.player))
		if h.oldLink != nil {
			_ = h.oldLink.Close()
		}
	case *packet.AcknowledgeConfiguration:
		// Only meaningful mid-Play on a switch; during initial login the
		// client doesn't send this, so just swallow it defensively.
	default:
		_ = link.Encoder.Write(pc.Payload)
	}
}

func (h *configHandler) handlePluginMessage(p *packet.PluginMessage) {
	c := h.player.conn
	link := h.player.link()
	ev := &PluginMessageEvent{player: h.player, Channel: p.Channel, Data: p.Data, Forward: true}
	c.p.event.Fire(ev)
	if !ev.Forward || link == nil {
		return
	}
	_ = link.Encoder.WritePacket(&packet.PluginMessage{Channel: ev.Channel, Data: ev.Data})
}

func (h *configHandler) disconnected() {
	h.player.conn.p.players.Unregister(h.player)
	h.player.closeLink()
}
