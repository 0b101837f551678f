package proxy

import (
	"errors"
	"io"

	"go.beaconmc.dev/beacon/internal/plugin"
	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/packet"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/server"
)

// playHandler relays packets the client sends once both sides have reached
// Play: most go through as opaque payload; plugin messages are inspected
// for channel registrations and passed through PluginMessageEvent.
type playHandler struct {
	player *Player
	nopSessionHandler
}

func newPlayHandler(player *Player) sessionHandler {
	return &playHandler{player: player}
}

func (h *playHandler) handlePacket(pc *proto.PacketContext) {
	link := h.player.link()
	if link == nil {
		return
	}
	switch t := pc.Packet.(type) {
	case *packet.PluginMessage:
		h.handlePluginMessage(t)
	case *packet.AcknowledgeConfiguration:
		// AcknowledgeConfiguration is registered only for the Config state,
		// so it does not decode here: on a switch the client has already
		// been moved to Config and configHandler receives it.
	default:
		_ = link.Encoder.Write(pc.Payload)
	}
}

func (h *playHandler) handlePluginMessage(p *packet.PluginMessage) {
	c := h.player.conn
	link := h.player.link()

	if plugin.IsRegister(p.Channel) {
		h.player.RegisterChannels(plugin.Channels(p.Data))
	} else if plugin.IsUnregister(p.Channel) {
		h.player.UnregisterChannels(plugin.Channels(p.Data))
	}

	ev := &PluginMessageEvent{player: h.player, Channel: p.Channel, Data: p.Data, Forward: true}
	c.p.event.Fire(ev)
	if !ev.Forward || link == nil {
		return
	}
	_ = link.Encoder.WritePacket(&packet.PluginMessage{Channel: ev.Channel, Data: ev.Data})
}

// replayKnownChannels re-registers every plugin channel the client has
// previously told a backend it speaks onto a freshly connected link, since
// the new backend has no memory of a REGISTER sent to the one before it.
func replayKnownChannels(player *Player, link *server.Link) {
	channels := player.KnownChannels()
	if len(channels) == 0 {
		return
	}
	_ = link.Encoder.WritePacket(&packet.PluginMessage{
		Channel: plugin.RegisterChannel,
		Data:    plugin.EncodeChannels(channels),
	})
}

func (h *playHandler) disconnected() {
	h.player.conn.p.players.Unregister(h.player)
	h.player.closeLink()
	h.player.conn.p.event.Fire(&DisconnectEvent{player: h.player, reason: "client disconnected"})
}

// pumpBackend is the other half of the relay: it owns reading from a
// backend link and forwarding to the player's client connection, running
// for the lifetime of one link (one per backend connection, including each
// post-switch reconnection).
func pumpBackend(player *Player, link *server.Link) {
	c := player.conn
	for {
		pc, err := link.Decoder.Decode()
		if err != nil {
			if !errors.Is(err, io.EOF) && !c.Closed() {
				c.log.V(1).Info("backend connection lost", "err", err)
				_ = c.closeWith(disconnectPacketFor(c, "Lost connection to server."))
			}
			return
		}
		if player.link() != link {
			// Superseded by a newer link (a switch raced this read); drop
			// whatever this now-abandoned backend sends.
			return
		}

		switch t := pc.Packet.(type) {
		case *packet.PluginMessage:
			forwardBackendPluginMessage(player, t)
		case *packet.Disconnect:
			_ = c.closeWith(disconnectPacketFor(c, t.Reason))
			return
		case *packet.PlayDisconnect:
			_ = c.closeWith(disconnectPacketFor(c, t.Reason))
			return
		case *packet.StartConfiguration:
			// Vanilla backends never send this unprompted; ignore rather
			// than disrupt an in-progress switch this proxy itself drives.
		default:
			if c.State() == state.Config || c.State() == state.Play {
				_ = c.Write(pc.Payload)
			}
		}
	}
}

func forwardBackendPluginMessage(player *Player, p *packet.PluginMessage) {
	c := player.conn

	if plugin.IsRegister(p.Channel) {
		player.RegisterChannels(plugin.Channels(p.Data))
	} else if plugin.IsUnregister(p.Channel) {
		player.UnregisterChannels(plugin.Channels(p.Data))
	}

	ev := &PluginMessageEvent{player: player, Channel: p.Channel, Data: p.Data, Forward: true}
	c.p.event.Fire(ev)
	if !ev.Forward {
		return
	}
	_ = c.WritePacket(&packet.PluginMessage{Channel: ev.Channel, Data: ev.Data})
}
