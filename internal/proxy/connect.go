package proxy

import (
	"context"
	"fmt"

	"go.beaconmc.dev/beacon/internal/forwarding"
	"go.beaconmc.dev/beacon/internal/player"
	"go.beaconmc.dev/beacon/internal/proto/packet"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/version"
	"go.beaconmc.dev/beacon/internal/proxyerr"
	"go.beaconmc.dev/beacon/internal/server"
	"go.beaconmc.dev/beacon/internal/util/netutil"
)

// connectToInitialServer picks and dials the first backend for a
// freshly-logged-in player, then moves the client connection into Config or
// Play and starts relaying, depending on the client's protocol.
func connectToInitialServer(player *Player) {
	target := choosePreConnectTarget(player, "")
	if target == nil {
		_ = player.conn.closeWith(disconnectPacketFor(player.conn, "No available server."))
		return
	}
	connectPlayerTo(player, target, false)
}

// choosePreConnectTarget fires ServerPreConnectEvent for requested (the
// empty string asks for "whatever the proxy picks") and resolves the
// resulting server name. If the event left nothing usable it picks a
// fallback: the least-populated one when enable-dynamic-fallbacks is set,
// otherwise the next one in round-robin order.
func choosePreConnectTarget(player *Player, requested string) *server.Info {
	p := player.conn.p
	pre := &ServerPreConnectEvent{player: player, Server: requested}
	p.event.Fire(pre)

	if pre.Server != "" {
		if info, ok := p.servers.Get(pre.Server); ok {
			return info
		}
	}
	if p.Config().EnableDynamicFallbacks {
		if info, ok := p.servers.LeastPopulatedFallback(p); ok {
			return info
		}
	} else if info, ok := p.servers.NextFallback(); ok {
		return info
	}
	return nil
}

// connectPlayerTo dials target on player's behalf, logs in on the backend
// side, and wires up the relay. isSwitch distinguishes a mid-session
// redirect (which must tear down the previous link and resync the client)
// from the initial post-login connect.
func connectPlayerTo(player *Player, target *server.Info, isSwitch bool) {
	c := player.conn
	p := c.p

	if isSwitch {
		if !player.BeginSwitch() {
			p.log.V(1).Info("switch already in progress, dropping request", "server", target.Name)
			return
		}
		defer player.EndSwitch()
	}

	link, err := server.Dial(context.Background(), target, server.DialOptions{
		Protocol: c.Protocol(),
		Profile:  player.Profile(),
		ClientIP: netutil.Host(c.RemoteAddr()),
		Secret:   p.Config().Forwarding.Secret,
		Timeout:  p.Config().ConnectionTimeout,
		Log:      p.log,
	})
	if err != nil {
		classified := proxyerr.New(proxyerr.KindUnreachable, err)
		p.log.V(1).Info("failed dialing backend", "server", target.Name, "kind", classified.Kind.String(), "err", err)
		failInitialOrSwitch(player, isSwitch, fmt.Sprintf("Could not connect to %s.", target.Name))
		return
	}

	if err := completeBackendLogin(player, link); err != nil {
		_ = link.Close()
		classified := proxyerr.New(proxyerr.KindUnreachable, err)
		p.log.V(1).Info("backend login failed", "server", target.Name, "kind", classified.Kind.String(), "err", err)
		failInitialOrSwitch(player, isSwitch, fmt.Sprintf("Could not connect to %s: %v", target.Name, err))
		return
	}

	previous := player.CurrentServer()
	oldLink := player.swapLink(target.Name, link)

	if isSwitch {
		// The old backend connection is torn down only once the client has
		// actually taken up the new one: resyncClientForSwitch closes it
		// immediately for legacy clients and hands it to the Config
		// handler for modern clients, which
		// closes it once the client reaches Play on the new link.
		resyncClientForSwitch(player, link, oldLink)
	} else {
		if version.UsesConfigPhase(c.Protocol()) {
			c.setState(state.Config)
			c.setSessionHandler(newConfigHandler(player))
		} else {
			c.setState(state.Play)
			c.setSessionHandler(newPlayHandler(player))
		}
	}
	go pumpBackend(player, link)
	p.event.Fire(&ServerConnectedEvent{player: player, server: target.Name, previous: previous})
}

// evacuateRemovedBackends moves every connected player off a backend that a
// just-applied Reload removed from the server map, onto a fallback if one
// is registered or a kick otherwise. Players on backends that survived the
// reload unchanged are left alone.
func evacuateRemovedBackends(p *Proxy) {
	p.players.Range(func(s player.Session) {
		pl, ok := s.(*Player)
		if !ok {
			return
		}
		cur := pl.CurrentServer()
		if cur == "" {
			return
		}
		if _, ok := p.servers.Get(cur); ok {
			return
		}
		target := choosePreConnectTarget(pl, "")
		if target == nil {
			pl.Disconnect("The server you were on was removed and no fallback is available.")
			return
		}
		connectPlayerTo(pl, target, true)
	})
}

func failInitialOrSwitch(player *Player, isSwitch bool, reason string) {
	if !isSwitch {
		_ = player.conn.closeWith(disconnectPacketFor(player.conn, reason))
		return
	}
	// A failed switch leaves the player on its current server; it just never
	// got redirected.
	player.conn.log.V(1).Info("server switch failed, leaving player where it was", "reason", reason)
}

// resyncClientForSwitch re-synchronizes an already-Play client onto a new
// backend. For modern (CONFIG-phase) clients it writes StartConfiguration,
// moves the client into Config and installs a switch-aware Config handler;
// the new backend's configuration packets then reach the client through
// pumpBackend. Legacy clients stay in Play with a fresh play handler: the
// proxy sends no Respawn or dimension change of its own, so the client only
// sees whatever the new backend sends once pumpBackend relays it.
//
// oldLink is the backend connection the client is switching away from. It
// must stay open until the new link has actually taken over: for a legacy
// client it is closed right here; for a modern client that happens later, when the client
// acknowledges FinishConfiguration and the Config handler moves it into
// Play on the new link, so oldLink is handed off to that handler instead
// of closed now.
func resyncClientForSwitch(player *Player, link, oldLink *server.Link) {
	c := player.conn
	replayKnownChannels(player, link)
	if version.UsesConfigPhase(c.Protocol()) {
		_ = c.WritePacket(&packet.StartConfiguration{})
		c.setState(state.Config)
		c.setSessionHandler(newConfigHandlerForSwitch(player, oldLink))
		return
	}
	c.setSessionHandler(newPlayHandler(player))
	if oldLink != nil {
		_ = oldLink.Close()
	}
}

// completeBackendLogin drives the backend side of login synchronously:
// ServerLogin, an optional MODERN forwarding plugin-message round trip,
// optional SetCompression, and finally LoginSuccess. The backend is expected
// to run in offline mode; an EncryptionRequest from it is a misconfiguration,
// not something this proxy can satisfy on the player's behalf.
func completeBackendLogin(player *Player, link *server.Link) error {
	gp := player.Profile()
	if err := link.Encoder.WritePacket(&packet.ServerLogin{Username: gp.Name, HasUUID: true, UUID: gp.ID}); err != nil {
		return err
	}

	for {
		pc, err := link.Decoder.Decode()
		if err != nil {
			return err
		}
		switch t := pc.Packet.(type) {
		case *packet.LoginPluginMessage:
			if err := handleBackendLoginPluginMessage(player, link, t); err != nil {
				return err
			}
		case *packet.EncryptionRequest:
			return fmt.Errorf("backend %s is online-mode; backends must run offline behind this proxy", link.Target.Name)
		case *packet.SetCompression:
			link.Decoder.SetCompressionThreshold(t.Threshold)
			link.Encoder.SetCompression(t.Threshold, player.conn.p.Config().CompressionLevel)
		case *packet.Disconnect:
			return fmt.Errorf("rejected by backend: %s", t.Reason)
		case *packet.LoginSuccess:
			if version.UsesConfigPhase(player.conn.Protocol()) {
				if err := link.Encoder.WritePacket(&packet.LoginAcknowledged{}); err != nil {
					return err
				}
				link.SetState(state.Config)
			} else {
				link.SetState(state.Play)
			}
			return nil
		}
	}
}

func handleBackendLoginPluginMessage(player *Player, link *server.Link, msg *packet.LoginPluginMessage) error {
	if msg.Channel != forwarding.ModernChannel {
		return link.Encoder.WritePacket(&packet.LoginPluginResponse{MessageID: msg.MessageID, Success: false})
	}

	requested := forwarding.VersionDefault
	if len(msg.Data) == 1 {
		requested = int(msg.Data[0])
	}
	secret := []byte(player.conn.p.Config().Forwarding.Secret)
	payload, err := link.ModernForwardingPayload(player.conn.Protocol(), netutil.Host(player.conn.RemoteAddr()), player.Profile(), secret, requested)
	if err != nil {
		return err
	}
	return link.Encoder.WritePacket(&packet.LoginPluginResponse{MessageID: msg.MessageID, Success: true, Data: payload})
}
