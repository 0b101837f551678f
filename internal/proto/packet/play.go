package packet

import (
	"io"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/util"
	"go.beaconmc.dev/beacon/internal/proto/version"
)

// KeepAlive round-trips an opaque ID to detect dead connections. The proxy
// relays it between client and backend like any other Play packet and never
// answers one itself, including during a server switch.
type KeepAlive struct{ ID int64 }

func (p *KeepAlive) Encode(c *proto.PacketContext, wr io.Writer) error {
	return util.WriteInt64(wr, p.ID)
}
func (p *KeepAlive) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	p.ID, err = util.ReadInt64(rd)
	return err
}

// JoinGame carries only the fields the proxy itself needs to inspect; every
// other field is passed through as opaque trailing bytes via Raw, since the
// proxy relays world state without interpreting it.
type JoinGame struct {
	EntityID  int32
	Hardcore  bool
	Dimension string
	Raw       []byte // remaining fields, version-dependent, relayed verbatim
}

func (p *JoinGame) Encode(c *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteInt32(wr, p.EntityID); err != nil {
		return err
	}
	if err := util.WriteBool(wr, p.Hardcore); err != nil {
		return err
	}
	_, err := wr.Write(p.Raw)
	return err
}

func (p *JoinGame) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	if p.EntityID, err = util.ReadInt32(rd); err != nil {
		return err
	}
	if p.Hardcore, err = util.ReadBool(rd); err != nil {
		return err
	}
	p.Raw, err = io.ReadAll(rd)
	return err
}

// Respawn re-enters Play on the legacy (pre-1.20.2) switch path, the
// pre-CONFIG-phase equivalent of StartConfiguration+FinishConfiguration.
type Respawn struct {
	Dimension string
	Raw       []byte
}

func (p *Respawn) Encode(c *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteString(wr, p.Dimension); err != nil {
		return err
	}
	_, err := wr.Write(p.Raw)
	return err
}

func (p *Respawn) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	if p.Dimension, err = util.ReadStringMax(rd, 256); err != nil {
		return err
	}
	p.Raw, err = io.ReadAll(rd)
	return err
}

// PlayDisconnect carries a kick reason while in the Play state.
type PlayDisconnect struct{ Reason string }

func (p *PlayDisconnect) Encode(c *proto.PacketContext, wr io.Writer) error {
	return util.WriteString(wr, p.Reason)
}
func (p *PlayDisconnect) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	p.Reason, err = util.ReadStringMax(rd, 1<<18)
	return err
}

func init() {
	min := version.MinimumVersion.Protocol
	cutover := version.ConfigPhaseCutover.Protocol

	state.PlayRegistry.ServerBound.Register(func() proto.Packet { return new(KeepAlive) },
		state.Mapping{ID: 0x0f, Since: min})
	state.PlayRegistry.ServerBound.Register(func() proto.Packet { return new(PluginMessage) },
		state.Mapping{ID: 0x10, Since: min})

	state.PlayRegistry.ClientBound.Register(func() proto.Packet { return new(KeepAlive) },
		state.Mapping{ID: 0x21, Since: min})
	state.PlayRegistry.ClientBound.Register(func() proto.Packet { return new(JoinGame) },
		state.Mapping{ID: 0x25, Since: min})
	state.PlayRegistry.ClientBound.Register(func() proto.Packet { return new(PluginMessage) },
		state.Mapping{ID: 0x18, Since: min})
	state.PlayRegistry.ClientBound.Register(func() proto.Packet { return new(Respawn) },
		state.Mapping{ID: 0x41, Since: min},
		state.Mapping{ID: 0x47, Since: cutover})
	state.PlayRegistry.ClientBound.Register(func() proto.Packet { return new(PlayDisconnect) },
		state.Mapping{ID: 0x1b, Since: min})
}
