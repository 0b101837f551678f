package packet

import (
	"io"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/util"
	"go.beaconmc.dev/beacon/internal/proto/version"
)

// StatusRequest asks the server for its status JSON; it carries no fields.
type StatusRequest struct{}

func (p *StatusRequest) Encode(c *proto.PacketContext, wr io.Writer) error { return nil }
func (p *StatusRequest) Decode(c *proto.PacketContext, rd io.Reader) error { return nil }

// StatusResponse carries the server-list JSON document described in §3.
type StatusResponse struct {
	JSON string
}

func (p *StatusResponse) Encode(c *proto.PacketContext, wr io.Writer) error {
	return util.WriteString(wr, p.JSON)
}

func (p *StatusResponse) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	p.JSON, err = util.ReadStringMax(rd, 1<<18)
	return err
}

// StatusPing/StatusPong round-trip an opaque payload used for RTT display.
type StatusPing struct{ Payload int64 }

func (p *StatusPing) Encode(c *proto.PacketContext, wr io.Writer) error {
	return util.WriteInt64(wr, p.Payload)
}
func (p *StatusPing) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	p.Payload, err = util.ReadInt64(rd)
	return err
}

type StatusPong struct{ Payload int64 }

func (p *StatusPong) Encode(c *proto.PacketContext, wr io.Writer) error {
	return util.WriteInt64(wr, p.Payload)
}
func (p *StatusPong) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	p.Payload, err = util.ReadInt64(rd)
	return err
}

func init() {
	min := version.MinimumVersion.Protocol
	state.StatusRegistry.ServerBound.Register(func() proto.Packet { return new(StatusRequest) },
		state.Mapping{ID: 0x00, Since: min})
	state.StatusRegistry.ServerBound.Register(func() proto.Packet { return new(StatusPing) },
		state.Mapping{ID: 0x01, Since: min})

	state.StatusRegistry.ClientBound.Register(func() proto.Packet { return new(StatusResponse) },
		state.Mapping{ID: 0x00, Since: min})
	state.StatusRegistry.ClientBound.Register(func() proto.Packet { return new(StatusPong) },
		state.Mapping{ID: 0x01, Since: min})
}
