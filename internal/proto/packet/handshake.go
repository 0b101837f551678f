package packet

import (
	"io"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/util"
	"go.beaconmc.dev/beacon/internal/proto/version"
)

// Handshake is the first packet sent on every connection; it carries the
// client's declared protocol version and which state it wants to enter.
type Handshake struct {
	ProtocolVersion int
	ServerAddress   string
	ServerPort      uint16
	NextState       int // 1 = status, 2 = login
}

func (h *Handshake) Encode(c *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteVarInt(wr, h.ProtocolVersion); err != nil {
		return err
	}
	if err := util.WriteString(wr, h.ServerAddress); err != nil {
		return err
	}
	if err := util.WriteUint16(wr, h.ServerPort); err != nil {
		return err
	}
	return util.WriteVarInt(wr, h.NextState)
}

func (h *Handshake) Decode(c *proto.PacketContext, rd io.Reader) error {
	v, err := util.ReadVarInt(rd)
	if err != nil {
		return err
	}
	h.ProtocolVersion = v
	if h.ServerAddress, err = util.ReadStringMax(rd, 255); err != nil {
		return err
	}
	if h.ServerPort, err = util.ReadUint16(rd); err != nil {
		return err
	}
	h.NextState, err = util.ReadVarInt(rd)
	return err
}

// NextConnState maps the handshake's NextState field to a ConnectionState.
func (h *Handshake) NextConnState() state.ConnectionState {
	if h.NextState == 1 {
		return state.Status
	}
	return state.Login
}

func init() {
	state.HandshakeRegistry.ServerBound.Register(func() proto.Packet { return new(Handshake) },
		state.Mapping{ID: 0x00, Since: version.MinimumVersion.Protocol})
}
