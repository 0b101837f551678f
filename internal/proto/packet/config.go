package packet

import (
	"io"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/util"
	"go.beaconmc.dev/beacon/internal/proto/version"
)

// PluginMessage carries an arbitrary channel payload; used in both Config
// and Play states for registry sync, brand exchange, and mod channels.
type PluginMessage struct {
	Channel string
	Data    []byte
}

func (p *PluginMessage) Encode(c *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteString(wr, p.Channel); err != nil {
		return err
	}
	_, err := wr.Write(p.Data)
	return err
}

func (p *PluginMessage) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	if p.Channel, err = util.ReadStringMax(rd, 256); err != nil {
		return err
	}
	p.Data, err = io.ReadAll(rd)
	return err
}

// FinishConfiguration/AcknowledgeFinishConfiguration hand the session from
// Config to Play once registry/tag sync is done.
type FinishConfiguration struct{}

func (p *FinishConfiguration) Encode(c *proto.PacketContext, wr io.Writer) error { return nil }
func (p *FinishConfiguration) Decode(c *proto.PacketContext, rd io.Reader) error { return nil }

type AcknowledgeFinishConfiguration struct{}

func (p *AcknowledgeFinishConfiguration) Encode(c *proto.PacketContext, wr io.Writer) error {
	return nil
}
func (p *AcknowledgeFinishConfiguration) Decode(c *proto.PacketContext, rd io.Reader) error {
	return nil
}

// StartConfiguration/AcknowledgeConfiguration bounce an already-playing
// modern client back into Config for a server switch's registry resync.
type StartConfiguration struct{}

func (p *StartConfiguration) Encode(c *proto.PacketContext, wr io.Writer) error { return nil }
func (p *StartConfiguration) Decode(c *proto.PacketContext, rd io.Reader) error { return nil }

type AcknowledgeConfiguration struct{}

func (p *AcknowledgeConfiguration) Encode(c *proto.PacketContext, wr io.Writer) error { return nil }
func (p *AcknowledgeConfiguration) Decode(c *proto.PacketContext, rd io.Reader) error { return nil }

// RegistryData and UpdateTags are relayed opaquely: the proxy never
// interprets registry contents, it only forwards the backend's bytes
// verbatim to the client during Config.
type RegistryData struct{ Raw []byte }

func (p *RegistryData) Encode(c *proto.PacketContext, wr io.Writer) error {
	_, err := wr.Write(p.Raw)
	return err
}
func (p *RegistryData) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	p.Raw, err = io.ReadAll(rd)
	return err
}

type UpdateTags struct{ Raw []byte }

func (p *UpdateTags) Encode(c *proto.PacketContext, wr io.Writer) error {
	_, err := wr.Write(p.Raw)
	return err
}
func (p *UpdateTags) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	p.Raw, err = io.ReadAll(rd)
	return err
}

func init() {
	cutover := version.ConfigPhaseCutover.Protocol

	state.ConfigRegistry.ServerBound.Register(func() proto.Packet { return new(PluginMessage) },
		state.Mapping{ID: 0x01, Since: cutover})
	state.ConfigRegistry.ServerBound.Register(func() proto.Packet { return new(AcknowledgeFinishConfiguration) },
		state.Mapping{ID: 0x02, Since: cutover})
	state.ConfigRegistry.ServerBound.Register(func() proto.Packet { return new(AcknowledgeConfiguration) },
		state.Mapping{ID: 0x03, Since: cutover})

	state.ConfigRegistry.ClientBound.Register(func() proto.Packet { return new(PluginMessage) },
		state.Mapping{ID: 0x00, Since: cutover})
	state.ConfigRegistry.ClientBound.Register(func() proto.Packet { return new(FinishConfiguration) },
		state.Mapping{ID: 0x02, Since: cutover})
	state.ConfigRegistry.ClientBound.Register(func() proto.Packet { return new(RegistryData) },
		state.Mapping{ID: 0x05, Since: cutover})
	state.ConfigRegistry.ClientBound.Register(func() proto.Packet { return new(UpdateTags) },
		state.Mapping{ID: 0x0d, Since: cutover})

	// StartConfiguration is sent mid-Play to bounce an already-connected
	// client back into Config for a server switch's registry resync.
	state.PlayRegistry.ClientBound.Register(func() proto.Packet { return new(StartConfiguration) },
		state.Mapping{ID: 0x65, Since: cutover})
}
