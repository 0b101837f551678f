package packet

import (
	"io"

	"github.com/google/uuid"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/util"
	"go.beaconmc.dev/beacon/internal/proto/version"
)

// ServerLogin (a.k.a. LoginStart) opens the login sequence with the
// client's chosen username and, on modern clients, its offline-mode UUID.
type ServerLogin struct {
	Username string
	HasUUID  bool
	UUID     uuid.UUID
}

func (p *ServerLogin) Encode(c *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteString(wr, p.Username); err != nil {
		return err
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19.Protocol) {
		return util.WriteUUID(wr, p.UUID)
	}
	return nil
}

func (p *ServerLogin) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	if p.Username, err = util.ReadStringMax(rd, 16); err != nil {
		return err
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19.Protocol) {
		if p.UUID, err = util.ReadUUID(rd); err != nil {
			return err
		}
		p.HasUUID = true
	}
	return nil
}

// EncryptionRequest is sent by the proxy to an online-mode client, carrying
// the proxy's public key and a random verify token.
type EncryptionRequest struct {
	ServerID    string
	PublicKey   []byte
	VerifyToken []byte
}

func (p *EncryptionRequest) Encode(c *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteString(wr, p.ServerID); err != nil {
		return err
	}
	if err := util.WriteBytes(wr, p.PublicKey); err != nil {
		return err
	}
	return util.WriteBytes(wr, p.VerifyToken)
}

func (p *EncryptionRequest) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	if p.ServerID, err = util.ReadStringMax(rd, 20); err != nil {
		return err
	}
	if p.PublicKey, err = util.ReadBytesMax(rd, 256); err != nil {
		return err
	}
	p.VerifyToken, err = util.ReadBytesMax(rd, 256)
	return err
}

// EncryptionResponse answers an EncryptionRequest with the RSA-encrypted
// shared secret and verify token.
type EncryptionResponse struct {
	SharedSecret []byte
	VerifyToken  []byte
}

func (p *EncryptionResponse) Encode(c *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteBytes(wr, p.SharedSecret); err != nil {
		return err
	}
	return util.WriteBytes(wr, p.VerifyToken)
}

func (p *EncryptionResponse) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	if p.SharedSecret, err = util.ReadBytesMax(rd, 256); err != nil {
		return err
	}
	p.VerifyToken, err = util.ReadBytesMax(rd, 256)
	return err
}

// LoginSuccess admits the client into the session with its final profile.
type LoginSuccess struct {
	UUID       uuid.UUID
	Username   string
	Properties []GameProfileProperty
}

// GameProfileProperty mirrors profile.Property on the wire; duplicated here
// (rather than imported) to keep the packet package free of a dependency on
// the profile package's JSON tags, which are for HTTP use, not the wire.
type GameProfileProperty struct {
	Name      string
	Value     string
	Signature string
	HasSig    bool
}

func (p *LoginSuccess) Encode(c *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteUUID(wr, p.UUID); err != nil {
		return err
	}
	if err := util.WriteString(wr, p.Username); err != nil {
		return err
	}
	if c.Protocol.Lower(version.Minecraft_1_19.Protocol) {
		return nil
	}
	if err := util.WriteVarInt(wr, len(p.Properties)); err != nil {
		return err
	}
	for _, prop := range p.Properties {
		if err := util.WriteString(wr, prop.Name); err != nil {
			return err
		}
		if err := util.WriteString(wr, prop.Value); err != nil {
			return err
		}
		if err := util.WriteBool(wr, prop.HasSig); err != nil {
			return err
		}
		if prop.HasSig {
			if err := util.WriteString(wr, prop.Signature); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *LoginSuccess) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	if p.UUID, err = util.ReadUUID(rd); err != nil {
		return err
	}
	if p.Username, err = util.ReadStringMax(rd, 16); err != nil {
		return err
	}
	if c.Protocol.Lower(version.Minecraft_1_19.Protocol) {
		return nil
	}
	n, err := util.ReadVarInt(rd)
	if err != nil {
		return err
	}
	p.Properties = make([]GameProfileProperty, n)
	for i := range p.Properties {
		if p.Properties[i].Name, err = util.ReadString(rd); err != nil {
			return err
		}
		if p.Properties[i].Value, err = util.ReadString(rd); err != nil {
			return err
		}
		if p.Properties[i].HasSig, err = util.ReadBool(rd); err != nil {
			return err
		}
		if p.Properties[i].HasSig {
			if p.Properties[i].Signature, err = util.ReadString(rd); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetCompression tells the client (or backend) that a compression threshold
// takes effect from the next packet onward; -1 disables it (irreversible).
type SetCompression struct{ Threshold int }

func (p *SetCompression) Encode(c *proto.PacketContext, wr io.Writer) error {
	return util.WriteVarInt(wr, p.Threshold)
}
func (p *SetCompression) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	p.Threshold, err = util.ReadVarInt(rd)
	return err
}

// Disconnect (login phase) carries a chat-component kick reason as JSON.
type Disconnect struct{ Reason string }

func (p *Disconnect) Encode(c *proto.PacketContext, wr io.Writer) error {
	return util.WriteString(wr, p.Reason)
}
func (p *Disconnect) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	p.Reason, err = util.ReadStringMax(rd, 1<<18)
	return err
}

// LoginPluginMessage/LoginPluginResponse carry the modern forwarding
// handshake (and any other login-time plugin protocol) before LoginSuccess.
type LoginPluginMessage struct {
	MessageID int
	Channel   string
	Data      []byte
}

func (p *LoginPluginMessage) Encode(c *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteVarInt(wr, p.MessageID); err != nil {
		return err
	}
	if err := util.WriteString(wr, p.Channel); err != nil {
		return err
	}
	_, err := wr.Write(p.Data)
	return err
}

func (p *LoginPluginMessage) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	if p.MessageID, err = util.ReadVarInt(rd); err != nil {
		return err
	}
	if p.Channel, err = util.ReadStringMax(rd, 256); err != nil {
		return err
	}
	p.Data, err = io.ReadAll(rd)
	return err
}

type LoginPluginResponse struct {
	MessageID int
	Success   bool
	Data      []byte
}

func (p *LoginPluginResponse) Encode(c *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteVarInt(wr, p.MessageID); err != nil {
		return err
	}
	if err := util.WriteBool(wr, p.Success); err != nil {
		return err
	}
	_, err := wr.Write(p.Data)
	return err
}

func (p *LoginPluginResponse) Decode(c *proto.PacketContext, rd io.Reader) error {
	var err error
	if p.MessageID, err = util.ReadVarInt(rd); err != nil {
		return err
	}
	if p.Success, err = util.ReadBool(rd); err != nil {
		return err
	}
	p.Data, err = io.ReadAll(rd)
	return err
}

// LoginAcknowledged confirms LoginSuccess and moves the session into the
// Config state on modern (1.20.2+) clients.
type LoginAcknowledged struct{}

func (p *LoginAcknowledged) Encode(c *proto.PacketContext, wr io.Writer) error { return nil }
func (p *LoginAcknowledged) Decode(c *proto.PacketContext, rd io.Reader) error { return nil }

func init() {
	min := version.MinimumVersion.Protocol
	cfgCutover := version.ConfigPhaseCutover.Protocol

	state.LoginRegistry.ServerBound.Register(func() proto.Packet { return new(ServerLogin) },
		state.Mapping{ID: 0x00, Since: min})
	state.LoginRegistry.ServerBound.Register(func() proto.Packet { return new(EncryptionResponse) },
		state.Mapping{ID: 0x01, Since: min})
	state.LoginRegistry.ServerBound.Register(func() proto.Packet { return new(LoginPluginResponse) },
		state.Mapping{ID: 0x02, Since: min})
	state.LoginRegistry.ServerBound.Register(func() proto.Packet { return new(LoginAcknowledged) },
		state.Mapping{ID: 0x03, Since: cfgCutover})

	state.LoginRegistry.ClientBound.Register(func() proto.Packet { return new(Disconnect) },
		state.Mapping{ID: 0x00, Since: min})
	state.LoginRegistry.ClientBound.Register(func() proto.Packet { return new(EncryptionRequest) },
		state.Mapping{ID: 0x01, Since: min})
	state.LoginRegistry.ClientBound.Register(func() proto.Packet { return new(LoginSuccess) },
		state.Mapping{ID: 0x02, Since: min})
	state.LoginRegistry.ClientBound.Register(func() proto.Packet { return new(SetCompression) },
		state.Mapping{ID: 0x03, Since: min})
	state.LoginRegistry.ClientBound.Register(func() proto.Packet { return new(LoginPluginMessage) },
		state.Mapping{ID: 0x04, Since: min})
}
