package codec

import (
	"bytes"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/packet"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/version"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, proto.ServerBound)
	enc.SetProtocol(version.Minecraft_1_8.Protocol)
	enc.SetState(state.Handshake)

	hs := &packet.Handshake{ProtocolVersion: int(version.Minecraft_1_8.Protocol), ServerAddress: "play.example.com", ServerPort: 25565, NextState: 2}
	require.NoError(t, enc.WritePacket(hs))

	dec := NewDecoder(&buf, proto.ServerBound, logr.Discard())
	dec.SetProtocol(version.Minecraft_1_8.Protocol)
	dec.SetState(state.Handshake)

	ctx, err := dec.Decode()
	require.NoError(t, err)
	require.True(t, ctx.KnownPacket())

	got, ok := ctx.Packet.(*packet.Handshake)
	require.True(t, ok)
	assert.Equal(t, hs.ServerAddress, got.ServerAddress)
	assert.Equal(t, hs.ServerPort, got.ServerPort)
	assert.Equal(t, hs.NextState, got.NextState)
}

func TestEncodeDecodeRoundTripWithCompression(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, proto.ClientBound)
	enc.SetProtocol(version.Minecraft_1_20.Protocol)
	enc.SetState(state.Status)
	enc.SetCompression(8, 6)

	resp := &packet.StatusResponse{JSON: `{"description":"a server with a fairly long status document so it compresses"}`}
	require.NoError(t, enc.WritePacket(resp))

	dec := NewDecoder(&buf, proto.ClientBound, logr.Discard())
	dec.SetProtocol(version.Minecraft_1_20.Protocol)
	dec.SetState(state.Status)
	dec.SetCompressionThreshold(8)

	ctx, err := dec.Decode()
	require.NoError(t, err)
	require.True(t, ctx.KnownPacket())
	got := ctx.Packet.(*packet.StatusResponse)
	assert.Equal(t, resp.JSON, got.JSON)
}

func TestEncodeUnregisteredPacketFails(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, proto.ServerBound)
	enc.SetProtocol(version.Minecraft_1_8.Protocol)
	enc.SetState(state.Play)

	// StatusRequest isn't registered for the Play state.
	err := enc.WritePacket(&packet.StatusRequest{})
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTripWithCompressionBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, proto.ClientBound)
	enc.SetProtocol(version.Minecraft_1_20.Protocol)
	enc.SetState(state.Status)
	enc.SetCompression(256, 6)

	resp := &packet.StatusResponse{JSON: `{"description":"short"}`}
	require.NoError(t, enc.WritePacket(resp))

	dec := NewDecoder(&buf, proto.ClientBound, logr.Discard())
	dec.SetProtocol(version.Minecraft_1_20.Protocol)
	dec.SetState(state.Status)
	dec.SetCompressionThreshold(256)

	ctx, err := dec.Decode()
	require.NoError(t, err)
	require.True(t, ctx.KnownPacket())
	got := ctx.Packet.(*packet.StatusResponse)
	assert.Equal(t, resp.JSON, got.JSON)
}

func TestEncodeDecodeRoundTripWithEncryption(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, 16)

	var buf bytes.Buffer
	encWriter, err := NewEncryptWriter(&buf, secret)
	require.NoError(t, err)

	enc := NewEncoder(encWriter, proto.ServerBound)
	enc.SetProtocol(version.Minecraft_1_8.Protocol)
	enc.SetState(state.Handshake)

	hs := &packet.Handshake{ProtocolVersion: int(version.Minecraft_1_8.Protocol), ServerAddress: "play.example.com", ServerPort: 25565, NextState: 2}
	require.NoError(t, enc.WritePacket(hs))

	decReader, err := NewDecryptReader(&buf, secret)
	require.NoError(t, err)

	dec := NewDecoder(decReader, proto.ServerBound, logr.Discard())
	dec.SetProtocol(version.Minecraft_1_8.Protocol)
	dec.SetState(state.Handshake)

	ctx, err := dec.Decode()
	require.NoError(t, err)
	require.True(t, ctx.KnownPacket())
	got, ok := ctx.Packet.(*packet.Handshake)
	require.True(t, ok)
	assert.Equal(t, hs.ServerAddress, got.ServerAddress)
	assert.Equal(t, hs.ServerPort, got.ServerPort)
}

func TestEncodeDecodeRoundTripWithEncryptionAndCompression(t *testing.T) {
	secret := bytes.Repeat([]byte{0x24}, 16)

	var buf bytes.Buffer
	encWriter, err := NewEncryptWriter(&buf, secret)
	require.NoError(t, err)

	enc := NewEncoder(encWriter, proto.ClientBound)
	enc.SetProtocol(version.Minecraft_1_20.Protocol)
	enc.SetState(state.Status)
	enc.SetCompression(8, 6)

	resp := &packet.StatusResponse{JSON: `{"description":"a server with a fairly long status document so it compresses"}`}
	require.NoError(t, enc.WritePacket(resp))

	decReader, err := NewDecryptReader(&buf, secret)
	require.NoError(t, err)

	dec := NewDecoder(decReader, proto.ClientBound, logr.Discard())
	dec.SetProtocol(version.Minecraft_1_20.Protocol)
	dec.SetState(state.Status)
	dec.SetCompressionThreshold(8)

	ctx, err := dec.Decode()
	require.NoError(t, err)
	require.True(t, ctx.KnownPacket())
	got := ctx.Packet.(*packet.StatusResponse)
	assert.Equal(t, resp.JSON, got.JSON)
}

func TestWriteRelaysRawPayloadVerbatim(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, proto.ServerBound)
	payload := []byte{0x00, 0x01, 0x02, 0x03}
	require.NoError(t, enc.Write(payload))

	dec := NewDecoder(&buf, proto.ServerBound, logr.Discard())
	// The Closed state has no packet registry, so no packet is decoded and
	// the raw frame comes back with Packet == nil but Payload intact.
	dec.SetState(state.Closed)
	ctx, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, payload, ctx.Payload)
}
