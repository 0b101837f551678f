// Package proto defines the edition-agnostic wire types shared by the
// codec, state registries, and packet implementations: packet direction,
// protocol version numbers, and the Packet/PacketContext contract every
// concrete packet type satisfies.
package proto

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// ErrDecoderLeftBytes indicates a packet was known and successfully decoded
// by its registered decoder, but the decoder did not consume all of the
// packet's bytes.
var ErrDecoderLeftBytes = errors.New("decoder did not read all bytes of packet")

// Packet is a wire packet for some connection state and direction.
//
// It must support encoding/decoding across multiple protocol versions by
// consulting the Protocol field of the passed PacketContext. The context
// is read-only and must not be mutated.
type Packet interface {
	Encode(c *PacketContext, wr io.Writer) error
	Decode(c *PacketContext, rd io.Reader) error
}

// PacketContext carries the metadata associated with a packet being
// encoded or decoded.
type PacketContext struct {
	Direction Direction
	Protocol  Protocol
	PacketID  PacketID

	// Packet is the decoded packet, found by PacketID in the connection's
	// current registry. Nil if the PacketID is unknown to that registry.
	Packet Packet

	// Payload is the unencrypted, uncompressed packet id + data as received
	// or about to be sent. May be longer than what Packet.Decode consumed.
	Payload []byte

	// Size is the total frame size before decompression.
	Size int
}

// KnownPacket reports whether PacketID was resolved to a concrete Packet.
func (c *PacketContext) KnownPacket() bool {
	return c != nil && c.Packet != nil
}

func (c *PacketContext) String() string {
	return fmt.Sprintf("PacketContext{direction=%s, protocol=%s, known=%t, id=%s, type=%s, payload=%dB}",
		c.Direction, c.Protocol, c.KnownPacket(), c.PacketID, reflect.TypeOf(c.Packet), len(c.Payload))
}

// PacketID identifies a packet within one (Protocol, ConnectionState, Direction) registry.
type PacketID int

func (id PacketID) String() string { return fmt.Sprintf("0x%02x", int(id)) }

// Direction is the direction a packet travels.
type Direction uint8

const (
	ClientBound Direction = iota // proxy -> client
	ServerBound                  // client -> proxy, or proxy -> backend
)

func (d Direction) String() string {
	switch d {
	case ServerBound:
		return "ServerBound"
	case ClientBound:
		return "ClientBound"
	default:
		return "UnknownBound"
	}
}

// Protocol is a Mojang-assigned wire protocol version number.
type Protocol int

func (p Protocol) String() string { return strconv.Itoa(int(p)) }

// GreaterEqual reports whether p >= v.
func (p Protocol) GreaterEqual(v Protocol) bool { return p >= v }

// LowerEqual reports whether p <= v.
func (p Protocol) LowerEqual(v Protocol) bool { return p <= v }

// Lower reports whether p < v.
func (p Protocol) Lower(v Protocol) bool { return p < v }

// Greater reports whether p > v.
func (p Protocol) Greater(v Protocol) bool { return p > v }

// PacketType is the concrete, non-pointer reflect.Type of a Packet.
type PacketType reflect.Type

// TypeOf returns the non-pointer PacketType of p.
func TypeOf(p Packet) PacketType {
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
