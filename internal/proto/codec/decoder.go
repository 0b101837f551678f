// Package codec implements the frame codec described by the wire protocol:
// varint length-prefixed framing, optional one-shot zlib compression, and
// optional one-shot AES/CFB8 encryption, plus the packet decoding/encoding
// that sits on top of a frame's payload bytes.
package codec

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/util"
)

// MaxFrameLength is 2^21-1, the largest frame the protocol permits.
const MaxFrameLength = 1<<21 - 1

// VanillaMaxUncompressedSize bounds a post-inflate payload to 8 MiB, matching
// vanilla's own ceiling; anything larger is treated as a protocol violation
// rather than an attempt to allocate unbounded memory for a hostile frame.
const VanillaMaxUncompressedSize = 8 * 1024 * 1024

// Decoder turns a byte stream into packets, honoring the active
// compression/encryption/registry state of its connection.
type Decoder struct {
	mu sync.Mutex

	rd  io.Reader
	log logr.Logger

	direction proto.Direction
	protocol  proto.Protocol
	connState state.ConnectionState

	compressionEnabled   bool
	compressionThreshold int
	zr                   io.ReadCloser
}

func NewDecoder(r io.Reader, direction proto.Direction, log logr.Logger) *Decoder {
	return &Decoder{
		rd:                   r,
		log:                  log,
		direction:            direction,
		connState:            state.Handshake,
		compressionThreshold: -1,
	}
}

func (d *Decoder) SetReader(r io.Reader) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rd = r
}

func (d *Decoder) SetProtocol(p proto.Protocol) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.protocol = p
}

func (d *Decoder) SetState(s state.ConnectionState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connState = s
}

func (d *Decoder) SetCompressionThreshold(threshold int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.compressionThreshold = threshold
	d.compressionEnabled = threshold >= 0
}

// Decode reads and decodes the next packet frame.
func (d *Decoder) Decode() (*proto.PacketContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	frame, err := readFrame(d.rd)
	if err != nil {
		return nil, err
	}
	size := len(frame)

	payload := frame
	if d.compressionEnabled {
		payload, err = d.decompress(frame)
		if err != nil {
			return nil, err
		}
	}

	return d.decodePayload(payload, size)
}

func readFrame(r io.Reader) ([]byte, error) {
	length, err := util.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, fmt.Errorf("codec: invalid frame length %d", length)
	}
	if length > MaxFrameLength {
		return nil, fmt.Errorf("codec: frame length %d exceeds maximum %d", length, MaxFrameLength)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *Decoder) decompress(frame []byte) ([]byte, error) {
	rd := bytes.NewReader(frame)
	uncompressedSize, err := util.ReadVarInt(rd)
	if err != nil {
		return nil, err
	}
	if uncompressedSize < 0 {
		return nil, fmt.Errorf("codec: negative uncompressed size %d", uncompressedSize)
	}
	rest := frame[len(frame)-rd.Len():]
	if uncompressedSize == 0 {
		return rest, nil
	}
	if uncompressedSize < d.compressionThreshold {
		return nil, fmt.Errorf("codec: uncompressed size %d below compression threshold %d", uncompressedSize, d.compressionThreshold)
	}
	if uncompressedSize > VanillaMaxUncompressedSize {
		return nil, fmt.Errorf("codec: uncompressed size %d exceeds maximum %d", uncompressedSize, VanillaMaxUncompressedSize)
	}

	zr, err := zlib.NewReader(bytes.NewReader(rest))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]byte, uncompressedSize)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("codec: inflate failed: %w", err)
	}
	// Confirm no trailing bytes remain beyond the declared size.
	var extra [1]byte
	if n, _ := zr.Read(extra[:]); n > 0 {
		return nil, errors.New("codec: inflated payload larger than declared uncompressed size")
	}
	return out, nil
}

func (d *Decoder) decodePayload(payload []byte, frameSize int) (*proto.PacketContext, error) {
	rd := bytes.NewReader(payload)
	id, err := util.ReadVarInt(rd)
	if err != nil {
		return nil, err
	}

	registry := state.RegistryFor(d.connState)
	var pr *state.ProtocolRegistry
	if registry != nil {
		var dirReg *state.PacketRegistry
		if d.direction == proto.ServerBound {
			dirReg = registry.ServerBound
		} else {
			dirReg = registry.ClientBound
		}
		pr = dirReg.Lookup(d.protocol)
	}

	ctx := &proto.PacketContext{
		Direction: d.direction,
		Protocol:  d.protocol,
		PacketID:  proto.PacketID(id),
		Payload:   payload,
		Size:      frameSize,
	}

	if pr == nil {
		return ctx, nil
	}
	packet := pr.CreatePacket(proto.PacketID(id))
	if packet == nil {
		return ctx, nil
	}

	if err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("codec: panic decoding packet %s: %v", ctx.PacketID, r)
			}
		}()
		return packet.Decode(ctx, rd)
	}(); err != nil {
		return nil, err
	}

	if rd.Len() > 0 {
		return nil, fmt.Errorf("%w: %s left %d bytes", proto.ErrDecoderLeftBytes, ctx.PacketID, rd.Len())
	}

	ctx.Packet = packet
	return ctx, nil
}
