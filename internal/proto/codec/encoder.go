package codec

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"sync"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/util"
)

// Encoder turns packets (or pre-framed raw payloads, for relay passthrough)
// into wire frames.
type Encoder struct {
	mu sync.Mutex

	wr io.Writer

	direction proto.Direction
	protocol  proto.Protocol
	connState state.ConnectionState

	compressionEnabled   bool
	compressionThreshold int
	compressionLevel     int
}

func NewEncoder(w io.Writer, direction proto.Direction) *Encoder {
	return &Encoder{
		wr:                   w,
		direction:            direction,
		connState:            state.Handshake,
		compressionThreshold: -1,
		compressionLevel:     zlib.DefaultCompression,
	}
}

func (e *Encoder) SetWriter(w io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wr = w
}

func (e *Encoder) SetProtocol(p proto.Protocol) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.protocol = p
}

func (e *Encoder) SetState(s state.ConnectionState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connState = s
}

func (e *Encoder) SetCompression(threshold, level int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compressionThreshold = threshold
	e.compressionEnabled = threshold >= 0
	if level >= 0 {
		e.compressionLevel = level
	}
}

// WritePacket looks packet up in the registry for the encoder's current
// (protocol, state, direction), frames it, and writes it.
func (e *Encoder) WritePacket(packet proto.Packet) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	registry := state.RegistryFor(e.connState)
	if registry == nil {
		return fmt.Errorf("codec: no registry for state %s", e.connState)
	}
	var dirReg *state.PacketRegistry
	if e.direction == proto.ServerBound {
		dirReg = registry.ServerBound
	} else {
		dirReg = registry.ClientBound
	}
	pr := dirReg.Lookup(e.protocol)
	id, ok := pr.PacketID(packet)
	if !ok {
		return fmt.Errorf("codec: packet %T not registered for protocol %s state %s direction %s",
			packet, e.protocol, e.connState, e.direction)
	}

	buf := new(bytes.Buffer)
	if err := util.WriteVarInt(buf, int(id)); err != nil {
		return err
	}
	ctx := &proto.PacketContext{Direction: e.direction, Protocol: e.protocol, PacketID: id, Packet: packet}
	if err := packet.Encode(ctx, buf); err != nil {
		return err
	}
	return e.writeFrame(buf.Bytes())
}

// Write frames and sends a pre-encoded payload (packet id + body), used by
// the relay to forward packets without re-parsing them.
func (e *Encoder) Write(payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writeFrame(payload)
}

func (e *Encoder) writeFrame(payload []byte) error {
	if e.compressionEnabled {
		return e.writeCompressedFrame(payload)
	}
	if len(payload) > MaxFrameLength {
		return fmt.Errorf("codec: frame length %d exceeds maximum %d", len(payload), MaxFrameLength)
	}
	frame := new(bytes.Buffer)
	if err := util.WriteVarInt(frame, len(payload)); err != nil {
		return err
	}
	frame.Write(payload)
	_, err := e.wr.Write(frame.Bytes())
	return err
}

func (e *Encoder) writeCompressedFrame(payload []byte) error {
	body := new(bytes.Buffer)
	if len(payload) < e.compressionThreshold {
		if err := util.WriteVarInt(body, 0); err != nil {
			return err
		}
		body.Write(payload)
	} else {
		if err := util.WriteVarInt(body, len(payload)); err != nil {
			return err
		}
		zw, err := zlib.NewWriterLevel(body, e.compressionLevel)
		if err != nil {
			return err
		}
		if _, err := zw.Write(payload); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
	}
	if body.Len() > MaxFrameLength {
		return fmt.Errorf("codec: frame length %d exceeds maximum %d", body.Len(), MaxFrameLength)
	}
	frame := new(bytes.Buffer)
	if err := util.WriteVarInt(frame, body.Len()); err != nil {
		return err
	}
	frame.Write(body.Bytes())
	_, err := e.wr.Write(frame.Bytes())
	return err
}
