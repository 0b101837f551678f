// Package util provides the binary primitives the wire protocol's packet
// encoders and decoders are built from: varints, length-prefixed strings
// and byte arrays, UUIDs, and fixed-width numerics, matching the on-wire
// layout Mojang's client uses.
package util

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"

	"go.beaconmc.dev/beacon/internal/profile"
)

// MaxVarIntLen is the longest a 32-bit varint can legally be.
const MaxVarIntLen = 5

func ReadVarInt(r io.Reader) (int, error) {
	if br, ok := r.(io.ByteReader); ok {
		var n uint32
		for i := 0; ; i++ {
			b, err := br.ReadByte()
			if err != nil {
				return 0, err
			}
			n |= uint32(b&0x7F) << uint32(7*i)
			if i >= MaxVarIntLen-1 {
				if b&0x80 != 0 {
					return 0, errors.New("decode: varint is too big")
				}
				return int(int32(n)), nil
			}
			if b&0x80 == 0 {
				break
			}
		}
		return int(int32(n)), nil
	}
	var n uint32
	for i := 0; ; i++ {
		b, err := ReadUint8(r)
		if err != nil {
			return 0, err
		}
		n |= uint32(b&0x7F) << uint32(7*i)
		if i >= MaxVarIntLen-1 {
			if b&0x80 != 0 {
				return 0, errors.New("decode: varint is too big")
			}
			break
		}
		if b&0x80 == 0 {
			break
		}
	}
	return int(int32(n)), nil
}

func WriteVarInt(w io.Writer, val int) error {
	u := uint32(val)
	for u >= 0x80 {
		if err := WriteUint8(w, byte(u)|0x80); err != nil {
			return err
		}
		u >>= 7
	}
	return WriteUint8(w, byte(u))
}

func ReadBool(r io.Reader) (bool, error) {
	b, err := ReadUint8(r)
	return b != 0, err
}

func WriteBool(w io.Writer, v bool) error {
	if v {
		return WriteUint8(w, 1)
	}
	return WriteUint8(w, 0)
}

func ReadUint8(r io.Reader) (uint8, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func WriteUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func ReadInt8(r io.Reader) (int8, error) {
	v, err := ReadUint8(r)
	return int8(v), err
}

func WriteInt8(w io.Writer, v int8) error { return WriteUint8(w, uint8(v)) }

func ReadUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func WriteUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func ReadInt16(r io.Reader) (int16, error)  { v, err := ReadUint16(r); return int16(v), err }
func WriteInt16(w io.Writer, v int16) error { return WriteUint16(w, uint16(v)) }

func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func WriteUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func ReadInt32(r io.Reader) (int32, error)  { v, err := ReadUint32(r); return int32(v), err }
func WriteInt32(w io.Writer, v int32) error { return WriteUint32(w, uint32(v)) }
func ReadInt(r io.Reader) (int, error)      { v, err := ReadInt32(r); return int(v), err }
func WriteInt(w io.Writer, v int) error     { return WriteInt32(w, int32(v)) }

func ReadUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func WriteUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func ReadInt64(r io.Reader) (int64, error)  { v, err := ReadUint64(r); return int64(v), err }
func WriteInt64(w io.Writer, v int64) error { return WriteUint64(w, uint64(v)) }

func ReadFloat32(r io.Reader) (float32, error) {
	v, err := ReadUint32(r)
	return math.Float32frombits(v), err
}
func WriteFloat32(w io.Writer, v float32) error { return WriteUint32(w, math.Float32bits(v)) }

func ReadFloat64(r io.Reader) (float64, error) {
	v, err := ReadUint64(r)
	return math.Float64frombits(v), err
}
func WriteFloat64(w io.Writer, v float64) error { return WriteUint64(w, math.Float64bits(v)) }

// ReadString reads a varint-length-prefixed UTF-8 string, bounded the same
// way bufio.Scanner bounds a token.
func ReadString(r io.Reader) (string, error) {
	return ReadStringMax(r, bufio.MaxScanTokenSize)
}

func ReadStringMax(r io.Reader, max int) (string, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", errors.New("decode: negative string length")
	}
	if n > max*4 { // up to 4 bytes per UTF-8 rune
		return "", fmt.Errorf("decode: string length %d exceeds max %d", n, max)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func WriteString(w io.Writer, s string) error { return WriteBytes(w, []byte(s)) }

func ReadBytes(r io.Reader) ([]byte, error) { return ReadBytesMax(r, bufio.MaxScanTokenSize) }

func ReadBytesMax(r io.Reader, max int) ([]byte, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("decode: negative byte array length %d", n)
	}
	if n > max {
		return nil, fmt.Errorf("decode: byte array length %d exceeds max %d", n, max)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func WriteBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, len(b)); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func ReadUUID(r io.Reader) (uuid.UUID, error) {
	var b [16]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return uuid.UUID{}, err
	}
	return uuid.FromBytes(b[:])
}

func WriteUUID(w io.Writer, id uuid.UUID) error {
	b, err := id.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func ReadProperties(r io.Reader) ([]profile.Property, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	props := make([]profile.Property, 0, n)
	for i := 0; i < n; i++ {
		name, err := ReadString(r)
		if err != nil {
			return nil, err
		}
		value, err := ReadString(r)
		if err != nil {
			return nil, err
		}
		hasSig, err := ReadBool(r)
		if err != nil {
			return nil, err
		}
		var sig string
		if hasSig {
			sig, err = ReadString(r)
			if err != nil {
				return nil, err
			}
		}
		props = append(props, profile.Property{Name: name, Value: value, Signature: sig})
	}
	return props, nil
}

func WriteProperties(w io.Writer, props []profile.Property) error {
	if err := WriteVarInt(w, len(props)); err != nil {
		return err
	}
	for _, p := range props {
		if err := WriteString(w, p.Name); err != nil {
			return err
		}
		if err := WriteString(w, p.Value); err != nil {
			return err
		}
		if p.Signature != "" {
			if err := WriteBool(w, true); err != nil {
				return err
			}
			if err := WriteString(w, p.Signature); err != nil {
				return err
			}
		} else if err := WriteBool(w, false); err != nil {
			return err
		}
	}
	return nil
}
