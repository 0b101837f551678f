package util

import (
	"bytes"
	"fmt"
	"testing"
)

// TestVarIntRoundTrip mirrors the teacher's varint edge-case table: negative
// values must round-trip the same as positive ones, since Minecraft's varint
// encoding treats the 32-bit value as unsigned on the wire.
func TestVarIntRoundTrip(t *testing.T) {
	values := []int{
		-2147483648, -256, -1, 0, 1, 127, 128, 2097151, 2097152, 2147483647,
	}

	for _, v := range values {
		t.Run(fmt.Sprintf("VarInt_%d", v), func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteVarInt(&buf, v); err != nil {
				t.Fatalf("WriteVarInt(%d): %v", v, err)
			}
			if buf.Len() > MaxVarIntLen {
				t.Fatalf("WriteVarInt(%d) produced %d bytes, want <= %d", v, buf.Len(), MaxVarIntLen)
			}
			got, err := ReadVarInt(&buf)
			if err != nil {
				t.Fatalf("ReadVarInt after writing %d: %v", v, err)
			}
			if got != v {
				t.Errorf("round-trip mismatch: wrote %d, read %d", v, got)
			}
		})
	}
}

func TestReadVarIntRejectsOverlongEncoding(t *testing.T) {
	// Five bytes, every one with the continuation bit set: no terminator.
	buf := bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	if _, err := ReadVarInt(buf); err == nil {
		t.Fatal("expected an error decoding a varint with no terminating byte")
	}
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	const s = "hello, beacon"
	if err := WriteString(&buf, s); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	got, err := ReadString(&buf)
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if got != s {
		t.Errorf("got %q, want %q", got, s)
	}
}

func TestReadStringMaxRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteVarInt(&buf, 1000); err != nil {
		t.Fatalf("WriteVarInt: %v", err)
	}
	if _, err := ReadStringMax(&buf, 10); err == nil {
		t.Fatal("expected an error reading a string whose declared length exceeds max")
	}
}

func TestBoolRoundTrip(t *testing.T) {
	for _, v := range []bool{true, false} {
		var buf bytes.Buffer
		if err := WriteBool(&buf, v); err != nil {
			t.Fatalf("WriteBool(%v): %v", v, err)
		}
		got, err := ReadBool(&buf)
		if err != nil {
			t.Fatalf("ReadBool: %v", err)
		}
		if got != v {
			t.Errorf("got %v, want %v", got, v)
		}
	}
}
