// Package chat picks the right chat-component JSON dialect for a client's
// protocol version and marshals disconnect/status text into it. The wire
// protocol changed its chat-component JSON shape twice (1.16, 1.20.3); this
// package is the one place that distinction is made.
package chat

import (
	"bytes"

	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/component/codec"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/version"
)

var (
	jsonPre116  = &codec.Json{}
	jsonPre1203 = &codec.Json{NoDownsampleColor: true, NoLegacyHover: true}
	jsonModern  = &codec.Json{NoDownsampleColor: true, NoLegacyHover: true}
)

// JSONCodec returns the dialect a client on p expects.
func JSONCodec(p proto.Protocol) codec.Codec {
	switch {
	case p.GreaterEqual(version.Minecraft_1_20_3.Protocol):
		return jsonModern
	case p.GreaterEqual(version.Minecraft_1_16.Protocol):
		return jsonPre1203
	default:
		return jsonPre116
	}
}

// Marshal encodes c as JSON for a client on protocol p.
func Marshal(p proto.Protocol, c component.Component) (string, error) {
	buf := new(bytes.Buffer)
	if err := JSONCodec(p).Marshal(buf, c); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Text builds a plain, uncolored text component JSON string for protocol p.
// Used for kick reasons and other proxy-originated messages that don't need
// styling.
func Text(p proto.Protocol, msg string) string {
	s, err := Marshal(p, &component.Text{Content: msg})
	if err != nil {
		// component.Text with only Content can't fail to marshal; fall back
		// to a hand-built literal if the codec ever changes that.
		return `{"text":"` + msg + `"}`
	}
	return s
}
