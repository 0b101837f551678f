// Package forwarding implements the four player-info forwarding strategies
// a backend can be configured to expect: NONE, LEGACY (BungeeCord), BUNGEEGUARD,
// and MODERN (Velocity-style signed plugin message).
package forwarding

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"go.beaconmc.dev/beacon/internal/profile"
	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/util"
)

// Mode selects how a backend learns the real client's identity and address.
type Mode string

const (
	None        Mode = "NONE"
	Legacy      Mode = "LEGACY"
	BungeeGuard Mode = "BUNGEEGUARD"
	Modern      Mode = "MODERN"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case None, Legacy, BungeeGuard, Modern:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("forwarding: unknown mode %q", s)
	}
}

// LegacyHandshakeAddress builds the extended HANDSHAKE address field used by
// LEGACY (BungeeCord) forwarding: "host\0ip\0uuid\0propertiesJson".
func LegacyHandshakeAddress(host, clientIP string, p profile.GameProfile) (string, error) {
	props, err := json.Marshal(p.Properties)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s", host, clientIP, p.ID.String(), props), nil
}

// BungeeGuardHandshakeAddress is LEGACY's address field with a shared-secret
// token property appended, so the backend can reject spoofed traffic.
func BungeeGuardHandshakeAddress(host, clientIP, secret string, p profile.GameProfile) (string, error) {
	withToken := p
	withToken.Properties = append(append([]profile.Property{}, p.Properties...), profile.Property{
		Name:  "bungeeguard-token",
		Value: secret,
	})
	return LegacyHandshakeAddress(host, clientIP, withToken)
}

// Modern forwarding versions, mirroring Velocity's plugin-message payload
// revisions; a newer backend can still parse an older-version payload.
const (
	VersionDefault = 1
	VersionWithKey = 2
	VersionMax     = VersionWithKey
)

// ModernChannel is the plugin-message channel the LoginPluginRequest/Response
// round trip uses to exchange the forwarding payload.
const ModernChannel = "velocity:player_info"

// BuildModernPayload builds the HMAC-signed MODERN forwarding payload:
// hmac(secret, body) || body, where body is
// varint(version) + string(address) + uuid + string(username) + properties.
func BuildModernPayload(secret []byte, clientIP string, p profile.GameProfile, requestedVersion int) ([]byte, error) {
	version := requestedVersion
	if version <= 0 || version > VersionMax {
		version = VersionDefault
	}

	body := new(bytes.Buffer)
	if err := util.WriteVarInt(body, version); err != nil {
		return nil, err
	}
	if err := util.WriteString(body, clientIP); err != nil {
		return nil, err
	}
	if err := util.WriteUUID(body, p.ID); err != nil {
		return nil, err
	}
	if err := util.WriteString(body, p.Name); err != nil {
		return nil, err
	}
	if err := util.WriteProperties(body, p.Properties); err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body.Bytes())
	sig := mac.Sum(nil)

	out := make([]byte, 0, len(sig)+body.Len())
	out = append(out, sig...)
	out = append(out, body.Bytes()...)
	return out, nil
}

// ParseModernPayload is the backend-side counterpart, included for
// completeness/testing symmetry: it verifies the HMAC and decodes the body.
func ParseModernPayload(secret, payload []byte) (clientIP string, p profile.GameProfile, err error) {
	const sigLen = sha256.Size
	if len(payload) < sigLen {
		return "", profile.GameProfile{}, errors.New("forwarding: payload shorter than hmac signature")
	}
	sig, body := payload[:sigLen], payload[sigLen:]
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return "", profile.GameProfile{}, errors.New("forwarding: hmac signature mismatch")
	}

	rd := bytes.NewReader(body)
	if _, err = util.ReadVarInt(rd); err != nil {
		return "", profile.GameProfile{}, err
	}
	if clientIP, err = util.ReadString(rd); err != nil {
		return "", profile.GameProfile{}, err
	}
	id, err := util.ReadUUID(rd)
	if err != nil {
		return "", profile.GameProfile{}, err
	}
	name, err := util.ReadString(rd)
	if err != nil {
		return "", profile.GameProfile{}, err
	}
	props, err := util.ReadProperties(rd)
	if err != nil {
		return "", profile.GameProfile{}, err
	}
	return clientIP, profile.GameProfile{ID: id, Name: name, Properties: props}, nil
}

// requiresModernClient reports whether p's protocol supports the MODERN
// plugin-message handshake (introduced in 1.13).
func requiresModernClient(p proto.Protocol, minModern proto.Protocol) error {
	if p.Lower(minModern) {
		return errors.New("forwarding: MODERN forwarding requires client protocol >= 1.13")
	}
	return nil
}

// CheckModernSupported validates the client protocol against the 1.13 floor
// MODERN forwarding requires, returning a descriptive error if too old.
func CheckModernSupported(clientProtocol proto.Protocol) error {
	const minecraft1_13 = proto.Protocol(393)
	return requiresModernClient(clientProtocol, minecraft1_13)
}
