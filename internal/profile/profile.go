// Package profile holds the Mojang game-profile shapes exchanged with the
// session service and forwarded to backends.
package profile

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// Property is a single signed or unsigned game-profile property (e.g. "textures").
type Property struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"`
}

// GameProfile is the identity the session service vouches for, or the
// offline-mode equivalent synthesized locally.
type GameProfile struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties,omitempty"`
}

// OfflineUUID derives the deterministic UUID vanilla servers use for
// offline-mode (non-authenticated) players: version-3 UUID of
// "OfflinePlayer:<name>".
func OfflineUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = (sum[6] & 0x0f) | 0x30 // version 3
	sum[8] = (sum[8] & 0x3f) | 0x80 // RFC 4122 variant
	return uuid.UUID(sum)
}

// NewOffline builds the GameProfile for an offline-mode login.
func NewOffline(name string) GameProfile {
	return GameProfile{ID: OfflineUUID(name), Name: name}
}
