// Package version enumerates the Minecraft Java-edition wire protocol
// versions the proxy understands, in ascending order, and the boundaries
// used throughout the codebase (minimum supported version, the modern
// CONFIG-phase cutover, and the chat-component JSON dialect cutovers).
package version

import "go.beaconmc.dev/beacon/internal/proto"

// Version names one or more released client versions sharing a protocol number.
type Version struct {
	Protocol proto.Protocol
	Names    []string
}

func (v Version) String() string {
	if len(v.Names) == 0 {
		return v.Protocol.String()
	}
	if len(v.Names) > 1 {
		return v.Names[0] + "-" + v.Names[len(v.Names)-1]
	}
	return v.Names[0]
}

// Known protocol versions, oldest first. Only the handful of boundaries the
// core needs to distinguish are named individually; intermediate versions
// are folded into the nearest named one for packet-ID mapping purposes.
var (
	Unknown = Version{Protocol: -1}
	Legacy  = Version{Protocol: -2}

	Minecraft_1_7_2  = Version{Protocol: 4, Names: []string{"1.7.2", "1.7.3", "1.7.4", "1.7.5"}}
	Minecraft_1_8    = Version{Protocol: 47, Names: []string{"1.8", "1.8.1", "1.8.2", "1.8.3", "1.8.4", "1.8.5", "1.8.6", "1.8.7", "1.8.8", "1.8.9"}}
	Minecraft_1_9    = Version{Protocol: 107, Names: []string{"1.9"}}
	Minecraft_1_12_2 = Version{Protocol: 340, Names: []string{"1.12.2"}}
	Minecraft_1_13   = Version{Protocol: 393, Names: []string{"1.13"}}
	Minecraft_1_16   = Version{Protocol: 735, Names: []string{"1.16"}}
	Minecraft_1_16_2 = Version{Protocol: 751, Names: []string{"1.16.2"}}
	Minecraft_1_19   = Version{Protocol: 759, Names: []string{"1.19"}}
	Minecraft_1_19_1 = Version{Protocol: 760, Names: []string{"1.19.1"}}
	Minecraft_1_20   = Version{Protocol: 763, Names: []string{"1.20", "1.20.1"}}
	Minecraft_1_20_2 = Version{Protocol: 764, Names: []string{"1.20.2"}}
	Minecraft_1_20_3 = Version{Protocol: 765, Names: []string{"1.20.3", "1.20.4"}}
	Minecraft_1_20_5 = Version{Protocol: 766, Names: []string{"1.20.5", "1.20.6"}}
	Minecraft_1_21   = Version{Protocol: 767, Names: []string{"1.21", "1.21.1"}}

	Versions = []Version{
		Minecraft_1_7_2, Minecraft_1_8, Minecraft_1_9, Minecraft_1_12_2, Minecraft_1_13,
		Minecraft_1_16, Minecraft_1_16_2, Minecraft_1_19, Minecraft_1_19_1, Minecraft_1_20,
		Minecraft_1_20_2, Minecraft_1_20_3, Minecraft_1_20_5, Minecraft_1_21,
	}

	// MinimumVersion is the default floor for accepted client handshakes;
	// overridable via configuration's minimum-version key.
	MinimumVersion = Minecraft_1_7_2

	// MaximumVersion is the newest protocol version this proxy knows the
	// packet registry for.
	MaximumVersion = Minecraft_1_21

	// ConfigPhaseCutover is the first protocol version that uses the modern
	// LOGIN -> CONFIG -> PLAY flow. Versions below it go LOGIN -> PLAY directly
	// and use the legacy Respawn-based switch instead of CONFIG re-sync.
	ConfigPhaseCutover = Minecraft_1_20_2
)

// ByProtocol finds the named Version exactly matching p, if any.
func ByProtocol(p proto.Protocol) (Version, bool) {
	for _, v := range Versions {
		if v.Protocol == p {
			return v, true
		}
	}
	return Unknown, false
}

// ByName finds the Version one of whose release names equals name, such as
// the "minimum-version" configuration key. Matching is exact against the
// names a Version carries (e.g. "1.7.2", "1.12.2"); it does not resolve
// version ranges.
func ByName(name string) (Version, bool) {
	for _, v := range Versions {
		for _, n := range v.Names {
			if n == name {
				return v, true
			}
		}
	}
	return Unknown, false
}

// Supported reports whether p falls within [MinimumVersion, MaximumVersion].
func Supported(p proto.Protocol) bool {
	return p.GreaterEqual(MinimumVersion.Protocol) && p.LowerEqual(MaximumVersion.Protocol)
}

// UsesConfigPhase reports whether clients on protocol p go through the
// CONFIG connection state (modern login flow and modern switches).
func UsesConfigPhase(p proto.Protocol) bool {
	return p.GreaterEqual(ConfigPhaseCutover.Protocol)
}

// FallbackVersionName returns the name shown in a status response's
// version field for a client the proxy otherwise doesn't recognize by
// protocol number: the label of the nearest named Version at or below p if
// p is in range, MaximumVersion's label above the range, and
// MinimumVersion's label below it. Callers that want a
// configured, user-facing template (e.g. "{proxy-brand} (supports
// {protocol-min}-{protocol-max})") render it themselves; this only
// supplies the raw version label.
func FallbackVersionName(p proto.Protocol) string {
	if v, ok := ByProtocol(p); ok {
		return v.String()
	}
	if Supported(p) {
		nearest := MinimumVersion
		for _, v := range Versions {
			if v.Protocol.LowerEqual(p) {
				nearest = v
			}
		}
		return nearest.String()
	}
	if p.Greater(MaximumVersion.Protocol) {
		return MaximumVersion.String()
	}
	return MinimumVersion.String()
}
