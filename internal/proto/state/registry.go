package state

import (
	"reflect"
	"sort"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/version"
)

// ProtocolRegistry is the immutable bijection between packet IDs and packet
// schemas for one concrete protocol version, one ConnectionState, and one
// Direction.
type ProtocolRegistry struct {
	Protocol    proto.Protocol
	PacketIDs   map[proto.PacketID]proto.PacketType
	PacketTypes map[proto.PacketType]proto.PacketID
}

func newProtocolRegistry(p proto.Protocol) *ProtocolRegistry {
	return &ProtocolRegistry{
		Protocol:    p,
		PacketIDs:   map[proto.PacketID]proto.PacketType{},
		PacketTypes: map[proto.PacketType]proto.PacketID{},
	}
}

// PacketID returns the id p is registered under in this protocol, if any.
func (r *ProtocolRegistry) PacketID(p proto.Packet) (proto.PacketID, bool) {
	id, ok := r.PacketTypes[proto.TypeOf(p)]
	return id, ok
}

// CreatePacket allocates a zero-value Packet for id, or nil if id is unknown.
func (r *ProtocolRegistry) CreatePacket(id proto.PacketID) proto.Packet {
	t, ok := r.PacketIDs[id]
	if !ok {
		return nil
	}
	p, ok := reflect.New(t).Interface().(proto.Packet)
	if !ok {
		return nil
	}
	return p
}

// Mapping declares that packetOf's packet is identified by ID from protocol
// Since onward, until a mapping with a higher Since supersedes it.
type Mapping struct {
	ID    proto.PacketID
	Since proto.Protocol
}

// PacketRegistry holds one ProtocolRegistry per known protocol version for a
// single ConnectionState and Direction.
type PacketRegistry struct {
	Direction proto.Direction
	Protocols map[proto.Protocol]*ProtocolRegistry
}

// NewPacketRegistry creates a registry pre-populated with an empty
// ProtocolRegistry for every known protocol version, so lookups are total.
func NewPacketRegistry(direction proto.Direction) *PacketRegistry {
	pr := &PacketRegistry{Direction: direction, Protocols: map[proto.Protocol]*ProtocolRegistry{}}
	for _, v := range version.Versions {
		pr.Protocols[v.Protocol] = newProtocolRegistry(v.Protocol)
	}
	return pr
}

// Lookup returns the ProtocolRegistry applicable to p: the exact match if
// known, else the nearest registered version not greater than p, else the
// oldest known version.
func (pr *PacketRegistry) Lookup(p proto.Protocol) *ProtocolRegistry {
	if r, ok := pr.Protocols[p]; ok {
		return r
	}
	var best *ProtocolRegistry
	for proto_, r := range pr.Protocols {
		if proto_ <= p && (best == nil || proto_ > best.Protocol) {
			best = r
		}
	}
	if best != nil {
		return best
	}
	for _, v := range version.Versions {
		return pr.Protocols[v.Protocol]
	}
	return nil
}

// Register assigns packetOf's packet type an ID in every ProtocolRegistry
// covered by mappings, sharing the same *ProtocolRegistry.PacketIDs entry
// across the consecutive version range each mapping is valid for. This is
// the "monotonic chain" construction: a new wire revision that changes only
// a handful of IDs contributes one extra Mapping rather than a full rebuild.
func (pr *PacketRegistry) Register(packetOf func() proto.Packet, mappings ...Mapping) {
	if len(mappings) == 0 {
		return
	}
	sorted := append([]Mapping(nil), mappings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Since < sorted[j].Since })

	t := proto.TypeOf(packetOf())
	for i, m := range sorted {
		upper := proto.Protocol(1 << 30)
		if i+1 < len(sorted) {
			upper = sorted[i+1].Since
		}
		for v, reg := range pr.Protocols {
			if v >= m.Since && v < upper {
				reg.PacketIDs[m.ID] = t
				reg.PacketTypes[t] = m.ID
			}
		}
	}
}

// Registry bundles the two directional PacketRegistry tables for one
// ConnectionState.
type Registry struct {
	State       ConnectionState
	ServerBound *PacketRegistry
	ClientBound *PacketRegistry
}

func NewRegistry(s ConnectionState) *Registry {
	return &Registry{
		State:       s,
		ServerBound: NewPacketRegistry(proto.ServerBound),
		ClientBound: NewPacketRegistry(proto.ClientBound),
	}
}

// Global per-state registries. Concrete packet types register themselves
// into these from the packet package's init functions, mirroring how the
// teacher's proto/state package is populated.
var (
	HandshakeRegistry = NewRegistry(Handshake)
	StatusRegistry    = NewRegistry(Status)
	LoginRegistry     = NewRegistry(Login)
	ConfigRegistry    = NewRegistry(Config)
	PlayRegistry      = NewRegistry(Play)
)

// RegistryFor returns the global Registry for s, or nil for Closed.
func RegistryFor(s ConnectionState) *Registry {
	switch s {
	case Handshake:
		return HandshakeRegistry
	case Status:
		return StatusRegistry
	case Login:
		return LoginRegistry
	case Config:
		return ConfigRegistry
	case Play:
		return PlayRegistry
	default:
		return nil
	}
}
