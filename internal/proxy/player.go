package proxy

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"go.beaconmc.dev/beacon/internal/profile"
	"go.beaconmc.dev/beacon/internal/server"
)

// Player is a fully-admitted session: a client connection that has passed
// login and is (or is about to be) attached to a backend via a Link. It
// satisfies player.Session so the proxy's identity registry can manage it.
type Player struct {
	conn    *conn
	profile profile.GameProfile

	onlineMode bool

	mu          sync.RWMutex
	currentLink *server.Link
	currentName string              // backend name, "" before first connect
	channels    map[string]struct{} // plugin channels the client has REGISTERed, carried across switches

	pendingSwitch atomic.Bool // true while a server switch is in flight for this player
}

func newPlayer(c *conn, p profile.GameProfile, onlineMode bool) *Player {
	return &Player{conn: c, profile: p, onlineMode: onlineMode}
}

func (p *Player) ID() uuid.UUID                { return p.profile.ID }
func (p *Player) Username() string             { return p.profile.Name }
func (p *Player) OnlineMode() bool             { return p.onlineMode }
func (p *Player) Profile() profile.GameProfile { return p.profile }

// Disconnect satisfies player.Session: it kicks the underlying connection
// with reason and tears down its current backend link, if any.
func (p *Player) Disconnect(reason string) {
	p.closeLink()
	_ = p.conn.closeWith(disconnectPacketFor(p.conn, reason))
}

func (p *Player) CurrentServer() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentName
}

// swapLink installs newLink as the player's current backend link and
// returns whatever link it replaces, without closing it: the caller
// decides when the old connection is safe to tear down, which during a
// switch must be after the new link has taken over, not before.
func (p *Player) swapLink(name string, newLink *server.Link) (old *server.Link) {
	p.mu.Lock()
	defer p.mu.Unlock()
	old = p.currentLink
	p.currentLink = newLink
	p.currentName = name
	return old
}

func (p *Player) link() *server.Link {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentLink
}

// RegisterChannels adds names to the set of plugin channels this client has
// told some backend it speaks, so a later switch can replay them to the new
// backend without the client having to REGISTER again.
func (p *Player) RegisterChannels(names []string) {
	if len(names) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channels == nil {
		p.channels = make(map[string]struct{}, len(names))
	}
	for _, n := range names {
		p.channels[n] = struct{}{}
	}
}

// UnregisterChannels removes names from the known-channel set.
func (p *Player) UnregisterChannels(names []string) {
	if len(names) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range names {
		delete(p.channels, n)
	}
}

// KnownChannels returns every plugin channel currently registered.
func (p *Player) KnownChannels() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.channels))
	for n := range p.channels {
		out = append(out, n)
	}
	return out
}

// BeginSwitch claims the right to carry out a server switch for this
// player, reporting false if one is already in flight so the caller can
// fail fast rather than race a second switch against the first. Callers
// that succeed must call EndSwitch once the switch (successfully or not)
// concludes.
func (p *Player) BeginSwitch() bool {
	return p.pendingSwitch.CompareAndSwap(false, true)
}

// EndSwitch releases the claim BeginSwitch took.
func (p *Player) EndSwitch() {
	p.pendingSwitch.Store(false)
}

func (p *Player) closeLink() {
	p.mu.Lock()
	l := p.currentLink
	p.currentLink = nil
	p.mu.Unlock()
	if l != nil {
		_ = l.Close()
	}
}
