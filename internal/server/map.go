// Package server holds the registered-backend map: a copy-on-write
// name -> address directory that supports reload-time add/remove without
// taking a lock on the read path.
package server

import (
	"fmt"
	"sort"
	"sync/atomic"

	"go.beaconmc.dev/beacon/internal/config"
	"go.beaconmc.dev/beacon/internal/forwarding"
)

// Info is one registered backend.
type Info struct {
	Name           string
	Address        string
	ForwardingMode forwarding.Mode // resolved: per-server override or the global default
	Fallback       bool
}

// Map is a copy-on-write snapshot of the registered backends, safe for
// concurrent readers during a reload: Reload publishes a brand-new snapshot
// atomically, and in-flight reads keep observing whichever snapshot they
// already loaded.
type Map struct {
	snapshot atomic.Pointer[snapshot]
	cycle    atomic.Uint64 // round-robin cursor for NextFallback
}

type snapshot struct {
	byName    map[string]*Info
	fallbacks []*Info // in configured (first-declared) order
}

func NewMap() *Map {
	m := &Map{}
	m.snapshot.Store(&snapshot{byName: map[string]*Info{}})
	return m
}

// Reload replaces the entire backend set from cfg in one atomic publish.
func (m *Map) Reload(cfg *config.Config) error {
	defaultMode, err := forwarding.ParseMode(cfg.Forwarding.Mode)
	if err != nil {
		return err
	}

	next := &snapshot{byName: map[string]*Info{}}
	fallbackSet := map[string]bool{}
	for _, fb := range cfg.Fallbacks {
		fallbackSet[fb] = true
	}

	for _, sc := range cfg.Servers {
		mode := defaultMode
		if sc.ForwardingMode != "" {
			m, err := forwarding.ParseMode(sc.ForwardingMode)
			if err != nil {
				return fmt.Errorf("server %q: %w", sc.Name, err)
			}
			mode = m
		}
		info := &Info{
			Name:           sc.Name,
			Address:        sc.Address,
			ForwardingMode: mode,
			Fallback:       sc.Fallback || fallbackSet[sc.Name],
		}
		if _, dup := next.byName[info.Name]; dup {
			return fmt.Errorf("duplicate server name %q", info.Name)
		}
		next.byName[info.Name] = info
		if info.Fallback {
			next.fallbacks = append(next.fallbacks, info)
		}
	}
	m.snapshot.Store(next)
	return nil
}

// Get resolves a backend by name against the current snapshot.
func (m *Map) Get(name string) (*Info, bool) {
	s := m.snapshot.Load()
	info, ok := s.byName[name]
	return info, ok
}

// All returns every registered backend from the current snapshot, sorted by
// name for deterministic iteration.
func (m *Map) All() []*Info {
	s := m.snapshot.Load()
	out := make([]*Info, 0, len(s.byName))
	for _, info := range s.byName {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Fallbacks returns the configured fallback servers in first-declared order.
func (m *Map) Fallbacks() []*Info {
	s := m.snapshot.Load()
	return append([]*Info(nil), s.fallbacks...)
}

// PlayerCounter reports how many players a named backend currently has; the
// switch coordinator uses it to pick the least-populated dynamic fallback.
type PlayerCounter interface {
	PlayerCount(serverName string) int
}

// LeastPopulatedFallback returns the fallback with the fewest players
// according to counts, breaking ties by first-declared order (the order
// Fallbacks already returns them in, since that order is preserved from
// configuration and range-over-map is never used here). Used when
// enable-dynamic-fallbacks is on.
func (m *Map) LeastPopulatedFallback(counts PlayerCounter) (*Info, bool) {
	fallbacks := m.Fallbacks()
	if len(fallbacks) == 0 {
		return nil, false
	}
	best := fallbacks[0]
	bestCount := counts.PlayerCount(best.Name)
	for _, fb := range fallbacks[1:] {
		c := counts.PlayerCount(fb.Name)
		if c < bestCount {
			best, bestCount = fb, c
		}
	}
	return best, true
}

// NextFallback returns the next fallback in round-robin order: the set
// itself cycles across repeated calls so that, even without per-server
// player counts, repeated selections spread across the configured
// fallbacks instead of always landing on the first one. Used when
// enable-dynamic-fallbacks is off.
func (m *Map) NextFallback() (*Info, bool) {
	fallbacks := m.Fallbacks()
	if len(fallbacks) == 0 {
		return nil, false
	}
	i := m.cycle.Add(1) - 1
	return fallbacks[i%uint64(len(fallbacks))], true
}
