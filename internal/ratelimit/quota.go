// Package ratelimit implements the per-source-IP login admission quota: a
// token bucket per IP block, evicted by an LRU cache so the bookkeeping
// structure itself stays bounded under churn from many distinct addresses.
package ratelimit

import (
	"net"
	"sync"

	"github.com/golang/groupcache/lru"
	"golang.org/x/time/rate"
)

// Quota is a per-IP admission limiter keyed on the first three octets of an
// IPv4 address (or the analogous /64 prefix for IPv6), matching the
// teacher's addrquota grouping so that a single host can't bypass the
// bucket by cycling through adjacent addresses in the same block.
type Quota struct {
	eventsPerSecond float64
	burst           int

	mu    sync.Mutex
	cache *lru.Cache
}

// NewQuota builds a Quota allowing eventsPerSecond sustained attempts with
// burst headroom, remembering at most maxEntries distinct IP keys.
func NewQuota(eventsPerSecond float64, burst, maxEntries int) *Quota {
	return &Quota{
		eventsPerSecond: eventsPerSecond,
		burst:           burst,
		cache:           lru.New(maxEntries),
	}
}

// Allow reports whether a login attempt from addr is admitted.
func (q *Quota) Allow(addr net.Addr) bool {
	return !q.Blocked(addr)
}

// Blocked is the inverse of Allow, matching the teacher's addrquota naming.
func (q *Quota) Blocked(addr net.Addr) bool {
	key := ipKey(addr)
	if key == "" {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var limiter *rate.Limiter
	if v, ok := q.cache.Get(key); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(rate.Limit(q.eventsPerSecond), q.burst)
		q.cache.Add(key, limiter)
	}
	return !limiter.Allow()
}

// SetRate changes the sustained admission rate applied to every IP bucket,
// including ones already tracked, so a config reload of login-ratelimit
// takes effect immediately rather than only for addresses seen again after
// their LRU entry expires.
func (q *Quota) SetRate(eventsPerSecond float64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.eventsPerSecond = eventsPerSecond
	q.cache.Clear()
}

// ipKey groups an address into the /24-ish block used as the bucket key,
// zeroing the last octet for IPv4 so that one misbehaving host can't evade
// the quota by rotating through addresses in the same subnet.
func ipKey(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return host
	}
	if v4 := ip.To4(); v4 != nil {
		v4[3] = 0
		return v4.String()
	}
	masked := ip.Mask(net.CIDRMask(64, 128))
	return masked.String()
}
