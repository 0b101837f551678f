package ratelimit

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func addr(ip string) net.Addr {
	return &net.TCPAddr{IP: net.ParseIP(ip), Port: 25565}
}

func TestQuotaBlocksBurst(t *testing.T) {
	q := NewQuota(1, 1, 100)
	a := addr("203.0.113.5")
	assert.True(t, q.Allow(a), "first attempt within burst should be allowed")
	assert.True(t, q.Blocked(a), "second immediate attempt exceeds the burst of 1")
}

func TestQuotaGroupsByBlock(t *testing.T) {
	q := NewQuota(1, 1, 100)
	assert.True(t, q.Allow(addr("203.0.113.1")))
	assert.True(t, q.Blocked(addr("203.0.113.254")), "same /24-ish block shares a bucket")
}

func TestSetRateResetsTrackedAddresses(t *testing.T) {
	q := NewQuota(1, 1, 100)
	a := addr("203.0.113.5")
	assert.True(t, q.Allow(a))
	assert.True(t, q.Blocked(a))

	q.SetRate(100)
	assert.True(t, q.Allow(a), "SetRate should clear existing buckets so the new rate applies immediately")
}
