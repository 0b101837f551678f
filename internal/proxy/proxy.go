// Package proxy implements the session state machine described by the
// wire protocol: accepting client connections, authenticating them,
// dialing backends on their behalf, and relaying traffic between the two
// sides across server switches.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/pires/go-proxyproto"
	"github.com/robinbraemer/event"
	uberatomic "go.uber.org/atomic"

	"go.beaconmc.dev/beacon/internal/auth"
	"go.beaconmc.dev/beacon/internal/config"
	"go.beaconmc.dev/beacon/internal/favicon"
	"go.beaconmc.dev/beacon/internal/player"
	"go.beaconmc.dev/beacon/internal/ratelimit"
	"go.beaconmc.dev/beacon/internal/server"
)

// Proxy ties together every subsystem described by the wire protocol and
// configuration: the backend map, the identity registry, the
// authenticator, the login/connection rate limiters, and the event bus
// plugins subscribe to.
type Proxy struct {
	// cfg is swapped wholesale on Reload; every read takes a fresh snapshot
	// via Config() so a single session never observes a torn mix of old and
	// new values mid-operation.
	cfg atomic.Pointer[config.Config]
	log logr.Logger

	event event.Manager

	servers *server.Map
	players *player.Registry
	auth    auth.Authenticator
	favicon favicon.Favicon

	connQuota  *ratelimit.Quota
	loginQuota *ratelimit.Quota

	runOnce   uberatomic.Bool
	closeOnce sync.Once
	closed    chan struct{}
}

// New builds a Proxy from an already-validated configuration.
func New(cfg *config.Config, log logr.Logger) (*Proxy, error) {
	authenticator, err := auth.New(auth.Options{PrivateKeyBits: 1024})
	if err != nil {
		return nil, fmt.Errorf("proxy: initializing authenticator: %w", err)
	}

	var fav favicon.Favicon
	if cfg.FaviconPath != "" {
		fav, err = favicon.Load(cfg.FaviconPath)
		if err != nil {
			return nil, fmt.Errorf("proxy: loading favicon: %w", err)
		}
	}

	p := &Proxy{
		log:        log,
		event:      event.New(),
		servers:    server.NewMap(),
		players:    player.NewRegistry(),
		auth:       authenticator,
		favicon:    fav,
		connQuota:  ratelimit.NewQuota(1.0/cfg.ConnectionRateLimit.Seconds(), 10, 1000),
		loginQuota: ratelimit.NewQuota(1.0/cfg.LoginRateLimit.Seconds(), 3, 1000),
		closed:     make(chan struct{}),
	}
	p.cfg.Store(cfg)
	if err := p.servers.Reload(cfg); err != nil {
		return nil, fmt.Errorf("proxy: loading backend servers: %w", err)
	}
	return p, nil
}

// Config returns the configuration snapshot currently in effect. Hold onto
// the returned pointer for the duration of one operation rather than
// re-calling Config mid-operation, so a concurrent Reload can't be observed
// as a torn mix of old and new values.
func (p *Proxy) Config() *config.Config { return p.cfg.Load() }

// Reload swaps in a new configuration without a restart: it publishes a new
// server-map snapshot, re-rates the login and connection rate limiters,
// stores next as the snapshot Config returns, and then evacuates players off
// any backend that got removed. Every key read through Config per operation
// (forwarding, minimum version, motd, server brand, and so on) takes effect
// from then on. The listener, its HAProxy wrapping, the query socket and the
// favicon are set up only once, in New and Run, so bind, haproxy, query and
// favicon-path changes need a restart; Reload never touches the listener.
func (p *Proxy) Reload(next *config.Config) error {
	if err := p.servers.Reload(next); err != nil {
		return fmt.Errorf("proxy: reloading backend servers: %w", err)
	}
	p.loginQuota.SetRate(1.0 / next.LoginRateLimit.Seconds())
	p.connQuota.SetRate(1.0 / next.ConnectionRateLimit.Seconds())
	p.cfg.Store(next)
	evacuateRemovedBackends(p)
	p.log.Info("configuration reloaded")
	return nil
}

// ErrAlreadyRun is returned by Run if the Proxy instance was already run.
var ErrAlreadyRun = errors.New("proxy: already run, create a new Proxy to run again")

// Run listens and serves until ctx is cancelled or an unrecoverable error
// occurs; the listener and every connection are torn down before it
// returns.
func (p *Proxy) Run(ctx context.Context) error {
	if !p.runOnce.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	return p.listenAndServe(ctx)
}

// Shutdown stops accepting new connections, kicks every connected player,
// waits up to a bounded window for in-flight event handlers to finish, and
// returns regardless of whether they did.
func (p *Proxy) Shutdown(reason string) {
	p.closeOnce.Do(func() {
		p.log.Info("shutting down")
		close(p.closed)

		p.players.Range(func(s player.Session) {
			s.Disconnect(reason)
		})

		done := make(chan struct{})
		go func() {
			p.event.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			p.log.Info("shutdown wait timed out, exiting anyway")
		}
	})
}

func (p *Proxy) listenAndServe(ctx context.Context) error {
	cfg := p.Config()
	ln, err := net.Listen("tcp", cfg.Bind)
	if err != nil {
		return err
	}
	defer ln.Close()

	if cfg.HAProxyProtocol {
		ln = &proxyproto.Listener{Listener: ln}
	}

	var queryConn net.PacketConn
	if cfg.QueryEnabled {
		queryConn, err = p.bindQuery(cfg)
		if err != nil {
			return err
		}
		defer queryConn.Close()
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-p.closed:
		}
		_ = ln.Close()
		if queryConn != nil {
			_ = queryConn.Close()
		}
	}()

	p.log.Info("listening", "addr", cfg.Bind)
	for {
		raw, err := ln.Accept()
		if err != nil {
			select {
			case <-p.closed:
				return nil
			default:
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("proxy: accept: %w", err)
		}
		go p.handleRawConn(raw)
	}
}

// bindQuery opens the UDP socket for the GameSpy-style query protocol on
// cfg.QueryPort, sharing cfg.Bind's host. Responding to query packets is out
// of core scope; this only owns the socket's lifecycle so query-enabled
// isn't a config key with no effect.
func (p *Proxy) bindQuery(cfg *config.Config) (net.PacketConn, error) {
	host, _, err := net.SplitHostPort(cfg.Bind)
	if err != nil {
		host = cfg.Bind
	}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", cfg.QueryPort))
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("proxy: binding query socket: %w", err)
	}
	p.log.Info("query socket bound", "addr", addr)
	return conn, nil
}

func (p *Proxy) handleRawConn(raw net.Conn) {
	if p.connQuota != nil && p.connQuota.Blocked(raw.RemoteAddr()) {
		_ = raw.Close()
		return
	}
	c := newConn(raw, p, true)
	c.setSessionHandler(newHandshakeHandler(c))
	c.readLoop()
}

// Event returns the proxy-wide event bus plugins and built-in subscribers
// use to observe and influence connection lifecycle.
func (p *Proxy) Event() event.Manager { return p.event }

// Servers returns the backend map.
func (p *Proxy) Servers() *server.Map { return p.servers }

// Players returns the identity registry of currently-connected players.
func (p *Proxy) Players() *player.Registry { return p.players }

// PlayerCount implements server.PlayerCounter for the least-populated
// dynamic-fallback selection; it counts players whose current backend name
// matches serverName exactly.
func (p *Proxy) PlayerCount(serverName string) int {
	n := 0
	p.players.Range(func(s player.Session) {
		if pl, ok := s.(*Player); ok && pl.CurrentServer() == serverName {
			n++
		}
	})
	return n
}
