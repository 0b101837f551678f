package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"go.uber.org/atomic"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/codec"
	"go.beaconmc.dev/beacon/internal/proto/packet"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/version"
	"go.beaconmc.dev/beacon/internal/proxyerr"
)

// sessionHandler handles packets the connection's current state dispatches
// to it; the connection moves through handshake/status/login/config/play
// handlers as the session progresses, swapping handlers rather than
// branching on state inside one monolithic dispatcher.
type sessionHandler interface {
	handlePacket(pc *proto.PacketContext)
	disconnected()

	activated()
	deactivated()
}

// nopSessionHandler is embedded by concrete handlers so they only need to
// implement the methods they actually care about.
type nopSessionHandler struct{}

func (nopSessionHandler) handlePacket(*proto.PacketContext) {}
func (nopSessionHandler) disconnected()                     {}
func (nopSessionHandler) activated()                        {}
func (nopSessionHandler) deactivated()                      {}

// ErrClosedConn indicates a connection is already closed.
var ErrClosedConn = errors.New("proxy: connection is closed")

// conn is one Minecraft connection, either the client's connection to the
// proxy or the proxy's outbound connection to a backend; the session
// handlers above decide which side of the relay they're steering.
type conn struct {
	p   *Proxy
	log logr.Logger
	c   net.Conn

	readBuf *bufio.Reader
	decoder *codec.Decoder

	writeBuf *bufio.Writer
	encoder  *codec.Encoder

	closed          chan struct{}
	closeOnce       sync.Once
	knownDisconnect atomic.Bool

	protocol proto.Protocol

	mu             sync.RWMutex
	state          state.ConnectionState
	sessionHandler sessionHandler
}

func newConn(base net.Conn, p *Proxy, clientSide bool) *conn {
	in := proto.ServerBound
	out := proto.ClientBound
	name := "client"
	if !clientSide {
		in = proto.ClientBound
		out = proto.ServerBound
		name = "server"
	}

	log := p.log.WithName(name)
	writeBuf := bufio.NewWriter(base)
	readBuf := bufio.NewReader(base)

	return &conn{
		p:        p,
		log:      log,
		c:        base,
		closed:   make(chan struct{}),
		writeBuf: writeBuf,
		readBuf:  readBuf,
		encoder:  codec.NewEncoder(writeBuf, out),
		decoder:  codec.NewDecoder(readBuf, in, log.V(2).WithName("decoder")),
		state:    state.Handshake,
		protocol: version.MinimumVersion.Protocol,
	}
}

// readLoop is the connection's main goroutine: it decodes packets and hands
// each to the connection's current sessionHandler until the connection
// closes. close is always called on return.
func (c *conn) readLoop() {
	defer func() { _ = c.closeKnown(false) }()

	next := func() bool {
		_ = c.c.SetReadDeadline(time.Now().Add(c.p.Config().ReadTimeout))

		pc, err := c.decoder.Decode()
		if err != nil && !errors.Is(err, proto.ErrDecoderLeftBytes) {
			if c.handleReadErr(err) {
				time.Sleep(5 * time.Millisecond)
				return true
			}
			return false
		}
		c.SessionHandler().handlePacket(pc)
		return true
	}

	cond := func() bool { return !c.Closed() && next() }
	loop := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error(nil, "recovered panic in packet read loop", "panic", r)
				ok = true
			}
		}()
		for cond() {
		}
		return false
	}
	for loop() {
	}
}

func (c *conn) handleReadErr(err error) (recoverable bool) {
	if proxyerr.IsSilent(err) {
		return false
	}
	if errors.Is(err, syscall.EAGAIN) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		if netErr.Temporary() {
			return true
		}
		if netErr.Timeout() {
			c.log.V(1).Info("read timeout, closing connection")
			return false
		}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
		return false
	}
	c.log.V(1).Info("error reading packet, closing connection", "err", err)
	return false
}

func (c *conn) flush() (err error) {
	defer func() { c.closeOnErr(err) }()
	deadline := time.Now().Add(c.p.Config().ConnectionTimeout)
	if err = c.c.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.writeBuf.Flush()
}

func (c *conn) closeOnErr(err error) {
	if err == nil {
		return
	}
	_ = c.close()
	if err == ErrClosedConn {
		return
	}
	c.log.V(1).Info("error writing packet, closing connection", "err", err)
}

// WritePacket encodes, writes, and flushes p; the connection is closed on
// any error, matching the proxy's no-half-written-frame invariant.
func (c *conn) WritePacket(p proto.Packet) (err error) {
	if c.Closed() {
		return ErrClosedConn
	}
	defer func() { c.closeOnErr(err) }()
	if err = c.encoder.WritePacket(p); err != nil {
		return err
	}
	return c.flush()
}

// Write relays a pre-encoded payload (packet id + body) verbatim.
func (c *conn) Write(payload []byte) (err error) {
	if c.Closed() {
		return ErrClosedConn
	}
	defer func() { c.closeOnErr(err) }()
	if err = c.encoder.Write(payload); err != nil {
		return err
	}
	return c.flush()
}

// closeProto closes the connection after classifying cause under kind,
// logging at error level unless the classification marks it as routine
// (e.g. a protocol violation from a bot scanning for open ports).
func (c *conn) closeProto(e *proxyerr.Error) error {
	if e.Silent {
		c.log.V(1).Info("closing connection", "kind", e.Kind.String(), "err", e.Cause)
	} else {
		c.log.Error(e.Cause, "closing connection", "kind", e.Kind.String())
	}
	return c.close()
}

// closeWithProto is closeProto plus a Disconnect packet carrying reason,
// for classified failures the client should be told about.
func (c *conn) closeWithProto(e *proxyerr.Error, reason string) error {
	if e.Silent {
		c.log.V(1).Info("closing connection", "kind", e.Kind.String(), "err", e.Cause)
	} else {
		c.log.Error(e.Cause, "closing connection", "kind", e.Kind.String())
	}
	return c.closeWith(&packet.Disconnect{Reason: kickJSON(reason)})
}

func (c *conn) close() error { return c.closeKnown(true) }

func (c *conn) closeKnown(markKnown bool) (err error) {
	alreadyClosed := true
	c.closeOnce.Do(func() {
		alreadyClosed = false
		if markKnown {
			c.knownDisconnect.Store(true)
		}
		close(c.closed)
		err = c.c.Close()
		if sh := c.SessionHandler(); sh != nil {
			sh.disconnected()
		}
	})
	if alreadyClosed {
		err = ErrClosedConn
	}
	return err
}

// closeWith writes p and then closes the connection, used to deliver a
// kick/disconnect reason before tearing the socket down.
func (c *conn) closeWith(p proto.Packet) error {
	if c.Closed() {
		return ErrClosedConn
	}
	c.knownDisconnect.Store(true)
	_ = c.WritePacket(p)
	return c.close()
}

func (c *conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *conn) RemoteAddr() net.Addr { return c.c.RemoteAddr() }

func (c *conn) Protocol() proto.Protocol { return c.protocol }

func (c *conn) setProtocol(p proto.Protocol) {
	c.protocol = p
	c.decoder.SetProtocol(p)
	c.encoder.SetProtocol(p)
}

func (c *conn) State() state.ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *conn) setState(s state.ConnectionState) {
	c.mu.Lock()
	c.state = s
	c.decoder.SetState(s)
	c.encoder.SetState(s)
	c.mu.Unlock()
}

func (c *conn) SessionHandler() sessionHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionHandler
}

func (c *conn) setSessionHandler(h sessionHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionHandler != nil {
		c.sessionHandler.deactivated()
	}
	c.sessionHandler = h
	h.activated()
}

// SetCompressionThreshold installs compression for both directions; the
// caller is responsible for having already sent packet.SetCompression.
func (c *conn) SetCompressionThreshold(threshold, level int) {
	c.decoder.SetCompressionThreshold(threshold)
	c.encoder.SetCompression(threshold, level)
}

// enableEncryption layers AES/CFB8 under the connection's buffered
// reader/writer; irreversible for the lifetime of the connection.
func (c *conn) enableEncryption(secret []byte) error {
	decryptReader, err := codec.NewDecryptReader(c.readBuf, secret)
	if err != nil {
		return err
	}
	encryptWriter, err := codec.NewEncryptWriter(c.writeBuf, secret)
	if err != nil {
		return err
	}
	c.decoder.SetReader(decryptReader)
	c.encoder.SetWriter(encryptWriter)
	return nil
}

func (c *conn) String() string {
	return fmt.Sprintf("conn{remote=%s, state=%s, protocol=%s}", c.RemoteAddr(), c.State(), c.Protocol())
}

// Inbound describes an incoming client connection, independent of the
// session handler currently steering it.
type Inbound interface {
	Protocol() proto.Protocol
	VirtualHost() net.Addr
	RemoteAddr() net.Addr
	Active() bool
	Closed() <-chan struct{}
}

type initialInbound struct {
	*conn
	virtualHost net.Addr
}

func newInitialInbound(c *conn, virtualHost net.Addr) *initialInbound {
	return &initialInbound{conn: c, virtualHost: virtualHost}
}

func (i *initialInbound) VirtualHost() net.Addr   { return i.virtualHost }
func (i *initialInbound) Active() bool            { return !i.conn.Closed() }
func (i *initialInbound) Closed() <-chan struct{} { return i.conn.closed }
func (i *initialInbound) String() string {
	return fmt.Sprintf("[initial connection] %s -> %s", i.RemoteAddr(), i.virtualHost)
}
