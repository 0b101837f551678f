package proxy

import (
	"context"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"regexp"
	"time"

	"github.com/go-logr/logr"

	"go.beaconmc.dev/beacon/internal/profile"
	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/packet"
	"go.beaconmc.dev/beacon/internal/proto/state"
	"go.beaconmc.dev/beacon/internal/proto/version"
	"go.beaconmc.dev/beacon/internal/proxyerr"
)

// loginHandler drives the client side of the login sequence: username,
// optional online-mode encryption and Mojang authentication, compression
// negotiation, and admission into the player registry. Once a Player has
// been fully registered it hands off to loginAckHandler (Config-phase
// clients) or to playHandler plus connectToInitialServer (older clients).
type loginHandler struct {
	c       *conn
	inbound *initialInbound
	log     logr.Logger
	nopSessionHandler

	state  loginState
	login  *packet.ServerLogin
	verify []byte
}

type loginState int

const (
	loginExpectServerLogin loginState = iota
	loginExpectEncryptionResponse
)

func newLoginHandler(c *conn, inbound *initialInbound) sessionHandler {
	return &loginHandler{
		c:       c,
		inbound: inbound,
		log:     c.log.WithName("login"),
		state:   loginExpectServerLogin,
	}
}

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{2,16}$`)

func (l *loginHandler) handlePacket(pc *proto.PacketContext) {
	if !pc.KnownPacket() {
		_ = l.c.closeProto(proxyerr.Silently(proxyerr.KindProtocolViolation, errors.New("unknown packet in login state")))
		return
	}
	switch t := pc.Packet.(type) {
	case *packet.ServerLogin:
		l.handleServerLogin(t)
	case *packet.EncryptionResponse:
		l.handleEncryptionResponse(t)
	case *packet.LoginPluginResponse:
		// this proxy doesn't send login-time plugin requests of its own yet.
	default:
		_ = l.c.closeProto(proxyerr.Silently(proxyerr.KindProtocolViolation, errors.New("unexpected packet type in login state")))
	}
}

func (l *loginHandler) handleServerLogin(login *packet.ServerLogin) {
	if l.state != loginExpectServerLogin {
		_ = l.c.closeProto(proxyerr.Silently(proxyerr.KindProtocolViolation, errors.New("ServerLogin received out of order")))
		return
	}
	if !usernameRegex.MatchString(login.Username) {
		_ = l.c.closeWith(&packet.Disconnect{Reason: kickJSON("Invalid username.")})
		return
	}
	l.login = login

	pre := &PreLoginEvent{username: login.Username, remoteAddr: l.c.RemoteAddr()}
	l.c.p.event.Fire(pre)
	if l.c.Closed() {
		return
	}
	if denied, reason := pre.Denied(); denied {
		_ = l.c.closeWith(&packet.Disconnect{Reason: kickJSON(reason)})
		return
	}

	if l.c.p.Config().OnlineMode {
		pub, err := x509.MarshalPKIXPublicKey(l.c.p.auth.PublicKey())
		if err != nil {
			_ = l.c.close()
			return
		}
		verify := make([]byte, 4)
		_, _ = rand.Read(verify)
		l.verify = verify
		l.state = loginExpectEncryptionResponse
		if err := l.c.WritePacket(&packet.EncryptionRequest{PublicKey: pub, VerifyToken: verify}); err != nil {
			return
		}
		return
	}

	l.initPlayer(profile.NewOffline(login.Username), false)
}

func (l *loginHandler) handleEncryptionResponse(resp *packet.EncryptionResponse) {
	if l.state != loginExpectEncryptionResponse || l.login == nil {
		_ = l.c.closeProto(proxyerr.Silently(proxyerr.KindProtocolViolation, errors.New("EncryptionResponse received out of order")))
		return
	}

	auth := l.c.p.auth
	valid, err := auth.Verify(resp.VerifyToken, l.verify)
	if err != nil || !valid {
		_ = l.c.closeProto(proxyerr.Silently(proxyerr.KindAuthFailure, errors.New("verify token mismatch")))
		return
	}

	secret, err := auth.DecryptSharedSecret(resp.SharedSecret)
	if err != nil {
		_ = l.c.closeProto(proxyerr.New(proxyerr.KindAuthFailure, err))
		return
	}
	if err := l.c.enableEncryption(secret); err != nil {
		_ = l.c.closeWithProto(proxyerr.New(proxyerr.KindInternalFault, err), "Internal server connection error.")
		return
	}

	serverID, err := auth.GenerateServerID(secret)
	if err != nil {
		_ = l.c.closeWithProto(proxyerr.New(proxyerr.KindInternalFault, err), "Unable to authenticate you with Mojang.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp2, err := auth.AuthenticateJoin(ctx, serverID, l.login.Username, "")
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		_ = l.c.closeWithProto(proxyerr.New(proxyerr.KindAuthFailure, err), "Unable to authenticate you with Mojang.")
		return
	}
	if !resp2.OnlineMode() {
		_ = l.c.closeWithProto(proxyerr.New(proxyerr.KindAuthFailure, errors.New("session service reports offline-mode profile")), "This server only accepts connections from online-mode clients.")
		return
	}
	gp, err := resp2.GameProfile()
	if err != nil {
		_ = l.c.closeWithProto(proxyerr.New(proxyerr.KindAuthFailure, err), "Unable to authenticate you with Mojang.")
		return
	}
	l.initPlayer(*gp, true)
}

// loginSuccessProperties converts the session-service profile properties
// (textures, capes) into the wire shape LoginSuccess carries, so an
// online-mode client sees its own skin the same way it reaches backends via
// LEGACY/MODERN forwarding.
func loginSuccessProperties(props []profile.Property) []packet.GameProfileProperty {
	if len(props) == 0 {
		return nil
	}
	out := make([]packet.GameProfileProperty, len(props))
	for i, p := range props {
		out[i] = packet.GameProfileProperty{
			Name:      p.Name,
			Value:     p.Value,
			Signature: p.Signature,
			HasSig:    p.Signature != "",
		}
	}
	return out
}

func (l *loginHandler) initPlayer(gp profile.GameProfile, onlineMode bool) {
	player := newPlayer(l.c, gp, onlineMode)

	loginEvent := &LoginEvent{player: player}
	l.c.p.event.Fire(loginEvent)
	if l.c.Closed() {
		return
	}
	if denied, reason := loginEvent.Denied(); denied {
		_ = l.c.closeWith(&packet.Disconnect{Reason: kickJSON(reason)})
		return
	}

	kickExisting := l.c.p.Config().OnlineModeKickExisting
	if err := l.c.p.players.Register(player, kickExisting); err != nil {
		_ = l.c.closeWith(&packet.Disconnect{Reason: kickJSON("You are already connected to this proxy.")})
		return
	}

	cfg := l.c.p.Config()
	if cfg.CompressionThreshold >= 0 && l.c.Protocol().GreaterEqual(version.Minecraft_1_8.Protocol) {
		if err := l.c.WritePacket(&packet.SetCompression{Threshold: cfg.CompressionThreshold}); err != nil {
			l.c.p.players.Unregister(player)
			return
		}
		l.c.SetCompressionThreshold(cfg.CompressionThreshold, cfg.CompressionLevel)
	}

	if err := l.c.WritePacket(&packet.LoginSuccess{UUID: gp.ID, Username: gp.Name, Properties: loginSuccessProperties(gp.Properties)}); err != nil {
		l.c.p.players.Unregister(player)
		return
	}

	if version.UsesConfigPhase(l.c.Protocol()) {
		// client replies with LoginAcknowledged before we move it to Config.
		l.c.setSessionHandler(newLoginAckHandler(l.c, player))
		return
	}

	// Legacy clients go straight from Login to Play; the session handler
	// forwards nothing until connectToInitialServer installs a backend link.
	l.c.setState(state.Play)
	l.c.setSessionHandler(newPlayHandler(player))
	connectToInitialServer(player)
}
