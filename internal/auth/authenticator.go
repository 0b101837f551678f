// Package auth implements the online-mode RSA key exchange and the Mojang
// session-service lookup used to turn a verified shared secret into a
// trusted GameProfile.
package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"go.beaconmc.dev/beacon/internal/buildinfo"
	"go.beaconmc.dev/beacon/internal/profile"
)

const defaultHasJoinedURL = "https://sessionserver.mojang.com/session/minecraft/hasJoined"

var tracer = otel.Tracer("go.beaconmc.dev/beacon/internal/auth")

// Response is the outcome of a session-service lookup.
type Response interface {
	OnlineMode() bool
	GameProfile() (*profile.GameProfile, error)
}

// Authenticator performs the proxy side of the online-mode handshake: RSA
// key material, verify-token/shared-secret checks, and the hasJoined call.
type Authenticator interface {
	PublicKey() *rsa.PublicKey
	Verify(encryptedVerifyToken, expected []byte) (bool, error)
	DecryptSharedSecret(encrypted []byte) ([]byte, error)
	GenerateServerID(sharedSecret []byte) (string, error)
	AuthenticateJoin(ctx context.Context, serverID, username, ip string) (Response, error)
}

type Options struct {
	HasJoinedURL   string
	PrivateKey     *rsa.PrivateKey
	PrivateKeyBits int
	Client         *http.Client
}

type authenticator struct {
	hasJoinedURL string
	key          *rsa.PrivateKey
	pubDER       []byte
	client       *http.Client
}

func New(opts Options) (Authenticator, error) {
	key := opts.PrivateKey
	if key == nil {
		bits := opts.PrivateKeyBits
		if bits == 0 {
			bits = 1024
		}
		var err error
		key, err = rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, fmt.Errorf("auth: generating RSA key: %w", err)
		}
	}
	key.Precompute()
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("auth: marshaling public key: %w", err)
	}
	hasJoinedURL := opts.HasJoinedURL
	if hasJoinedURL == "" {
		hasJoinedURL = defaultHasJoinedURL
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(headerRoundTripper{http.DefaultTransport}),
		}
	}
	return &authenticator{hasJoinedURL: hasJoinedURL, key: key, pubDER: pubDER, client: client}, nil
}

func (a *authenticator) PublicKey() *rsa.PublicKey { return &a.key.PublicKey }

func (a *authenticator) Verify(encryptedVerifyToken, expected []byte) (bool, error) {
	decrypted, err := rsa.DecryptPKCS1v15(rand.Reader, a.key, encryptedVerifyToken)
	if err != nil {
		return false, err
	}
	return bytes.Equal(decrypted, expected), nil
}

func (a *authenticator) DecryptSharedSecret(encrypted []byte) ([]byte, error) {
	return rsa.DecryptPKCS1v15(rand.Reader, a.key, encrypted)
}

// GenerateServerID computes the Minecraft-style SHA-1 "server ID" used as
// the hasJoined query's serverId parameter: SHA-1(emptyServerID || secret ||
// publicKeyDER), rendered as a two's-complement signed hex string.
func (a *authenticator) GenerateServerID(sharedSecret []byte) (string, error) {
	h := sha1.New()
	h.Write([]byte("")) // serverId is always empty for this handshake
	h.Write(sharedSecret)
	h.Write(a.pubDER)
	return twosComplementHex(h.Sum(nil)), nil
}

func twosComplementHex(digest []byte) string {
	negative := digest[0]&0x80 != 0
	if negative {
		for i, b := range digest {
			digest[i] = ^b
		}
		n := new(big.Int).SetBytes(digest)
		n.Add(n, big.NewInt(1))
		digest = n.Bytes()
	}
	hexStr := hex.EncodeToString(digest)
	for len(hexStr) > 0 && hexStr[0] == '0' {
		hexStr = hexStr[1:]
	}
	if negative {
		return "-" + hexStr
	}
	return hexStr
}

func (a *authenticator) AuthenticateJoin(ctx context.Context, serverID, username, ip string) (Response, error) {
	ctx, span := tracer.Start(ctx, "AuthenticateJoin")
	defer span.End()

	q := url.Values{}
	q.Set("username", username)
	q.Set("serverId", serverID)
	if ip != "" {
		q.Set("ip", ip)
	}
	reqURL := a.hasJoinedURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: session service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("auth: reading session service response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return &response{onlineMode: false}, nil
	case http.StatusUnauthorized:
		return nil, errors.New("auth: session service reports invalid or outdated session token")
	default:
		return nil, fmt.Errorf("auth: session service returned status %d", resp.StatusCode)
	}

	return &response{onlineMode: len(body) != 0, body: body}, nil
}

type response struct {
	onlineMode bool
	body       []byte

	once sync.Once
	prof *profile.GameProfile
	err  error
}

func (r *response) OnlineMode() bool { return r.onlineMode }

func (r *response) GameProfile() (*profile.GameProfile, error) {
	r.once.Do(func() {
		var p profile.GameProfile
		if err := json.Unmarshal(r.body, &p); err != nil {
			r.err = fmt.Errorf("auth: decoding game profile: %w", err)
			return
		}
		if p.Name == "" {
			r.err = errors.New("auth: session service profile missing name")
			return
		}
		r.prof = &p
	})
	return r.prof, r.err
}

type headerRoundTripper struct {
	next http.RoundTripper
}

func (h headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	return h.next.RoundTrip(req)
}
