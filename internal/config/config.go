// Package config defines the proxy's configuration shape and its
// viper-backed loader: a TOML file overlaid with BEACON_-prefixed
// environment variables, with a hot-reloadable subset and a migration-aware
// config-version field.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go.beaconmc.dev/beacon/internal/forwarding"
	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/version"
)

// CurrentConfigVersion is bumped whenever a breaking config-shape change
// ships; Load rejects files declaring a version it doesn't know how to read.
const CurrentConfigVersion = 1

// BackendConfig describes one registered backend server.
type BackendConfig struct {
	Name           string
	Address        string
	ForwardingMode string // overrides Forwarding.Mode when non-empty
	Fallback       bool
}

// Config is the root configuration document (velocity.toml equivalent).
type Config struct {
	ConfigVersion int `mapstructure:"config-version"`

	Bind string

	OnlineMode                 bool          `mapstructure:"online-mode"`
	OnlineModeKickExisting     bool          `mapstructure:"online-mode-kick-existing-players"`
	MinimumVersion             string        `mapstructure:"minimum-version"`
	EnableDynamicFallbacks     bool          `mapstructure:"enable-dynamic-fallbacks"`
	EnforceChatSigning         bool          `mapstructure:"enforce-chat-signing"`
	CompressionThreshold       int           `mapstructure:"compression-threshold"`
	CompressionLevel           int           `mapstructure:"compression-level"`
	LoginRateLimit             time.Duration `mapstructure:"login-ratelimit"`
	ConnectionRateLimit        time.Duration `mapstructure:"connection-ratelimit"`
	ConnectionTimeout          time.Duration `mapstructure:"connection-timeout"`
	ReadTimeout                time.Duration `mapstructure:"read-timeout"`
	ShowMaxPlayers             int           `mapstructure:"show-max-players"`
	AnnounceProxyCommands      bool          `mapstructure:"announce-proxy-commands"`
	ServerBrand                string        `mapstructure:"server-brand"`
	FallbackVersionPing        string        `mapstructure:"fallback-version-ping"`
	AllowIllegalChatCharacters bool          `mapstructure:"allow-illegal-characters-in-chat"`
	LogOfflineConnections      bool          `mapstructure:"log-offline-connections"`
	HAProxyProtocol            bool          `mapstructure:"haproxy"`
	QueryEnabled               bool          `mapstructure:"query-enabled"`
	QueryPort                  int           `mapstructure:"query-port"`
	FaviconPath                string        `mapstructure:"favicon-path"`
	MOTD                       string        `mapstructure:"motd"`

	Forwarding struct {
		Mode   string `mapstructure:"player-info-forwarding-mode"`
		Secret string `mapstructure:"forwarding-secret"`
	}

	Servers   []BackendConfig
	Fallbacks []string

	// minimumProtocol is MinimumVersion resolved to a wire protocol number by
	// Validate. Callers use this rather than re-parsing MinimumVersion.
	minimumProtocol proto.Protocol
}

// MinimumProtocol returns the wire protocol number MinimumVersion resolved
// to. Only valid after Validate has run without error (Load always runs it).
func (c *Config) MinimumProtocol() proto.Protocol {
	return c.minimumProtocol
}

// SetDefaults installs the vanilla/Velocity-compatible defaults onto v
// before a config file is read, so that any key the file omits still has a
// sane value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("config-version", CurrentConfigVersion)
	v.SetDefault("bind", "0.0.0.0:25577")
	v.SetDefault("online-mode", true)
	v.SetDefault("online-mode-kick-existing-players", false)
	v.SetDefault("minimum-version", "1.7.2")
	v.SetDefault("enable-dynamic-fallbacks", true)
	v.SetDefault("enforce-chat-signing", false)
	v.SetDefault("compression-threshold", 256)
	v.SetDefault("compression-level", 6)
	v.SetDefault("login-ratelimit", "3s")
	v.SetDefault("connection-ratelimit", "200ms")
	v.SetDefault("connection-timeout", "5s")
	v.SetDefault("read-timeout", "30s")
	v.SetDefault("show-max-players", 500)
	v.SetDefault("announce-proxy-commands", true)
	v.SetDefault("server-brand", "beacon")
	v.SetDefault("fallback-version-ping", "{proxy-brand} (supports {protocol-min}-{protocol-max})")
	v.SetDefault("allow-illegal-characters-in-chat", false)
	v.SetDefault("log-offline-connections", true)
	v.SetDefault("haproxy", false)
	v.SetDefault("query-enabled", false)
	v.SetDefault("query-port", 25577)
	v.SetDefault("favicon-path", "")
	v.SetDefault("motd", "A beacon proxy server")
	v.SetDefault("forwarding.player-info-forwarding-mode", string(forwarding.None))
	v.SetDefault("forwarding.forwarding-secret", "")
}

// New builds a *viper.Viper configured to read path (TOML) and overlay
// BEACON_-prefixed environment variables, following the same convention the
// teacher's cmd/gate entrypoint uses for its own GATE_ prefix.
func New(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("BEACON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads, unmarshals, and validates the configuration at path.
func Load(path string) (*Config, *viper.Viper, error) {
	v := New(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("config: decoding: %w", err)
	}
	if warns, errs := cfg.Validate(); len(errs) > 0 {
		return nil, nil, fmt.Errorf("config: invalid configuration: %v (warnings: %v)", errs, warns)
	}
	return &cfg, v, nil
}

// Validate checks cfg for internally-inconsistent or out-of-range values.
func (c *Config) Validate() (warns, errs []error) {
	e := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }
	w := func(format string, args ...any) { warns = append(warns, fmt.Errorf(format, args...)) }

	if c == nil {
		e("config must not be nil")
		return
	}
	if c.ConfigVersion > CurrentConfigVersion {
		e("config-version %d is newer than this proxy understands (%d)", c.ConfigVersion, CurrentConfigVersion)
	}
	if v, ok := version.ByName(c.MinimumVersion); ok {
		c.minimumProtocol = v.Protocol
	} else {
		e("minimum-version %q is not a recognized client version", c.MinimumVersion)
	}
	if _, err := forwarding.ParseMode(c.Forwarding.Mode); err != nil {
		e("invalid player-info-forwarding-mode %q: %v", c.Forwarding.Mode, err)
	}
	if c.Forwarding.Mode == string(forwarding.Modern) && c.Forwarding.Secret == "" {
		e("forwarding-secret must be set when player-info-forwarding-mode is MODERN")
	}
	if c.CompressionThreshold < -1 {
		e("compression-threshold must be >= -1")
	}
	if c.CompressionLevel < -1 || c.CompressionLevel > 9 {
		e("compression-level must be between -1 and 9")
	}
	if len(c.Servers) == 0 {
		w("no servers configured; the proxy will have nowhere to send players")
	}
	seen := map[string]bool{}
	for _, s := range c.Servers {
		if s.Name == "" || s.Address == "" {
			e("every server entry needs a name and an address")
			continue
		}
		if seen[s.Name] {
			e("duplicate server name %q", s.Name)
		}
		seen[s.Name] = true
	}
	for _, fb := range c.Fallbacks {
		if !seen[fb] {
			e("fallback %q does not name a configured server", fb)
		}
	}
	return
}

// HotReloadableKeys lists the config keys §6 designates as safe to apply
// without restarting the listener. Proxy.Reload does not re-read
// favicon-path: the favicon loaded at startup stays in use until a restart.
var HotReloadableKeys = []string{
	"servers", "fallbacks", "forwarding", "minimum-version", "login-ratelimit",
	"connection-ratelimit", "motd", "server-brand", "fallback-version-ping", "favicon-path",
}
