package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go.beaconmc.dev/beacon/internal/config"
	"go.beaconmc.dev/beacon/internal/proxy"
)

// Run loads the config named by cmd's --config flag, validates it, and runs
// the proxy until ctx is cancelled.
func Run(ctx context.Context, cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")
	configPath, _ := cmd.Flags().GetString("config")
	bindOverride, _ := cmd.Flags().GetString("bind")

	zlog, err := newZapLogger(debug)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = zlog.Sync() }()
	zap.ReplaceGlobals(zlog)
	log := zapr.NewLogger(zlog)

	if configPath == "" {
		configPath = "config.toml"
	}
	cfg, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if bindOverride != "" {
		cfg.Bind = bindOverride
	}

	p, err := proxy.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing proxy: %w", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go watchForReload(ctx, hup, p, configPath, log)

	err = p.Run(ctx)
	p.Shutdown("Proxy is restarting.")
	return err
}

// watchForReload re-reads configPath and hands the result to Proxy.Reload
// every time the process receives SIGHUP; Proxy.Reload documents which keys
// take effect. The bind address is intentionally left alone: changing it
// requires the atomic listener close/bind swap the config package documents
// as a restart-only operation, so a --bind override is never reapplied here.
func watchForReload(ctx context.Context, hup <-chan os.Signal, p *proxy.Proxy, configPath string, log logr.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-hup:
			if !ok {
				return
			}
			next, _, err := config.Load(configPath)
			if err != nil {
				log.Info("config reload failed, keeping previous configuration", "err", err)
				continue
			}
			if err := p.Reload(next); err != nil {
				log.Info("config reload failed, keeping previous configuration", "err", err)
			}
		}
	}
}

// newZapLogger mirrors the teacher's console encoder setup, switching
// between development and production presets on the --debug flag.
func newZapLogger(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
