package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.beaconmc.dev/beacon/internal/buildinfo"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "beacon",
	Short:   "Beacon is a Minecraft Java-edition proxy.",
	Version: buildinfo.String(),
	Long: `A high performance Minecraft Java-edition proxy with online-mode
authentication, server switching, and pluggable event hooks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// SIGHUP is handled separately, inside Run, to trigger a config
		// reload rather than shutdown.
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		defer func() { signal.Stop(sig); close(sig) }()

		ctx, cancel := context.WithCancel(cmd.Context())
		go func() {
			s, ok := <-sig
			if !ok {
				return
			}
			zap.S().Infof("received %s signal, shutting down", s)
			cancel()
		}()
		return Run(ctx, cmd)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("bind", "b", "", "The address to bind to, overriding the config file")
	rootCmd.PersistentFlags().StringP("config", "c", "config.toml", "Path to the config file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
}
