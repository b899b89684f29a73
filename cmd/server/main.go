package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vovakirdan/linechat-server/internal/app"
	"github.com/vovakirdan/linechat-server/internal/config"
	applog "github.com/vovakirdan/linechat-server/internal/log"
)

type cliOptions struct {
	configPath string
	overrides  config.Config
}

func main() {
	// .env is optional; real environment variables still win.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:           "linechat-server",
		Short:         "Multi-room line-based TCP chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	bindFlags(cmd.Flags(), opts)
	return cmd
}

func bindFlags(fs *pflag.FlagSet, opts *cliOptions) {
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml (created with defaults when missing)")
	fs.StringVar(&opts.overrides.Host, "host", "", "chat listen host")
	fs.IntVarP(&opts.overrides.Port, "port", "p", 0, "chat listen port")
	fs.StringVar(&opts.overrides.AdminAddr, "admin-addr", "", "admin HTTP listen address, empty disables it")
	fs.StringVar(&opts.overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&opts.overrides.DefaultRoom, "default-room", "", "room new users join")
}

func run(parent context.Context, opts *cliOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLogger := applog.New("info")
	cfg, path, err := config.Load(bootLogger, opts.configPath)
	if err != nil {
		bootLogger.Error().Err(err).Str("path", path).Msg("failed to load config")
		return err
	}
	cfg.UpdateFrom(opts.overrides)

	logger := applog.New(cfg.LogLevel)
	logger.Info().Str("config", path).Msg("config loaded")

	application, err := app.New(&cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return fmt.Errorf("init app: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr()).Str("admin_addr", cfg.AdminAddr).Msg("starting linechat server")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	return nil
}
