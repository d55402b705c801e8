package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zulandar/agenda/internal/chat"
	"github.com/zulandar/agenda/internal/chat/console"
	"github.com/zulandar/agenda/internal/chat/discord"
	"github.com/zulandar/agenda/internal/chat/slack"
	"github.com/zulandar/agenda/internal/chat/whatsapp"
	"github.com/zulandar/agenda/internal/config"
	"github.com/zulandar/agenda/internal/logging"
	"github.com/zulandar/agenda/internal/server"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant",
		Long:  "Connects to the configured chat platform, schedules stored reminders and serves the webhook, health and metrics endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agenda.yaml", "path to agenda config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	adapter, webhooks, err := createAdapter(cfg, logger)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, adapter, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	fmt.Fprintf(out, "Agenda starting on %s (timezone %s)\n", cfg.Transport.Platform, cfg.Timezone)

	a.scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The assistant returning means the transport is gone; take the
		// HTTP server down with it.
		defer cancel()
		return a.assistant.Run(gctx)
	})
	g.Go(func() error {
		return server.Start(gctx, server.StartOpts{
			DB:       a.db,
			KV:       a.kv,
			Registry: a.metrics.Registry,
			Webhooks: webhooks,
			Port:     cfg.HTTP.Port,
			Logger:   logger,
			Out:      out,
		})
	})
	err = g.Wait()

	if stopErr := a.scheduler.Stop(); stopErr != nil {
		logger.Warn("scheduler shutdown", zap.Error(stopErr))
	}
	fmt.Fprintln(out, "Agenda stopped.")
	return err
}

// createAdapter builds the platform adapter from the config, along with any
// HTTP routes it needs mounted.
func createAdapter(cfg *config.Config, logger *zap.Logger) (chat.Adapter, []server.RouteRegistrar, error) {
	t := cfg.Transport
	switch t.Platform {
	case "whatsapp":
		a, err := whatsapp.New(whatsapp.AdapterOpts{
			PhoneNumberID: t.WhatsApp.PhoneNumberID,
			AccessToken:   t.WhatsApp.AccessToken,
			VerifyToken:   t.WhatsApp.VerifyToken,
			APIBase:       t.WhatsApp.APIBase,
			Logger:        logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return a, []server.RouteRegistrar{a}, nil
	case "slack":
		a, err := slack.New(slack.AdapterOpts{
			AppToken: t.Slack.AppToken,
			BotToken: t.Slack.BotToken,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return a, nil, nil
	case "discord":
		a, err := discord.New(discord.AdapterOpts{
			BotToken: t.Discord.BotToken,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return a, nil, nil
	case "console":
		return console.New(console.Opts{}), nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported platform %q", t.Platform)
}
