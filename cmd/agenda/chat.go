package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zulandar/agenda/internal/chat/console"
	"github.com/zulandar/agenda/internal/config"
	"github.com/zulandar/agenda/internal/logging"
)

func newChatCmd() *cobra.Command {
	var (
		configPath string
		from       string
		name       string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from this terminal",
		Long: `Runs the assistant against a local console instead of a chat platform.

Every line you type is one message. Bot replies are numbered; start a line
with ^N to reply to message N, e.g. "^3 delete 2".

Without --config a SQLite database (agenda.db) and the in-process store are
used and the classifier is disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, configPath, from, name)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to agenda config file")
	cmd.Flags().StringVar(&from, "as", "console", "address to chat as; it is the phone number the bot sees")
	cmd.Flags().StringVar(&name, "name", "", "display name to chat as")
	return cmd
}

func runChat(cmd *cobra.Command, configPath, from, name string) error {
	cfg, err := chatConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	adapter := console.New(console.Opts{
		In:   cmd.InOrStdin(),
		Out:  cmd.OutOrStdout(),
		From: from,
		Name: name,
	})
	a, err := newApp(ctx, cfg, adapter, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	a.scheduler.Start()
	defer func() {
		if err := a.scheduler.Stop(); err != nil {
			logger.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	fmt.Fprintln(cmd.ErrOrStderr(), `Chatting locally. Send "help" for the commands, Ctrl-D to quit.`)
	return a.assistant.Run(ctx)
}

// chatConfig loads configPath, or the local defaults when it is empty. The
// transport is always the console.
func chatConfig(configPath string) (*config.Config, error) {
	var cfg *config.Config
	if configPath == "" {
		cfg = config.Default()
		cfg.Log.Level = "warn"
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.Classifier.APIKey = key
		}
	} else {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if cfg.Classifier.Provider == "gemini" && cfg.Classifier.APIKey == "" {
		cfg.Classifier.Provider = "none"
	}
	cfg.Transport.Platform = "console"
	cfg.Digest.Enabled = false
	return cfg, nil
}
