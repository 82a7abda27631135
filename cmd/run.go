package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"xlatorbot/pkg/bot"
	"xlatorbot/pkg/bus"
	"xlatorbot/pkg/channel"
	"xlatorbot/pkg/channel/telegram"
	"xlatorbot/pkg/config"
	"xlatorbot/pkg/diag"
	"xlatorbot/pkg/hint"
	"xlatorbot/pkg/logger"
	"xlatorbot/pkg/schedule"
	"xlatorbot/pkg/session"
	"xlatorbot/pkg/status"
	"xlatorbot/pkg/translate"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const eventBuffer = 64

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Telegram and translate hinted messages",
	Long:  "Logs on to Telegram, translates every hinted message in the chats the bot can see, and keeps the session connected until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.run")

		sdkLogger, err := logger.NewSDK(cfg.Logging)
		if err != nil {
			log.Error("Failed to initialize SDK logger", "error", err)
			return
		}

		parser, err := newParser(cfg.Hints)
		if err != nil {
			log.Error("Hint configuration invalid", "error", err)
			return
		}

		translator, err := translate.New(cfg.Translate)
		if err != nil {
			log.Error("Translation client configuration invalid", "error", err)
			return
		}

		adapter, err := telegram.NewAdapter(cfg.Telegram, appLogger, sdkLogger)
		if err != nil {
			log.Error("Telegram configuration invalid", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("Translator started", "channel", adapter.Name(), "model", translator.Model(), "default_language", parser.DefaultLang())
		if err := runBot(runCtx, cfg, adapter, parser, translator, log); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Translator runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// runBot wires the session, orchestrator, scheduler and status server around
// client and blocks until ctx is canceled or one of them fails.
func runBot(ctx context.Context, cfg *config.Config, client channel.Client, parser *hint.Parser, translator translate.Translator, log *slog.Logger) error {
	if err := translator.Health(ctx); err != nil {
		log.Warn("Translation API health check failed", "error", err)
	}

	mb := bus.NewMessageBus()
	defer mb.Close()

	scheduler, err := schedule.New(log)
	if err != nil {
		return err
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Warn("Scheduler shutdown failed", "error", err)
		}
	}()

	stats := diag.NewStats()
	metrics := diag.NewMetrics(stats)

	manager := session.NewManager(client, mb.Publish, log)
	defer manager.Close()

	translatorBot, err := bot.New(mb, manager, parser, translator, bot.Options{
		Stats:                stats,
		Scheduler:            scheduler,
		ReconnectMinInterval: cfg.Session.ReconnectMinInterval,
		Log:                  log,
	})
	if err != nil {
		return err
	}

	if interval := cfg.Diagnostics.ReportInterval; interval > 0 {
		reporter := diag.NewReporter(stats, log)
		if err := scheduler.Every("diagnostics", interval, func() { reporter.Report() }); err != nil {
			return fmt.Errorf("schedule diagnostics: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	events, unsubscribe := mb.SubscribeEvents(gctx, eventBuffer)
	defer unsubscribe()
	g.Go(func() error {
		metrics.Watch(gctx, events)
		return nil
	})

	if cfg.Status.Enabled {
		server := status.New(cfg.Status, stats, metrics, log)
		g.Go(func() error {
			return server.Run(gctx)
		})
	}

	g.Go(func() error {
		return translatorBot.Run(gctx)
	})

	return g.Wait()
}
