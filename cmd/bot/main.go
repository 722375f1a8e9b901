package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tgrewrite/tgrewrite/internal/bot"
	"github.com/tgrewrite/tgrewrite/internal/config"
	"github.com/tgrewrite/tgrewrite/internal/logger"
	"github.com/tgrewrite/tgrewrite/internal/media"
	"github.com/tgrewrite/tgrewrite/internal/rewrite"
	"github.com/tgrewrite/tgrewrite/internal/scrape"
	"github.com/tgrewrite/tgrewrite/internal/telegram"
	"github.com/tgrewrite/tgrewrite/internal/web"
)

const (
	connectAttempts = 5
	connectDelay    = 10 * time.Second
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting rewrite bot")

	if cfg.BotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN is required")
	}

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Start healthcheck server
	healthSrv := web.NewServer(cfg.HealthPort)
	go func() {
		log.Info().Int("port", cfg.HealthPort).Msg("healthcheck server listening")
		if err := healthSrv.Start(); err != nil {
			log.Error().Err(err).Msg("healthcheck server stopped")
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = healthSrv.Stop(shutdownCtx)
	}()

	// 5. Connect to the Bot API, retrying on transient network failures
	tgClient := telegram.NewClient(cfg.BotToken, log.Logger)

	var me telegram.User
	for attempt := 1; ; attempt++ {
		log.Info().Int("attempt", attempt).Int("max", connectAttempts).Msg("connecting to Telegram")
		me, err = tgClient.GetMe(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts || ctx.Err() != nil {
			log.Fatal().Err(err).Msg("could not connect to Telegram")
		}
		log.Warn().Err(err).Msg("connect failed, retrying")
		select {
		case <-time.After(connectDelay):
		case <-ctx.Done():
			log.Fatal().Msg("shutdown before Telegram connection was established")
		}
	}
	log.Info().Str("username", me.Username).Msg("connected to Telegram")

	// 6. Wire the pipeline
	rewriter := rewrite.New(rewrite.Config{
		BaseURL:       cfg.LLMBaseURL,
		APIKey:        cfg.LLMAPIKey,
		DefaultModel:  cfg.LLMModel,
		DefaultPrompt: cfg.RewritePrompt,
		Temperature:   float32(cfg.LLMTemperature),
		Timeout:       time.Duration(cfg.LLMTimeoutSec) * time.Second,
		Logger:        log.Logger,
	})
	downloader := media.NewDownloader(log.Logger)

	// a fresh scraper per request keeps concurrent chats independent
	newSource := func() bot.PostSource {
		return scrape.New(scrape.WithLogger(log.Logger))
	}

	service := bot.NewService(tgClient, rewriter, downloader, newSource, cfg, log)

	// 7. Run the update loop until shutdown
	if err := service.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}
	log.Info().Msg("bot stopped")
}
