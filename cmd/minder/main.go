package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/minderhq/minder/internal/api"
	"github.com/minderhq/minder/internal/biz/usecase"
	"github.com/minderhq/minder/internal/conf"
	"github.com/minderhq/minder/internal/data"
	"github.com/minderhq/minder/internal/infra/feishu"
	"github.com/minderhq/minder/internal/infra/llm"
	"github.com/minderhq/minder/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()

	logger := logrus.New()
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize data layer
	store, err := data.NewStore(cfg.Store.DBPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	fmt.Printf("[Minder] Record store: %s\n", cfg.Store.DBPath)

	// Initialize the generative replier
	replier := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)

	// Initialize usecase layer
	routerUC := usecase.NewRouterUsecase(store, replier, usecase.RouterConfig{
		HistoryLimit:  cfg.Tunables.Chat.HistoryLimit,
		FallbackReply: usecase.DefaultRouterConfig.FallbackReply,
	}, logger)
	outboxUC := usecase.NewOutboxUsecase(store, usecase.OutboxConfig{
		SuppressWindow: cfg.Tunables.Nudge.SuppressWindow(),
	})
	ingestUC := usecase.NewIngestUsecase(store, routerUC, outboxUC, logger)
	nudgeUC := usecase.NewNudgeUsecase(store, outboxUC, usecase.NudgeConfig{
		OpenTaskThreshold: cfg.Tunables.Nudge.OpenTaskThreshold,
	}, logger)

	// Initialize HTTP API server
	apiServer := api.NewServer(store, ingestUC, outboxUC, nudgeUC, cfg.Server.Addr, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.WithError(err).Error("api server stopped")
		}
	}()
	fmt.Printf("[Minder] HTTP API listening on %s\n", cfg.Server.Addr)

	ctx := context.Background()

	// Initialize the Feishu channel when credentials are present
	var feishuClient *feishu.Client
	var relay *service.RelayService
	if cfg.Feishu.AppID != "" {
		feishuClient = feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger)

		relay = service.NewRelayService(store, ingestUC, outboxUC, feishuClient, service.RelayConfig{
			PollInterval: time.Duration(cfg.Relay.PollSeconds) * time.Second,
			MaxAttempts:  cfg.Tunables.Relay.MaxAttempts,
		}, logger)

		feishuClient.OnMessage(func(msg *feishu.Message) {
			relay.HandleChannelMessage(ctx, msg.ChatID, msg.MsgID, msg.SenderID, msg.Text, msg.Raw, msg.CreateTime)
		})

		go func() {
			if err := feishuClient.Start(); err != nil {
				logger.WithError(err).Error("feishu client stopped")
			}
		}()
		relay.Start(ctx)
		fmt.Println("[Minder] Feishu channel enabled")
	}

	// Initialize the proactive scheduler
	scheduler := service.NewNudgeScheduler(store, nudgeUC, time.Duration(cfg.Nudge.IntervalMinutes)*time.Minute, logger)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start nudge scheduler: %v", err)
	}
	fmt.Printf("[Minder] Nudge scheduler ticking every %dm\n", cfg.Nudge.IntervalMinutes)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	scheduler.Stop()
	if relay != nil {
		relay.Stop()
	}
	if feishuClient != nil {
		feishuClient.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("api server shutdown failed")
	}
}
