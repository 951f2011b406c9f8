package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/minderhq/minder/internal/biz/usecase"
	"github.com/minderhq/minder/internal/conf"
	"github.com/minderhq/minder/internal/data"
	"github.com/minderhq/minder/mcpserver"
)

func main() {
	// Stdout carries the MCP protocol, keep everything else on stderr.
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	store, err := data.NewStore(cfg.Store.DBPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	outboxUC := usecase.NewOutboxUsecase(store, usecase.OutboxConfig{
		SuppressWindow: cfg.Tunables.Nudge.SuppressWindow(),
	})
	nudgeUC := usecase.NewNudgeUsecase(store, outboxUC, usecase.NudgeConfig{
		OpenTaskThreshold: cfg.Tunables.Nudge.OpenTaskThreshold,
	}, logger)

	server := mcpserver.NewServer(store, nudgeUC, cfg.Feishu.DefaultSession)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "[minder-mcp] serving tools over stdio (db: %s)\n", cfg.Store.DBPath)
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
