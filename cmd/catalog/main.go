package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"MiniCatalog/internal/app"
	"MiniCatalog/internal/config"
	"MiniCatalog/pkg/kit"
)

const service = "catalog"

func main() {
	configFile := flag.String("config", "config.yaml", "path to an optional YAML config file")
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := kit.NewLogger(service, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("config loaded", zap.Stringer("config", &cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h, cleanup, err := app.Build(ctx, cfg, log, service)
	if err != nil {
		log.Fatal("init handler failed", zap.Error(err))
	}
	defer cleanup()

	addr := ":" + strconv.Itoa(cfg.HTTP.Port)
	if err := kit.RunHTTPServer(ctx, addr, h, log, kit.ServerOptions{
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout,
	}); err != nil {
		log.Error("http server stopped", zap.Error(err))
	}
}
