package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"liveroom/internal/app"
)

func main() {
	addr := flag.String("addr", envOrDefault("LIVEROOM_ADDR", ":8080"), "server listen address")
	db := flag.String("db", envOrDefault("LIVEROOM_DB_PATH", ""), "sqlite database path")
	assetDir := flag.String("assets", envOrDefault("LIVEROOM_ASSET_DIR", ""), "directory for uploaded attachments")
	flag.Parse()

	cfg := app.ServerConfig{
		Addr:     *addr,
		DBPath:   *db,
		AssetDir: *assetDir,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = app.DefaultDBPath()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	log.Printf("Liveroom server listening on %s (db %s)", handle.Addr(), cfg.DBPath)
	if err := handle.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
