package main

import (
	"flag"
	"fmt"
	"os"

	"liveroom/internal/app"
)

func main() {
	serverURL := flag.String("server", envOrDefault("LIVEROOM_SERVER", "http://127.0.0.1:8080"), "server base URL")
	sessionPath := flag.String("session", envOrDefault("LIVEROOM_SESSION_PATH", ""), "cached login path")
	notify := flag.Bool("notify", envOrDefault("LIVEROOM_NOTIFY", "") != "", "raise desktop notifications for incoming messages")
	flag.Parse()

	cfg := app.ClientConfig{
		ServerURL:   *serverURL,
		SessionPath: *sessionPath,
		Notify:      *notify,
	}

	if err := app.RunClient(cfg); err != nil {
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
