// uevault - Unreal Engine Marketplace asset management
//
// Scrapes marketplace listings into a local database, preserves user
// notes across re-scrapes, and tracks locally installed asset folders.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/uevault/uevault/internal/cli"
	"github.com/uevault/uevault/internal/config"
	"github.com/uevault/uevault/internal/log"
	"github.com/uevault/uevault/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Optional .env beside the binary; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "uevault: %v\n", err)
		os.Exit(1)
	}

	paths := config.GetPaths(cfg)
	if err := log.Init(paths.Logs); err != nil {
		fmt.Fprintf(os.Stderr, "uevault: init logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Close() }()

	telemetryClient := telemetry.New()
	defer telemetryClient.Close()

	if err := cli.Execute(ctx, telemetryClient); err != nil {
		os.Exit(1)
	}
}
