// Command nassavd runs the nassav daemon: the download orchestrator, the
// HTTP API, and the control socket used by the nassav CLI.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"nassav/internal/config"
	"nassav/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(ctx, cfg); err != nil {
		log.Fatalf("nassavd: %v", err)
	}
}
