package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	toolbridgecmd "github.com/louisbranch/toolbridge/internal/cmd/toolbridge"
	"github.com/louisbranch/toolbridge/internal/platform/config"
)

// main starts the bridge on stdio or HTTP.
func main() {
	cfg, err := toolbridgecmd.ParseConfig(flag.CommandLine, os.Args[1:], nil)
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[TOOLBRIDGE] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := toolbridgecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
