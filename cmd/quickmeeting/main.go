package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pysugar/quickmeeting/cmd/quickmeeting/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx, os.Args); err != nil {
		log.Printf("❌ %v", err)
		stop()
		os.Exit(1)
	}
}
