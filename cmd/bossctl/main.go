package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"boss-timer-bot/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "bossctl:", err)
		stop()
		os.Exit(1)
	}
}
