package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	if application != nil {
		_ = application.Close()
	}
	stop()
	if err != nil {
		os.Exit(1)
	}
}
