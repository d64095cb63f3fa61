package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tickerql/tickerql/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], cli.Options{})
	stop()
	os.Exit(code)
}
