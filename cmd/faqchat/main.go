package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := Cli(ctx, os.Args[1:], NewCliConfig())
	stop()
	os.Exit(code)
}
