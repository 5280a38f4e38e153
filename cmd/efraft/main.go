package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eltociear/Ef-RAFT/cmd/efraft/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
