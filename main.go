package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/simsup/simsup/internal/cmd"
	"github.com/simsup/simsup/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		// Exit status follows the control binding's status-code convention.
		os.Exit(int(errors.CodeOf(err)))
	}
}
