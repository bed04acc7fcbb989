// Package main runs the ledger stub service. See cmd/profile for the
// shared configuration surface; the stubs differ only in their default
// service name.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/innover-platform/identity-core/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := service.Run(ctx, "svc-ledger"); err != nil {
		slog.Error("service exited", "error", err)
		os.Exit(1)
	}
}
