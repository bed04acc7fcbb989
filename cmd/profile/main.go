// Package main runs the profile stub service. It exposes liveness and
// readiness probes and reports the identity resolved from gateway
// headers, which makes it the smoke-test target for the identity chain.
//
// Configuration comes from the environment: SERVICE_NAME, PORT,
// KEYCLOAK_URL / KEYCLOAK_REALM for token verification, WSO2_IS_* for
// user-store enrichment, and REDIS_ADDR for the shared directory cache.
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

	if err := service.Run(ctx, "svc-profile"); err != nil {
		slog.Error("service exited", "error", err)
		os.Exit(1)
	}
}
