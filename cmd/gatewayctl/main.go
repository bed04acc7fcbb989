// Package main provisions the API-management gateway for the platform.
// It waits for the gateway to come up, obtains an admin token, registers
// the identity provider as the gateway's key manager, and publishes the
// stub-service APIs. Every step is idempotent, so the command can run on
// each deployment.
//
// Run with:
//
//	go run ./cmd/gatewayctl
//
// Override configuration via environment variables, e.g.:
//
//	WSO2_HOST=https://localhost:9443 KEYCLOAK_ISSUER=http://localhost:8080/realms/innover go run ./cmd/gatewayctl
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/innover-platform/identity-core/pkg/config"
	"github.com/innover-platform/identity-core/pkg/gateway"
)

// provisionConfig holds the full provisioning surface: gateway admin
// credentials plus the identity-provider coordinates registered as the
// gateway's key manager.
type provisionConfig struct {
	Gateway gateway.Config

	// KeycloakIssuer is the realm issuer URL the key manager trusts.
	KeycloakIssuer string `env:"KEYCLOAK_ISSUER" envDefault:"http://keycloak:8080/realms/innover"`

	// KeyManagerName identifies the key manager entry in the gateway.
	KeyManagerName string `env:"KEY_MANAGER_NAME" envDefault:"Keycloak"`

	// KMClientID and KMClientSecret are the credentials the gateway uses
	// when calling the identity provider's introspection endpoints.
	KMClientID     string         `env:"KEYCLOAK_KM_CLIENT_ID" envDefault:"wso2am"`
	KMClientSecret gateway.Secret `env:"KEYCLOAK_KM_CLIENT_SECRET" envDefault:"wso2am-secret"`

	// WaitRetries and WaitInterval bound the startup poll against the
	// gateway's version endpoint.
	WaitRetries  int           `env:"GATEWAY_WAIT_RETRIES" envDefault:"30"`
	WaitInterval time.Duration `env:"GATEWAY_WAIT_INTERVAL" envDefault:"5s"`
}

// serviceAPIs lists the stub-service APIs to publish. Contexts and
// backends follow the platform's compose topology, where every service
// listens on port 8000 under its own hostname.
func serviceAPIs() []gateway.APIDefinition {
	return []gateway.APIDefinition{
		{
			Name:       "Profile Service API",
			Context:    "/api/profile",
			Version:    "1.0.0",
			BackendURL: "http://profile:8000",
			Tags:       []string{"profile", "user", "microservice"},
		},
		{
			Name:       "Ledger Service API",
			Context:    "/api/ledger",
			Version:    "1.0.0",
			BackendURL: "http://ledger:8000",
			Tags:       []string{"ledger", "accounting", "microservice"},
		},
		{
			Name:       "Forex Service API",
			Context:    "/api/forex",
			Version:    "1.0.0",
			BackendURL: "http://forex:8000",
			Tags:       []string{"forex", "currency", "microservice"},
		},
	}
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad[provisionConfig](config.New())

	if err := provision(ctx, cfg); err != nil {
		slog.ErrorContext(ctx, "gateway provisioning failed", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "gateway provisioning complete")
}

func provision(ctx context.Context, cfg provisionConfig) error {
	client, err := gateway.NewClient(cfg.Gateway)
	if err != nil {
		return err
	}

	if err := client.WaitReady(ctx, cfg.WaitRetries, cfg.WaitInterval); err != nil {
		return err
	}
	if err := client.Authenticate(ctx); err != nil {
		return err
	}

	km, err := client.BuildOIDCKeyManager(ctx, cfg.KeyManagerName,
		cfg.KeycloakIssuer, cfg.KMClientID, cfg.KMClientSecret.Value())
	if err != nil {
		return err
	}
	if _, err := client.EnsureKeyManager(ctx, km); err != nil {
		return err
	}

	for _, def := range serviceAPIs() {
		apiID, err := client.EnsureAPI(ctx, def)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "api published",
			"name", def.Name,
			"context", def.Context,
			"id", apiID,
		)
	}
	return nil
}
