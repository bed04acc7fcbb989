// Package gateway provides an admin REST client for the API-management
// gateway: admin token acquisition, key-manager configuration, and API
// publishing. It automates the sequential setup flows the platform runs
// after the gateway container comes up; the gateway's own REST
// semantics stay opaque behind this package.
//
// Typical use from cmd/gatewayctl:
//
//	client, err := gateway.NewClient(*gateway.DefaultConfig())
//	if err != nil { ... }
//	if err := client.WaitReady(ctx, 30, 2*time.Second); err != nil { ... }
//	if err := client.Authenticate(ctx); err != nil { ... }
//	id, err := client.EnsureAPI(ctx, gateway.APIDefinition{...})
package gateway

import (
	"fmt"
	"time"
)

// Secret is a string type that prevents accidental logging of the
// gateway admin password. Use [Secret.Value] for the actual value.
type Secret string

const redacted = "[REDACTED]"

// String returns "[REDACTED]" to prevent accidental logging of the secret.
func (s Secret) String() string { return redacted }

// GoString returns "[REDACTED]" for fmt.Sprintf("%#v", secret) safety.
func (s Secret) GoString() string { return redacted }

// MarshalText implements encoding.TextMarshaler, returning "[REDACTED]".
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Value returns the actual secret string.
func (s Secret) Value() string { return string(s) }

// Default settings for development deployments.
const (
	// DefaultHost is the gateway's management base URL in the compose
	// network.
	DefaultHost = "https://wso2am:9443"

	// DefaultUsername and DefaultPassword are the gateway's stock admin
	// credentials in development.
	DefaultUsername = "admin"
	DefaultPassword = Secret("admin")

	// DefaultTimeout bounds a single admin REST call.
	DefaultTimeout = 30 * time.Second

	// dcrClientName is the client name registered for admin token
	// acquisition.
	dcrClientName = "identity-core-admin"

	// adminScope is the OAuth scope requested for admin operations.
	adminScope = "apim:admin apim:api_key"
)

// Config holds the gateway connection configuration.
type Config struct {
	// Host is the gateway management base URL, including scheme.
	// Default: "https://wso2am:9443"
	Host string `json:"host,omitempty" yaml:"host" env:"WSO2_HOST" envDefault:"https://wso2am:9443"`

	// Username and Password are the admin credentials.
	Username string `json:"username,omitempty" yaml:"username" env:"WSO2_ADMIN_USERNAME" envDefault:"admin"`
	Password Secret `json:"-" yaml:"-" env:"WSO2_ADMIN_PASSWORD" envDefault:"admin"`

	// InsecureSkipVerify disables TLS certificate verification. The
	// development gateway serves a self-signed certificate.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify" env:"WSO2_INSECURE" envDefault:"true"`

	// Timeout bounds a single admin REST call.
	// Default: 30s
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout" env:"WSO2_TIMEOUT" envDefault:"30s"`

	// HTTPClient overrides the HTTP client, mainly for tests. When set,
	// InsecureSkipVerify and Timeout are ignored.
	HTTPClient HTTPClient `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with development defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:               DefaultHost,
		Username:           DefaultUsername,
		Password:           DefaultPassword,
		InsecureSkipVerify: true,
		Timeout:            DefaultTimeout,
	}
}

// Validate checks the configuration and applies defaults for zero-valued
// fields.
func (c *Config) Validate() error {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Username == "" {
		return fmt.Errorf("gateway: config username must not be empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("gateway: config timeout must not be negative, got %v", c.Timeout)
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}
