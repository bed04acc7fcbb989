// Package directory provides a client for the user directory's SCIM 2.0
// endpoint, used by the claims normalizer to enrich bare UUID subjects
// into full identities.
//
// Lookups are read-only and best-effort: any transport, authentication,
// or parse failure yields an error that callers treat as "no record".
// The normalizer fails open on lookup errors, so a directory outage
// degrades identities instead of rejecting requests.
//
// Production deployments wrap the client in a cache ([NewCachedLookup])
// so repeated requests for the same subject do not refetch:
//
//	client, err := directory.NewClient(*directory.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	lookup := directory.NewCachedLookup(client, directory.NewMemoryCache(1000))
package directory

import (
	"fmt"
	"time"
)

// Secret is a string type that prevents accidental logging of the
// directory admin password. Its String and GoString methods return a
// redacted placeholder; use [Secret.Value] for the actual value.
type Secret string

const redacted = "[REDACTED]"

// String returns "[REDACTED]" to prevent accidental logging of the secret.
func (s Secret) String() string { return redacted }

// GoString returns "[REDACTED]" for fmt.Sprintf("%#v", secret) safety.
func (s Secret) GoString() string { return redacted }

// MarshalText implements encoding.TextMarshaler, returning "[REDACTED]"
// so the secret never appears in serialized configuration.
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Value returns the actual secret string.
func (s Secret) Value() string { return string(s) }

// Default connection settings for development deployments, matching the
// docker-compose service names and the directory's stock admin account.
const (
	// DefaultHost is the compose service name of the user directory.
	DefaultHost = "wso2is"

	// DefaultPort is the directory's HTTPS management port.
	DefaultPort = 9443

	// DefaultAdminUser is the stock admin account used for SCIM reads
	// in development.
	DefaultAdminUser = "admin"

	// DefaultAdminPass is the stock admin password in development.
	DefaultAdminPass = Secret("admin")

	// DefaultTimeout bounds a single SCIM lookup. Lookups sit on the
	// request path, so they must give up quickly and let the caller
	// fail open.
	DefaultTimeout = 5 * time.Second
)

// Config holds the directory connection configuration. Environment
// variable names are documented in env tags and resolved by pkg/config.
type Config struct {
	// Host is the directory hostname.
	// Default: "wso2is"
	Host string `json:"host,omitempty" yaml:"host" env:"WSO2_IS_HOST" envDefault:"wso2is"`

	// Port is the directory's HTTPS port.
	// Default: 9443
	Port int `json:"port,omitempty" yaml:"port" env:"WSO2_IS_PORT" envDefault:"9443"`

	// AdminUser and AdminPass are the basic-auth credentials for the
	// SCIM endpoint.
	AdminUser string `json:"admin_user,omitempty" yaml:"admin_user" env:"WSO2_IS_ADMIN_USER" envDefault:"admin"`
	AdminPass Secret `json:"-" yaml:"-" env:"WSO2_IS_ADMIN_PASS" envDefault:"admin"`

	// InsecureSkipVerify disables TLS certificate verification. The
	// development directory serves a self-signed certificate; never
	// enable this against a production directory.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify" env:"WSO2_IS_INSECURE" envDefault:"true"`

	// Timeout bounds a single lookup request.
	// Default: 5s
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout" env:"WSO2_IS_TIMEOUT" envDefault:"5s"`

	// HTTPClient overrides the HTTP client, mainly for tests. When set,
	// InsecureSkipVerify and Timeout are ignored.
	HTTPClient HTTPClient `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with development defaults. Callers
// override fields as needed before passing the config to [NewClient].
func DefaultConfig() *Config {
	return &Config{
		Host:               DefaultHost,
		Port:               DefaultPort,
		AdminUser:          DefaultAdminUser,
		AdminPass:          DefaultAdminPass,
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
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("directory: config port must be between 1 and 65535, got %d", c.Port)
	}
	if c.AdminUser == "" {
		return fmt.Errorf("directory: config admin user must not be empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("directory: config timeout must not be negative, got %v", c.Timeout)
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}
