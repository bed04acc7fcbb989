// Package service provides the shared HTTP scaffolding for the stub
// microservices under cmd/. Each stub exposes liveness and readiness
// probes; the liveness probe reports the identity resolved from the
// incoming request when one is present, which makes it a convenient
// end-to-end check for gateway header propagation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/innover-platform/identity-core/pkg/auth"
	"github.com/innover-platform/identity-core/pkg/middleware"
)

const (
	// DefaultServiceName is reported by probes when SERVICE_NAME is unset.
	DefaultServiceName = "svc-unknown"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Config holds the environment-driven settings shared by every stub
// service.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"svc-unknown"`
	Port        int    `env:"PORT" envDefault:"8000"`
}

// Server is a minimal gin application exposing /health and /readiness.
type Server struct {
	name     string
	resolver *auth.Resolver
	engine   *gin.Engine
}

// New builds a Server for the named service. The resolver may be nil,
// in which case probes never report a user.
func New(name string, resolver *auth.Resolver) *Server {
	if name == "" {
		name = DefaultServiceName
	}
	s := &Server{
		name:     name,
		resolver: resolver,
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	health := s.engine.Group("/")
	if s.resolver != nil {
		health.Use(middleware.OptionalIdentity(s.resolver))
	}
	health.GET("/health", s.health)

	s.engine.GET("/readiness", s.readiness)
}

// health reports liveness. When the request carried credentials that
// resolved to an identity, the response includes the normalized user so
// operators can verify header propagation through the gateway.
func (s *Server) health(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"service": s.name,
	}
	if user, ok := middleware.UserFrom(c); ok {
		body["user"] = gin.H{
			"username": user.Username,
			"email":    user.Email,
			"roles":    user.Roles,
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) readiness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": s.name,
	})
}

// Run serves HTTP on the given address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	slog.InfoContext(ctx, "service listening",
		"service", s.name,
		"addr", addr,
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.InfoContext(ctx, "service stopped", "service", s.name)
	return nil
}
