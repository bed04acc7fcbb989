package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innover-platform/identity-core/pkg/auth"
	"github.com/innover-platform/identity-core/pkg/identity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testResolver() *auth.Resolver {
	return auth.NewResolver(nil, identity.NewNormalizer(identity.DefaultClaimPriorities(), nil))
}

func testAssertion(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	token := "hdr." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
	return base64.StdEncoding.EncodeToString([]byte(token))
}

func doGet(t *testing.T, s *Server, path string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth_Anonymous(t *testing.T) {
	t.Parallel()

	s := New("svc-profile", testResolver())

	code, body := doGet(t, s, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "svc-profile", body["service"])
	assert.NotContains(t, body, "user")
}

func TestHealth_WithForwardedIdentity(t *testing.T) {
	t.Parallel()

	s := New("svc-profile", testResolver())

	code, body := doGet(t, s, "/health", map[string]string{
		auth.HeaderJWTAssertion: testAssertion(t, map[string]any{
			"preferred_username": "alice",
			"email":              "alice@example.com",
			"realm_access":       map[string]any{"roles": []string{"customer"}},
		}),
	})
	assert.Equal(t, http.StatusOK, code)

	user, ok := body["user"].(map[string]any)
	require.True(t, ok, "health response should include a user object")
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, []any{"customer"}, user["roles"])
}

func TestHealth_WithPlainHeaders(t *testing.T) {
	t.Parallel()

	s := New("svc-ledger", testResolver())

	code, body := doGet(t, s, "/health", map[string]string{
		auth.HeaderUserName:  "bob",
		auth.HeaderUserEmail: "bob@example.com",
		auth.HeaderUserRoles: "trader,auditor",
	})
	assert.Equal(t, http.StatusOK, code)

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bob", user["username"])
	assert.Equal(t, []any{"trader", "auditor"}, user["roles"])
}

func TestHealth_InvalidAssertionStaysAnonymous(t *testing.T) {
	t.Parallel()

	s := New("svc-forex", testResolver())

	code, body := doGet(t, s, "/health", map[string]string{
		auth.HeaderJWTAssertion: "%%% not base64 %%%",
	})
	assert.Equal(t, http.StatusOK, code)
	assert.NotContains(t, body, "user")
}

func TestHealth_NilResolver(t *testing.T) {
	t.Parallel()

	s := New("svc-profile", nil)

	code, body := doGet(t, s, "/health", map[string]string{
		auth.HeaderUserName: "alice",
	})
	assert.Equal(t, http.StatusOK, code)
	assert.NotContains(t, body, "user")
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	s := New("svc-forex", testResolver())

	code, body := doGet(t, s, "/readiness", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "svc-forex", body["service"])
}

func TestNew_EmptyNameDefaults(t *testing.T) {
	t.Parallel()

	s := New("", nil)

	_, body := doGet(t, s, "/readiness", nil)
	assert.Equal(t, DefaultServiceName, body["service"])
}

func TestRun_GracefulShutdown(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	s := New("svc-profile", nil)
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, addr)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/readiness", addr))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
