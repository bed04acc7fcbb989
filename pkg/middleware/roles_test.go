package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innover-platform/identity-core/pkg/auth"
	iderr "github.com/innover-platform/identity-core/pkg/errors"
	"github.com/innover-platform/identity-core/pkg/identity"
)

// identityInjector is test middleware that places a fixed user (and
// optional claims) on the request context, bypassing resolution.
func identityInjector(user *identity.User, claims *auth.TokenClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if user != nil {
			ctx = auth.ContextWithUser(ctx, user)
		}
		if claims != nil {
			ctx = auth.ContextWithClaims(ctx, claims)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func protectedRouter(mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw...)
	router.GET("/protected", func(c *gin.Context) {
		c.String(http.StatusOK, "granted")
	})
	return router
}

func doGet(router *gin.Engine) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	return rec
}

func TestRequireRoles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		userRoles  []string
		required   []string
		wantStatus int
	}{
		{"exact match", []string{"admin"}, []string{"admin"}, http.StatusOK},
		{"any of several", []string{"auditor"}, []string{"admin", "auditor"}, http.StatusOK},
		{"missing role", []string{"reader"}, []string{"admin"}, http.StatusForbidden},
		{"no roles at all", []string{}, []string{"admin"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			user := &identity.User{Username: "u", Email: "u@example.com", Roles: tt.userRoles}
			router := protectedRouter(identityInjector(user, nil), RequireRoles(tt.required...))
			assert.Equal(t, tt.wantStatus, doGet(router).Code)
		})
	}
}

func TestRequireRoles_NoIdentity(t *testing.T) {
	t.Parallel()

	router := protectedRouter(RequireRoles("admin"))
	rec := doGet(router)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoles_ErrorBody(t *testing.T) {
	t.Parallel()

	user := &identity.User{Username: "u", Email: "u@example.com", Roles: []string{"reader"}}
	router := protectedRouter(identityInjector(user, nil), RequireRoles("admin"))
	rec := doGet(router)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, iderr.CodeAuthorizationDenied.String(), body["code"])
	assert.True(t, strings.Contains(body["error"], "admin"))
}

func TestRequireAllRoles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		userRoles  []string
		required   []string
		wantStatus int
	}{
		{"has all", []string{"admin", "auditor"}, []string{"admin", "auditor"}, http.StatusOK},
		{"missing one", []string{"admin"}, []string{"admin", "auditor"}, http.StatusForbidden},
		{"superset", []string{"admin", "auditor", "reader"}, []string{"admin"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			user := &identity.User{Username: "u", Email: "u@example.com", Roles: tt.userRoles}
			router := protectedRouter(identityInjector(user, nil), RequireAllRoles(tt.required...))
			assert.Equal(t, tt.wantStatus, doGet(router).Code)
		})
	}
}

func TestRequireClientRole(t *testing.T) {
	t.Parallel()

	user := &identity.User{Username: "u", Email: "u@example.com", Roles: []string{}}
	claims := &auth.TokenClaims{
		ClientRoles: map[string][]string{
			"forex-service": {"trader"},
		},
	}

	router := protectedRouter(identityInjector(user, claims), RequireClientRole("forex-service", "trader"))
	assert.Equal(t, http.StatusOK, doGet(router).Code)

	router = protectedRouter(identityInjector(user, claims), RequireClientRole("forex-service", "admin"))
	assert.Equal(t, http.StatusForbidden, doGet(router).Code)

	router = protectedRouter(identityInjector(user, claims), RequireClientRole("other-client", "trader"))
	assert.Equal(t, http.StatusForbidden, doGet(router).Code)
}

func TestRequireClientRole_NoVerifiedClaims(t *testing.T) {
	t.Parallel()

	// Forwarded and header identities carry no verified claims, so a
	// client-scoped requirement can never pass.
	user := &identity.User{Username: "u", Email: "u@example.com", Roles: []string{"trader"}}
	router := protectedRouter(identityInjector(user, nil), RequireClientRole("forex-service", "trader"))
	assert.Equal(t, http.StatusForbidden, doGet(router).Code)
}

func TestRequireClientRole_NoIdentity(t *testing.T) {
	t.Parallel()

	router := protectedRouter(RequireClientRole("forex-service", "trader"))
	assert.Equal(t, http.StatusUnauthorized, doGet(router).Code)
}
