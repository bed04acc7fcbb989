package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/innover-platform/identity-core/pkg/auth"
	iderr "github.com/innover-platform/identity-core/pkg/errors"
)

// RequireRoles returns gin middleware that allows the request when the
// resolved identity holds at least one of the given roles. Requests
// without an identity are aborted with 401; identities missing every
// role get 403.
//
// Apply after [RequireIdentity] or [OptionalIdentity].
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := UserFrom(c)
		if !ok {
			abortWithAuthError(c, iderr.New(iderr.CodeAuthentication,
				"middleware: authentication required"))
			return
		}
		if !user.HasAnyRole(roles...) {
			abortWithRoleError(c, "one of roles", roles)
			return
		}
		c.Next()
	}
}

// RequireAllRoles returns gin middleware that allows the request only
// when the resolved identity holds every one of the given roles.
func RequireAllRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := UserFrom(c)
		if !ok {
			abortWithAuthError(c, iderr.New(iderr.CodeAuthentication,
				"middleware: authentication required"))
			return
		}
		if !user.HasAllRoles(roles...) {
			abortWithRoleError(c, "all roles", roles)
			return
		}
		c.Next()
	}
}

// RequireClientRole returns gin middleware that allows the request when
// the verified token carries the given role scoped to the given client.
// Client-scoped roles exist only on the bearer path, so forwarded and
// header identities are rejected with 403.
func RequireClientRole(client, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserFrom(c); !ok {
			abortWithAuthError(c, iderr.New(iderr.CodeAuthentication,
				"middleware: authentication required"))
			return
		}

		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok || !claims.HasClientRole(client, role) {
			e := iderr.Newf(iderr.CodeAuthorizationDenied,
				"middleware: requires role %q for client %q", role, client)
			c.AbortWithStatusJSON(e.HTTPStatus(), gin.H{
				"code":  e.Code,
				"error": e.Message,
			})
			return
		}
		c.Next()
	}
}

func abortWithRoleError(c *gin.Context, requirement string, roles []string) {
	e := iderr.Newf(iderr.CodeAuthorizationDenied,
		"middleware: requires %s: %s", requirement, strings.Join(roles, ", "))
	c.AbortWithStatusJSON(e.HTTPStatus(), gin.H{
		"code":  e.Code,
		"error": e.Message,
	})
}
