// Package middleware provides gin middleware for identity resolution
// and role-based authorization, built on [auth.Resolver] and the
// normalized [identity.User].
//
// Resolution order is the platform's standard ingestion chain:
// gateway-forwarded assertion, bearer token, plain X-User-* headers.
//
//	router := gin.New()
//	router.Use(middleware.RequireIdentity(resolver))
//	admin := router.Group("/admin", middleware.RequireRoles("admin"))
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/innover-platform/identity-core/pkg/auth"
	iderr "github.com/innover-platform/identity-core/pkg/errors"
	"github.com/innover-platform/identity-core/pkg/identity"
)

// RequireIdentity returns gin middleware that resolves and requires the
// request identity. Requests with an invalid bearer token or no
// resolvable identity are aborted with 401, a WWW-Authenticate
// challenge, and a machine-readable error code.
//
// On success the normalized user (and, on the bearer path, the verified
// claims) is stored on the request context; retrieve it with
// [auth.UserFromContext] or [UserFrom].
func RequireIdentity(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		user, claims, err := resolver.Resolve(ctx, c.GetHeader)
		if err != nil {
			abortWithAuthError(c, err)
			return
		}
		if user == nil {
			abortWithAuthError(c, iderr.New(iderr.CodeAuthentication,
				"middleware: no credentials presented"))
			return
		}

		ctx = auth.ContextWithUser(ctx, user)
		if claims != nil {
			ctx = auth.ContextWithClaims(ctx, claims)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// OptionalIdentity returns gin middleware that resolves the request
// identity when one is presented but never aborts: bearer validation
// failures and missing credentials both continue anonymously. Probe
// endpoints use this variant.
func OptionalIdentity(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		user, claims, err := resolver.Resolve(ctx, c.GetHeader)
		if err == nil && user != nil {
			ctx = auth.ContextWithUser(ctx, user)
			if claims != nil {
				ctx = auth.ContextWithClaims(ctx, claims)
			}
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// UserFrom returns the normalized identity resolved by
// [RequireIdentity] or [OptionalIdentity] for this request.
func UserFrom(c *gin.Context) (*identity.User, bool) {
	return auth.UserFromContext(c.Request.Context())
}

// abortWithAuthError aborts the request with the mapped status, the
// bearer challenge, and a JSON body carrying the stable error code.
func abortWithAuthError(c *gin.Context, err error) {
	e := iderr.FromError(err)
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(e.HTTPStatus(), gin.H{
		"code":  e.Code,
		"error": e.Message,
	})
}
