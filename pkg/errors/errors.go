// Package errors provides the structured error type shared by every
// component of the Innover identity platform: the token validator, the
// claims normalizer, the directory client, the gateway automation client,
// and the service stubs.
//
// Every failure surfaced across a package boundary carries a stable,
// machine-readable [Code] (for example "AUTH_002" for an expired token).
// The code category determines the HTTP status a service boundary should
// answer with, so handlers never need to switch on error strings:
//
//	if e, ok := errors.AsError(err); ok {
//	    c.JSON(e.HTTPStatus(), gin.H{"code": e.Code, "detail": e.Message})
//	}
//
// Create errors with [New] or [Newf], add causes with [Wrap] or [Wrapf],
// and inspect them with [AsError], [HasCode] and the category predicates
// ([IsAuthentication], [IsNotFound], ...).
package errors
