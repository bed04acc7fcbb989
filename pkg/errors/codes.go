package errors

// Code is a stable, machine-readable error code following the pattern
// CATEGORY_XXX. The category prefix carries the HTTP semantics; the
// numeric suffix distinguishes conditions within a category. Codes never
// change once assigned, so clients and alerting rules may match on them.
type Code string

// Code categories and the HTTP status each maps to:
//
//	VAL_xxx     - validation failures (400 Bad Request)
//	AUTH_xxx    - authentication failures (401 Unauthorized)
//	AUTHZ_xxx   - authorization failures (403 Forbidden)
//	NF_xxx      - missing resources (404 Not Found)
//	CONF_xxx    - state conflicts (409 Conflict)
//	INT_xxx     - internal faults (500 Internal Server Error)
//	UNAVAIL_xxx - dependency unavailable (503 Service Unavailable)
//	TIMEOUT_xxx - deadline exceeded (504 Gateway Timeout)
const (
	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates a required field is missing.
	CodeValidationRequired Code = "VAL_002"

	// CodeAuthentication indicates a general authentication failure,
	// such as a missing credential or a token no enabled verifier accepts.
	CodeAuthentication Code = "AUTH_001"

	// CodeAuthenticationExpired indicates the presented token has expired.
	// Expired tokens are terminal for the request and never retried.
	CodeAuthenticationExpired Code = "AUTH_002"

	// CodeAuthenticationInvalid indicates the token is malformed, carries
	// a bad signature, or fails an issuer/audience/timing claim check.
	CodeAuthenticationInvalid Code = "AUTH_003"

	// CodeAuthorization indicates a general authorization failure.
	CodeAuthorization Code = "AUTHZ_001"

	// CodeAuthorizationDenied indicates the authenticated identity lacks
	// a required role.
	CodeAuthorizationDenied Code = "AUTHZ_002"

	// CodeNotFound indicates a general not found condition.
	CodeNotFound Code = "NF_001"

	// CodeNotFoundUser indicates the requested directory user does not exist.
	CodeNotFoundUser Code = "NF_002"

	// CodeConflict indicates a general state conflict.
	CodeConflict Code = "CONF_001"

	// CodeConflictAlreadyExists indicates the resource already exists,
	// e.g. a gateway API or key manager registered by a previous run.
	CodeConflictAlreadyExists Code = "CONF_002"

	// CodeInternal indicates an unexpected internal fault.
	CodeInternal Code = "INT_001"

	// CodeInternalConfiguration indicates an infrastructure or
	// configuration fault, such as an unreachable or empty signing-key
	// discovery endpoint. Surfaced as HTTP 500, not as a client fault.
	CodeInternalConfiguration Code = "INT_003"

	// CodeUnavailable indicates a general unavailable condition.
	CodeUnavailable Code = "UNAVAIL_001"

	// CodeUnavailableDependency indicates a remote collaborator (identity
	// provider, user directory, gateway admin API) is unreachable.
	CodeUnavailableDependency Code = "UNAVAIL_002"

	// CodeTimeout indicates a general timeout.
	CodeTimeout Code = "TIMEOUT_001"

	// CodeTimeoutDependency indicates a call to a remote collaborator
	// exceeded its deadline.
	CodeTimeoutDependency Code = "TIMEOUT_003"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the code (e.g. "AUTH" for
// "AUTH_002").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
