package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "error without cause",
			err: &Error{
				Code:    CodeAuthenticationInvalid,
				Message: "token signature verification failed",
			},
			want: "AUTH_003: token signature verification failed",
		},
		{
			name: "error with cause",
			err: &Error{
				Code:    CodeInternalConfiguration,
				Message: "failed to fetch signing keys",
				Cause:   errors.New("connection refused"),
			},
			want: "INT_003: failed to fetch signing keys: connection refused",
		},
		{
			name: "error with empty message",
			err: &Error{
				Code:    CodeInternal,
				Message: "",
			},
			want: "INT_001: ",
		},
		{
			name: "error with nested platform error cause",
			err: &Error{
				Code:    CodeUnavailableDependency,
				Message: "directory lookup failed",
				Cause: &Error{
					Code:    CodeTimeout,
					Message: "request timed out",
				},
			},
			want: "UNAVAIL_002: directory lookup failed: TIMEOUT_001: request timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("underlying error")
	err := &Error{
		Code:    CodeInternal,
		Message: "operation failed",
		Cause:   cause,
	}

	assert.Equal(t, cause, err.Unwrap())

	errNoCause := &Error{
		Code:    CodeValidation,
		Message: "invalid input",
	}

	assert.Nil(t, errNoCause.Unwrap())
}

func TestError_Unwrap_ErrorsIs(t *testing.T) {
	t.Parallel()
	cause := errors.New("specific error")
	err := &Error{
		Code:    CodeAuthentication,
		Message: "wrapper",
		Cause:   cause,
	}

	assert.True(t, errors.Is(err, cause), "errors.Is should find the cause in the error chain")
}

func TestError_Unwrap_ErrorsAs(t *testing.T) {
	t.Parallel()
	innerErr := &Error{
		Code:    CodeTimeoutDependency,
		Message: "directory timeout",
	}
	outerErr := &Error{
		Code:    CodeInternal,
		Message: "wrapper",
		Cause:   innerErr,
	}

	var target *Error
	require.True(t, errors.As(outerErr, &target), "errors.As should find *Error in chain")
	assert.Equal(t, CodeInternal, target.Code)
}

func TestError_HTTPStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		code Code
		want int
	}{
		{"validation maps to 400", CodeValidation, http.StatusBadRequest},
		{"authentication maps to 401", CodeAuthentication, http.StatusUnauthorized},
		{"expired token maps to 401", CodeAuthenticationExpired, http.StatusUnauthorized},
		{"invalid token maps to 401", CodeAuthenticationInvalid, http.StatusUnauthorized},
		{"authorization maps to 403", CodeAuthorizationDenied, http.StatusForbidden},
		{"not found maps to 404", CodeNotFoundUser, http.StatusNotFound},
		{"conflict maps to 409", CodeConflictAlreadyExists, http.StatusConflict},
		{"internal maps to 500", CodeInternal, http.StatusInternalServerError},
		{"configuration maps to 500", CodeInternalConfiguration, http.StatusInternalServerError},
		{"unavailable maps to 503", CodeUnavailableDependency, http.StatusServiceUnavailable},
		{"timeout maps to 504", CodeTimeoutDependency, http.StatusGatewayTimeout},
		{"unknown category maps to 500", Code("BOGUS_001"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := &Error{Code: tt.code, Message: "test"}
			assert.Equal(t, tt.want, err.HTTPStatus())
		})
	}
}

func TestError_WithDetail(t *testing.T) {
	t.Parallel()
	orig := New(CodeAuthenticationInvalid, "unknown signing key")

	withKid := orig.WithDetail("kid", "abc123")

	require.NotSame(t, orig, withKid)
	assert.Nil(t, orig.Details, "original error must not be mutated")
	assert.Equal(t, "abc123", withKid.Details["kid"])
	assert.Equal(t, orig.Code, withKid.Code)
	assert.Equal(t, orig.Message, withKid.Message)

	// chaining accumulates
	withBoth := withKid.WithDetail("alg", "RS256")
	assert.Len(t, withBoth.Details, 2)
	assert.Len(t, withKid.Details, 1)
}

func TestError_Format(t *testing.T) {
	t.Parallel()
	err := Wrap(errors.New("dial tcp: connection refused"),
		CodeUnavailableDependency, "identity server unreachable").
		WithDetail("host", "is.example.com")

	plain := fmt.Sprintf("%v", err)
	assert.Equal(t, "UNAVAIL_002: identity server unreachable: dial tcp: connection refused", plain)

	verbose := fmt.Sprintf("%+v", err)
	assert.Contains(t, verbose, `Code: "UNAVAIL_002"`)
	assert.Contains(t, verbose, "is.example.com")
	assert.Contains(t, verbose, "connection refused")

	quoted := fmt.Sprintf("%q", err)
	assert.Equal(t, `"UNAVAIL_002: identity server unreachable: dial tcp: connection refused"`, quoted)
}
