package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "AUTH_002", CodeAuthenticationExpired.String())
	assert.Equal(t, "INT_003", CodeInternalConfiguration.String())
}

func TestCode_Category(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code Code
		want string
	}{
		{CodeValidation, "VAL"},
		{CodeAuthentication, "AUTH"},
		{CodeAuthenticationExpired, "AUTH"},
		{CodeAuthenticationInvalid, "AUTH"},
		{CodeAuthorizationDenied, "AUTHZ"},
		{CodeNotFoundUser, "NF"},
		{CodeConflictAlreadyExists, "CONF"},
		{CodeInternalConfiguration, "INT"},
		{CodeUnavailableDependency, "UNAVAIL"},
		{CodeTimeoutDependency, "TIMEOUT"},
		{Code("NOUNDERSCORE"), "NOUNDERSCORE"},
		{Code(""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.code.Category())
		})
	}
}
