package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registration struct {
	Username  string `json:"username" validate:"required,username"`
	Email     string `json:"email" validate:"required,email"`
	Password1 string `json:"password1" validate:"required,min=8"`
	Password2 string `json:"password2" validate:"required,eqfield=Password1"`
}

func TestValidate(t *testing.T) {
	v := New()

	ok := registration{Username: "alice", Email: "alice@example.com", Password1: "s3cretpass", Password2: "s3cretpass"}
	assert.NoError(t, v.Validate(ok))

	bad := registration{Username: "al ice", Email: "not-an-email", Password1: "short", Password2: "other"}
	err := v.Validate(bad)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 4)
	assert.Equal(t, "email must be a valid email address", verr.Errors["email"])
	assert.Equal(t, "password1 must be at least 8", verr.Errors["password1"])
	assert.Equal(t, "password2 must match password1", verr.Errors["password2"])
	assert.Contains(t, verr.Errors, "username")
}

func TestValidationErrorIsStable(t *testing.T) {
	err := &ValidationError{Errors: map[string]string{"b": "b is required", "a": "a is required"}}
	assert.Equal(t, "validation failed: a is required, b is required", err.Error())
}
