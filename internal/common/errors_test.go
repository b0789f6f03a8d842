package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_AddKeepsFirstMessage(t *testing.T) {
	v := NewValidationError()
	v.Add("email", "is required")
	v.Add("email", "is invalid")
	v.Add("password", "is too short")

	require.True(t, v.HasErrors())
	assert.Equal(t, "is required", v.Fields["email"])
	assert.Equal(t, "validation failed: email: is required; password: is too short", v.Error())
}

func TestValidationError_OrNil(t *testing.T) {
	v := NewValidationError()
	assert.NoError(t, v.OrNil())

	var nilErr *ValidationError
	assert.False(t, nilErr.HasErrors())

	v.Add("name", "bad")
	err := fmt.Errorf("signup: %w", v.OrNil())

	var target *ValidationError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "bad", target.Fields["name"])
}
