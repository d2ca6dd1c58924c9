package api

import (
	"errors"
	"strings"
	"testing"

	"github.com/npezzotti/go-chats/internal/database"
	"github.com/stretchr/testify/assert"
)

func Test_validateProfile(t *testing.T) {
	tcases := []struct {
		name     string
		input    profileFields
		expected ValidationErrors
	}{
		{
			name:     "valid",
			input:    profileFields{Username: "alice.b+1", Email: "alice@example.com", PhoneNumber: "+15551234567"},
			expected: ValidationErrors{},
		},
		{
			name:     "username with spaces",
			input:    profileFields{Username: "alice b", Email: "alice@example.com"},
			expected: ValidationErrors{"username": "username may contain only letters, numbers and @/./+/-/_"},
		},
		{
			name:     "username too long",
			input:    profileFields{Username: strings.Repeat("a", maxUsernameLength+1), Email: "alice@example.com"},
			expected: ValidationErrors{"username": "username is too long"},
		},
		{
			name: "names too long",
			input: profileFields{
				Username:  "alice",
				Email:     "alice@example.com",
				FirstName: strings.Repeat("a", maxNameLength+1),
				LastName:  strings.Repeat("b", maxNameLength+1),
			},
			expected: ValidationErrors{
				"first_name": "first name is too long",
				"last_name":  "last name is too long",
			},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, validateProfile(tc.input))
		})
	}
}

func TestValidationErrors_AddKeepsFirst(t *testing.T) {
	errs := make(ValidationErrors)
	errs.Add("email", "first")
	errs.Add("email", "second")

	assert.True(t, errs.HasErrors())
	assert.Equal(t, "first", errs["email"])
}

func Test_writeConflictError(t *testing.T) {
	tcases := []struct {
		name         string
		err          error
		expectedCode int
		expectedErrs map[string]string
	}{
		{
			name:         "known constraint",
			err:          &database.ConstraintError{Err: database.ErrDuplicate, Constraint: "accounts_email_key"},
			expectedCode: 400,
			expectedErrs: map[string]string{"email": "a user with this email already exists"},
		},
		{
			name:         "unknown constraint",
			err:          &database.ConstraintError{Err: database.ErrDuplicate, Constraint: "other_key"},
			expectedCode: 400,
			expectedErrs: map[string]string{"non_field_errors": "a user with these details already exists"},
		},
		{
			name:         "other errors are internal",
			err:          errors.New("db error"),
			expectedCode: 500,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			apiErr := writeConflictError(tc.err)
			assert.Equal(t, tc.expectedCode, apiErr.StatusCode)
			assert.Equal(t, tc.expectedErrs, apiErr.Errors)
		})
	}
}

func TestApiError_Error(t *testing.T) {
	cause := errors.New("boom")
	apiErr := NewInternalServerError(cause)

	assert.Equal(t, "internal server error: boom", apiErr.Error())
	assert.ErrorIs(t, apiErr, cause)
	assert.Equal(t, "not found", NewNotFoundError().Error())
}
