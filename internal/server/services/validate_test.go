package services

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"a@b.com", "a@b.com", true},
		{"  Ada@School.Example ", "ada@school.example", true},
		{"Ada <ada@b.com>", "", false},
		{"not-an-email", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeEmail(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		email    string
		wantOK   bool
	}{
		{"strong", "correct horse battery", "a@b.com", true},
		{"short", "abc12", "a@b.com", false},
		{"numeric", "1234567890123", "a@b.com", false},
		{"common", "Password123", "a@b.com", false},
		{"contains local part", "ada.lovelace!99", "ada.lovelace@b.com", false},
		{"short local part ignored", "ab-secure-phrase", "ab@b.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := CheckPassword(tt.password, tt.email)
			assert.Equal(t, tt.wantOK, msg == "", msg)
		})
	}
}

func TestSignupInput_Normalize(t *testing.T) {
	in, err := SignupInput{Email: " A@B.com", Password: "correct horse", Name: " Ada "}.normalize()
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", in.Email)
	assert.Equal(t, "Ada", in.Name)
	assert.Equal(t, models.RoleStudent, in.Role)

	_, err = SignupInput{Email: "bad", Password: "123", Role: "admin"}.normalize()
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "role")
}
