package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleStudent.Valid())
	assert.True(t, RoleTeacher.Valid())
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("").Valid())
}

func TestUserVerifiedAndPublic(t *testing.T) {
	u := &User{ID: "u1", Name: "Ada", Role: RoleTeacher, Email: "ada@school.example"}
	assert.False(t, u.IsVerified())

	now := time.Now()
	u.VerifiedAt = &now
	assert.True(t, u.IsVerified())
	assert.Equal(t, PublicProfile{ID: "u1", Name: "Ada", Role: RoleTeacher}, u.Public())
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Limit: 20, Offset: 0}, Page{}.Normalize())
	assert.Equal(t, Page{Limit: 100, Offset: 0}, Page{Limit: 1000, Offset: -5}.Normalize())
	assert.Equal(t, Page{Limit: 7, Offset: 14}, Page{Limit: 7, Offset: 14}.Normalize())
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("Non-Profit"))
	assert.False(t, ValidCategory("non-profit"))
}
