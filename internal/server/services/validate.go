package services

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/server/models"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxNameLength     = 150
)

// commonPasswords is a short deny list of passwords that show up at the top
// of every leaked-credential corpus.
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {}, "123456789": {},
	"1234567890": {}, "qwerty123": {}, "qwertyuiop": {}, "iloveyou": {}, "11111111": {},
	"abc12345": {}, "letmein1": {}, "welcome1": {}, "sunshine": {}, "princess": {},
	"football": {}, "baseball": {}, "superman": {}, "trustno1": {}, "admin123": {},
}

// NormalizeEmail trims and lower-cases a bare address. It returns false for
// anything net/mail does not accept or that carries a display name.
func NormalizeEmail(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Name != "" || addr.Address != raw {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}

// CheckPassword applies the password policy and returns a user-facing
// message, or "" when password is acceptable.
func CheckPassword(password, email string) string {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return "password must be at least 8 characters"
	}
	if n > maxPasswordLength {
		return "password is too long"
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return "password cannot be entirely numeric"
	}
	lower := strings.ToLower(password)
	if _, ok := commonPasswords[lower]; ok {
		return "password is too common"
	}
	if local, _, ok := strings.Cut(strings.ToLower(email), "@"); ok && len(local) >= 3 {
		if strings.Contains(lower, local) || strings.Contains(local, lower) {
			return "password is too similar to the email address"
		}
	}
	return ""
}

// SignupInput is what a visitor submits to create an account.
type SignupInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
}

// normalize validates in and returns its canonical form.
func (in SignupInput) normalize() (SignupInput, error) {
	verr := common.NewValidationError()

	email, ok := NormalizeEmail(in.Email)
	if !ok {
		verr.Add("email", "enter a valid email address")
	}
	in.Email = email

	in.Name = strings.TrimSpace(in.Name)
	if utf8.RuneCountInString(in.Name) > maxNameLength {
		verr.Add("name", "name is too long")
	}

	if in.Role == "" {
		in.Role = models.RoleStudent
	}
	if !in.Role.Valid() {
		verr.Add("role", "role must be student or teacher")
	}

	if msg := CheckPassword(in.Password, in.Email); msg != "" {
		verr.Add("password", msg)
	}

	return in, verr.OrNil()
}
