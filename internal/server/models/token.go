package models

import "time"

// VerificationToken is the stored half of an emailed verification link.
// Only the digest of the link token is kept.
type VerificationToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// RefreshToken is a login session. As with verification tokens only the
// digest of the opaque token handed to the client is kept.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	Expires   time.Time
	CreatedAt time.Time
}
