package cryptox

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dmitrijs2005/stavros/internal/common"
)

// TokenBytes is the entropy of every emailed token.
const TokenBytes = 32

// NewToken returns a fresh opaque token and the digest to persist for it.
// Only the digest is ever stored.
func NewToken() (token, digest string, err error) {
	token, err = common.MakeRandHexString(TokenBytes)
	if err != nil {
		return "", "", err
	}
	return token, HashToken(token), nil
}

// HashToken returns the hex SHA-256 digest of token. The tokens are random,
// so an unsalted fast hash is enough to keep database dumps from being
// replayable.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
