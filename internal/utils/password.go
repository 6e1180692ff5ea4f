package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password length bounds.  bcrypt ignores everything past 72 bytes.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// ErrPasswordLength is returned for passwords outside the length bounds.
var ErrPasswordLength = fmt.Errorf("password must be %d to %d bytes", MinPasswordLen, MaxPasswordLen)

// CheckPassword validates a new password before it is hashed.
func CheckPassword(plain string) error {
	if len(plain) < MinPasswordLen || len(plain) > MaxPasswordLen {
		return ErrPasswordLength
	}
	return nil
}

// HashPassword returns the bcrypt hash of plain.  cost is clamped to the
// range bcrypt accepts; tests pass bcrypt.MinCost.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) > MaxPasswordLen {
		return "", ErrPasswordLength
	}
	cost = max(bcrypt.MinCost, min(cost, bcrypt.MaxCost))
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches hash.  A malformed hash
// never matches.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
