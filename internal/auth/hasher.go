package auth

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the bcrypt input ceiling. Longer passwords are cut at the
// last UTF-8 boundary at or below it, so two inputs sharing that prefix are the
// same credential.
const MaxPasswordBytes = 72

const BcryptCost = 12

var (
	ErrEmptyPassword      = errors.New("password cannot be empty")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TruncatePassword returns the longest prefix of pw that fits MaxPasswordBytes
// without splitting a multi-byte rune.
func TruncatePassword(pw string) string {
	if len(pw) <= MaxPasswordBytes {
		return pw
	}
	cut := MaxPasswordBytes
	for cut > 0 && !utf8.RuneStart(pw[cut]) {
		cut--
	}
	return pw[:cut]
}

// HashPassword generates a bcrypt hash of the (truncated) password
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(TruncatePassword(password)), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password against an encoded bcrypt hash. Any other
// encoding is an error, not a mismatch.
func CheckPassword(password, encodedHash string) (bool, error) {
	password = TruncatePassword(password)

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
