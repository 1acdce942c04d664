// Package crypto holds the hashing, sealing and token helpers shared by the
// auth and content services.
package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for new admin passwords.
const PasswordCost = 11

// HashPassword returns the bcrypt encoding of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	encoded, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(encoded), err
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
func VerifyPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
