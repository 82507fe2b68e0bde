// Package auth contains handlers, services and models used to authenticate hospital staff
// and authorize their requests by role.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for stored staff passwords.
const PasswordCost = 12

// EncryptPassword hashes the given password for storage.
func EncryptPassword(pass string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePasswords reports whether the plain password matches the stored hash. An empty
// hash never matches.
func ComparePasswords(hashedPass, plainPass string) bool {
	if hashedPass == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPass), []byte(plainPass)) == nil
}
