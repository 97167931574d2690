package utils

import "golang.org/x/crypto/bcrypt"

// hashCost is above the bcrypt default; staff logins are infrequent enough
// that the extra hashing time is not felt.
const hashCost = 14

// HashPassword returns the bcrypt hash of a staff password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
