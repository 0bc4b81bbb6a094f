package util

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost trades login latency against offline cracking cost.
const DefaultBcryptCost = 12

var bcryptCost = DefaultBcryptCost

// SetBcryptCost overrides the hashing cost, clamped to bcrypt's supported
// range. Called once at startup from config; existing hashes keep the cost
// they were created with.
func SetBcryptCost(cost int) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	bcryptCost = cost
}

// HashPassword hashes a plain text password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// VerifyPassword checks if a plain text password matches a hashed password
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
