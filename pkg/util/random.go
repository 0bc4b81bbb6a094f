package util

import (
	"math/rand"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GeneratePromotionCode generates a random promotion code of the given
// length from an alphabet without ambiguous characters.
func GeneratePromotionCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
