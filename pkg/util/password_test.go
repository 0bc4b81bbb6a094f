package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "password123", hash)

	// Verify that the hash starts with bcrypt prefix
	assert.Contains(t, hash, "$2a$")
}

func TestVerifyPassword(t *testing.T) {
	password := "mySecurePassword123"
	hash, err := HashPassword(password)
	require.NoError(t, err)

	tests := []struct {
		name           string
		hashedPassword string
		password       string
		want           bool
	}{
		{
			name:           "Correct password",
			hashedPassword: hash,
			password:       password,
			want:           true,
		},
		{
			name:           "Incorrect password",
			hashedPassword: hash,
			password:       "wrongPassword",
			want:           false,
		},
		{
			name:           "Empty password",
			hashedPassword: hash,
			password:       "",
			want:           false,
		},
		{
			name:           "Invalid hash",
			hashedPassword: "invalid-hash",
			password:       password,
			want:           false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := VerifyPassword(tt.hashedPassword, tt.password)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestHashPasswordConsistency(t *testing.T) {
	password := "testPassword"

	// Hashes differ because bcrypt salts, but both verify.
	hash1, err1 := HashPassword(password)
	hash2, err2 := HashPassword(password)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.NotEqual(t, hash1, hash2)
	assert.True(t, VerifyPassword(hash1, password))
	assert.True(t, VerifyPassword(hash2, password))
}

func TestSetBcryptCost(t *testing.T) {
	defer SetBcryptCost(DefaultBcryptCost)

	SetBcryptCost(bcrypt.MinCost)
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.Contains(t, hash, "$04$")
	assert.True(t, VerifyPassword(hash, "password123"))

	// Out-of-range values are clamped, not passed through.
	SetBcryptCost(bcrypt.MaxCost + 10)
	assert.Equal(t, bcrypt.MaxCost, bcryptCost)
	SetBcryptCost(0)
	assert.Equal(t, bcrypt.MinCost, bcryptCost)

	// Hashes created under an older cost still verify.
	SetBcryptCost(DefaultBcryptCost)
	assert.True(t, VerifyPassword(hash, "password123"))
}

func TestGeneratePromotionCode(t *testing.T) {
	code := GeneratePromotionCode(8)
	assert.Len(t, code, 8)

	// Ambiguous characters never appear.
	for _, c := range code {
		assert.NotContains(t, "01IO", string(c))
	}

	another := GeneratePromotionCode(8)
	assert.NotEqual(t, code, another)
}
