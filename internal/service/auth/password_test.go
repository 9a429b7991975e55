package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewBcryptHasher(t *testing.T) {
	tests := []struct {
		name    string
		cost    int
		wantErr bool
	}{
		{"minimum cost", bcrypt.MinCost, false},
		{"default cost", bcrypt.DefaultCost, false},
		{"maximum cost", bcrypt.MaxCost, false},
		{"below minimum", bcrypt.MinCost - 1, true},
		{"above maximum", bcrypt.MaxCost + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasher, err := NewBcryptHasher(tt.cost)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCost)
				assert.Nil(t, hasher)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cost, hasher.Cost())
		})
	}
}

func TestBcryptHasher_Hash(t *testing.T) {
	hasher, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	passwords := []string{
		"testpassword123",
		"test@#$%^&*()",
		"тест123",
		strings.Repeat("a", MaxPasswordBytes),
	}

	verifier := NewBcryptVerifier()
	for _, password := range passwords {
		hash, err := hasher.Hash(password)
		require.NoError(t, err)

		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.MinCost, cost)

		assert.NoError(t, verifier.Compare(hash, password))
		assert.Error(t, verifier.Compare(hash, password+"x"))
	}

	// Salted: the same password hashes differently each time
	first, err := hasher.Hash("same")
	require.NoError(t, err)
	second, err := hasher.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = hasher.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	_, err = hasher.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestBcryptVerifier_Matches(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	verifier := NewBcryptVerifier()

	match, err := verifier.Matches(string(hash), "correct horse")
	require.NoError(t, err)
	assert.True(t, match)

	match, err = verifier.Matches(string(hash), "battery staple")
	require.NoError(t, err)
	assert.False(t, match, "a mismatch is not an error")

	_, err = verifier.Matches("not-a-hash", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestValidateHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, ValidateHash(string(hash)))
	assert.ErrorIs(t, ValidateHash(""), ErrInvalidHash)
	assert.ErrorIs(t, ValidateHash("$2a$04$short"), ErrInvalidHash)
}
