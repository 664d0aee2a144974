package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-testing"

func TestGenerateToken(t *testing.T) {
	first, err := GenerateToken(1, "admin@example.com", "admin", testSecret, 15*time.Minute)
	require.NoError(t, err)
	second, err := GenerateToken(1, "admin@example.com", "admin", testSecret, 15*time.Minute)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second, "each token carries its own id")
}

func TestValidateToken(t *testing.T) {
	token, err := GenerateToken(123, "publisher@example.com", "publisher", testSecret, 15*time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{name: "Valid token", token: token, secret: testSecret},
		{name: "Invalid secret", token: token, secret: "wrong-secret", wantErr: ErrInvalidToken},
		{name: "Invalid token format", token: "invalid.token.format", secret: testSecret, wantErr: ErrInvalidToken},
		{name: "Empty token", token: "", secret: testSecret, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint(123), claims.UserID)
			assert.Equal(t, "publisher@example.com", claims.Email)
			assert.Equal(t, "publisher", claims.Role)
			assert.True(t, claims.IssuedAt.Before(claims.ExpiresAt.Time))
			assert.Greater(t, claims.RemainingLifetime(), time.Duration(0))
		})
	}
}

func TestExpiredToken(t *testing.T) {
	token, err := GenerateToken(1, "viewer@example.com", "viewer", testSecret, time.Nanosecond)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	claims, err := ValidateToken(token, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}
