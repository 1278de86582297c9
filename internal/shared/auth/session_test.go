package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	token, exp, err := m.Mint("user-1", "a@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestVerifyRejectsUniformly(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewManager("other-secret", time.Hour)
	require.NoError(t, err)

	valid, _, err := m.Mint("user-1", "")
	require.NoError(t, err)
	forged, _, err := other.Mint("user-1", "")
	require.NoError(t, err)

	expired, err := NewManager("secret", time.Hour)
	require.NoError(t, err)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := expired.Mint("user-1", "")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing", token: ""},
		{name: "blank", token: "   "},
		{name: "malformed", token: "not-a-jwt"},
		{name: "tampered", token: valid[:len(valid)-2] + "xx"},
		{name: "wrong secret", token: forged},
		{name: "expired", token: stale},
		{name: "alg none", token: unsigned},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("  ", time.Hour)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "JWT_SECRET"))
}

func TestNewManagerDefaultsTTL(t *testing.T) {
	m, err := NewManager("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, m.TTL())
}

func TestMintRequiresSubject(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)
	_, _, err = m.Mint("", "a@example.com")
	require.Error(t, err)
}
