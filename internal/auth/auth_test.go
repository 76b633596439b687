package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/user"
	"github.com/NordCoder/Skywatch/internal/repository/memory"
)

var testCfg = TokenConfig{Secret: "test-secret", Issuer: "skywatch", TTL: time.Hour}

func TestSignParseRoundTrip(t *testing.T) {
	tok, err := SignAccess(testCfg, 42, "ada", time.Now())
	require.NoError(t, err)

	id, claims, err := ParseAccess(testCfg, tok)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	assert.Equal(t, "ada", claims.Username)
}

func TestParseRejects(t *testing.T) {
	expired, err := SignAccess(testCfg, 1, "", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, _, err = ParseAccess(testCfg, expired)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other := testCfg
	other.Secret = "other"
	forged, err := SignAccess(other, 1, "", time.Now())
	require.NoError(t, err)
	_, _, err = ParseAccess(testCfg, forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = ParseAccess(testCfg, "not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	zero, err := SignAccess(testCfg, 0, "", time.Now())
	require.NoError(t, err)
	_, _, err = ParseAccess(testCfg, zero)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestHandshake(t *testing.T) {
	users := memory.NewUserDirectory(
		user.User{ID: 1, Username: "ada", IsActive: true},
		user.User{ID: 2, Username: "bob", IsActive: false},
	)
	hs := NewHandshake(testCfg, users, zap.NewNop())
	ctx := context.Background()

	sign := func(id int64) string {
		tok, err := SignAccess(testCfg, id, "", time.Now())
		require.NoError(t, err)
		return tok
	}

	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Bearer "+sign(1))
		id, err := hs.Authenticate(ctx, r)
		require.NoError(t, err)
		assert.EqualValues(t, 1, id.UserID)
		assert.Equal(t, "ada", id.Username)
	})

	t.Run("query param", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token="+sign(1), nil)
		_, err := hs.Authenticate(ctx, r)
		require.NoError(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := hs.Authenticate(ctx, httptest.NewRequest("GET", "/ws", nil))
		assert.ErrorIs(t, err, ErrRejected)
		assert.ErrorIs(t, err, ErrTokenMissing)
	})

	t.Run("inactive", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token="+sign(2), nil)
		_, err := hs.Authenticate(ctx, r)
		assert.ErrorIs(t, err, ErrRejected)
	})

	t.Run("unknown", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token="+sign(7), nil)
		_, err := hs.Authenticate(ctx, r)
		assert.ErrorIs(t, err, ErrRejected)
	})

	t.Run("garbage", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Bearer nope")
		_, err := hs.Authenticate(ctx, r)
		assert.ErrorIs(t, err, ErrRejected)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
