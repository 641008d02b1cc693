package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeiKhy/shortify/internal/auth"
)

func TestTokenManager_SignAndVerify(t *testing.T) {
	manager := auth.NewTokenManager("test-secret", 30*time.Minute)

	token, err := manager.Sign(auth.Identity{UserID: 42, Username: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.UserID)
	assert.Equal(t, "alice", identity.Username)
}

func TestTokenManager_Verify_Expired(t *testing.T) {
	manager := auth.NewTokenManager("test-secret", time.Nanosecond)

	token, err := manager.Sign(auth.Identity{UserID: 42, Username: "alice"})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenManager_Verify_WrongSecret(t *testing.T) {
	signer := auth.NewTokenManager("secret-one", 30*time.Minute)
	verifier := auth.NewTokenManager("secret-two", 30*time.Minute)

	token, err := signer.Sign(auth.Identity{UserID: 42, Username: "alice"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenManager_Verify_Garbage(t *testing.T) {
	manager := auth.NewTokenManager("test-secret", 30*time.Minute)

	for _, token := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		_, err := manager.Verify(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	}
}

func TestTokenManager_Verify_MissingSubject(t *testing.T) {
	manager := auth.NewTokenManager("test-secret", 30*time.Minute)

	// A token without a numeric subject identity carries no usable claim.
	token, err := manager.Sign(auth.Identity{Username: "alice"})
	require.NoError(t, err)

	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
