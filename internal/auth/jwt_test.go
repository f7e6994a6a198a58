package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandhq/strand/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	identity := models.Identity{
		WorkspaceID: uuid.New(),
		UserID:      uuid.New(),
		DisplayName: "Ada",
		Email:       "ada@example.com",
		AvatarURL:   "https://avatars.example.com/ada",
	}

	token, err := GenerateToken(identity, "test-secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, "test-secret")
	require.NoError(t, err)

	assert.Equal(t, identity, claims.Identity)
	assert.Equal(t, "strand", claims.Issuer)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(models.Identity{UserID: uuid.New()}, "right-secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "wrong-secret")
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	token, err := GenerateToken(models.Identity{UserID: uuid.New()}, "test-secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "test-secret")
	assert.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	_, err := ParseToken("not-a-jwt", "test-secret")
	assert.Error(t, err)
}
