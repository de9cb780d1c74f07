package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pace-club/internal/config"
	"github.com/pace-club/internal/models"
)

func setupTestRepo(t *testing.T) *IdentityRepository {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := &config.PostgresConfig{
		Host:           "localhost",
		Port:           "5432",
		Database:       "pace_club_test",
		User:           "paceclub",
		Password:       "",
		MaxConnections: 5,
	}

	db, err := NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	return NewIdentityRepository(db)
}

func TestIdentityRepository_GetMissing(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Get(context.Background(), "0x0000000000000000000000000000000000000001")
	assert.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestIdentityRepository_VerifyThenLink(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	wallet := "0x00000000000000000000000000000000000000aa"
	t.Cleanup(func() { _ = repo.Delete(ctx, wallet) })

	disclosed := map[string]string{"name": "Gemma", "gender": "F"}
	require.NoError(t, repo.SetVerified(ctx, wallet, disclosed))

	identity, err := repo.Get(ctx, wallet)
	require.NoError(t, err)
	assert.True(t, identity.Verified)
	assert.Equal(t, "Gemma", identity.Disclosed["name"])
	assert.False(t, identity.Linked())

	account := &models.FitnessAccount{
		Athlete:    models.Athlete{Firstname: "Gemma", Username: "runner123", City: "Phoenix"},
		Credential: models.Credential{AccessToken: "at", RefreshToken: "rt", ExpiresAt: time.Now().Add(time.Hour).Unix()},
		LinkedAt:   time.Now(),
	}
	require.NoError(t, repo.SetFitnessAccount(ctx, wallet, account))

	identity, err = repo.Get(ctx, wallet)
	require.NoError(t, err)
	assert.True(t, identity.Verified, "linking must not clear the verified flag")
	require.True(t, identity.Linked())
	assert.Equal(t, "runner123", identity.FitnessAccount.Athlete.Username)
}

func TestIdentityRepository_LinkBeforeVerify(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	wallet := "0x00000000000000000000000000000000000000bb"
	t.Cleanup(func() { _ = repo.Delete(ctx, wallet) })

	account := &models.FitnessAccount{
		Athlete: models.Athlete{Username: "early-linker"},
	}
	require.NoError(t, repo.SetFitnessAccount(ctx, wallet, account))

	identity, err := repo.Get(ctx, wallet)
	require.NoError(t, err)
	assert.False(t, identity.Verified)
	assert.True(t, identity.Linked())
}
