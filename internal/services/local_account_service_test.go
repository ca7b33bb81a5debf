package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sillage/backend/internal/models"
)

func TestLocalAccountService_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	listings := NewLocalListingService("")
	profiles := NewLocalProfileService("")
	accounts := NewLocalAccountService(listings, profiles)

	_, err := profiles.Upsert(ctx, "u1", "a@example.com", &models.UpsertProfileRequest{
		Username: strPtr("perfume_anna"),
		PhotoURL: strPtr("https://img.example/avatar.jpg"),
	})
	require.NoError(t, err)

	l1, err := listings.Create(ctx, "u1", intactDraft())
	require.NoError(t, err)
	l2, err := listings.Create(ctx, "u1", decantDraft())
	require.NoError(t, err)
	other, err := listings.Create(ctx, "u2", intactDraft())
	require.NoError(t, err)

	result, err := accounts.DeleteAccount(ctx, "u1")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{l1.ID, l2.ID}, result.ListingIDs)
	assert.Contains(t, result.ImageURLs, "https://img.example/avatar.jpg")
	assert.Contains(t, result.ImageURLs, l1.ImageURLs[0])
	assert.Contains(t, result.ImageURLs, l2.ImageURLs[0])

	_, err = listings.GetByID(ctx, l1.ID)
	assert.ErrorIs(t, err, ErrListingNotFound)
	_, err = profiles.GetByUserID(ctx, "u1")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	// Other sellers are untouched.
	_, err = listings.GetByID(ctx, other.ID)
	assert.NoError(t, err)
}

func TestLocalAccountService_DeleteAccountEmpty(t *testing.T) {
	ctx := context.Background()
	accounts := NewLocalAccountService(NewLocalListingService(""), NewLocalProfileService(""))

	result, err := accounts.DeleteAccount(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, result.ListingIDs)
	assert.Empty(t, result.ImageURLs)
}
