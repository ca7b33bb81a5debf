package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sillage/backend/internal/models"
)

func strPtr(s string) *string { return &s }

func TestLocalProfileService_GetOrCreate(t *testing.T) {
	svc := NewLocalProfileService("")
	ctx := context.Background()

	prof, err := svc.GetOrCreate(ctx, "u1", "anna.smith@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", prof.UserID)
	assert.Equal(t, "anna.smith@example.com", prof.Email)
	// Generated from the email local part plus a random suffix.
	assert.Regexp(t, `^annasmith_[0-9a-f]{6}$`, prof.Username)

	again, err := svc.GetOrCreate(ctx, "u1", "anna.smith@example.com")
	require.NoError(t, err)
	assert.Equal(t, prof.Username, again.Username)
}

func TestLocalProfileService_UsernameImmutable(t *testing.T) {
	svc := NewLocalProfileService("")
	ctx := context.Background()

	prof, err := svc.Upsert(ctx, "u1", "a@example.com", &models.UpsertProfileRequest{
		Username: strPtr("perfume_anna"),
	})
	require.NoError(t, err)
	assert.Equal(t, "perfume_anna", prof.Username)

	// Re-sending the same name is fine; changing it is not.
	_, err = svc.Upsert(ctx, "u1", "a@example.com", &models.UpsertProfileRequest{
		Username: strPtr("perfume_anna"),
	})
	require.NoError(t, err)

	_, err = svc.Upsert(ctx, "u1", "a@example.com", &models.UpsertProfileRequest{
		Username: strPtr("other_name"),
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLocalProfileService_UsernameCollision(t *testing.T) {
	svc := NewLocalProfileService("")
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "u1", "a@example.com", &models.UpsertProfileRequest{
		Username: strPtr("perfume_anna"),
	})
	require.NoError(t, err)

	_, err = svc.Upsert(ctx, "u2", "b@example.com", &models.UpsertProfileRequest{
		Username: strPtr("perfume_anna"),
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLocalProfileService_PhoneChangeResetsVerification(t *testing.T) {
	svc := NewLocalProfileService("")
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, "u1", "a@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.MarkPhoneVerified(ctx, "u1", "+15551234567"))

	prof, err := svc.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, prof.PhoneVerified)

	prof, err = svc.Upsert(ctx, "u1", "a@example.com", &models.UpsertProfileRequest{
		Phone: strPtr("+15559999999"),
	})
	require.NoError(t, err)
	assert.Equal(t, "+15559999999", prof.Phone)
	assert.False(t, prof.PhoneVerified)
}

func TestLocalProfileService_GetByUsername(t *testing.T) {
	svc := NewLocalProfileService("")
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "u1", "a@example.com", &models.UpsertProfileRequest{
		Username: strPtr("perfume_anna"),
	})
	require.NoError(t, err)

	prof, err := svc.GetByUsername(ctx, "  Perfume_Anna ")
	require.NoError(t, err)
	assert.Equal(t, "u1", prof.UserID)

	_, err = svc.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfile_PublicProjection(t *testing.T) {
	p := &models.Profile{
		Username: "perfume_anna",
		Email:    "a@example.com",
		Phone:    "+15551234567",
		WhatsApp: "+15551234567",
		Bio:      "Decants and partials",
		Location: "Lisbon",
	}

	pub := p.Public()
	assert.Empty(t, pub.Phone, "unverified phone must be withheld")
	assert.Equal(t, "+15551234567", pub.WhatsApp)

	p.PhoneVerified = true
	assert.Equal(t, "+15551234567", p.Public().Phone)
}

func TestLocalProfileService_PersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	svc := NewLocalProfileService(dir)
	_, err := svc.Upsert(ctx, "u1", "a@example.com", &models.UpsertProfileRequest{
		Username: strPtr("perfume_anna"),
		Bio:      strPtr("Decants and partials"),
	})
	require.NoError(t, err)

	reopened := NewLocalProfileService(dir)
	prof, err := reopened.GetByUsername(ctx, "perfume_anna")
	require.NoError(t, err)
	assert.Equal(t, "Decants and partials", prof.Bio)
}
