package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sillage/backend/internal/models"
)

func decantDraft() *models.ListingDraft {
	return &models.ListingDraft{
		Brand:     "Xerjoff",
		Name:      "Naxos",
		ImageURLs: []string{"https://img.example/n.jpg"},
		Variant:   models.VariantDecant,
		DecantOptions: []models.DecantOptionDraft{
			{SizeML: json.Number("5"), Price: json.Number("20")},
			{SizeML: json.Number("10"), Price: json.Number("35")},
		},
	}
}

func intactDraft() *models.ListingDraft {
	return &models.ListingDraft{
		Brand:        "Chanel",
		Name:         "Bleu de Chanel",
		ImageURLs:    []string{"https://img.example/b.jpg"},
		Variant:      models.VariantIntact,
		BottleSizeML: json.Number("100"),
		Price:        json.Number("120"),
	}
}

func TestLocalListingService_CreateAndGet(t *testing.T) {
	svc := NewLocalListingService("")
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", decantDraft())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.UserID)
	require.NotNil(t, created.MinPrice)
	assert.Equal(t, 20.0, *created.MinPrice)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestLocalListingService_ListByOwnerNewestFirst(t *testing.T) {
	svc := NewLocalListingService("")
	ctx := context.Background()

	first, err := svc.Create(ctx, "u1", intactDraft())
	require.NoError(t, err)
	second, err := svc.Create(ctx, "u1", decantDraft())
	require.NoError(t, err)
	// Force distinct timestamps; creation is too fast to rely on the clock.
	svc.mu.Lock()
	svc.listings[second.ID].CreatedAt = svc.listings[first.ID].CreatedAt.Add(1)
	svc.mu.Unlock()
	_, err = svc.Create(ctx, "u2", intactDraft())
	require.NoError(t, err)

	rows, err := svc.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.Equal(t, first.ID, rows[1].ID)
}

func TestLocalListingService_UpdateOwnership(t *testing.T) {
	svc := NewLocalListingService("")
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", intactDraft())
	require.NoError(t, err)

	newName := "Bleu de Chanel EDP"
	patch := &models.ListingPatch{Name: &newName}

	_, err = svc.Update(ctx, "intruder", created.ID, patch)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Update(ctx, "u1", "missing", patch)
	assert.ErrorIs(t, err, ErrListingNotFound)

	updated, err := svc.Update(ctx, "u1", created.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, models.VariantIntact, updated.Variant)
}

func TestLocalListingService_UpdateSwitchesVariant(t *testing.T) {
	svc := NewLocalListingService("")
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", intactDraft())
	require.NoError(t, err)

	patch := &models.ListingPatch{
		Decant: &models.DecantFields{Options: []models.DecantOption{
			{SizeML: 5, Price: 15},
			{SizeML: 10, Price: 28},
		}},
	}
	updated, err := svc.Update(ctx, "u1", created.ID, patch)
	require.NoError(t, err)

	assert.Equal(t, models.VariantDecant, updated.Variant)
	assert.Nil(t, updated.BottleSizeML)
	assert.Nil(t, updated.Price)
	require.NotNil(t, updated.MinPrice)
	assert.Equal(t, 15.0, *updated.MinPrice)
}

func TestLocalListingService_Delete(t *testing.T) {
	svc := NewLocalListingService("")
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", intactDraft())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "intruder", created.ID), ErrUnauthorized)
	require.NoError(t, svc.Delete(ctx, "u1", created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "u1", created.ID), ErrListingNotFound)
}

func TestLocalListingService_ContactClicks(t *testing.T) {
	svc := NewLocalListingService("")
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", intactDraft())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.IncrementContactClick(ctx, created.ID, "email"), ErrUnknownChannel)
	assert.ErrorIs(t, svc.IncrementContactClick(ctx, "missing", "whatsapp"), ErrListingNotFound)

	require.NoError(t, svc.IncrementContactClick(ctx, created.ID, "whatsapp"))
	require.NoError(t, svc.IncrementContactClick(ctx, created.ID, "whatsapp"))
	require.NoError(t, svc.IncrementContactClick(ctx, created.ID, "phone"))

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ContactClicks["whatsapp"])
	assert.Equal(t, 1, got.ContactClicks["phone"])
}

func TestLocalListingService_PersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	svc := NewLocalListingService(dir)
	created, err := svc.Create(ctx, "u1", decantDraft())
	require.NoError(t, err)

	reopened := NewLocalListingService(dir)
	got, err := reopened.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Brand, got.Brand)
	require.NotNil(t, got.MinPrice)
	assert.Equal(t, *created.MinPrice, *got.MinPrice)
}

func TestLocalListingService_ReadsReturnCopies(t *testing.T) {
	svc := NewLocalListingService("")
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", intactDraft())
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	got.Brand = "tampered"

	again, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chanel", again.Brand)
}
