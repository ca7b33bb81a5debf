package cache

import (
	"context"

	"github.com/sillage/backend/internal/models"
)

// ListingGateway is the slice of the listing service the mutator needs.
type ListingGateway interface {
	Create(ctx context.Context, ownerID string, draft *models.ListingDraft) (*models.Listing, error)
	Update(ctx context.Context, ownerID, listingID string, patch *models.ListingPatch) (*models.Listing, error)
	Delete(ctx context.Context, ownerID, listingID string) error
}

// ListingMutator applies a mutation to the cache immediately, issues the
// remote write, and settles unconditionally afterwards: invalidate both keys
// on success, restore both pre-mutation snapshots on failure. The cache never
// keeps a value that was only ever optimistic.
//
// Concurrent mutations on the same detail key are not coalesced; the second
// snapshot observes whatever the first mutation left behind.
type ListingMutator struct {
	cache   *Cache
	gateway ListingGateway
}

func NewListingMutator(c *Cache, gw ListingGateway) *ListingMutator {
	return &ListingMutator{cache: c, gateway: gw}
}

// Create has no prior cache state to patch, so it settles by seeding the
// detail entry and invalidating the owner's collection.
func (m *ListingMutator) Create(ctx context.Context, ownerID string, draft *models.ListingDraft) (*models.Listing, error) {
	created, err := m.gateway.Create(ctx, ownerID, draft)
	if err != nil {
		return nil, err
	}

	m.cache.Set(DetailKey(created.ID), created.Clone())
	m.cache.Invalidate(CollectionKey(ownerID))
	return created, nil
}

func (m *ListingMutator) Update(ctx context.Context, ownerID, listingID string, patch *models.ListingPatch) (*models.Listing, error) {
	detailKey := DetailKey(listingID)
	collKey := CollectionKey(ownerID)

	// Cancel before the optimistic write, so a slow in-flight read cannot
	// land on top of it.
	m.cache.CancelInFlight(detailKey)
	m.cache.CancelInFlight(collKey)

	detailSnap := m.cache.TakeSnapshot(detailKey)
	collSnap := m.cache.TakeSnapshot(collKey)

	if v, ok := m.cache.Peek(detailKey); ok {
		if l, ok := v.(*models.Listing); ok {
			m.cache.Set(detailKey, patch.ApplyTo(l))
		}
	}
	if v, ok := m.cache.Peek(collKey); ok {
		if rows, ok := v.([]*models.Listing); ok {
			m.cache.Set(collKey, patchRow(rows, listingID, patch))
		}
	}

	updated, err := m.gateway.Update(ctx, ownerID, listingID, patch)
	m.settle(detailKey, collKey, detailSnap, collSnap, err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (m *ListingMutator) Delete(ctx context.Context, ownerID, listingID string) error {
	detailKey := DetailKey(listingID)
	collKey := CollectionKey(ownerID)

	m.cache.CancelInFlight(detailKey)
	m.cache.CancelInFlight(collKey)

	detailSnap := m.cache.TakeSnapshot(detailKey)
	collSnap := m.cache.TakeSnapshot(collKey)

	m.cache.Remove(detailKey)
	if v, ok := m.cache.Peek(collKey); ok {
		if rows, ok := v.([]*models.Listing); ok {
			m.cache.Set(collKey, dropRow(rows, listingID))
		}
	}

	err := m.gateway.Delete(ctx, ownerID, listingID)
	m.settle(detailKey, collKey, detailSnap, collSnap, err)
	return err
}

// settle runs for every outcome; success and failure share this single exit
// so neither branch can be forgotten.
func (m *ListingMutator) settle(detailKey, collKey Key, detailSnap, collSnap Snapshot, err error) {
	if err != nil {
		m.cache.Restore(detailKey, detailSnap)
		m.cache.Restore(collKey, collSnap)
		return
	}
	m.cache.Invalidate(detailKey)
	m.cache.Invalidate(collKey)
}

func patchRow(rows []*models.Listing, listingID string, patch *models.ListingPatch) []*models.Listing {
	out := make([]*models.Listing, len(rows))
	for i, l := range rows {
		if l != nil && l.ID == listingID {
			out[i] = patch.ApplyTo(l)
		} else {
			out[i] = l
		}
	}
	return out
}

func dropRow(rows []*models.Listing, listingID string) []*models.Listing {
	out := make([]*models.Listing, 0, len(rows))
	for _, l := range rows {
		if l == nil || l.ID != listingID {
			out = append(out, l)
		}
	}
	return out
}
