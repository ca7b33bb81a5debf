package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sillage/backend/internal/models"
	"github.com/sillage/backend/internal/storage"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrUnauthorized    = errors.New("unauthorized to modify this resource")
	ErrUnknownChannel  = errors.New("unknown contact channel")
)

// ListingService is the remote data gateway: owner-scoped CRUD over listings.
// Reads are public; writes require the owner id to match.
type ListingService interface {
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Listing, error)
	GetByID(ctx context.Context, listingID string) (*models.Listing, error)
	Create(ctx context.Context, ownerID string, draft *models.ListingDraft) (*models.Listing, error)
	Update(ctx context.Context, ownerID, listingID string, patch *models.ListingPatch) (*models.Listing, error)
	Delete(ctx context.Context, ownerID, listingID string) error
	IncrementContactClick(ctx context.Context, listingID, channel string) error
}

// LocalListingService keeps listings in memory, persisted to a JSON file.
// Used for local development and tests; MongoListingService is the deployed
// implementation.
type LocalListingService struct {
	mu       sync.RWMutex
	listings map[string]*models.Listing
	store    *storage.JSONStore
}

func NewLocalListingService(dataDir string) *LocalListingService {
	s := &LocalListingService{
		listings: make(map[string]*models.Listing),
	}

	if dataDir != "" {
		store, err := storage.NewJSONStore(dataDir, "listings.json")
		if err != nil {
			log.Printf("[LocalListingService] store unavailable, running in memory only: %v", err)
			return s
		}
		s.store = store

		var loaded []*models.Listing
		if err := store.Load(&loaded); err != nil {
			log.Printf("[LocalListingService] failed to load listings: %v", err)
		}
		for _, l := range loaded {
			s.listings[l.ID] = l
		}
	}

	return s
}

func (s *LocalListingService) ListByOwner(_ context.Context, ownerID string) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Listing, 0)
	for _, l := range s.listings {
		if l.UserID == ownerID {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *LocalListingService) GetByID(_ context.Context, listingID string) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.listings[listingID]
	if !exists {
		return nil, ErrListingNotFound
	}
	return l.Clone(), nil
}

func (s *LocalListingService) Create(_ context.Context, ownerID string, draft *models.ListingDraft) (*models.Listing, error) {
	shaped, err := draft.ShapeForVariant()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	shaped.ID = uuid.New().String()
	shaped.UserID = ownerID
	shaped.CreatedAt = now
	shaped.UpdatedAt = now

	s.listings[shaped.ID] = shaped
	s.persistLocked()
	return shaped.Clone(), nil
}

func (s *LocalListingService) Update(_ context.Context, ownerID, listingID string, patch *models.ListingPatch) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.listings[listingID]
	if !exists {
		return nil, ErrListingNotFound
	}
	if l.UserID != ownerID {
		return nil, ErrUnauthorized
	}

	updated := patch.ApplyTo(l)
	updated.UpdatedAt = time.Now().UTC()
	s.listings[listingID] = updated
	s.persistLocked()
	return updated.Clone(), nil
}

func (s *LocalListingService) Delete(_ context.Context, ownerID, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.listings[listingID]
	if !exists {
		return ErrListingNotFound
	}
	if l.UserID != ownerID {
		return ErrUnauthorized
	}

	delete(s.listings, listingID)
	s.persistLocked()
	return nil
}

func (s *LocalListingService) IncrementContactClick(_ context.Context, listingID, channel string) error {
	if !models.IsContactChannel(channel) {
		return ErrUnknownChannel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.listings[listingID]
	if !exists {
		return ErrListingNotFound
	}
	if l.ContactClicks == nil {
		l.ContactClicks = make(map[string]int)
	}
	l.ContactClicks[channel]++
	s.persistLocked()
	return nil
}

// persistLocked is called with s.mu held for writing. Persistence is
// best-effort; the in-memory state stays authoritative for the process.
func (s *LocalListingService) persistLocked() {
	if s.store == nil {
		return
	}
	all := make([]*models.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		all = append(all, l)
	}
	if err := s.store.Save(all); err != nil {
		log.Printf("[LocalListingService] failed to persist listings: %v", err)
	}
}
