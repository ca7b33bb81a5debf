package services

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/sillage/backend/internal/models"
	"github.com/sillage/backend/internal/storage"
)

// ProfileService manages seller identity data keyed by the auth UID.
type ProfileService interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	GetOrCreate(ctx context.Context, userID, email string) (*models.Profile, error)
	Upsert(ctx context.Context, userID, email string, req *models.UpsertProfileRequest) (*models.Profile, error)
	MarkPhoneVerified(ctx context.Context, userID, phone string) error
}

// LocalProfileService keeps profiles in memory, persisted to a JSON file.
type LocalProfileService struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile // keyed by user id
	store    *storage.JSONStore
}

func NewLocalProfileService(dataDir string) *LocalProfileService {
	s := &LocalProfileService{
		profiles: make(map[string]*models.Profile),
	}

	if dataDir != "" {
		store, err := storage.NewJSONStore(dataDir, "profiles.json")
		if err != nil {
			log.Printf("[LocalProfileService] store unavailable, running in memory only: %v", err)
			return s
		}
		s.store = store

		var loaded []*models.Profile
		if err := store.Load(&loaded); err != nil {
			log.Printf("[LocalProfileService] failed to load profiles: %v", err)
		}
		for _, p := range loaded {
			s.profiles[p.UserID] = p
		}
	}

	return s
}

func (s *LocalProfileService) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.profiles[userID]
	if !exists {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *LocalProfileService) GetByUsername(_ context.Context, username string) (*models.Profile, error) {
	want := strings.ToLower(strings.TrimSpace(username))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.Username == want {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrProfileNotFound
}

func (s *LocalProfileService) GetOrCreate(_ context.Context, userID, email string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if p, exists := s.profiles[userID]; exists {
		if email != "" && p.Email == "" {
			p.Email = email
			p.UpdatedAt = now
			s.persistLocked()
		}
		cp := *p
		return &cp, nil
	}

	p := &models.Profile{
		UserID:    userID,
		Username:  generateUsername(email),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.profiles[userID] = p
	s.persistLocked()
	cp := *p
	return &cp, nil
}

func (s *LocalProfileService) Upsert(ctx context.Context, userID, email string, req *models.UpsertProfileRequest) (*models.Profile, error) {
	if _, err := s.GetOrCreate(ctx, userID, email); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profiles[userID]

	if req.Username != nil {
		want := strings.ToLower(strings.TrimSpace(*req.Username))
		if p.Username != "" && p.Username != want {
			return nil, ErrUsernameTaken
		}
		for uid, other := range s.profiles {
			if uid != userID && other.Username == want {
				return nil, ErrUsernameTaken
			}
		}
		p.Username = want
	}
	if req.DisplayName != nil {
		p.DisplayName = *req.DisplayName
	}
	if req.PhotoURL != nil {
		p.PhotoURL = *req.PhotoURL
	}
	if req.Bio != nil {
		p.Bio = *req.Bio
	}
	if req.Location != nil {
		p.Location = *req.Location
	}
	if req.Website != nil {
		p.Website = *req.Website
	}
	if req.Phone != nil && *req.Phone != p.Phone {
		p.Phone = *req.Phone
		p.PhoneVerified = false
	}
	if req.WhatsApp != nil {
		p.WhatsApp = *req.WhatsApp
	}
	if req.Messenger != nil {
		p.Messenger = *req.Messenger
	}
	if req.Facebook != nil {
		p.Facebook = *req.Facebook
	}
	p.UpdatedAt = time.Now().UTC()

	s.persistLocked()
	cp := *p
	return &cp, nil
}

func (s *LocalProfileService) MarkPhoneVerified(_ context.Context, userID, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.profiles[userID]
	if !exists {
		return ErrProfileNotFound
	}
	p.Phone = phone
	p.PhoneVerified = true
	p.UpdatedAt = time.Now().UTC()
	s.persistLocked()
	return nil
}

// remove drops the profile row if present. Used by account deletion.
func (s *LocalProfileService) remove(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[userID]; !exists {
		return
	}
	delete(s.profiles, userID)
	s.persistLocked()
}

func (s *LocalProfileService) persistLocked() {
	if s.store == nil {
		return
	}
	all := make([]*models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		all = append(all, p)
	}
	if err := s.store.Save(all); err != nil {
		log.Printf("[LocalProfileService] failed to persist profiles: %v", err)
	}
}
