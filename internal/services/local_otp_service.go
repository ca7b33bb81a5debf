package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type localOTPEntry struct {
	phone     string
	codeHash  string
	attempts  int
	expiresAt time.Time
}

// LocalOTPService keeps pending codes in memory. Codes are not persisted
// across restarts; a lost code is just re-sent.
type LocalOTPService struct {
	mu       sync.Mutex
	pending  map[string]*localOTPEntry // keyed by user id
	sms      SMSSender
	profiles ProfileService
	now      func() time.Time
}

func NewLocalOTPService(sms SMSSender, profiles ProfileService) *LocalOTPService {
	return &LocalOTPService{
		pending:  make(map[string]*localOTPEntry),
		sms:      sms,
		profiles: profiles,
		now:      time.Now,
	}
}

func (s *LocalOTPService) Send(ctx context.Context, userID, phone string) error {
	code, err := GenerateOTPCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pending[userID] = &localOTPEntry{
		phone:     phone,
		codeHash:  string(hash),
		expiresAt: s.now().UTC().Add(otpTTL),
	}
	s.mu.Unlock()

	return s.sms.SendSMS(ctx, phone, fmt.Sprintf("Your Sillage verification code is %s. It expires in 10 minutes.", code))
}

func (s *LocalOTPService) Confirm(ctx context.Context, userID, code string) error {
	s.mu.Lock()
	entry, exists := s.pending[userID]
	if !exists {
		s.mu.Unlock()
		return ErrOTPNotFound
	}
	if s.now().UTC().After(entry.expiresAt) {
		delete(s.pending, userID)
		s.mu.Unlock()
		return ErrOTPExpired
	}
	if entry.attempts >= otpMaxAttempts {
		s.mu.Unlock()
		return ErrOTPTooManyAttempts
	}
	if err := bcrypt.CompareHashAndPassword([]byte(entry.codeHash), []byte(code)); err != nil {
		entry.attempts++
		s.mu.Unlock()
		return ErrOTPMismatch
	}
	phone := entry.phone
	delete(s.pending, userID)
	s.mu.Unlock()

	return s.profiles.MarkPhoneVerified(ctx, userID, phone)
}
