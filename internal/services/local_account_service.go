package services

import "context"

// AccountService performs full account deletion.
type AccountService interface {
	DeleteAccount(ctx context.Context, userID string) (*DeleteAccountResult, error)
}

// LocalAccountService deletes across the in-memory services. No auth-provider
// record exists locally, so only the data stores are touched.
type LocalAccountService struct {
	listings *LocalListingService
	profiles *LocalProfileService
}

func NewLocalAccountService(listings *LocalListingService, profiles *LocalProfileService) *LocalAccountService {
	return &LocalAccountService{listings: listings, profiles: profiles}
}

func (s *LocalAccountService) DeleteAccount(ctx context.Context, userID string) (*DeleteAccountResult, error) {
	urls := make(map[string]struct{})

	if prof, err := s.profiles.GetByUserID(ctx, userID); err == nil && prof.PhotoURL != "" {
		urls[prof.PhotoURL] = struct{}{}
	}

	owned, err := s.listings.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	listingIDs := make([]string, 0, len(owned))
	for _, l := range owned {
		listingIDs = append(listingIDs, l.ID)
		for _, u := range l.ImageURLs {
			if u != "" {
				urls[u] = struct{}{}
			}
		}
	}

	for _, id := range listingIDs {
		if err := s.listings.Delete(ctx, userID, id); err != nil {
			return nil, err
		}
	}
	s.profiles.remove(userID)

	out := make([]string, 0, len(urls))
	for u := range urls {
		out = append(out, u)
	}

	return &DeleteAccountResult{
		ImageURLs:  out,
		ListingIDs: listingIDs,
	}, nil
}
