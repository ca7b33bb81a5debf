package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sillage/backend/internal/cache"
	"github.com/sillage/backend/internal/middleware"
	"github.com/sillage/backend/internal/models"
	"github.com/sillage/backend/internal/services"
)

// ListingHandler serves listing CRUD. Reads go through the session cache;
// writes go through the optimistic mutator, which is the only component
// besides fetch completion allowed to write cache entries.
type ListingHandler struct {
	listings services.ListingService
	profiles services.ProfileService
	cache    *cache.Cache
	mutator  *cache.ListingMutator
}

func NewListingHandler(listings services.ListingService, profiles services.ProfileService, c *cache.Cache) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		profiles: profiles,
		cache:    c,
		mutator:  cache.NewListingMutator(c, listings),
	}
}

func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		log.Println("[CreateListing] Unauthorized - no user ID in context")
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var draft models.ListingDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := draft.Validate(); len(errors) > 0 {
		log.Printf("[CreateListing] Validation errors: %v", errors)
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	listing, err := h.mutator.Create(r.Context(), userID, &draft)
	if err != nil {
		log.Printf("[CreateListing] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create listing"))
		return
	}

	log.Printf("[CreateListing] Listing created: %s", listing.ID)
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(listing))
}

// GetListing is a public read; browsing another seller's listing needs no
// session.
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingId")

	v, err := h.cache.GetOrFetch(r.Context(), cache.DetailKey(listingID), func(ctx context.Context) (interface{}, error) {
		return h.listings.GetByID(ctx, listingID)
	})
	if err != nil {
		if err == services.ErrListingNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Listing not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to get listing"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(v))
}

func (h *ListingHandler) ListMyListings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	v, err := h.cache.GetOrFetch(r.Context(), cache.CollectionKey(userID), func(ctx context.Context) (interface{}, error) {
		return h.listings.ListByOwner(ctx, userID)
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list listings"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(v))
}

// ListSellerListings resolves a public seller page: username -> owner id ->
// that owner's listings, newest first.
func (h *ListingHandler) ListSellerListings(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	prof, err := h.profiles.GetByUsername(r.Context(), username)
	if err != nil {
		if err == services.ErrProfileNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Seller not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load seller"))
		return
	}

	v, err := h.cache.GetOrFetch(r.Context(), cache.CollectionKey(prof.UserID), func(ctx context.Context) (interface{}, error) {
		return h.listings.ListByOwner(ctx, prof.UserID)
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list listings"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(v))
}

func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	listingID := chi.URLParam(r, "listingId")

	var patch models.ListingPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := patch.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	listing, err := h.mutator.Update(r.Context(), userID, listingID, &patch)
	if err != nil {
		if err == services.ErrListingNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Listing not found"))
			return
		}
		if err == services.ErrUnauthorized {
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Not authorized to update this listing"))
			return
		}
		log.Printf("[UpdateListing] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update listing"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(listing))
}

func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	listingID := chi.URLParam(r, "listingId")

	err := h.mutator.Delete(r.Context(), userID, listingID)
	if err != nil {
		if err == services.ErrListingNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Listing not found"))
			return
		}
		if err == services.ErrUnauthorized {
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Not authorized to delete this listing"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to delete listing"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Listing deleted successfully"}))
}

type contactClickRequest struct {
	Channel string `json:"channel"`
}

// ContactClick counts a tap on one of the seller's contact buttons. Public
// and best-effort; the client fires and forgets.
func (h *ListingHandler) ContactClick(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingId")

	var req contactClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	err := h.listings.IncrementContactClick(r.Context(), listingID, req.Channel)
	if err != nil {
		if err == services.ErrUnknownChannel {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Unknown contact channel"))
			return
		}
		if err == services.ErrListingNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Listing not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to record click"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Recorded"}))
}
