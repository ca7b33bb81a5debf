package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/sillage/backend/internal/cache"
	"github.com/sillage/backend/internal/middleware"
	"github.com/sillage/backend/internal/models"
	"github.com/sillage/backend/internal/services"
)

type AccountHandler struct {
	accounts services.AccountService
	cache    *cache.Cache
}

func NewAccountHandler(accounts services.AccountService, c *cache.Cache) *AccountHandler {
	return &AccountHandler{accounts: accounts, cache: c}
}

// DeleteAccount removes the caller's data. The response lists what was
// removed so the client can clean up any storage objects it owns.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), services.DefaultAccountTimeout())
	defer cancel()

	result, err := h.accounts.DeleteAccount(ctx, userID)
	if err != nil {
		log.Printf("[DeleteAccount] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to delete account"))
		return
	}

	// All cached rows for this user are dead now.
	h.cache.CancelInFlight(cache.CollectionKey(userID))
	h.cache.Remove(cache.CollectionKey(userID))
	for _, id := range result.ListingIDs {
		h.cache.CancelInFlight(cache.DetailKey(id))
		h.cache.Remove(cache.DetailKey(id))
	}

	log.Printf("[DeleteAccount] user=%s listings=%d images=%d", userID, len(result.ListingIDs), len(result.ImageURLs))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(result))
}
