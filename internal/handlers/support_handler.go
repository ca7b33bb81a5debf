package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sillage/backend/internal/models"
	"github.com/sillage/backend/internal/services"
)

var supportCategories = map[string]bool{
	"account":  true,
	"listing":  true,
	"payment":  true,
	"report":   true,
	"feedback": true,
	"other":    true,
}

type SupportHandler struct {
	mailer    *services.SendGridMailer
	recaptcha *services.RecaptchaVerifier
}

func NewSupportHandler(mailer *services.SendGridMailer, recaptcha *services.RecaptchaVerifier) *SupportHandler {
	return &SupportHandler{mailer: mailer, recaptcha: recaptcha}
}

type supportRequest struct {
	Email          string `json:"email"`
	Category       string `json:"category"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	RecaptchaToken string `json:"recaptcha_token"`
}

func (r *supportRequest) Validate() map[string]string {
	errors := make(map[string]string)

	email := strings.TrimSpace(r.Email)
	if email == "" {
		errors["email"] = "Email is required"
	} else if !strings.Contains(email, "@") || len(email) > 254 {
		errors["email"] = "Email is invalid"
	}
	if !supportCategories[strings.TrimSpace(r.Category)] {
		errors["category"] = "Unknown category"
	}
	if strings.TrimSpace(r.Subject) == "" {
		errors["subject"] = "Subject is required"
	} else if len(r.Subject) > 200 {
		errors["subject"] = "Subject is too long"
	}
	if strings.TrimSpace(r.Message) == "" {
		errors["message"] = "Message is required"
	} else if len(r.Message) > 5000 {
		errors["message"] = "Message is too long"
	}

	return errors
}

type supportResponse struct {
	Ticket string `json:"ticket"`
}

// SubmitTicket handles the public help form. The sender is not necessarily an
// account holder, so the endpoint is recaptcha-guarded when a secret is set.
func (h *SupportHandler) SubmitTicket(w http.ResponseWriter, r *http.Request) {
	var req supportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	if h.recaptcha.Enabled() {
		ok, reason, err := h.recaptcha.Verify(r.Context(), req.RecaptchaToken, clientIP(r))
		if err != nil {
			log.Printf("[SubmitTicket] recaptcha verify error: %v", err)
			writeJSON(w, http.StatusBadGateway, models.NewErrorResponse("Could not verify request, please retry"))
			return
		}
		if !ok {
			log.Printf("[SubmitTicket] recaptcha rejected: %s", reason)
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Verification failed"))
			return
		}
	}

	ticket := fmt.Sprintf("SL-%s", strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]))

	if err := h.mailer.SendSupportEmail(r.Context(), ticket, req.Email, req.Category, req.Subject, req.Message); err != nil {
		log.Printf("[SubmitTicket] ticket=%s send failed: %v", ticket, err)
		writeJSON(w, http.StatusBadGateway, models.NewErrorResponse("Failed to send your message, please retry"))
		return
	}

	log.Printf("[SubmitTicket] ticket=%s category=%s", ticket, strings.TrimSpace(req.Category))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(supportResponse{Ticket: ticket}))
}
