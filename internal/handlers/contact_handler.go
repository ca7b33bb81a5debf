package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sillage/backend/internal/middleware"
	"github.com/sillage/backend/internal/models"
	"github.com/sillage/backend/internal/services"
)

type ContactHandler struct {
	otp services.OTPService
}

func NewContactHandler(otp services.OTPService) *ContactHandler {
	return &ContactHandler{otp: otp}
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

func (r *sendOTPRequest) Validate() map[string]string {
	errors := make(map[string]string)

	phone := strings.TrimSpace(r.Phone)
	if phone == "" {
		errors["phone"] = "Phone number is required"
	} else if !validPhone(phone) {
		errors["phone"] = "Phone number must be in international format, e.g. +15551234567"
	}

	return errors
}

// validPhone accepts E.164-style numbers: leading +, 8 to 15 digits.
func validPhone(p string) bool {
	if !strings.HasPrefix(p, "+") {
		return false
	}
	digits := p[1:]
	if len(digits) < 8 || len(digits) > 15 {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// SendOTP texts a fresh verification code to the given phone number.
func (h *ContactHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req sendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := h.otp.Send(ctx, userID, strings.TrimSpace(req.Phone)); err != nil {
		log.Printf("[SendOTP] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusBadGateway, models.NewErrorResponse("Failed to send verification code"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{
		"message": "Verification code sent",
	}))
}

type confirmOTPRequest struct {
	Code string `json:"code"`
}

// ConfirmOTP checks the submitted code and marks the phone verified.
func (h *ContactHandler) ConfirmOTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req confirmOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{
			"code": "Verification code is required",
		}))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	err := h.otp.Confirm(ctx, userID, code)
	switch err {
	case nil:
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{
			"message": "Phone number verified",
		}))
	case services.ErrOTPNotFound:
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("No verification code pending, request a new one"))
	case services.ErrOTPExpired:
		writeJSON(w, http.StatusGone, models.NewErrorResponse("Verification code expired, request a new one"))
	case services.ErrOTPMismatch:
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Verification code does not match"))
	case services.ErrOTPTooManyAttempts:
		writeJSON(w, http.StatusTooManyRequests, models.NewErrorResponse("Too many attempts, request a new code"))
	default:
		log.Printf("[ConfirmOTP] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to confirm verification code"))
	}
}
