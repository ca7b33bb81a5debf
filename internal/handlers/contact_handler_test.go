package handlers

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sillage/backend/internal/middleware"
	"github.com/sillage/backend/internal/services"
)

// recordingSMS captures the messages the OTP service sends out.
type recordingSMS struct {
	messages []string
}

func (r *recordingSMS) SendSMS(_ context.Context, _, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func (r *recordingSMS) lastCode(t *testing.T) string {
	t.Helper()
	if len(r.messages) == 0 {
		t.Fatal("no SMS sent")
	}
	m := regexp.MustCompile(`\b(\d{6})\b`).FindStringSubmatch(r.messages[len(r.messages)-1])
	if m == nil {
		t.Fatalf("no code in %q", r.messages[len(r.messages)-1])
	}
	return m[1]
}

func contactRouter(t *testing.T) (*chi.Mux, *recordingSMS, *services.LocalProfileService) {
	t.Helper()
	sms := &recordingSMS{}
	profiles := services.NewLocalProfileService("")
	h := NewContactHandler(services.NewLocalOTPService(sms, profiles))

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(testSecret))
		r.Post("/api/contact/send-otp", h.SendOTP)
		r.Post("/api/contact/confirm-otp", h.ConfirmOTP)
	})
	return r, sms, profiles
}

func TestContactOTP_FullFlow(t *testing.T) {
	r, sms, profiles := contactRouter(t)
	token := mintToken(t, "u1", "a@example.com")

	if _, err := profiles.GetOrCreate(context.Background(), "u1", "a@example.com"); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/contact/send-otp", token, map[string]string{"phone": "+15551234567"})
	if w.Code != http.StatusOK {
		t.Fatalf("send-otp status = %d; body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/contact/confirm-otp", token, map[string]string{"code": sms.lastCode(t)})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm-otp status = %d; body %s", w.Code, w.Body.String())
	}

	prof, err := profiles.GetByUserID(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !prof.PhoneVerified || prof.Phone != "+15551234567" {
		t.Errorf("profile after confirm = %+v; want verified phone", prof)
	}
}

func TestContactOTP_PhoneValidation(t *testing.T) {
	r, _, _ := contactRouter(t)
	token := mintToken(t, "u1", "a@example.com")

	for _, phone := range []string{"", "5551234567", "+123", "+15551x34567"} {
		w := doJSON(t, r, http.MethodPost, "/api/contact/send-otp", token, map[string]string{"phone": phone})
		if w.Code != http.StatusBadRequest {
			t.Errorf("phone %q status = %d; want 400", phone, w.Code)
		}
	}
}

func TestContactOTP_ConfirmErrors(t *testing.T) {
	r, sms, profiles := contactRouter(t)
	token := mintToken(t, "u1", "a@example.com")

	// Nothing pending yet.
	w := doJSON(t, r, http.MethodPost, "/api/contact/confirm-otp", token, map[string]string{"code": "123456"})
	if w.Code != http.StatusNotFound {
		t.Errorf("confirm with nothing pending status = %d; want 404", w.Code)
	}

	if _, err := profiles.GetOrCreate(context.Background(), "u1", "a@example.com"); err != nil {
		t.Fatal(err)
	}
	doJSON(t, r, http.MethodPost, "/api/contact/send-otp", token, map[string]string{"phone": "+15551234567"})

	w = doJSON(t, r, http.MethodPost, "/api/contact/confirm-otp", token, map[string]string{"code": "000000"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("wrong code status = %d; want 400", w.Code)
	}

	// Burn the remaining attempts.
	for i := 1; i < 5; i++ {
		doJSON(t, r, http.MethodPost, "/api/contact/confirm-otp", token, map[string]string{"code": "000000"})
	}
	w = doJSON(t, r, http.MethodPost, "/api/contact/confirm-otp", token, map[string]string{"code": sms.lastCode(t)})
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("capped confirm status = %d; want 429", w.Code)
	}
}
