package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// SMSSender delivers one text message. OTP delivery goes through this; tests
// swap in a recorder.
type SMSSender interface {
	SendSMS(ctx context.Context, toPhone, message string) error
}

// SMSGateway posts to the provider's JSON send endpoint with a bearer key.
type SMSGateway struct {
	APIKey     string
	SenderID   string
	HTTPClient *http.Client
	Endpoint   string
}

func NewSMSGateway(endpoint, apiKey, senderID string) *SMSGateway {
	return &SMSGateway{
		APIKey:   strings.TrimSpace(apiKey),
		SenderID: strings.TrimSpace(senderID),
		Endpoint: strings.TrimSpace(endpoint),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// LogSMSSender prints messages instead of sending them. Local-dev stand-in
// when no gateway is configured.
type LogSMSSender struct{}

func (LogSMSSender) SendSMS(_ context.Context, toPhone, message string) error {
	log.Printf("[LogSMSSender] to=%s message=%q", toPhone, message)
	return nil
}

type smsSendRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

func (g *SMSGateway) SendSMS(ctx context.Context, toPhone, message string) error {
	if g == nil || g.Endpoint == "" {
		return fmt.Errorf("sms gateway not configured")
	}
	if g.APIKey == "" {
		return fmt.Errorf("missing SMS_GATEWAY_API_KEY")
	}

	b, err := json.Marshal(smsSendRequest{
		To:      strings.TrimSpace(toPhone),
		From:    g.SenderID,
		Message: message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := g.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms send http %d", resp.StatusCode)
	}
	return nil
}
