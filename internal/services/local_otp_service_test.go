package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSMS captures outgoing messages so tests can read the code back.
type recordingSMS struct {
	to       []string
	messages []string
	err      error
}

func (r *recordingSMS) SendSMS(_ context.Context, toPhone, message string) error {
	r.to = append(r.to, toPhone)
	r.messages = append(r.messages, message)
	return r.err
}

var codeRe = regexp.MustCompile(`\b(\d{6})\b`)

func (r *recordingSMS) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, r.messages)
	m := codeRe.FindStringSubmatch(r.messages[len(r.messages)-1])
	require.NotNil(t, m, "no 6-digit code in %q", r.messages[len(r.messages)-1])
	return m[1]
}

func TestLocalOTPService_SendAndConfirm(t *testing.T) {
	sms := &recordingSMS{}
	profiles := NewLocalProfileService("")
	otp := NewLocalOTPService(sms, profiles)
	ctx := context.Background()

	_, err := profiles.GetOrCreate(ctx, "u1", "a@example.com")
	require.NoError(t, err)

	require.NoError(t, otp.Send(ctx, "u1", "+15551234567"))
	require.Equal(t, []string{"+15551234567"}, sms.to)

	code := sms.lastCode(t)
	require.NoError(t, otp.Confirm(ctx, "u1", code))

	prof, err := profiles.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, prof.PhoneVerified)
	assert.Equal(t, "+15551234567", prof.Phone)

	// The code is consumed.
	assert.ErrorIs(t, otp.Confirm(ctx, "u1", code), ErrOTPNotFound)
}

func TestLocalOTPService_Mismatch(t *testing.T) {
	sms := &recordingSMS{}
	profiles := NewLocalProfileService("")
	otp := NewLocalOTPService(sms, profiles)
	ctx := context.Background()

	_, err := profiles.GetOrCreate(ctx, "u1", "a@example.com")
	require.NoError(t, err)
	require.NoError(t, otp.Send(ctx, "u1", "+15551234567"))

	assert.ErrorIs(t, otp.Confirm(ctx, "u1", "000000"), ErrOTPMismatch)

	// The right code still works after a miss.
	require.NoError(t, otp.Confirm(ctx, "u1", sms.lastCode(t)))
}

func TestLocalOTPService_AttemptCap(t *testing.T) {
	sms := &recordingSMS{}
	profiles := NewLocalProfileService("")
	otp := NewLocalOTPService(sms, profiles)
	ctx := context.Background()

	require.NoError(t, otp.Send(ctx, "u1", "+15551234567"))

	for i := 0; i < otpMaxAttempts; i++ {
		assert.ErrorIs(t, otp.Confirm(ctx, "u1", "000000"), ErrOTPMismatch)
	}
	// Even the right code is refused once the cap is hit.
	assert.ErrorIs(t, otp.Confirm(ctx, "u1", sms.lastCode(t)), ErrOTPTooManyAttempts)
}

func TestLocalOTPService_Expiry(t *testing.T) {
	sms := &recordingSMS{}
	profiles := NewLocalProfileService("")
	otp := NewLocalOTPService(sms, profiles)
	ctx := context.Background()

	now := time.Now()
	otp.now = func() time.Time { return now }
	require.NoError(t, otp.Send(ctx, "u1", "+15551234567"))

	otp.now = func() time.Time { return now.Add(otpTTL + time.Second) }
	assert.ErrorIs(t, otp.Confirm(ctx, "u1", sms.lastCode(t)), ErrOTPExpired)

	// The expired code was discarded entirely.
	assert.ErrorIs(t, otp.Confirm(ctx, "u1", sms.lastCode(t)), ErrOTPNotFound)
}

func TestLocalOTPService_ResendReplacesCode(t *testing.T) {
	sms := &recordingSMS{}
	profiles := NewLocalProfileService("")
	otp := NewLocalOTPService(sms, profiles)
	ctx := context.Background()

	_, err := profiles.GetOrCreate(ctx, "u1", "a@example.com")
	require.NoError(t, err)

	require.NoError(t, otp.Send(ctx, "u1", "+15551234567"))
	first := sms.lastCode(t)
	require.NoError(t, otp.Send(ctx, "u1", "+15551234567"))
	second := sms.lastCode(t)

	if first != second {
		assert.ErrorIs(t, otp.Confirm(ctx, "u1", first), ErrOTPMismatch)
	}
	require.NoError(t, otp.Confirm(ctx, "u1", second))
}

func TestGenerateOTPCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := GenerateOTPCode()
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
	}
}
