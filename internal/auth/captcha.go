package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ChallengeVerifier checks a human-verification challenge response
// against an external service (Google reCAPTCHA in production). Any
// service error, timeout or malformed reply counts as a failed
// verification: the check fails closed.
type ChallengeVerifier interface {
	Verify(ctx context.Context, response string) bool
}

// CaptchaVerifier is the reCAPTCHA-backed ChallengeVerifier.
type CaptchaVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

// NewCaptchaVerifier creates a verifier with a bounded request timeout.
func NewCaptchaVerifier(secret, verifyURL string, timeout time.Duration) *CaptchaVerifier {
	return &CaptchaVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// Verify checks the challenge response with the verification service.
// An empty response is a failure without a network round trip.
func (v *CaptchaVerifier) Verify(ctx context.Context, response string) bool {
	if response == "" {
		return false
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", response)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		log.Error().Err(err).Msg("Failed to build captcha verification request")
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Captcha verification request failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("Captcha service returned non-OK status")
		return false
	}

	var reply struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		log.Error().Err(err).Msg("Failed to decode captcha verification reply")
		return false
	}
	return reply.Success
}

var _ ChallengeVerifier = (*CaptchaVerifier)(nil)
