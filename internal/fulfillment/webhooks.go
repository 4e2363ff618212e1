package fulfillment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
)

// SignatureHeader carries the hex HMAC-SHA256 digest of the raw body.
const SignatureHeader = "X-Signature"

// ValidateWebhookSignature checks the provided signature against an
// HMAC-SHA256 digest of payload keyed by secret, in constant time.
func ValidateWebhookSignature(payload []byte, signature, secret string) error {
	if signature == "" {
		return fmt.Errorf("missing signature")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("signature verification failed")
	}

	return nil
}

// Sign computes the signature the partner is expected to send. Used in tests
// and by local tooling.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook validates the request's signature header against payload.
// The payload must be the exact raw bytes of the request body.
func VerifyWebhook(payload []byte, r *http.Request, secret string) error {
	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		return fmt.Errorf("missing %s header", SignatureHeader)
	}
	if err := ValidateWebhookSignature(payload, signature, secret); err != nil {
		return fmt.Errorf("webhook signature validation failed: %w", err)
	}
	return nil
}
