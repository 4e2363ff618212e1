package fulfillment

import (
	"bytes"
	"net/http/httptest"
	"testing"
)

func TestValidateWebhookSignature(t *testing.T) {
	secret := "shared_secret"
	payload := []byte(`{"type":"fulfillment.accepted","fulfillment_id":"F1"}`)
	correctSignature := Sign(payload, secret)

	tests := []struct {
		name      string
		payload   []byte
		signature string
		wantErr   bool
	}{
		{
			name:      "valid signature",
			payload:   payload,
			signature: correctSignature,
			wantErr:   false,
		},
		{
			name:      "invalid signature",
			payload:   payload,
			signature: "deadbeef",
			wantErr:   true,
		},
		{
			name:      "missing signature",
			payload:   payload,
			signature: "",
			wantErr:   true,
		},
		{
			name:      "signature over different bytes",
			payload:   []byte(`{"type":"fulfillment.accepted","fulfillment_id":"F2"}`),
			signature: correctSignature,
			wantErr:   true,
		},
		{
			name:      "wrong secret",
			payload:   payload,
			signature: Sign(payload, "other_secret"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWebhookSignature(tt.payload, tt.signature, secret)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestVerifyWebhook_MissingHeader(t *testing.T) {
	t.Parallel()

	payload := []byte(`{}`)
	req := httptest.NewRequest("POST", "/webhooks/manufacturer", bytes.NewReader(payload))
	if err := VerifyWebhook(payload, req, "secret"); err == nil {
		t.Fatal("expected error for missing signature header")
	}
}

func TestVerifyWebhook_Valid(t *testing.T) {
	t.Parallel()

	secret := "shared_secret"
	payload := []byte(`{"type":"fulfillment.shipped","fulfillment_id":"F1","tracking_number":"T1"}`)

	req := httptest.NewRequest("POST", "/webhooks/manufacturer", bytes.NewReader(payload))
	req.Header.Set(SignatureHeader, Sign(payload, secret))

	if err := VerifyWebhook(payload, req, secret); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
