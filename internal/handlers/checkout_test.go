package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/relaypressapp/relaypress/internal/services"
)

func checkoutBody(t *testing.T, email string, items ...checkoutRequestItem) *strings.Reader {
	t.Helper()

	payload, err := json.Marshal(checkoutRequest{Email: email, Items: items})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return strings.NewReader(string(payload))
}

func TestCheckout_Success(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	runner := &fakeCheckoutRunner{result: &services.CheckoutResult{
		OrderID:     orderID,
		TotalCents:  3000,
		RedirectURL: "https://checkout.stripe.com/c/pay/cs_test_123",
		SessionID:   "cs_test_123",
	}}
	h := &Handlers{checkoutService: runner, logger: testLogger()}

	req := httptest.NewRequest(http.MethodPost, "/checkout",
		checkoutBody(t, "buyer@example.com", checkoutRequestItem{ProductID: uuid.New(), Quantity: 2}))
	rec := httptest.NewRecorder()

	h.Checkout(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var body checkoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.OrderID != orderID || body.SessionID != "cs_test_123" {
		t.Fatalf("unexpected response: %+v", body)
	}
	if runner.input.Email != "buyer@example.com" {
		t.Fatalf("service received email %q", runner.input.Email)
	}
}

func TestCheckout_RejectsBadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: "{not json"},
		{name: "missing email", body: `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`},
		{name: "invalid email", body: `{"email":"not-an-email","items":[]}`},
		{name: "zero quantity", body: `{"email":"buyer@example.com","items":[{"product_id":"` + uuid.NewString() + `","quantity":0}]}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			runner := &fakeCheckoutRunner{}
			h := &Handlers{checkoutService: runner, logger: testLogger()}

			req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			h.Checkout(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadRequest)
			}
			if runner.calls != 0 {
				t.Fatalf("checkout service called %d times, want 0", runner.calls)
			}
		})
	}
}

func TestCheckout_EmptyCartReturns400(t *testing.T) {
	t.Parallel()

	runner := &fakeCheckoutRunner{err: services.ErrEmptyCart}
	h := &Handlers{checkoutService: runner, logger: testLogger()}

	req := httptest.NewRequest(http.MethodPost, "/checkout", checkoutBody(t, "buyer@example.com"))
	rec := httptest.NewRecorder()

	h.Checkout(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
}

func TestCheckout_GatewayFailureReturns502(t *testing.T) {
	t.Parallel()

	runner := &fakeCheckoutRunner{err: services.ErrPaymentGateway}
	h := &Handlers{checkoutService: runner, logger: testLogger()}

	req := httptest.NewRequest(http.MethodPost, "/checkout",
		checkoutBody(t, "buyer@example.com", checkoutRequestItem{ProductID: uuid.New(), Quantity: 1}))
	rec := httptest.NewRecorder()

	h.Checkout(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadGateway)
	}
}
