package fulfillment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSubmitOrder(t *testing.T) {
	t.Parallel()

	var gotPath, gotAPIKey string
	var gotBody SubmitOrderRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("X-API-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"F1"}`))
	}))
	defer server.Close()

	client := NewClient("mk_test", server.URL)
	fulfillmentID, err := client.SubmitOrder(context.Background(), SubmitOrderRequest{
		OrderID: "order-1",
		Email:   "buyer@example.com",
		Items:   []OrderItem{{SKU: "TEE_BLACK", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fulfillmentID != "F1" {
		t.Errorf("fulfillment id = %q, want %q", fulfillmentID, "F1")
	}
	if gotPath != "/v1/orders" {
		t.Errorf("path = %q, want /v1/orders", gotPath)
	}
	if gotAPIKey != "mk_test" {
		t.Errorf("api key header = %q, want mk_test", gotAPIKey)
	}
	if len(gotBody.Items) != 1 || gotBody.Items[0].SKU != "TEE_BLACK" {
		t.Errorf("unexpected submitted items: %+v", gotBody.Items)
	}
}

func TestSubmitOrder_APIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of stock", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("mk_test", server.URL)
	_, err := client.SubmitOrder(context.Background(), SubmitOrderRequest{
		OrderID: "order-1",
		Items:   []OrderItem{{SKU: "TEE_BLACK", Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestSubmitOrder_MissingID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("mk_test", server.URL)
	_, err := client.SubmitOrder(context.Background(), SubmitOrderRequest{
		OrderID: "order-1",
		Items:   []OrderItem{{SKU: "TEE_BLACK", Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected error when response has no fulfillment id")
	}
}

func TestSubmitOrder_EmptyItems(t *testing.T) {
	t.Parallel()

	client := NewClient("mk_test", "http://localhost:0")
	if _, err := client.SubmitOrder(context.Background(), SubmitOrderRequest{OrderID: "order-1"}); err == nil {
		t.Fatal("expected error for empty item list")
	}
}
