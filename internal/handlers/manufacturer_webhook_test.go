package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/relaypressapp/relaypress/internal/config"
	"github.com/relaypressapp/relaypress/internal/db"
	"github.com/relaypressapp/relaypress/internal/fulfillment"
	"github.com/relaypressapp/relaypress/internal/services"
)

const manufacturerTestSecret = "mfr_test_secret"

type fakeSupplierStore struct {
	acceptedAffected int64
	shippedAffected  int64
	acceptedCalls    int
	shippedCalls     int
}

func (f *fakeSupplierStore) GetByFulfillmentID(context.Context, string) (*db.Order, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeSupplierStore) MarkFulfillmentAccepted(context.Context, string) (int64, error) {
	f.acceptedCalls++
	return f.acceptedAffected, nil
}

func (f *fakeSupplierStore) MarkShipped(context.Context, string, string, string) (int64, error) {
	f.shippedCalls++
	return f.shippedAffected, nil
}

func manufacturerWebhookHandlers(store *fakeSupplierStore, audit *fakeAuditLog) *Handlers {
	return &Handlers{
		config:     &config.Config{ManufacturerWebhookSecret: manufacturerTestSecret},
		eventStore: audit,
		manufacturerRouter: NewManufacturerEventRouter(
			services.NewSupplierService(store, nil, testLogger()), testLogger()),
		logger: testLogger(),
	}
}

func signedManufacturerRequest(payload []byte, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/manufacturer", bytes.NewReader(payload))
	req.Header.Set(fulfillment.SignatureHeader, fulfillment.Sign(payload, secret))
	return req
}

func TestManufacturerWebhook_RejectsInvalidSignature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		setSig func(r *http.Request, payload []byte)
	}{
		{
			name:   "missing signature",
			setSig: func(r *http.Request, payload []byte) {},
		},
		{
			name: "wrong secret",
			setSig: func(r *http.Request, payload []byte) {
				r.Header.Set(fulfillment.SignatureHeader, fulfillment.Sign(payload, "other_secret"))
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeSupplierStore{}
			audit := &fakeAuditLog{}
			h := manufacturerWebhookHandlers(store, audit)

			payload := []byte(`{"type":"fulfillment.accepted","fulfillment_id":"mfr_42"}`)
			req := httptest.NewRequest(http.MethodPost, "/webhooks/manufacturer", bytes.NewReader(payload))
			tc.setSig(req, payload)
			rec := httptest.NewRecorder()

			h.ManufacturerWebhook(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadRequest)
			}
			if store.acceptedCalls != 0 || len(audit.appended) != 0 {
				t.Fatal("rejected delivery must not touch state or audit")
			}
		})
	}
}

func TestManufacturerWebhook_AcceptedEvent(t *testing.T) {
	t.Parallel()

	store := &fakeSupplierStore{acceptedAffected: 1}
	audit := &fakeAuditLog{}
	h := manufacturerWebhookHandlers(store, audit)

	payload := []byte(`{"type":"fulfillment.accepted","fulfillment_id":"mfr_42"}`)
	rec := httptest.NewRecorder()

	h.ManufacturerWebhook(rec, signedManufacturerRequest(payload, manufacturerTestSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if store.acceptedCalls != 1 {
		t.Fatalf("accepted calls = %d, want 1", store.acceptedCalls)
	}
	if len(audit.appended) != 1 || audit.appended[0] != "manufacturer:fulfillment.accepted" {
		t.Fatalf("unexpected audit rows: %v", audit.appended)
	}
}

func TestManufacturerWebhook_OutOfOrderEventIsAcknowledged(t *testing.T) {
	t.Parallel()

	store := &fakeSupplierStore{acceptedAffected: 0}
	audit := &fakeAuditLog{}
	h := manufacturerWebhookHandlers(store, audit)

	payload := []byte(`{"type":"fulfillment.accepted","fulfillment_id":"mfr_shipped_already"}`)
	rec := httptest.NewRecorder()

	h.ManufacturerWebhook(rec, signedManufacturerRequest(payload, manufacturerTestSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if len(audit.appended) != 1 {
		t.Fatalf("audit rows = %d, want 1", len(audit.appended))
	}
}

func TestManufacturerWebhook_UnknownEventTypeIsAcknowledged(t *testing.T) {
	t.Parallel()

	store := &fakeSupplierStore{}
	audit := &fakeAuditLog{}
	h := manufacturerWebhookHandlers(store, audit)

	payload := []byte(`{"type":"fulfillment.paused","fulfillment_id":"mfr_42"}`)
	rec := httptest.NewRecorder()

	h.ManufacturerWebhook(rec, signedManufacturerRequest(payload, manufacturerTestSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if store.acceptedCalls != 0 || store.shippedCalls != 0 {
		t.Fatal("unknown event types must not transition orders")
	}
	if len(audit.appended) != 1 {
		t.Fatalf("audit rows = %d, want 1", len(audit.appended))
	}
}

func TestManufacturerWebhook_MalformedPayloadReturns400(t *testing.T) {
	t.Parallel()

	store := &fakeSupplierStore{}
	audit := &fakeAuditLog{}
	h := manufacturerWebhookHandlers(store, audit)

	payload := []byte(`{"type":"fulfillment.shipped","fulfillment_id":"mfr_42"}`)
	rec := httptest.NewRecorder()

	// Signed correctly but missing the tracking number a shipped event needs.
	h.ManufacturerWebhook(rec, signedManufacturerRequest(payload, manufacturerTestSecret))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
	if store.shippedCalls != 0 {
		t.Fatal("malformed events must not transition orders")
	}
}
