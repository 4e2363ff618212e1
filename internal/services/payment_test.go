package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/relaypressapp/relaypress/internal/db"
	"github.com/relaypressapp/relaypress/internal/fulfillment"
)

type fakePaymentOrderStore struct {
	order *db.Order
	items []db.LineItem

	markPaidErr error
	sentErr     error
	expiredErr  error

	paidCalls    int
	sentCalls    int
	expiredCalls int

	paidIntentID    string
	paidAddress     map[string]any
	sentFulfillment string
}

func (f *fakePaymentOrderStore) GetByID(_ context.Context, orderID uuid.UUID) (*db.Order, error) {
	if f.order == nil || f.order.ID != orderID {
		return nil, errors.New("order not found")
	}
	return f.order, nil
}

func (f *fakePaymentOrderStore) GetLineItems(_ context.Context, _ uuid.UUID) ([]db.LineItem, error) {
	return f.items, nil
}

func (f *fakePaymentOrderStore) MarkPaid(_ context.Context, _ uuid.UUID, paymentIntentID string, shippingAddress map[string]any) error {
	f.paidCalls++
	if f.markPaidErr != nil {
		return f.markPaidErr
	}
	f.paidIntentID = paymentIntentID
	f.paidAddress = shippingAddress
	f.order.Status = db.StatusPaid
	return nil
}

func (f *fakePaymentOrderStore) MarkSentToSupplier(_ context.Context, _ uuid.UUID, fulfillmentID string) error {
	f.sentCalls++
	if f.sentErr != nil {
		return f.sentErr
	}
	f.sentFulfillment = fulfillmentID
	f.order.Status = db.StatusSentToSupplier
	return nil
}

func (f *fakePaymentOrderStore) MarkExpired(_ context.Context, _ uuid.UUID) error {
	f.expiredCalls++
	if f.expiredErr != nil {
		return f.expiredErr
	}
	f.order.Status = db.StatusExpired
	return nil
}

type fakeFulfillmentSubmitter struct {
	request       fulfillment.SubmitOrderRequest
	fulfillmentID string
	err           error
	calls         int
}

func (f *fakeFulfillmentSubmitter) SubmitOrder(_ context.Context, req fulfillment.SubmitOrderRequest) (string, error) {
	f.calls++
	f.request = req
	if f.err != nil {
		return "", f.err
	}
	return f.fulfillmentID, nil
}

type recordingEmailSender struct {
	confirmations int
	shipments     int
	err           error
}

func (r *recordingEmailSender) SendOrderConfirmation(context.Context, *db.Order, []db.LineItem) error {
	r.confirmations++
	return r.err
}

func (r *recordingEmailSender) SendOrderShipped(context.Context, *db.Order) error {
	r.shipments++
	return r.err
}

func completedSessionPayload(t *testing.T, orderID uuid.UUID) []byte {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"id":             "cs_test_abc",
		"metadata":       map[string]string{"order_id": orderID.String()},
		"payment_intent": map[string]any{"id": "pi_test_abc"},
		"shipping_details": map[string]any{
			"name": "Ada Lovelace",
			"address": map[string]any{
				"line1":       "12 Analytical Way",
				"city":        "London",
				"postal_code": "N1 7AA",
				"country":     "GB",
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func paidTestOrder(orderID uuid.UUID) (*db.Order, []db.LineItem) {
	order := &db.Order{
		ID:         orderID,
		Email:      "buyer@example.com",
		TotalCents: 1500,
		Currency:   "usd",
		Status:     db.StatusPending,
	}
	items := []db.LineItem{
		{OrderID: orderID, SKU: "MUG_CLASSIC", Title: "Classic Mug", Quantity: 1, UnitPriceCents: 1500},
	}
	return order, items
}

func TestHandleCheckoutSessionCompleted_ForwardsOrder(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	order, items := paidTestOrder(orderID)
	store := &fakePaymentOrderStore{order: order, items: items}
	submitter := &fakeFulfillmentSubmitter{fulfillmentID: "mfr_42"}
	emails := &recordingEmailSender{}

	svc := NewPaymentService(store, submitter, emails, testLogger())

	err := svc.HandleCheckoutSessionCompleted(context.Background(), completedSessionPayload(t, orderID))
	if err != nil {
		t.Fatalf("HandleCheckoutSessionCompleted() error = %v", err)
	}

	if store.paidIntentID != "pi_test_abc" {
		t.Fatalf("payment intent = %q, want pi_test_abc", store.paidIntentID)
	}
	if store.paidAddress["city"] != "London" {
		t.Fatalf("shipping address city = %v, want London", store.paidAddress["city"])
	}
	if store.sentFulfillment != "mfr_42" {
		t.Fatalf("fulfillment id = %q, want mfr_42", store.sentFulfillment)
	}
	if order.Status != db.StatusSentToSupplier {
		t.Fatalf("order status = %q, want %q", order.Status, db.StatusSentToSupplier)
	}
	if submitter.request.ShippingAddress.Name != "Ada Lovelace" {
		t.Fatalf("submitted name = %q", submitter.request.ShippingAddress.Name)
	}
	if len(submitter.request.Items) != 1 || submitter.request.Items[0].SKU != "MUG_CLASSIC" {
		t.Fatalf("submitted items = %+v", submitter.request.Items)
	}
	if emails.confirmations != 1 {
		t.Fatalf("confirmations sent = %d, want 1", emails.confirmations)
	}
}

func TestHandleCheckoutSessionCompleted_DuplicateDeliveryIsNoOp(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	order, items := paidTestOrder(orderID)
	order.Status = db.StatusSentToSupplier
	store := &fakePaymentOrderStore{
		order:       order,
		items:       items,
		markPaidErr: fmt.Errorf("%w: expected pending", db.ErrInvalidStatusTransition),
	}
	submitter := &fakeFulfillmentSubmitter{fulfillmentID: "mfr_42"}

	svc := NewPaymentService(store, submitter, nil, testLogger())

	err := svc.HandleCheckoutSessionCompleted(context.Background(), completedSessionPayload(t, orderID))
	if err != nil {
		t.Fatalf("HandleCheckoutSessionCompleted() error = %v, want nil for duplicate", err)
	}
	if submitter.calls != 0 {
		t.Fatalf("submitter called %d times, want 0", submitter.calls)
	}
	if order.Status != db.StatusSentToSupplier {
		t.Fatalf("order status changed to %q", order.Status)
	}
}

func TestHandleCheckoutSessionCompleted_SubmitFailureKeepsOrderPaid(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	order, items := paidTestOrder(orderID)
	store := &fakePaymentOrderStore{order: order, items: items}
	submitter := &fakeFulfillmentSubmitter{err: errors.New("manufacturer unreachable")}

	svc := NewPaymentService(store, submitter, nil, testLogger())

	err := svc.HandleCheckoutSessionCompleted(context.Background(), completedSessionPayload(t, orderID))
	if err != nil {
		t.Fatalf("HandleCheckoutSessionCompleted() error = %v, want nil so the event is acknowledged", err)
	}
	if order.Status != db.StatusPaid {
		t.Fatalf("order status = %q, want %q", order.Status, db.StatusPaid)
	}
	if store.sentCalls != 0 {
		t.Fatalf("MarkSentToSupplier called %d times, want 0", store.sentCalls)
	}
}

func TestHandleCheckoutSessionCompleted_IgnoresUncorrelatedSessions(t *testing.T) {
	t.Parallel()

	store := &fakePaymentOrderStore{}
	submitter := &fakeFulfillmentSubmitter{}
	svc := NewPaymentService(store, submitter, nil, testLogger())

	payload, err := json.Marshal(map[string]any{"id": "cs_test_orphan"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	if err := svc.HandleCheckoutSessionCompleted(context.Background(), payload); err != nil {
		t.Fatalf("HandleCheckoutSessionCompleted() error = %v", err)
	}
	if store.paidCalls != 0 || submitter.calls != 0 {
		t.Fatal("uncorrelated sessions must not touch orders")
	}
}

func TestHandleCheckoutSessionCompleted_RejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	svc := NewPaymentService(&fakePaymentOrderStore{}, &fakeFulfillmentSubmitter{}, nil, testLogger())

	if err := svc.HandleCheckoutSessionCompleted(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if err := svc.HandleCheckoutSessionCompleted(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected error for missing session id")
	}
}

func TestHandleCheckoutSessionExpired(t *testing.T) {
	t.Parallel()

	t.Run("expires pending order", func(t *testing.T) {
		t.Parallel()

		orderID := uuid.New()
		order, _ := paidTestOrder(orderID)
		store := &fakePaymentOrderStore{order: order}
		svc := NewPaymentService(store, &fakeFulfillmentSubmitter{}, nil, testLogger())

		payload, _ := json.Marshal(map[string]any{
			"id":       "cs_test_expired",
			"metadata": map[string]string{"order_id": orderID.String()},
		})
		if err := svc.HandleCheckoutSessionExpired(context.Background(), payload); err != nil {
			t.Fatalf("HandleCheckoutSessionExpired() error = %v", err)
		}
		if order.Status != db.StatusExpired {
			t.Fatalf("order status = %q, want %q", order.Status, db.StatusExpired)
		}
	})

	t.Run("paid order is untouched", func(t *testing.T) {
		t.Parallel()

		orderID := uuid.New()
		order, _ := paidTestOrder(orderID)
		order.Status = db.StatusPaid
		store := &fakePaymentOrderStore{
			order:      order,
			expiredErr: fmt.Errorf("%w: expected pending", db.ErrInvalidStatusTransition),
		}
		svc := NewPaymentService(store, &fakeFulfillmentSubmitter{}, nil, testLogger())

		payload, _ := json.Marshal(map[string]any{
			"id":       "cs_test_expired",
			"metadata": map[string]string{"order_id": orderID.String()},
		})
		if err := svc.HandleCheckoutSessionExpired(context.Background(), payload); err != nil {
			t.Fatalf("HandleCheckoutSessionExpired() error = %v, want nil", err)
		}
		if order.Status != db.StatusPaid {
			t.Fatalf("order status = %q, want %q", order.Status, db.StatusPaid)
		}
	})
}
