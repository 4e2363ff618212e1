package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderStore struct {
	pool *pgxpool.Pool
}

var ErrInvalidStatusTransition = errors.New("invalid order status transition")

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create persists an order and its line-item snapshot in one transaction.
// A partially written line-item set is never visible to readers.
func (s *OrderStore) Create(ctx context.Context, order *Order, items []LineItem) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = StatusPending
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `
		INSERT INTO orders (id, email, total_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, order.ID, order.Email, order.TotalCents, order.Currency, string(order.Status))
	if err := row.Scan(&order.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].OrderID = order.ID
		_, err := tx.Exec(ctx, `
			INSERT INTO line_items (id, order_id, product_id, sku, title, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, items[i].ID, items[i].OrderID, items[i].ProductID, items[i].SKU, items[i].Title, items[i].Quantity, items[i].UnitPriceCents)
		if err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

const orderColumns = `
	id, email, total_cents, currency, status,
	stripe_session_id, stripe_payment_intent_id, fulfillment_id,
	tracking_number, carrier, shipping_address,
	created_at, paid_at, sent_to_supplier_at, accepted_at, shipped_at
`

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	return scanOrder(row)
}

func (s *OrderStore) GetByStripeSessionID(ctx context.Context, sessionID string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE stripe_session_id = $1`, sessionID)
	return scanOrder(row)
}

// GetByFulfillmentID looks an order up by the manufacturer's order id.
func (s *OrderStore) GetByFulfillmentID(ctx context.Context, fulfillmentID string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE fulfillment_id = $1`, fulfillmentID)
	return scanOrder(row)
}

func (s *OrderStore) GetLineItems(ctx context.Context, orderID uuid.UUID) ([]LineItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, product_id, sku, title, quantity, unit_price_cents
		FROM line_items
		WHERE order_id = $1
		ORDER BY sku
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.SKU, &item.Title, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SetStripeSession records the checkout session id. The session id is set at
// most once, while the order is still pending.
func (s *OrderStore) SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET stripe_session_id = $1
		WHERE id = $2 AND status = 'pending' AND stripe_session_id IS NULL
	`, sessionID, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected pending without session", ErrInvalidStatusTransition)
	}
	return nil
}

// MarkPaid advances pending -> paid. The update is conditioned on the current
// status so concurrent duplicate deliveries cannot both transition the order.
func (s *OrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string, shippingAddress map[string]any) error {
	var addressJSON []byte
	if shippingAddress != nil {
		var err error
		addressJSON, err = json.Marshal(shippingAddress)
		if err != nil {
			return err
		}
	}

	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, stripe_payment_intent_id = $2, shipping_address = $3, paid_at = NOW()
		WHERE id = $4 AND status = 'pending'
	`, StatusPaid, paymentIntentID, addressJSON, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected pending", ErrInvalidStatusTransition)
	}
	return nil
}

// MarkSentToSupplier advances paid -> sent_to_supplier. The fulfillment id is
// set at most once, when the forward succeeds.
func (s *OrderStore) MarkSentToSupplier(ctx context.Context, orderID uuid.UUID, fulfillmentID string) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, fulfillment_id = $2, sent_to_supplier_at = NOW()
		WHERE id = $3 AND status = 'paid' AND fulfillment_id IS NULL
	`, StatusSentToSupplier, fulfillmentID, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected paid without fulfillment id", ErrInvalidStatusTransition)
	}
	return nil
}

// MarkFulfillmentAccepted advances every matching order from sent_to_supplier
// to fulfillment_accepted. Returns the number of orders transitioned; zero is
// not an error, duplicate partner deliveries are expected.
func (s *OrderStore) MarkFulfillmentAccepted(ctx context.Context, fulfillmentID string) (int64, error) {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, accepted_at = NOW()
		WHERE fulfillment_id = $2 AND status = 'sent_to_supplier'
	`, StatusFulfillmentAccepted, fulfillmentID)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// MarkShipped advances matching orders to shipped and records tracking.
func (s *OrderStore) MarkShipped(ctx context.Context, fulfillmentID, trackingNumber, carrier string) (int64, error) {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, tracking_number = $2, carrier = $3, shipped_at = NOW()
		WHERE fulfillment_id = $4 AND status IN ('sent_to_supplier', 'fulfillment_accepted')
	`, StatusShipped, trackingNumber, carrier, fulfillmentID)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// MarkExpired terminates a pending order whose checkout session expired.
func (s *OrderStore) MarkExpired(ctx context.Context, orderID uuid.UUID) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1
		WHERE id = $2 AND status = 'pending'
	`, StatusExpired, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected pending", ErrInvalidStatusTransition)
	}
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		order           Order
		status          string
		sessionID       pgtype.Text
		paymentIntentID pgtype.Text
		fulfillmentID   pgtype.Text
		trackingNumber  pgtype.Text
		carrier         pgtype.Text
		shippingAddress []byte
		paidAt          pgtype.Timestamptz
		sentAt          pgtype.Timestamptz
		acceptedAt      pgtype.Timestamptz
		shippedAt       pgtype.Timestamptz
	)

	err := row.Scan(
		&order.ID, &order.Email, &order.TotalCents, &order.Currency, &status,
		&sessionID, &paymentIntentID, &fulfillmentID,
		&trackingNumber, &carrier, &shippingAddress,
		&order.CreatedAt, &paidAt, &sentAt, &acceptedAt, &shippedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = OrderStatus(status)
	if sessionID.Valid {
		order.StripeSessionID = sessionID.String
	}
	if paymentIntentID.Valid {
		order.StripePaymentIntentID = paymentIntentID.String
	}
	if fulfillmentID.Valid {
		order.FulfillmentID = fulfillmentID.String
	}
	if trackingNumber.Valid {
		order.TrackingNumber = trackingNumber.String
	}
	if carrier.Valid {
		order.Carrier = carrier.String
	}
	if paidAt.Valid {
		order.PaidAt = paidAt.Time
	}
	if sentAt.Valid {
		order.SentToSupplierAt = sentAt.Time
	}
	if acceptedAt.Valid {
		order.AcceptedAt = acceptedAt.Time
	}
	if shippedAt.Valid {
		order.ShippedAt = shippedAt.Time
	}

	if shippingAddress != nil {
		if err := json.Unmarshal(shippingAddress, &order.ShippingAddress); err != nil {
			return nil, err
		}
	}

	return &order, nil
}
