package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentEventStore appends to the webhook audit log. Rows are never updated
// or deleted, and duplicate deliveries append duplicate rows.
type PaymentEventStore struct {
	pool *pgxpool.Pool
}

func NewPaymentEventStore(pool *pgxpool.Pool) *PaymentEventStore {
	return &PaymentEventStore{pool: pool}
}

func (s *PaymentEventStore) Append(ctx context.Context, source, eventType string, payload []byte, orderID *uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payment_events (id, source, event_type, payload, order_id)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), source, eventType, payload, orderID)
	return err
}

func (s *PaymentEventStore) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, event_type, payload, order_id, created_at
		FROM payment_events
		WHERE order_id = $1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []PaymentEvent
	for rows.Next() {
		var e PaymentEvent
		if err := rows.Scan(&e.ID, &e.Source, &e.EventType, &e.Payload, &e.OrderID, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
