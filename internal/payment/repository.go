package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type Repository interface {
	SavePayment(ctx context.Context, p *Payment) error
	UpdatePaymentStatus(ctx context.Context, orderID, status string) error
	SavePaymentWebhook(
		ctx context.Context,
		provider string,
		eventID string,
		eventType string,
		externalID string,
		payload json.RawMessage,
	) (webhookID int64, isDuplicate bool, err error)
	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SavePayment(ctx context.Context, p *Payment) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payments (order_id, session_id, amount, currency, status, provider)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`,
		p.OrderID, p.SessionID, p.Amount, p.Currency, p.Status, ProviderStripe,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// UpdatePaymentStatus is a no-op for orders that never reached the gateway.
func (r *repository) UpdatePaymentStatus(ctx context.Context, orderID, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = NOW() WHERE order_id = $2
	`, status, orderID)
	return err
}

func (r *repository) SavePaymentWebhook(
	ctx context.Context,
	provider string,
	eventID string,
	eventType string,
	externalID string,
	payload json.RawMessage,
) (int64, bool, error) {

	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event_id,
		event_type,
		external_id,
		payload
	)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (provider, event_id)
	DO NOTHING
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(ctx, q,
		provider,
		eventID,
		eventType,
		externalID,
		[]byte(payload),
	).Scan(&id)
	if err != nil {
		// conflict returns no row
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, err
	}

	return id, false, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	const q = `
	UPDATE payment_webhooks
	SET processed_at = NOW(), process_error = NULL
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID)
	return err
}

// MarkWebhookFailed records the reason and releases the event id so the
// provider's redelivery is processed again.
func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	const q = `
	UPDATE payment_webhooks
	SET process_error = $2, event_id = event_id || ':failed:' || id
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID, reason)
	return err
}
