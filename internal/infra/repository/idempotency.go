package repository

import (
	"context"
	"time"

	"culture-booking/internal/infra/db"

	"github.com/google/uuid"
)

// IdempotencyRepository backs the Idempotency-Key contract on booking
// creation: first writer inserts the processing row, replays read the
// recorded result instead of reserving capacity twice.
type IdempotencyRepository struct {
	db db.DBTX
}

func NewIdempotencyRepository(dbtx db.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: dbtx}
}

const tryInsertIdempotencySQL = `
INSERT INTO idempotency_keys (key, customer_email, endpoint, request_hash, status, expires_at)
VALUES ($1, $2, $3, $4, 'processing', $5)
ON CONFLICT (key, customer_email) DO NOTHING`

// TryInsert claims the key for this request. inserted=false means an
// earlier request with the same key and email already holds it; a
// concurrent first writer blocks this insert until it commits, so the
// loser always observes the winner's row.
func (r *IdempotencyRepository) TryInsert(ctx context.Context, key uuid.UUID, email, endpoint, requestHash string, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, tryInsertIdempotencySQL, key, email, endpoint, requestHash, expiresAt)
	if err != nil {
		return false, wrapWriteErr("failed to try insert idempotency key", err)
	}
	return tag.RowsAffected() == 1, nil
}

const completeIdempotencySQL = `
UPDATE idempotency_keys
SET status = 'completed', response_body_hash = $3, result_booking_id = $4
WHERE key = $1 AND customer_email = $2`

func (r *IdempotencyRepository) UpdateStatusCompleted(ctx context.Context, key uuid.UUID, email, responseBodyHash string, resultBookingID uuid.UUID) error {
	_, err := r.db.Exec(ctx, completeIdempotencySQL, key, email, responseBodyHash, resultBookingID)
	if err != nil {
		return wrapWriteErr("failed to update idempotency key status", err)
	}
	return nil
}

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at < now()`)
	if err != nil {
		return 0, wrapWriteErr("failed to delete expired idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}
