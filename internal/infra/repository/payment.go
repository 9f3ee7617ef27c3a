package repository

import (
	"context"

	"culture-booking/internal/domain/payment"
	"culture-booking/internal/infra/db"
)

type PaymentRepository struct {
	db db.DBTX
}

func NewPaymentRepository(dbtx db.DBTX) *PaymentRepository {
	return &PaymentRepository{db: dbtx}
}

const createPaymentSQL = `
INSERT INTO payment_records (
	reference, booking_id, provider, amount_cents, currency, status
) VALUES ($1, $2, $3, $4, $5, $6)`

func (r *PaymentRepository) Create(ctx context.Context, rec *payment.Record) error {
	_, err := r.db.Exec(ctx, createPaymentSQL,
		rec.Reference(),
		rec.BookingID(),
		rec.Provider(),
		rec.Amount().Cents(),
		rec.Amount().Currency(),
		rec.Status().String(),
	)
	if err != nil {
		return wrapWriteErr("failed to create payment record", err)
	}
	return nil
}

const resolvePendingSQL = `
UPDATE payment_records
SET status = $2,
    provider_ref = COALESCE($3, provider_ref),
    raw_payload = COALESCE($4, raw_payload),
    updated_at = now()
WHERE reference = $1 AND status = 'pending'`

// ResolvePending applies a terminal status only to a still-pending
// record. When two reconciliation calls race, exactly one matches the
// WHERE clause; the loser gets false and re-reads the terminal state.
func (r *PaymentRepository) ResolvePending(ctx context.Context, reference string, status payment.Status, providerRef *string, rawPayload []byte) (bool, error) {
	tag, err := r.db.Exec(ctx, resolvePendingSQL, reference, status.String(), providerRef, rawPayload)
	if err != nil {
		return false, wrapWriteErr("failed to resolve payment record", err)
	}
	return tag.RowsAffected() == 1, nil
}

const flagPaymentSQL = `
UPDATE payment_records
SET flagged = true, flag_reason = $2,
    raw_payload = COALESCE($3, raw_payload),
    updated_at = now()
WHERE reference = $1`

func (r *PaymentRepository) Flag(ctx context.Context, reference, reason string, rawPayload []byte) error {
	_, err := r.db.Exec(ctx, flagPaymentSQL, reference, reason, rawPayload)
	if err != nil {
		return wrapWriteErr("failed to flag payment record", err)
	}
	return nil
}
