package readstore

import (
	"context"

	"culture-booking/internal/infra"
	"culture-booking/internal/infra/db"
	"culture-booking/internal/pkg/pgconv"
	"culture-booking/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgtype"
)

type PaymentReadStore struct {
	db db.DBTX
}

func NewPaymentReadStore(dbtx db.DBTX) *PaymentReadStore {
	return &PaymentReadStore{db: dbtx}
}

const paymentViewSQL = `
SELECT reference, booking_id, provider, amount_cents, currency,
       status, flagged, flag_reason, created_at, updated_at
FROM payment_records
WHERE reference = $1`

func (r *PaymentReadStore) FindByReference(ctx context.Context, reference string) (*queries.PaymentView, error) {
	row := r.db.QueryRow(ctx, paymentViewSQL, reference)
	view, err := scanPaymentView(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment record not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find payment record", err)
	}
	return view, nil
}

const flaggedPaymentsSQL = `
SELECT reference, booking_id, provider, amount_cents, currency,
       status, flagged, flag_reason, created_at, updated_at
FROM payment_records
WHERE flagged
ORDER BY updated_at DESC
LIMIT $1`

func (r *PaymentReadStore) ListFlagged(ctx context.Context, limit int32) ([]*queries.PaymentView, error) {
	rows, err := r.db.Query(ctx, flaggedPaymentsSQL, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list flagged payments", err)
	}
	defer rows.Close()

	var views []*queries.PaymentView
	for rows.Next() {
		view, err := scanPaymentView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan flagged payment", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate flagged payments", err)
	}
	return views, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaymentView(row rowScanner) (*queries.PaymentView, error) {
	var (
		view       queries.PaymentView
		flagReason pgtype.Text
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)

	err := row.Scan(
		&view.Reference, &view.BookingID, &view.Provider,
		&view.AmountCents, &view.Currency, &view.Status,
		&view.Flagged, &flagReason, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	view.FlagReason = pgconv.StringPtrFromPgtype(flagReason)
	view.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	view.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)
	return &view, nil
}
