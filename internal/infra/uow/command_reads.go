package uow

import (
	"context"
	"time"

	"culture-booking/internal/domain/booking"
	"culture-booking/internal/domain/inventory"
	"culture-booking/internal/domain/payment"
	"culture-booking/internal/infra"
	"culture-booking/internal/infra/db"
	"culture-booking/internal/pkg/pgconv"
	"culture-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// commandReads serves the write side's own reads. Unlike the read
// stores it returns minimal snapshots and, inside Within, sees the
// transaction's uncommitted writes.
type commandReads struct {
	dbtx db.DBTX
}

const unitByIDSQL = `
SELECT id, kind, name, starts_at, price_cents, currency, total_capacity, consumed, active
FROM inventory_units
WHERE id = $1`

func (c *commandReads) UnitByID(ctx context.Context, id uuid.UUID) (*shared.UnitSnapshot, error) {
	var (
		snap     shared.UnitSnapshot
		kind     string
		startsAt pgtype.Timestamptz
		capacity pgtype.Int4
	)
	row := c.dbtx.QueryRow(ctx, unitByIDSQL, id)
	err := row.Scan(&snap.ID, &kind, &snap.Name, &startsAt, &snap.PriceCents,
		&snap.Currency, &capacity, &snap.Consumed, &snap.Active)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("inventory unit not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get inventory unit", err)
	}
	snap.Kind = inventory.Kind(kind)
	snap.StartsAt = pgconv.TimeFromPgtype(startsAt)
	snap.TotalCapacity = pgconv.Int32PtrFromPgtype(capacity)
	return &snap, nil
}

const bookingByIDSQL = `
SELECT b.id, b.unit_id, u.kind, b.customer_name, b.customer_email, b.quantity,
       b.amount_cents, b.currency, b.status, b.payment_status,
       b.ticket_id, b.qr_payload, b.capacity_released, b.created_at
FROM bookings b
JOIN inventory_units u ON u.id = b.unit_id
WHERE b.id = $1`

func (c *commandReads) BookingByID(ctx context.Context, id uuid.UUID) (*shared.BookingSnapshot, error) {
	var (
		snap          shared.BookingSnapshot
		unitKind      string
		status        string
		paymentStatus string
		ticketID      pgtype.Text
		qrPayload     pgtype.Text
		createdAt     pgtype.Timestamptz
	)
	row := c.dbtx.QueryRow(ctx, bookingByIDSQL, id)
	err := row.Scan(&snap.ID, &snap.UnitID, &unitKind, &snap.CustomerName, &snap.CustomerEmail,
		&snap.Quantity, &snap.AmountCents, &snap.Currency, &status, &paymentStatus,
		&ticketID, &qrPayload, &snap.CapacityReleased, &createdAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get booking", err)
	}
	snap.UnitKind = inventory.Kind(unitKind)
	snap.Status = booking.Status(status)
	snap.PaymentStatus = booking.PaymentStatus(paymentStatus)
	snap.TicketID = pgconv.StringPtrFromPgtype(ticketID)
	snap.QRPayload = pgconv.StringPtrFromPgtype(qrPayload)
	snap.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	return &snap, nil
}

const paymentByReferenceSQL = `
SELECT reference, booking_id, provider, amount_cents, currency, status, flagged
FROM payment_records
WHERE reference = $1`

func (c *commandReads) PaymentByReference(ctx context.Context, reference string) (*shared.PaymentSnapshot, error) {
	var (
		snap   shared.PaymentSnapshot
		status string
	)
	row := c.dbtx.QueryRow(ctx, paymentByReferenceSQL, reference)
	err := row.Scan(&snap.Reference, &snap.BookingID, &snap.Provider,
		&snap.AmountCents, &snap.Currency, &status, &snap.Flagged)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment record not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get payment record", err)
	}
	snap.Status = payment.Status(status)
	return &snap, nil
}

const paymentByBookingIDSQL = `
SELECT reference, booking_id, provider, amount_cents, currency, status, flagged
FROM payment_records
WHERE booking_id = $1`

func (c *commandReads) PaymentByBookingID(ctx context.Context, bookingID uuid.UUID) (*shared.PaymentSnapshot, error) {
	var (
		snap   shared.PaymentSnapshot
		status string
	)
	row := c.dbtx.QueryRow(ctx, paymentByBookingIDSQL, bookingID)
	err := row.Scan(&snap.Reference, &snap.BookingID, &snap.Provider,
		&snap.AmountCents, &snap.Currency, &status, &snap.Flagged)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment record not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get payment record", err)
	}
	snap.Status = payment.Status(status)
	return &snap, nil
}

const idempotencyByKeySQL = `
SELECT key, customer_email, status, request_hash, result_booking_id, expires_at
FROM idempotency_keys
WHERE key = $1 AND customer_email = $2`

func (c *commandReads) IdempotencyByKey(ctx context.Context, key uuid.UUID, email string) (*shared.IdempotencyRecord, error) {
	var (
		rec       shared.IdempotencyRecord
		bookingID pgtype.UUID
		expiresAt pgtype.Timestamptz
	)
	row := c.dbtx.QueryRow(ctx, idempotencyByKeySQL, key, email)
	err := row.Scan(&rec.Key, &rec.CustomerEmail, &rec.Status, &rec.RequestHash, &bookingID, &expiresAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("idempotency key not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get idempotency key", err)
	}
	rec.ResultBookingID = pgconv.UUIDPtrFromPgtype(bookingID)
	rec.ExpiresAt = pgconv.TimeFromPgtype(expiresAt)
	return &rec, nil
}

const expiredPendingBookingsSQL = `
SELECT id FROM bookings
WHERE status = 'pending_payment' AND created_at < $1
ORDER BY created_at
LIMIT $2`

func (c *commandReads) ExpiredPendingBookings(ctx context.Context, cutoff time.Time, limit int32) ([]uuid.UUID, error) {
	rows, err := c.dbtx.Query(ctx, expiredPendingBookingsSQL, cutoff, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list expired pending bookings", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, infra.WrapRepoErr("failed to scan booking id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate expired pending bookings", err)
	}
	return ids, nil
}
