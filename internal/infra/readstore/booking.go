package readstore

import (
	"context"

	"culture-booking/internal/domain/inventory"
	"culture-booking/internal/infra"
	"culture-booking/internal/infra/db"
	"culture-booking/internal/pkg/pgconv"
	"culture-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type BookingReadStore struct {
	db db.DBTX
}

func NewBookingReadStore(dbtx db.DBTX) *BookingReadStore {
	return &BookingReadStore{db: dbtx}
}

const bookingViewSQL = `
SELECT b.id, b.unit_id, u.name, u.kind, u.starts_at,
       b.customer_name, b.customer_email, b.quantity,
       b.amount_cents, b.currency, b.status, b.payment_status,
       b.ticket_id, b.qr_payload, p.reference,
       b.created_at, b.updated_at
FROM bookings b
JOIN inventory_units u ON u.id = b.unit_id
LEFT JOIN payment_records p ON p.booking_id = b.id
WHERE b.id = $1`

func (r *BookingReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	var (
		view      queries.BookingView
		kind      string
		ticketID  pgtype.Text
		qrPayload pgtype.Text
		reference pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	row := r.db.QueryRow(ctx, bookingViewSQL, id)
	err := row.Scan(
		&view.ID, &view.UnitID, &view.UnitName, &kind, &view.StartsAt,
		&view.CustomerName, &view.CustomerEmail, &view.Quantity,
		&view.AmountCents, &view.Currency, &view.Status, &view.PaymentStatus,
		&ticketID, &qrPayload, &reference,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking by ID", err)
	}

	view.UnitKind = inventory.Kind(kind)
	view.TicketID = pgconv.StringPtrFromPgtype(ticketID)
	view.QRPayload = pgconv.StringPtrFromPgtype(qrPayload)
	view.Reference = pgconv.StringPtrFromPgtype(reference)
	view.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	view.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)
	return &view, nil
}

const ticketViewSQL = `
SELECT b.ticket_id, b.id, u.name, u.kind, u.starts_at,
       b.customer_name, b.quantity, b.status
FROM bookings b
JOIN inventory_units u ON u.id = b.unit_id
WHERE b.ticket_id = $1`

func (r *BookingReadStore) FindByTicketID(ctx context.Context, ticketID string) (*queries.TicketView, error) {
	var (
		view queries.TicketView
		kind string
	)

	row := r.db.QueryRow(ctx, ticketViewSQL, ticketID)
	err := row.Scan(
		&view.TicketID, &view.BookingID, &view.UnitName, &kind, &view.StartsAt,
		&view.CustomerName, &view.Quantity, &view.Status,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("ticket not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find ticket", err)
	}

	view.UnitKind = inventory.Kind(kind)
	return &view, nil
}
