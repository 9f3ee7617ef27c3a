package repository

import (
	"context"

	"culture-booking/internal/domain/booking"
	"culture-booking/internal/infra"
	"culture-booking/internal/infra/db"
	"culture-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
)

type BookingRepository struct {
	db db.DBTX
}

func NewBookingRepository(dbtx db.DBTX) *BookingRepository {
	return &BookingRepository{db: dbtx}
}

const createBookingSQL = `
INSERT INTO bookings (
	id, unit_id, customer_name, customer_email, quantity,
	amount_cents, currency, status, payment_status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) (uuid.UUID, error) {
	var id uuid.UUID
	row := r.db.QueryRow(ctx, createBookingSQL,
		b.ID(),
		b.UnitID(),
		b.Contact().Name(),
		b.Contact().Email(),
		b.Quantity(),
		b.Total().Cents(),
		b.Total().Currency(),
		b.Status().String(),
		b.PaymentStatus().String(),
	)
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, wrapWriteErr("failed to create booking", err)
	}
	return id, nil
}

const confirmWithTicketSQL = `
UPDATE bookings
SET status = 'confirmed', payment_status = 'success',
    ticket_id = $2, qr_payload = $3, updated_at = now()
WHERE id = $1 AND status = 'pending_payment' AND ticket_id IS NULL`

// ConfirmWithTicket is the exactly-once issuance guard: the confirm and
// the ticket check-and-set happen in one conditional UPDATE, so a
// duplicate trigger (client verify racing a webhook) matches zero rows
// instead of minting a second ticket. The UPDATE runs under a savepoint
// because a ticket_id unique violation would otherwise abort the
// surrounding transaction; the savepoint confines the abort so the
// violation surfaces as KindDuplicateKey and the caller can retry with
// a fresh identifier in the same transaction. Must run inside a
// transaction.
func (r *BookingRepository) ConfirmWithTicket(ctx context.Context, id uuid.UUID, ticketID, qrPayload string) (bool, error) {
	if _, err := r.db.Exec(ctx, "SAVEPOINT confirm_ticket"); err != nil {
		return false, wrapWriteErr("failed to open ticket savepoint", err)
	}
	tag, err := r.db.Exec(ctx, confirmWithTicketSQL, id, ticketID, qrPayload)
	if err != nil {
		if isUniqueViolation(err) {
			if _, rbErr := r.db.Exec(ctx, "ROLLBACK TO SAVEPOINT confirm_ticket"); rbErr != nil {
				return false, wrapWriteErr("failed to roll back ticket savepoint", rbErr)
			}
		}
		return false, wrapWriteErr("failed to confirm booking", err)
	}
	if _, err := r.db.Exec(ctx, "RELEASE SAVEPOINT confirm_ticket"); err != nil {
		return false, wrapWriteErr("failed to release ticket savepoint", err)
	}
	return tag.RowsAffected() == 1, nil
}

const markTerminalSQL = `
UPDATE bookings
SET status = $2, payment_status = 'failed', updated_at = now()
WHERE id = $1 AND status = 'pending_payment'`

func (r *BookingRepository) MarkTerminal(ctx context.Context, id uuid.UUID, status booking.Status) (bool, error) {
	if status != booking.StatusCancelled && status != booking.StatusExpired {
		return false, infra.WrapRepoErr("status is not terminal", nil, infra.KindConflict)
	}

	tag, err := r.db.Exec(ctx, markTerminalSQL, id, status.String())
	if err != nil {
		return false, wrapWriteErr("failed to mark booking terminal", err)
	}
	return tag.RowsAffected() == 1, nil
}

const claimReleaseSQL = `
UPDATE bookings
SET capacity_released = true, updated_at = now()
WHERE id = $1 AND capacity_released = false
RETURNING unit_id, quantity`

// ClaimCapacityRelease wins the one-shot release claim. The second
// caller for the same booking sees claimed=false and must not decrement
// the ledger again.
func (r *BookingRepository) ClaimCapacityRelease(ctx context.Context, id uuid.UUID) (uuid.UUID, int32, bool, error) {
	var (
		unitID   uuid.UUID
		quantity int32
	)
	row := r.db.QueryRow(ctx, claimReleaseSQL, id)
	if err := row.Scan(&unitID, &quantity); err != nil {
		if pgconv.IsNoRows(err) {
			return uuid.Nil, 0, false, nil
		}
		return uuid.Nil, 0, false, wrapWriteErr("failed to claim capacity release", err)
	}
	return unitID, quantity, true, nil
}
