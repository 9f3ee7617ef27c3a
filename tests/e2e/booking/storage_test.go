//go:build e2e

package booking_test

import (
	"context"

	"culture-booking/internal/infra"
	"culture-booking/internal/infra/repository"
	"culture-booking/tests/common/dbtest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// Schema-level guards exercised against the real database, below the
// HTTP surface.
func (s *BookingSuite) TestStorageGuards() {
	s.Run("Normal case: ticket collision leaves the transaction usable", func() {
		t := s.T()
		ctx := context.Background()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Collision Venue", capacity(10))
		first := s.createBooking(t, unitID, "col-one@example.com", 1)
		second := s.createBooking(t, unitID, "col-two@example.com", 1)

		const ticketID = "EVT-20260830-AAAABBBB"

		tx, err := s.DB.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		repo := repository.NewBookingRepository(tx)

		confirmed, err := repo.ConfirmWithTicket(ctx, first.BookingID, ticketID, "qr-one")
		require.NoError(t, err)
		require.True(t, confirmed)

		// Same identifier again: the unique index rejects it, and the
		// savepoint confines the abort so the same transaction can
		// retry with a fresh one.
		_, err = repo.ConfirmWithTicket(ctx, second.BookingID, ticketID, "qr-two")
		require.Error(t, err)
		require.True(t, infra.IsKind(err, infra.KindDuplicateKey),
			"collision must surface as a duplicate-key error, got %v", err)

		confirmed, err = repo.ConfirmWithTicket(ctx, second.BookingID, "EVT-20260830-CCCCDDDD", "qr-two")
		require.NoError(t, err, "transaction must survive the collision")
		require.True(t, confirmed)

		require.NoError(t, tx.Commit(ctx))

		view := s.getBooking(t, second.BookingID)
		require.Equal(t, "confirmed", view.Status)
	})

	s.Run("Error case: second payment record per booking is rejected", func() {
		t := s.T()
		ctx := context.Background()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Single Record", capacity(10))
		created := s.createBooking(t, unitID, "one-record@example.com", 1)

		_, err := s.DB.Exec(ctx, `
			INSERT INTO payment_records (reference, booking_id, provider, amount_cents, currency, status)
			VALUES ($1, $2, 'paystack', $3, 'NGN', 'pending')`,
			created.Reference+"-retry", created.BookingID, created.AmountCents)

		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		require.Equal(t, "23505", pgErr.Code, "booking_id must be unique across payment records")
	})
}
