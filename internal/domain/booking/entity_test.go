//go:build unit

package booking_test

import (
	"testing"

	"culture-booking/internal/domain/booking"
	"culture-booking/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBooking(t *testing.T) {
	t.Run("basic success case", func(t *testing.T) {
		actual, err := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, err)
		require.NotNil(t, actual)

		assert.NotEqual(t, uuid.Nil, actual.ID())
		assert.Equal(t, booking.StatusPendingPayment, actual.Status())
		assert.Equal(t, booking.PaymentPending, actual.PaymentStatus())
		assert.Nil(t, actual.TicketID())
		assert.Nil(t, actual.QRPayload())
		assert.False(t, actual.CapacityReleased())
		assert.True(t, actual.IsPending())
		assert.False(t, actual.IsTerminal())
	})

	t.Run("total is price times quantity", func(t *testing.T) {
		b := builder.NewBookingBuilder().WithQuantity(3)
		b.Unit.WithPrice(250000, "NGN")

		actual, err := b.BuildDomain()
		require.NoError(t, err)

		assert.Equal(t, int64(750000), actual.Total().Cents())
		assert.Equal(t, "NGN", actual.Total().Currency())
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		actual, err := builder.NewBookingBuilder().WithQuantity(0).BuildDomain()
		require.Nil(t, actual)
		require.ErrorIs(t, err, booking.ErrInvalidQuantity)
	})

	t.Run("negative quantity rejected", func(t *testing.T) {
		actual, err := builder.NewBookingBuilder().WithQuantity(-1).BuildDomain()
		require.Nil(t, actual)
		require.ErrorIs(t, err, booking.ErrInvalidQuantity)
	})
}

func TestBookingTransitions(t *testing.T) {
	newPending := func(t *testing.T) *booking.Booking {
		t.Helper()
		b, err := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, err)
		return b
	}

	t.Run("confirm sets ticket exactly once", func(t *testing.T) {
		b := newPending(t)

		require.NoError(t, b.Confirm("EVT-20260101-ABCDEFGH", "qr"))
		assert.Equal(t, booking.StatusConfirmed, b.Status())
		assert.Equal(t, booking.PaymentSuccess, b.PaymentStatus())
		require.NotNil(t, b.TicketID())
		assert.Equal(t, "EVT-20260101-ABCDEFGH", *b.TicketID())

		// terminal states never transition again
		assert.ErrorIs(t, b.Confirm("EVT-20260101-ZZZZZZZZ", "qr2"), booking.ErrInvalidTransition)
		assert.Equal(t, "EVT-20260101-ABCDEFGH", *b.TicketID())
	})

	t.Run("confirm requires both ticket and QR payload", func(t *testing.T) {
		b := newPending(t)
		assert.ErrorIs(t, b.Confirm("", "qr"), booking.ErrTicketIncomplete)
		assert.ErrorIs(t, b.Confirm("EVT-20260101-ABCDEFGH", ""), booking.ErrTicketIncomplete)
		assert.True(t, b.IsPending())
	})

	t.Run("cancel from pending", func(t *testing.T) {
		b := newPending(t)

		require.NoError(t, b.Cancel())
		assert.Equal(t, booking.StatusCancelled, b.Status())
		assert.Equal(t, booking.PaymentFailed, b.PaymentStatus())
		assert.True(t, b.IsTerminal())
	})

	t.Run("expire from pending", func(t *testing.T) {
		b := newPending(t)

		require.NoError(t, b.Expire())
		assert.Equal(t, booking.StatusExpired, b.Status())
		assert.Equal(t, booking.PaymentFailed, b.PaymentStatus())
	})

	t.Run("terminal states are immutable", func(t *testing.T) {
		cases := []struct {
			name      string
			terminate func(*booking.Booking) error
		}{
			{"cancelled", func(b *booking.Booking) error { return b.Cancel() }},
			{"expired", func(b *booking.Booking) error { return b.Expire() }},
			{"confirmed", func(b *booking.Booking) error { return b.Confirm("TKT-20260101-AAAAAAAA", "qr") }},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				b := newPending(t)
				require.NoError(t, tc.terminate(b))

				assert.ErrorIs(t, b.Cancel(), booking.ErrInvalidTransition)
				assert.ErrorIs(t, b.Expire(), booking.ErrInvalidTransition)
				assert.ErrorIs(t, b.Confirm("TKT-20260101-BBBBBBBB", "qr"), booking.ErrInvalidTransition)
			})
		}
	})

	t.Run("capacity release claim is one-shot", func(t *testing.T) {
		b := newPending(t)
		require.NoError(t, b.Cancel())

		assert.True(t, b.ClaimCapacityRelease())
		assert.False(t, b.ClaimCapacityRelease())
		assert.True(t, b.CapacityReleased())
	})
}

func TestContact(t *testing.T) {
	cases := []struct {
		name  string
		cname string
		email string
		errIs error
	}{
		{name: "valid contact", cname: "Ada Obi", email: "ada@example.com"},
		{name: "email is lowercased", cname: "Ada Obi", email: "ADA@Example.COM"},
		{name: "empty name", cname: "", email: "ada@example.com", errIs: booking.ErrEmptyName},
		{name: "whitespace only name", cname: "   ", email: "ada@example.com", errIs: booking.ErrEmptyName},
		{name: "missing at sign", cname: "Ada", email: "ada.example.com", errIs: booking.ErrInvalidEmail},
		{name: "missing local part", cname: "Ada", email: "@example.com", errIs: booking.ErrInvalidEmail},
		{name: "missing domain", cname: "Ada", email: "ada@", errIs: booking.ErrInvalidEmail},
		{name: "domain without dot", cname: "Ada", email: "ada@example", errIs: booking.ErrInvalidEmail},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			contact, err := booking.NewContact(tc.cname, tc.email)
			if tc.errIs != nil {
				require.ErrorIs(t, err, tc.errIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ada@example.com", contact.Email())
		})
	}
}

func TestMoney(t *testing.T) {
	t.Run("valid money", func(t *testing.T) {
		m, err := booking.NewMoney(500000, "ngn")
		require.NoError(t, err)
		assert.Equal(t, int64(500000), m.Cents())
		assert.Equal(t, "NGN", m.Currency())
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		_, err := booking.NewMoney(-1, "NGN")
		require.Error(t, err)
	})

	t.Run("currency must be 3 letters", func(t *testing.T) {
		_, err := booking.NewMoney(100, "NAIRA")
		require.Error(t, err)
	})

	t.Run("equality compares amount and currency", func(t *testing.T) {
		a, _ := booking.NewMoney(100, "NGN")
		b, _ := booking.NewMoney(100, "NGN")
		c, _ := booking.NewMoney(100, "USD")
		d, _ := booking.NewMoney(200, "NGN")

		assert.True(t, a.Equals(b))
		assert.False(t, a.Equals(c))
		assert.False(t, a.Equals(d))
	})
}

func TestStatus(t *testing.T) {
	assert.False(t, booking.StatusPendingPayment.IsTerminal())
	assert.True(t, booking.StatusConfirmed.IsTerminal())
	assert.True(t, booking.StatusCancelled.IsTerminal())
	assert.True(t, booking.StatusExpired.IsTerminal())
	assert.False(t, booking.Status("unknown").IsValid())
}
