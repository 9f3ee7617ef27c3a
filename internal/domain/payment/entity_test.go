//go:build unit

package payment_test

import (
	"strings"
	"testing"
	"time"

	"culture-booking/internal/domain/booking"
	"culture-booking/internal/domain/payment"
	"culture-booking/tests/common/builder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	t.Run("basic success case", func(t *testing.T) {
		actual, err := builder.NewPaymentBuilder().BuildDomain()
		require.NoError(t, err)
		require.NotNil(t, actual)

		assert.Equal(t, payment.StatusPending, actual.Status())
		assert.False(t, actual.Flagged())
		assert.Nil(t, actual.FlagReason())
	})

	t.Run("empty reference rejected", func(t *testing.T) {
		actual, err := builder.NewPaymentBuilder().WithReference("").BuildDomain()
		require.Nil(t, actual)
		require.ErrorIs(t, err, payment.ErrEmptyReference)
	})

	t.Run("empty provider rejected", func(t *testing.T) {
		actual, err := builder.NewPaymentBuilder().WithProvider("").BuildDomain()
		require.Nil(t, actual)
		require.ErrorIs(t, err, payment.ErrEmptyProvider)
	})
}

func TestResolve(t *testing.T) {
	t.Run("pending resolves to success", func(t *testing.T) {
		rec, err := builder.NewPaymentBuilder().BuildDomain()
		require.NoError(t, err)

		require.NoError(t, rec.Resolve(payment.OutcomeSuccess))
		assert.Equal(t, payment.StatusSuccess, rec.Status())
	})

	t.Run("pending resolves to failed", func(t *testing.T) {
		rec, err := builder.NewPaymentBuilder().BuildDomain()
		require.NoError(t, err)

		require.NoError(t, rec.Resolve(payment.OutcomeFailed))
		assert.Equal(t, payment.StatusFailed, rec.Status())
	})

	t.Run("terminal record rejects further transitions", func(t *testing.T) {
		rec, err := builder.NewPaymentBuilder().BuildDomain()
		require.NoError(t, err)
		require.NoError(t, rec.Resolve(payment.OutcomeSuccess))

		// a late conflicting report must not overwrite the recorded outcome
		assert.ErrorIs(t, rec.Resolve(payment.OutcomeFailed), payment.ErrAlreadyTerminal)
		assert.Equal(t, payment.StatusSuccess, rec.Status())
	})
}

func TestFlag(t *testing.T) {
	rec, err := builder.NewPaymentBuilder().BuildDomain()
	require.NoError(t, err)
	require.NoError(t, rec.Resolve(payment.OutcomeSuccess))

	rec.Flag("amount mismatch")

	assert.True(t, rec.Flagged())
	require.NotNil(t, rec.FlagReason())
	assert.Equal(t, "amount mismatch", *rec.FlagReason())
	// flagging never touches the status
	assert.Equal(t, payment.StatusSuccess, rec.Status())
}

func TestMatchesAmount(t *testing.T) {
	rec, err := builder.NewPaymentBuilder().WithAmount(1000000, "NGN").BuildDomain()
	require.NoError(t, err)

	same, _ := booking.NewMoney(1000000, "NGN")
	lower, _ := booking.NewMoney(999999, "NGN")
	otherCurrency, _ := booking.NewMoney(1000000, "USD")

	assert.True(t, rec.MatchesAmount(same))
	assert.False(t, rec.MatchesAmount(lower))
	assert.False(t, rec.MatchesAmount(otherCurrency))
}

func TestStatusTerminality(t *testing.T) {
	assert.False(t, payment.StatusPending.IsTerminal())
	assert.True(t, payment.StatusSuccess.IsTerminal())
	assert.True(t, payment.StatusFailed.IsTerminal())
	assert.True(t, payment.StatusRefunded.IsTerminal())
}

func TestNewReference(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	ref, err := payment.NewReference(now)
	require.NoError(t, err)

	parts := strings.Split(ref, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "CBK", parts[0])
	assert.Equal(t, "20260315T103000", parts[1])
	assert.NotEmpty(t, parts[2])

	other, err := payment.NewReference(now)
	require.NoError(t, err)
	assert.NotEqual(t, ref, other, "references minted at the same instant must differ")
}
