//go:build unit || e2e

package builder

import (
	"time"

	dombooking "culture-booking/internal/domain/booking"
	dompayment "culture-booking/internal/domain/payment"
	"culture-booking/internal/usecase/queries"
	"culture-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type PaymentBuilder struct {
	Reference   string
	BookingID   uuid.UUID
	Provider    string
	AmountCents int64
	Currency    string
	Status      dompayment.Status
	Flagged     bool
	FlagReason  *string
	CreatedAt   time.Time
}

func NewPaymentBuilder() *PaymentBuilder {
	return &PaymentBuilder{
		Reference:   "CBK-20260101T120000-ABCDEFGH",
		BookingID:   uuid.New(),
		Provider:    "paystack",
		AmountCents: 1000000,
		Currency:    "NGN",
		Status:      dompayment.StatusPending,
		CreatedAt:   time.Now(),
	}
}

func (b *PaymentBuilder) With(mutate func(*PaymentBuilder)) *PaymentBuilder {
	mutate(b)
	return b
}

// Build methods
func (b *PaymentBuilder) BuildDomain() (*dompayment.Record, error) {
	amount, err := dombooking.NewMoney(b.AmountCents, b.Currency)
	if err != nil {
		return nil, err
	}
	return dompayment.NewRecord(b.Reference, b.BookingID, b.Provider, amount)
}

func (b *PaymentBuilder) BuildSnapshot() *shared.PaymentSnapshot {
	return &shared.PaymentSnapshot{
		Reference:   b.Reference,
		BookingID:   b.BookingID,
		Provider:    b.Provider,
		AmountCents: b.AmountCents,
		Currency:    b.Currency,
		Status:      b.Status,
		Flagged:     b.Flagged,
	}
}

func (b *PaymentBuilder) BuildView() *queries.PaymentView {
	return &queries.PaymentView{
		Reference:   b.Reference,
		BookingID:   b.BookingID,
		Provider:    b.Provider,
		AmountCents: b.AmountCents,
		Currency:    b.Currency,
		Status:      b.Status.String(),
		Flagged:     b.Flagged,
		FlagReason:  b.FlagReason,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.CreatedAt,
	}
}

// Fluent builder methods
func (b *PaymentBuilder) WithReference(reference string) *PaymentBuilder {
	b.Reference = reference
	return b
}

func (b *PaymentBuilder) WithBookingID(id uuid.UUID) *PaymentBuilder {
	b.BookingID = id
	return b
}

func (b *PaymentBuilder) WithProvider(provider string) *PaymentBuilder {
	b.Provider = provider
	return b
}

func (b *PaymentBuilder) WithAmount(cents int64, currency string) *PaymentBuilder {
	b.AmountCents = cents
	b.Currency = currency
	return b
}

func (b *PaymentBuilder) AsSuccess() *PaymentBuilder {
	b.Status = dompayment.StatusSuccess
	return b
}

func (b *PaymentBuilder) AsFailed() *PaymentBuilder {
	b.Status = dompayment.StatusFailed
	return b
}

func (b *PaymentBuilder) AsFlagged(reason string) *PaymentBuilder {
	b.Flagged = true
	b.FlagReason = &reason
	return b
}
