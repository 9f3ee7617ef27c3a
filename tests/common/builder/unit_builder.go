//go:build unit || e2e

package builder

import (
	"time"

	dominventory "culture-booking/internal/domain/inventory"
	"culture-booking/internal/usecase/queries"
	"culture-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type UnitBuilder struct {
	ID            uuid.UUID
	Kind          dominventory.Kind
	Name          string
	StartsAt      time.Time
	PriceCents    int64
	Currency      string
	TotalCapacity *int32
	Consumed      int32
	Active        bool
}

func NewUnitBuilder() *UnitBuilder {
	capacity := int32(100)
	return &UnitBuilder{
		ID:            uuid.New(),
		Kind:          dominventory.KindEvent,
		Name:          "Lagos Theatre Night",
		StartsAt:      time.Now().Add(72 * time.Hour),
		PriceCents:    500000,
		Currency:      "NGN",
		TotalCapacity: &capacity,
		Consumed:      0,
		Active:        true,
	}
}

func (b *UnitBuilder) With(mutate func(*UnitBuilder)) *UnitBuilder {
	mutate(b)
	return b
}

// Build methods
func (b *UnitBuilder) BuildDomain() (*dominventory.Unit, error) {
	return dominventory.NewUnit(b.Kind, b.Name, b.StartsAt, b.PriceCents, b.Currency, b.TotalCapacity)
}

func (b *UnitBuilder) BuildReconstructed() *dominventory.Unit {
	now := time.Now()
	return dominventory.ReconstructUnit(
		b.ID, b.Kind, b.Name, b.StartsAt, b.PriceCents, b.Currency,
		b.TotalCapacity, b.Consumed, b.Active, now, now,
	)
}

func (b *UnitBuilder) BuildSnapshot() *shared.UnitSnapshot {
	return &shared.UnitSnapshot{
		ID:            b.ID,
		Kind:          b.Kind,
		Name:          b.Name,
		StartsAt:      b.StartsAt,
		PriceCents:    b.PriceCents,
		Currency:      b.Currency,
		TotalCapacity: b.TotalCapacity,
		Consumed:      b.Consumed,
		Active:        b.Active,
	}
}

func (b *UnitBuilder) BuildView() *queries.UnitView {
	var remaining *int32
	if b.TotalCapacity != nil {
		r := *b.TotalCapacity - b.Consumed
		remaining = &r
	}
	return &queries.UnitView{
		ID:            b.ID,
		Kind:          b.Kind,
		Name:          b.Name,
		StartsAt:      b.StartsAt,
		PriceCents:    b.PriceCents,
		Currency:      b.Currency,
		TotalCapacity: b.TotalCapacity,
		Consumed:      b.Consumed,
		Remaining:     remaining,
		Active:        b.Active,
	}
}

// Fluent builder methods
func (b *UnitBuilder) WithKind(kind dominventory.Kind) *UnitBuilder {
	b.Kind = kind
	return b
}

func (b *UnitBuilder) WithCapacity(capacity int32) *UnitBuilder {
	b.TotalCapacity = &capacity
	return b
}

func (b *UnitBuilder) WithUnlimitedCapacity() *UnitBuilder {
	b.TotalCapacity = nil
	return b
}

func (b *UnitBuilder) WithConsumed(consumed int32) *UnitBuilder {
	b.Consumed = consumed
	return b
}

func (b *UnitBuilder) WithPrice(cents int64, currency string) *UnitBuilder {
	b.PriceCents = cents
	b.Currency = currency
	return b
}

func (b *UnitBuilder) AsInactive() *UnitBuilder {
	b.Active = false
	return b
}

func (b *UnitBuilder) AsSoldOut() *UnitBuilder {
	if b.TotalCapacity != nil {
		b.Consumed = *b.TotalCapacity
	}
	return b
}
