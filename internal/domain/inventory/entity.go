package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidKind      = errors.New("invalid inventory kind")
	ErrInvalidCapacity  = errors.New("capacity cannot be negative")
	ErrInvalidQuantity  = errors.New("requested quantity must be positive")
	ErrUnitClosed       = errors.New("unit is not open for booking")
	ErrCapacityExceeded = errors.New("requested units exceed remaining capacity")
)

// Unit is a bookable capacity pool: a screening slot, a tour date, a
// trip departure or an event. A nil totalCapacity means unlimited.
// The consumed counter is mutated only through the capacity ledger's
// atomic reserve/release operations, never assigned directly.
type Unit struct {
	id            uuid.UUID
	kind          Kind
	name          string
	startsAt      time.Time
	priceCents    int64
	currency      string
	totalCapacity *int32
	consumed      int32
	active        bool
	createdAt     time.Time
	updatedAt     time.Time
}

func NewUnit(
	kind Kind,
	name string,
	startsAt time.Time,
	priceCents int64,
	currency string,
	totalCapacity *int32,
) (*Unit, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if totalCapacity != nil && *totalCapacity < 0 {
		return nil, ErrInvalidCapacity
	}

	return &Unit{
		id:            uuid.New(),
		kind:          kind,
		name:          name,
		startsAt:      startsAt,
		priceCents:    priceCents,
		currency:      currency,
		totalCapacity: totalCapacity,
		consumed:      0,
		active:        true,
	}, nil
}

func ReconstructUnit(
	id uuid.UUID,
	kind Kind,
	name string,
	startsAt time.Time,
	priceCents int64,
	currency string,
	totalCapacity *int32,
	consumed int32,
	active bool,
	createdAt, updatedAt time.Time,
) *Unit {
	return &Unit{
		id:            id,
		kind:          kind,
		name:          name,
		startsAt:      startsAt,
		priceCents:    priceCents,
		currency:      currency,
		totalCapacity: totalCapacity,
		consumed:      consumed,
		active:        active,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// Unlimited reports whether the unit has no capacity ceiling.
func (u *Unit) Unlimited() bool {
	return u.totalCapacity == nil
}

// Remaining returns the bookable units left, or nil for unlimited pools.
func (u *Unit) Remaining() *int32 {
	if u.totalCapacity == nil {
		return nil
	}
	r := *u.totalCapacity - u.consumed
	if r < 0 {
		r = 0
	}
	return &r
}

// CanReserve is the domain-level precondition check. The authoritative
// guard is the conditional UPDATE in the capacity ledger; this exists so
// callers can fail fast and report the right error before touching the
// store.
func (u *Unit) CanReserve(quantity int32) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !u.active {
		return ErrUnitClosed
	}
	if u.totalCapacity != nil && u.consumed+quantity > *u.totalCapacity {
		return ErrCapacityExceeded
	}
	return nil
}

// TotalCents is the booking total for the given quantity.
func (u *Unit) TotalCents(quantity int32) int64 {
	return u.priceCents * int64(quantity)
}

func (u *Unit) ID() uuid.UUID         { return u.id }
func (u *Unit) Kind() Kind            { return u.kind }
func (u *Unit) Name() string          { return u.name }
func (u *Unit) StartsAt() time.Time   { return u.startsAt }
func (u *Unit) PriceCents() int64     { return u.priceCents }
func (u *Unit) Currency() string      { return u.currency }
func (u *Unit) TotalCapacity() *int32 { return u.totalCapacity }
func (u *Unit) Consumed() int32       { return u.consumed }
func (u *Unit) Active() bool          { return u.active }
func (u *Unit) CreatedAt() time.Time  { return u.createdAt }
func (u *Unit) UpdatedAt() time.Time  { return u.updatedAt }
