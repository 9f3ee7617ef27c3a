package payment

import (
	"errors"
	"time"

	"culture-booking/internal/domain/booking"

	"github.com/google/uuid"
)

var (
	ErrEmptyReference  = errors.New("transaction reference cannot be empty")
	ErrEmptyProvider   = errors.New("payment provider cannot be empty")
	ErrAlreadyTerminal = errors.New("payment record is already terminal")
)

// Record is one payment attempt, keyed by a transaction reference this
// system chooses at creation time. The reference is immutable and
// globally unique; the provider never picks it.
type Record struct {
	reference   string
	bookingID   uuid.UUID
	provider    string
	amount      booking.Money
	status      Status
	providerRef *string
	flagged     bool
	flagReason  *string
	createdAt   time.Time
	updatedAt   time.Time
}

func NewRecord(reference string, bookingID uuid.UUID, provider string, amount booking.Money) (*Record, error) {
	if reference == "" {
		return nil, ErrEmptyReference
	}
	if provider == "" {
		return nil, ErrEmptyProvider
	}

	return &Record{
		reference: reference,
		bookingID: bookingID,
		provider:  provider,
		amount:    amount,
		status:    StatusPending,
	}, nil
}

func ReconstructRecord(
	reference string,
	bookingID uuid.UUID,
	provider string,
	amount booking.Money,
	status Status,
	providerRef *string,
	flagged bool,
	flagReason *string,
	createdAt, updatedAt time.Time,
) *Record {
	return &Record{
		reference:   reference,
		bookingID:   bookingID,
		provider:    provider,
		amount:      amount,
		status:      status,
		providerRef: providerRef,
		flagged:     flagged,
		flagReason:  flagReason,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// Resolve applies a reconciliation outcome. Only a pending record can
// move; a terminal record rejects further transitions so replays are
// detected by the caller and treated as no-ops.
func (r *Record) Resolve(outcome Outcome) error {
	if r.status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	r.status = outcome.Status()
	return nil
}

// MatchesAmount checks the provider-reported paid amount against the
// expected total, after the adapter has normalized units.
func (r *Record) MatchesAmount(paid booking.Money) bool {
	return r.amount.Equals(paid)
}

// Flag marks the record for manual admin review without touching its
// status. Used for amount mismatches and conflicting terminal reports.
func (r *Record) Flag(reason string) {
	r.flagged = true
	r.flagReason = &reason
}

func (r *Record) Reference() string        { return r.reference }
func (r *Record) BookingID() uuid.UUID     { return r.bookingID }
func (r *Record) Provider() string         { return r.provider }
func (r *Record) Amount() booking.Money    { return r.amount }
func (r *Record) Status() Status           { return r.status }
func (r *Record) ProviderRef() *string     { return r.providerRef }
func (r *Record) Flagged() bool            { return r.flagged }
func (r *Record) FlagReason() *string      { return r.flagReason }
func (r *Record) CreatedAt() time.Time     { return r.createdAt }
func (r *Record) UpdatedAt() time.Time     { return r.updatedAt }
