package booking

import (
	"errors"
	"time"

	"culture-booking/internal/domain/inventory"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidTransition = errors.New("invalid booking state transition")
	ErrTicketAlreadySet  = errors.New("ticket already issued for booking")
	ErrTicketIncomplete  = errors.New("ticket identifier and QR payload are both required")
)

// Booking is one customer's claim on an inventory unit, tracked through
// a payment-gated lifecycle. The ticket identifier and QR payload are
// set if and only if the booking is confirmed with a successful payment,
// and at most once.
type Booking struct {
	id               uuid.UUID
	unitID           uuid.UUID
	unitKind         inventory.Kind
	contact          Contact
	quantity         int32
	total            Money
	status           Status
	paymentStatus    PaymentStatus
	ticketID         *string
	qrPayload        *string
	capacityReleased bool
	createdAt        time.Time
	updatedAt        time.Time
}

// NewBooking builds a pending-payment booking against a unit. The
// caller must have reserved capacity first; persisting a booking
// without a reservation violates the ledger ordering.
func NewBooking(unit *inventory.Unit, contact Contact, quantity int32) (*Booking, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	total, err := NewMoney(unit.TotalCents(quantity), unit.Currency())
	if err != nil {
		return nil, err
	}

	return &Booking{
		id:            uuid.New(),
		unitID:        unit.ID(),
		unitKind:      unit.Kind(),
		contact:       contact,
		quantity:      quantity,
		total:         total,
		status:        StatusPendingPayment,
		paymentStatus: PaymentPending,
	}, nil
}

func ReconstructBooking(
	id, unitID uuid.UUID,
	unitKind inventory.Kind,
	contact Contact,
	quantity int32,
	total Money,
	status Status,
	paymentStatus PaymentStatus,
	ticketID, qrPayload *string,
	capacityReleased bool,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:               id,
		unitID:           unitID,
		unitKind:         unitKind,
		contact:          contact,
		quantity:         quantity,
		total:            total,
		status:           status,
		paymentStatus:    paymentStatus,
		ticketID:         ticketID,
		qrPayload:        qrPayload,
		capacityReleased: capacityReleased,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// Confirm moves pending_payment to confirmed and sets the ticket in the
// same step. The storage layer enforces the same guard atomically
// (status = pending_payment AND ticket_id IS NULL); this is the domain
// mirror of that contract.
func (b *Booking) Confirm(ticketID, qrPayload string) error {
	if b.status != StatusPendingPayment {
		return ErrInvalidTransition
	}
	if b.ticketID != nil {
		return ErrTicketAlreadySet
	}
	if ticketID == "" || qrPayload == "" {
		return ErrTicketIncomplete
	}

	b.status = StatusConfirmed
	b.paymentStatus = PaymentSuccess
	b.ticketID = &ticketID
	b.qrPayload = &qrPayload
	return nil
}

// Cancel moves pending_payment to cancelled (payment failure or explicit
// user cancellation). Terminal states never transition again.
func (b *Booking) Cancel() error {
	if b.status != StatusPendingPayment {
		return ErrInvalidTransition
	}
	b.status = StatusCancelled
	b.paymentStatus = PaymentFailed
	return nil
}

// Expire moves pending_payment to expired; invoked by the external
// sweep once the payment window has passed.
func (b *Booking) Expire() error {
	if b.status != StatusPendingPayment {
		return ErrInvalidTransition
	}
	b.status = StatusExpired
	b.paymentStatus = PaymentFailed
	return nil
}

// ClaimCapacityRelease flips the one-shot release flag. Returns false
// when the reservation was already given back, making release idempotent
// per booking.
func (b *Booking) ClaimCapacityRelease() bool {
	if b.capacityReleased {
		return false
	}
	b.capacityReleased = true
	return true
}

func (b *Booking) IsPending() bool   { return b.status == StatusPendingPayment }
func (b *Booking) IsConfirmed() bool { return b.status == StatusConfirmed }
func (b *Booking) IsTerminal() bool  { return b.status.IsTerminal() }

func (b *Booking) ID() uuid.UUID                { return b.id }
func (b *Booking) UnitID() uuid.UUID            { return b.unitID }
func (b *Booking) UnitKind() inventory.Kind     { return b.unitKind }
func (b *Booking) Contact() Contact             { return b.contact }
func (b *Booking) Quantity() int32              { return b.quantity }
func (b *Booking) Total() Money                 { return b.total }
func (b *Booking) Status() Status               { return b.status }
func (b *Booking) PaymentStatus() PaymentStatus { return b.paymentStatus }
func (b *Booking) TicketID() *string            { return b.ticketID }
func (b *Booking) QRPayload() *string           { return b.qrPayload }
func (b *Booking) CapacityReleased() bool       { return b.capacityReleased }
func (b *Booking) CreatedAt() time.Time         { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time         { return b.updatedAt }
