//go:build unit || e2e

package builder

import (
	"time"

	dombooking "culture-booking/internal/domain/booking"
	reqdto "culture-booking/internal/handler/dto/request"
	"culture-booking/internal/usecase/commands"
	"culture-booking/internal/usecase/queries"
	"culture-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type BookingBuilder struct {
	ID            uuid.UUID
	Unit          *UnitBuilder
	CustomerName  string
	CustomerEmail string
	Quantity      int32
	Status        dombooking.Status
	PaymentStatus dombooking.PaymentStatus
	TicketID      *string
	QRPayload     *string
	Released      bool
	CreatedAt     time.Time
}

func NewBookingBuilder() *BookingBuilder {
	return &BookingBuilder{
		ID:            uuid.New(),
		Unit:          NewUnitBuilder(),
		CustomerName:  "Ada Obi",
		CustomerEmail: "ada.obi@example.com",
		Quantity:      2,
		Status:        dombooking.StatusPendingPayment,
		PaymentStatus: dombooking.PaymentPending,
		CreatedAt:     time.Now(),
	}
}

func (b *BookingBuilder) With(mutate func(*BookingBuilder)) *BookingBuilder {
	mutate(b)
	return b
}

// Build methods
func (b *BookingBuilder) BuildDomain() (*dombooking.Booking, error) {
	contact, err := dombooking.NewContact(b.CustomerName, b.CustomerEmail)
	if err != nil {
		return nil, err
	}
	return dombooking.NewBooking(b.Unit.BuildReconstructed(), contact, b.Quantity)
}

func (b *BookingBuilder) BuildSnapshot() *shared.BookingSnapshot {
	return &shared.BookingSnapshot{
		ID:               b.ID,
		UnitID:           b.Unit.ID,
		UnitKind:         b.Unit.Kind,
		CustomerName:     b.CustomerName,
		CustomerEmail:    b.CustomerEmail,
		Quantity:         b.Quantity,
		AmountCents:      b.Unit.PriceCents * int64(b.Quantity),
		Currency:         b.Unit.Currency,
		Status:           b.Status,
		PaymentStatus:    b.PaymentStatus,
		TicketID:         b.TicketID,
		QRPayload:        b.QRPayload,
		CapacityReleased: b.Released,
		CreatedAt:        b.CreatedAt,
	}
}

func (b *BookingBuilder) BuildCreateRequestDTO() reqdto.CreateBookingRequest {
	return reqdto.CreateBookingRequest{
		UnitID:        b.Unit.ID,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		Quantity:      b.Quantity,
		Provider:      "paystack",
	}
}

func (b *BookingBuilder) BuildCreateInput() commands.CreateBookingInput {
	return commands.CreateBookingInput{
		IdempotencyKey: uuid.New(),
		UnitID:         b.Unit.ID,
		CustomerName:   b.CustomerName,
		CustomerEmail:  b.CustomerEmail,
		Quantity:       b.Quantity,
		Provider:       "paystack",
	}
}

func (b *BookingBuilder) BuildView() *queries.BookingView {
	return &queries.BookingView{
		ID:            b.ID,
		UnitID:        b.Unit.ID,
		UnitName:      b.Unit.Name,
		UnitKind:      b.Unit.Kind,
		StartsAt:      b.Unit.StartsAt,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		Quantity:      b.Quantity,
		AmountCents:   b.Unit.PriceCents * int64(b.Quantity),
		Currency:      b.Unit.Currency,
		Status:        b.Status.String(),
		PaymentStatus: b.PaymentStatus.String(),
		TicketID:      b.TicketID,
		QRPayload:     b.QRPayload,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.CreatedAt,
	}
}

func (b *BookingBuilder) BuildTicketView() *queries.TicketView {
	ticketID := "EVT-20260101-ABCDEFGH"
	if b.TicketID != nil {
		ticketID = *b.TicketID
	}
	return &queries.TicketView{
		TicketID:     ticketID,
		BookingID:    b.ID,
		UnitName:     b.Unit.Name,
		UnitKind:     b.Unit.Kind,
		StartsAt:     b.Unit.StartsAt,
		CustomerName: b.CustomerName,
		Quantity:     b.Quantity,
		Status:       b.Status.String(),
	}
}

// Fluent builder methods
func (b *BookingBuilder) WithUnit(unit *UnitBuilder) *BookingBuilder {
	b.Unit = unit
	return b
}

func (b *BookingBuilder) WithContact(name, email string) *BookingBuilder {
	b.CustomerName = name
	b.CustomerEmail = email
	return b
}

func (b *BookingBuilder) WithQuantity(quantity int32) *BookingBuilder {
	b.Quantity = quantity
	return b
}

func (b *BookingBuilder) WithCreatedAt(createdAt time.Time) *BookingBuilder {
	b.CreatedAt = createdAt
	return b
}

func (b *BookingBuilder) AsConfirmed() *BookingBuilder {
	ticketID := b.Unit.Kind.TicketPrefix() + "-20260101-ABCDEFGH"
	qr := "qr-payload"
	b.Status = dombooking.StatusConfirmed
	b.PaymentStatus = dombooking.PaymentSuccess
	b.TicketID = &ticketID
	b.QRPayload = &qr
	return b
}

func (b *BookingBuilder) AsCancelled() *BookingBuilder {
	b.Status = dombooking.StatusCancelled
	b.PaymentStatus = dombooking.PaymentFailed
	b.Released = true
	return b
}

func (b *BookingBuilder) AsExpired() *BookingBuilder {
	b.Status = dombooking.StatusExpired
	b.PaymentStatus = dombooking.PaymentFailed
	b.Released = true
	return b
}
