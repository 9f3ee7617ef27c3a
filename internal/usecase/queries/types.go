package queries

import (
	"time"

	"culture-booking/internal/domain/inventory"

	"github.com/google/uuid"
)

// Read-side view types. Populated by the readstore layer from joined
// rows; handlers convert them to response DTOs.

type BookingView struct {
	ID            uuid.UUID
	UnitID        uuid.UUID
	UnitName      string
	UnitKind      inventory.Kind
	StartsAt      time.Time
	CustomerName  string
	CustomerEmail string
	Quantity      int32
	AmountCents   int64
	Currency      string
	Status        string
	PaymentStatus string
	TicketID      *string
	QRPayload     *string
	Reference     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TicketView is the scanning-tool lookup projection: enough to verify
// entry, no contact details beyond the holder name.
type TicketView struct {
	TicketID     string
	BookingID    uuid.UUID
	UnitName     string
	UnitKind     inventory.Kind
	StartsAt     time.Time
	CustomerName string
	Quantity     int32
	Status       string
}

type UnitView struct {
	ID            uuid.UUID
	Kind          inventory.Kind
	Name          string
	StartsAt      time.Time
	PriceCents    int64
	Currency      string
	TotalCapacity *int32
	Consumed      int32
	Remaining     *int32
	Active        bool
}

type PaymentView struct {
	Reference   string
	BookingID   uuid.UUID
	Provider    string
	AmountCents int64
	Currency    string
	Status      string
	Flagged     bool
	FlagReason  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
