package response

import (
	"time"

	"culture-booking/internal/usecase/commands"
	"culture-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type CreateBookingResponse struct {
	BookingID        uuid.UUID `json:"booking_id"`
	Reference        string    `json:"reference,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	AmountCents      int64     `json:"amount_cents"`
	Currency         string    `json:"currency"`
	AuthorizationURL string    `json:"authorization_url,omitempty"`
	ClientSecret     string    `json:"client_secret,omitempty"`
	Replayed         bool      `json:"replayed,omitempty"`
}

func FromCreateBookingResult(r *commands.CreateBookingResult) *CreateBookingResponse {
	return &CreateBookingResponse{
		BookingID:        r.BookingID,
		Reference:        r.Reference,
		Provider:         r.Provider,
		AmountCents:      r.AmountCents,
		Currency:         r.Currency,
		AuthorizationURL: r.AuthorizationURL,
		ClientSecret:     r.ClientSecret,
		Replayed:         r.Replayed,
	}
}

type BookingResponse struct {
	ID            uuid.UUID `json:"id"`
	UnitID        uuid.UUID `json:"unit_id"`
	UnitName      string    `json:"unit_name"`
	UnitKind      string    `json:"unit_kind"`
	StartsAt      time.Time `json:"starts_at"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Quantity      int32     `json:"quantity"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TicketID      *string   `json:"ticket_id,omitempty"`
	QRPayload     *string   `json:"qr_payload,omitempty"`
	Reference     *string   `json:"reference,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func FromBookingView(view *queries.BookingView) *BookingResponse {
	return &BookingResponse{
		ID:            view.ID,
		UnitID:        view.UnitID,
		UnitName:      view.UnitName,
		UnitKind:      string(view.UnitKind),
		StartsAt:      view.StartsAt,
		CustomerName:  view.CustomerName,
		CustomerEmail: view.CustomerEmail,
		Quantity:      view.Quantity,
		AmountCents:   view.AmountCents,
		Currency:      view.Currency,
		Status:        view.Status,
		PaymentStatus: view.PaymentStatus,
		TicketID:      view.TicketID,
		QRPayload:     view.QRPayload,
		Reference:     view.Reference,
		CreatedAt:     view.CreatedAt,
		UpdatedAt:     view.UpdatedAt,
	}
}

type TicketResponse struct {
	TicketID     string    `json:"ticket_id"`
	BookingID    uuid.UUID `json:"booking_id"`
	UnitName     string    `json:"unit_name"`
	UnitKind     string    `json:"unit_kind"`
	StartsAt     time.Time `json:"starts_at"`
	CustomerName string    `json:"customer_name"`
	Quantity     int32     `json:"quantity"`
	Status       string    `json:"status"`
}

func FromTicketView(view *queries.TicketView) *TicketResponse {
	return &TicketResponse{
		TicketID:     view.TicketID,
		BookingID:    view.BookingID,
		UnitName:     view.UnitName,
		UnitKind:     string(view.UnitKind),
		StartsAt:     view.StartsAt,
		CustomerName: view.CustomerName,
		Quantity:     view.Quantity,
		Status:       view.Status,
	}
}
