package response

import (
	"time"

	"culture-booking/internal/usecase/commands"
	"culture-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type ReconcileResponse struct {
	Reference     string    `json:"reference"`
	PaymentStatus string    `json:"payment_status"`
	BookingID     uuid.UUID `json:"booking_id"`
	BookingStatus string    `json:"booking_status"`
	TicketID      *string   `json:"ticket_id,omitempty"`
	QRPayload     *string   `json:"qr_payload,omitempty"`
	Pending       bool      `json:"pending,omitempty"`
	Replayed      bool      `json:"replayed,omitempty"`
	Flagged       bool      `json:"flagged,omitempty"`
}

func FromReconcileResult(r *commands.ReconcileResult) *ReconcileResponse {
	return &ReconcileResponse{
		Reference:     r.Reference,
		PaymentStatus: r.PaymentStatus.String(),
		BookingID:     r.BookingID,
		BookingStatus: r.BookingStatus.String(),
		TicketID:      r.TicketID,
		QRPayload:     r.QRPayload,
		Pending:       r.Pending,
		Replayed:      r.Replayed,
		Flagged:       r.Flagged,
	}
}

type PaymentResponse struct {
	Reference   string    `json:"reference"`
	BookingID   uuid.UUID `json:"booking_id"`
	Provider    string    `json:"provider"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Flagged     bool      `json:"flagged"`
	FlagReason  *string   `json:"flag_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FromPaymentViews maps the flagged-payments listing field-for-field.
func FromPaymentViews(views []*queries.PaymentView) ([]PaymentResponse, error) {
	responses := make([]PaymentResponse, 0, len(views))
	if err := copier.Copy(&responses, &views); err != nil {
		return nil, err
	}
	return responses, nil
}
