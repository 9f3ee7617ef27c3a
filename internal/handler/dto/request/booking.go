package request

import (
	"strings"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	UnitID        uuid.UUID `json:"unit_id" binding:"required"`
	CustomerName  string    `json:"customer_name" binding:"required"`
	CustomerEmail string    `json:"customer_email" binding:"required"`
	Quantity      int32     `json:"quantity" binding:"required,gt=0"`
	Provider      string    `json:"provider" binding:"required"`
}

func (r CreateBookingRequest) NormalizedProvider() string {
	return strings.ToLower(strings.TrimSpace(r.Provider))
}
