package response

import (
	"time"

	"culture-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type UnitResponse struct {
	ID            uuid.UUID `json:"id"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	StartsAt      time.Time `json:"starts_at"`
	PriceCents    int64     `json:"price_cents"`
	Currency      string    `json:"currency"`
	TotalCapacity *int32    `json:"total_capacity"`
	Remaining     *int32    `json:"remaining"`
	Active        bool      `json:"active"`
}

func FromUnitView(view *queries.UnitView) *UnitResponse {
	return &UnitResponse{
		ID:            view.ID,
		Kind:          string(view.Kind),
		Name:          view.Name,
		StartsAt:      view.StartsAt,
		PriceCents:    view.PriceCents,
		Currency:      view.Currency,
		TotalCapacity: view.TotalCapacity,
		Remaining:     view.Remaining,
		Active:        view.Active,
	}
}
