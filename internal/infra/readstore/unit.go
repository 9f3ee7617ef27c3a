package readstore

import (
	"context"

	"culture-booking/internal/domain/inventory"
	"culture-booking/internal/infra"
	"culture-booking/internal/infra/db"
	"culture-booking/internal/pkg/pgconv"
	"culture-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type UnitReadStore struct {
	db db.DBTX
}

func NewUnitReadStore(dbtx db.DBTX) *UnitReadStore {
	return &UnitReadStore{db: dbtx}
}

const unitViewSQL = `
SELECT id, kind, name, starts_at, price_cents, currency,
       total_capacity, consumed, active
FROM inventory_units
WHERE id = $1`

func (r *UnitReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.UnitView, error) {
	var (
		view          queries.UnitView
		kind          string
		totalCapacity pgtype.Int4
	)

	row := r.db.QueryRow(ctx, unitViewSQL, id)
	err := row.Scan(
		&view.ID, &kind, &view.Name, &view.StartsAt,
		&view.PriceCents, &view.Currency,
		&totalCapacity, &view.Consumed, &view.Active,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("inventory unit not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find inventory unit", err)
	}

	view.Kind = inventory.Kind(kind)
	view.TotalCapacity = pgconv.Int32PtrFromPgtype(totalCapacity)
	if view.TotalCapacity != nil {
		remaining := *view.TotalCapacity - view.Consumed
		if remaining < 0 {
			remaining = 0
		}
		view.Remaining = &remaining
	}
	return &view, nil
}
