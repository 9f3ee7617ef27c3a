package repository

import (
	"context"

	"culture-booking/internal/infra"
	"culture-booking/internal/infra/db"
	"culture-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
)

// InventoryRepository is the write side of the capacity ledger. Reserve
// and Release are the only paths that touch the consumed counter.
type InventoryRepository struct {
	db db.DBTX
}

func NewInventoryRepository(dbtx db.DBTX) *InventoryRepository {
	return &InventoryRepository{db: dbtx}
}

const reserveSQL = `
UPDATE inventory_units
SET consumed = consumed + $2, updated_at = now()
WHERE id = $1
  AND active
  AND (total_capacity IS NULL OR consumed + $2 <= total_capacity)`

// Reserve claims quantity in a single conditional UPDATE so concurrent
// reservations against the last remaining units cannot both win. A zero
// row count is disambiguated with a follow-up read: missing unit, closed
// unit, or genuine capacity exhaustion.
func (r *InventoryRepository) Reserve(ctx context.Context, unitID uuid.UUID, quantity int32) error {
	tag, err := r.db.Exec(ctx, reserveSQL, unitID, quantity)
	if err != nil {
		return wrapWriteErr("failed to reserve capacity", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var active bool
	row := r.db.QueryRow(ctx, `SELECT active FROM inventory_units WHERE id = $1`, unitID)
	if err := row.Scan(&active); err != nil {
		if pgconv.IsNoRows(err) {
			return infra.WrapRepoErr("inventory unit not found", err, infra.KindNotFound)
		}
		return infra.WrapRepoErr("failed to inspect inventory unit", err)
	}
	if !active {
		return infra.WrapRepoErr("inventory unit is closed", nil, infra.KindConflict)
	}
	return infra.WrapRepoErr("insufficient remaining capacity", nil, infra.KindCapacityExceeded)
}

const releaseSQL = `
UPDATE inventory_units
SET consumed = GREATEST(consumed - $2, 0), updated_at = now()
WHERE id = $1`

// Release decrements the consumed counter. Per-booking idempotency is
// guaranteed by the booking's one-shot capacity_released claim, which
// callers must win before invoking Release in the same transaction.
func (r *InventoryRepository) Release(ctx context.Context, unitID uuid.UUID, quantity int32) error {
	tag, err := r.db.Exec(ctx, releaseSQL, unitID, quantity)
	if err != nil {
		return wrapWriteErr("failed to release capacity", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("inventory unit not found", nil, infra.KindNotFound)
	}
	return nil
}
