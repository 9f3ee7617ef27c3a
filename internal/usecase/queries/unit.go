package queries

import (
	"context"

	"culture-booking/internal/infra"
	"culture-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

type UnitReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*UnitView, error)
}

type UnitQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*UnitView, error)
}

type unitQueriesImpl struct {
	store UnitReadStore
}

func NewUnitQueries(store UnitReadStore) UnitQueries {
	return &unitQueriesImpl{store: store}
}

func (q *unitQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*UnitView, error) {
	view, err := q.store.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.ErrUnitNotFound
		}
		return nil, errs.Wrap(err, "failed to find inventory unit")
	}
	return view, nil
}
