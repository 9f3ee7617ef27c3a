package queries

import (
	"context"

	"culture-booking/internal/infra"
	"culture-booking/internal/pkg/errs"
)

type PaymentReadStore interface {
	FindByReference(ctx context.Context, reference string) (*PaymentView, error)
	ListFlagged(ctx context.Context, limit int32) ([]*PaymentView, error)
}

type PaymentQueries interface {
	GetByReference(ctx context.Context, reference string) (*PaymentView, error)
	// ListFlagged is the manual-review queue for the admin surface.
	ListFlagged(ctx context.Context, limit int32) ([]*PaymentView, error)
}

type paymentQueriesImpl struct {
	store PaymentReadStore
}

func NewPaymentQueries(store PaymentReadStore) PaymentQueries {
	return &paymentQueriesImpl{store: store}
}

func (q *paymentQueriesImpl) GetByReference(ctx context.Context, reference string) (*PaymentView, error) {
	view, err := q.store.FindByReference(ctx, reference)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.ErrPaymentNotFound
		}
		return nil, errs.Wrap(err, "failed to find payment record")
	}
	return view, nil
}

func (q *paymentQueriesImpl) ListFlagged(ctx context.Context, limit int32) ([]*PaymentView, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	views, err := q.store.ListFlagged(ctx, limit)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list flagged payments")
	}
	return views, nil
}
