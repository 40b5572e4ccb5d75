package dbbadger

import (
	"context"
	"errors"

	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type holdingRepositoryImpl struct {
	store *badgerhold.Store
}

// NewHoldingRepositoryImpl returns a new badger HoldingRepository
// implementation. Holdings are keyed by their derived address and removed as
// soon as they're emptied.
func NewHoldingRepositoryImpl(store *badgerhold.Store) domain.HoldingRepository {
	return holdingRepositoryImpl{store}
}

func (r holdingRepositoryImpl) GetHolding(
	ctx context.Context, owner, asset string,
) (*domain.Holding, error) {
	holding, err := domain.NewHolding(owner, asset)
	if err != nil {
		return nil, err
	}

	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, holding.Address, holding)
	} else {
		err = r.store.Get(holding.Address, holding)
	}
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return nil, err
	}
	return holding, nil
}

func (r holdingRepositoryImpl) GetHoldingsForOwner(
	ctx context.Context, owner string,
) ([]domain.Holding, error) {
	var holdings []domain.Holding
	query := badgerhold.Where("Owner").Eq(owner).SortBy("Asset")

	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxFind(tx, &holdings, query)
	} else {
		err = r.store.Find(&holdings, query)
	}
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

func (r holdingRepositoryImpl) UpdateHolding(
	ctx context.Context, owner, asset string,
	updateFn func(h *domain.Holding) (*domain.Holding, error),
) error {
	current, err := r.GetHolding(ctx, owner, asset)
	if err != nil {
		return err
	}

	updated, err := updateFn(current)
	if err != nil {
		return err
	}

	tx := txFromContext(ctx)
	if updated.IsEmpty() {
		if tx != nil {
			err = r.store.TxDelete(tx, updated.Address, domain.Holding{})
		} else {
			err = r.store.Delete(updated.Address, domain.Holding{})
		}
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}

	if tx != nil {
		return r.store.TxUpsert(tx, updated.Address, updated)
	}
	return r.store.Upsert(updated.Address, updated)
}
