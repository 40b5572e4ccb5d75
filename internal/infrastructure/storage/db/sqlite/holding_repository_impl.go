package sqlitedb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tdex-network/escrowd/internal/core/domain"
)

const (
	selectHoldingQuery  = `SELECT amount FROM holdings WHERE address = ?`
	selectHoldingsQuery = `SELECT address, owner, asset, amount FROM holdings WHERE owner = ? ORDER BY asset`
	deleteHoldingQuery  = `DELETE FROM holdings WHERE address = ?`
	upsertHoldingQuery  = `INSERT INTO holdings (address, owner, asset, amount) VALUES (?, ?, ?, ?)
ON CONFLICT(address) DO UPDATE SET amount = excluded.amount`
)

type holdingRepositoryImpl struct {
	querier func(ctx context.Context) querier
}

// NewHoldingRepositoryImpl returns a new sqlite HoldingRepository
// implementation.
func NewHoldingRepositoryImpl(
	q func(ctx context.Context) querier,
) domain.HoldingRepository {
	return &holdingRepositoryImpl{q}
}

func (r *holdingRepositoryImpl) GetHolding(
	ctx context.Context, owner, asset string,
) (*domain.Holding, error) {
	holding, err := domain.NewHolding(owner, asset)
	if err != nil {
		return nil, err
	}

	var amount string
	if err := r.querier(ctx).QueryRowContext(
		ctx, selectHoldingQuery, holding.Address,
	).Scan(&amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return holding, nil
		}
		return nil, mapError(err)
	}

	if holding.Amount, err = decodeUint(amount); err != nil {
		return nil, err
	}
	return holding, nil
}

func (r *holdingRepositoryImpl) GetHoldingsForOwner(
	ctx context.Context, owner string,
) ([]domain.Holding, error) {
	rows, err := r.querier(ctx).QueryContext(ctx, selectHoldingsQuery, owner)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	holdings := make([]domain.Holding, 0)
	for rows.Next() {
		var h domain.Holding
		var amount string
		if err := rows.Scan(&h.Address, &h.Owner, &h.Asset, &amount); err != nil {
			return nil, err
		}
		if h.Amount, err = decodeUint(amount); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (r *holdingRepositoryImpl) UpdateHolding(
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

	if updated.IsEmpty() {
		_, err = r.querier(ctx).ExecContext(ctx, deleteHoldingQuery, updated.Address)
		return mapError(err)
	}

	_, err = r.querier(ctx).ExecContext(
		ctx, upsertHoldingQuery, updated.Address, updated.Owner, updated.Asset,
		encodeUint(updated.Amount),
	)
	return mapError(err)
}
