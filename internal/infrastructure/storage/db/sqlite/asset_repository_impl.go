package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tdex-network/escrowd/internal/core/domain"
)

const (
	insertAssetQuery = `INSERT INTO assets (mint, name, symbol, decimals, creator, supply)
VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(mint) DO NOTHING`
	selectAssetQuery     = `SELECT mint, name, symbol, decimals, creator, supply FROM assets WHERE mint = ?`
	selectAllAssetsQuery = `SELECT mint, name, symbol, decimals, creator, supply FROM assets ORDER BY symbol, mint`
)

type assetRepositoryImpl struct {
	querier func(ctx context.Context) querier
}

// NewAssetRepositoryImpl returns a new sqlite AssetRepository implementation.
func NewAssetRepositoryImpl(
	q func(ctx context.Context) querier,
) domain.AssetRepository {
	return &assetRepositoryImpl{q}
}

func (r *assetRepositoryImpl) AddAsset(ctx context.Context, asset domain.Asset) error {
	res, err := r.querier(ctx).ExecContext(
		ctx, insertAssetQuery, asset.Mint, asset.Name, asset.Symbol,
		int64(asset.Decimals), asset.Creator, encodeUint(asset.Supply),
	)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAssetAlreadyExists
	}
	return nil
}

func (r *assetRepositoryImpl) GetAsset(
	ctx context.Context, mint string,
) (*domain.Asset, error) {
	row := r.querier(ctx).QueryRowContext(ctx, selectAssetQuery, mint)
	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotFound, mint)
		}
		return nil, mapError(err)
	}
	return asset, nil
}

func (r *assetRepositoryImpl) GetAllAssets(
	ctx context.Context,
) ([]domain.Asset, error) {
	rows, err := r.querier(ctx).QueryContext(ctx, selectAllAssetsQuery)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	assets := make([]domain.Asset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	return assets, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row scanner) (*domain.Asset, error) {
	var asset domain.Asset
	var decimals int64
	var supply string
	if err := row.Scan(
		&asset.Mint, &asset.Name, &asset.Symbol, &decimals, &asset.Creator,
		&supply,
	); err != nil {
		return nil, err
	}
	s, err := decodeUint(supply)
	if err != nil {
		return nil, err
	}
	asset.Decimals = uint(decimals)
	asset.Supply = s
	return &asset, nil
}
