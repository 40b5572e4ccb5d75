package dbbadger

import (
	"context"
	"errors"
	"fmt"

	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type assetRepositoryImpl struct {
	store *badgerhold.Store
}

// NewAssetRepositoryImpl returns a new badger AssetRepository implementation.
func NewAssetRepositoryImpl(store *badgerhold.Store) domain.AssetRepository {
	return assetRepositoryImpl{store}
}

func (r assetRepositoryImpl) AddAsset(ctx context.Context, asset domain.Asset) error {
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxInsert(tx, asset.Mint, &asset)
	} else {
		err = r.store.Insert(asset.Mint, &asset)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrAssetAlreadyExists
		}
		return err
	}
	return nil
}

func (r assetRepositoryImpl) GetAsset(
	ctx context.Context, mint string,
) (*domain.Asset, error) {
	var asset domain.Asset
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, mint, &asset)
	} else {
		err = r.store.Get(mint, &asset)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotFound, mint)
		}
		return nil, err
	}
	return &asset, nil
}

func (r assetRepositoryImpl) GetAllAssets(
	ctx context.Context,
) ([]domain.Asset, error) {
	var assets []domain.Asset
	query := (&badgerhold.Query{}).SortBy("Symbol", "Mint")

	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxFind(tx, &assets, query)
	} else {
		err = r.store.Find(&assets, query)
	}
	if err != nil {
		return nil, err
	}
	return assets, nil
}
