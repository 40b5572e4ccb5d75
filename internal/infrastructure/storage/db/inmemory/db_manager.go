package inmemory

import (
	"context"

	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/tdex-network/escrowd/internal/core/ports"
)

type RepoManager struct {
	store *store

	assetRepository   domain.AssetRepository
	holdingRepository domain.HoldingRepository
	offerRepository   domain.OfferRepository
	vaultRepository   domain.VaultRepository
}

func NewRepoManager() ports.RepoManager {
	s := newStore()

	return &RepoManager{
		store:             s,
		assetRepository:   NewAssetRepositoryImpl(s),
		holdingRepository: NewHoldingRepositoryImpl(s),
		offerRepository:   NewOfferRepositoryImpl(s),
		vaultRepository:   NewVaultRepositoryImpl(s),
	}
}

func (d *RepoManager) AssetRepository() domain.AssetRepository {
	return d.assetRepository
}

func (d *RepoManager) HoldingRepository() domain.HoldingRepository {
	return d.holdingRepository
}

func (d *RepoManager) OfferRepository() domain.OfferRepository {
	return d.offerRepository
}

func (d *RepoManager) VaultRepository() domain.VaultRepository {
	return d.vaultRepository
}

// RunTransaction stages the changes of handler and applies them all at once
// if it succeeds. Write transactions are serialized, so they never conflict.
func (d *RepoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if readOnly || txFromContext(ctx) != nil {
		return handler(ctx)
	}

	d.store.writer.Lock()
	defer d.store.writer.Unlock()

	t := newTx()
	res, err := handler(context.WithValue(ctx, "tx", t))
	if err != nil {
		return nil, err
	}

	d.store.commit(t)
	return res, nil
}

func (d *RepoManager) Close() {}
