package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tdex-network/escrowd/internal/core/domain"
)

type assetRepositoryImpl struct {
	store *store
}

// NewAssetRepositoryImpl returns a new inmemory AssetRepository implementation.
func NewAssetRepositoryImpl(s *store) domain.AssetRepository {
	return &assetRepositoryImpl{s}
}

func (r *assetRepositoryImpl) AddAsset(ctx context.Context, asset domain.Asset) error {
	staged := r.staged(ctx)
	if _, ok := lookup(&r.store.lock, r.store.assets, staged, asset.Mint); ok {
		return domain.ErrAssetAlreadyExists
	}
	put(&r.store.lock, r.store.assets, staged, asset.Mint, asset)
	return nil
}

func (r *assetRepositoryImpl) GetAsset(
	ctx context.Context, mint string,
) (*domain.Asset, error) {
	asset, ok := lookup(&r.store.lock, r.store.assets, r.staged(ctx), mint)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotFound, mint)
	}
	return asset, nil
}

func (r *assetRepositoryImpl) GetAllAssets(
	ctx context.Context,
) ([]domain.Asset, error) {
	return scan(&r.store.lock, r.store.assets, r.staged(ctx)), nil
}

func (r *assetRepositoryImpl) staged(ctx context.Context) map[string]*domain.Asset {
	if t := txFromContext(ctx); t != nil {
		return t.assets
	}
	return nil
}

type holdingRepositoryImpl struct {
	store *store
}

// NewHoldingRepositoryImpl returns a new inmemory HoldingRepository
// implementation.
func NewHoldingRepositoryImpl(s *store) domain.HoldingRepository {
	return &holdingRepositoryImpl{s}
}

func (r *holdingRepositoryImpl) GetHolding(
	ctx context.Context, owner, asset string,
) (*domain.Holding, error) {
	empty, err := domain.NewHolding(owner, asset)
	if err != nil {
		return nil, err
	}
	h, ok := lookup(&r.store.lock, r.store.holdings, r.staged(ctx), empty.Address)
	if !ok {
		return empty, nil
	}
	return h, nil
}

func (r *holdingRepositoryImpl) GetHoldingsForOwner(
	ctx context.Context, owner string,
) ([]domain.Holding, error) {
	all := scan(&r.store.lock, r.store.holdings, r.staged(ctx))
	holdings := make([]domain.Holding, 0)
	for _, h := range all {
		if h.Owner == owner && !h.IsEmpty() {
			holdings = append(holdings, h)
		}
	}
	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].Asset < holdings[j].Asset
	})
	return holdings, nil
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

	staged := r.staged(ctx)
	if updated.IsEmpty() {
		remove(&r.store.lock, r.store.holdings, staged, updated.Address)
		return nil
	}
	put(&r.store.lock, r.store.holdings, staged, updated.Address, *updated)
	return nil
}

func (r *holdingRepositoryImpl) staged(ctx context.Context) map[string]*domain.Holding {
	if t := txFromContext(ctx); t != nil {
		return t.holdings
	}
	return nil
}

type offerRepositoryImpl struct {
	store *store
}

// NewOfferRepositoryImpl returns a new inmemory OfferRepository implementation.
func NewOfferRepositoryImpl(s *store) domain.OfferRepository {
	return &offerRepositoryImpl{s}
}

func (r *offerRepositoryImpl) AddOffer(ctx context.Context, offer domain.Offer) error {
	staged := r.staged(ctx)
	if _, ok := lookup(&r.store.lock, r.store.offers, staged, offer.Address); ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateOfferID, offer.Address)
	}
	put(&r.store.lock, r.store.offers, staged, offer.Address, offer)
	return nil
}

func (r *offerRepositoryImpl) GetOffer(
	ctx context.Context, address string,
) (*domain.Offer, error) {
	offer, ok := lookup(&r.store.lock, r.store.offers, r.staged(ctx), address)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOfferNotFound, address)
	}
	return offer, nil
}

func (r *offerRepositoryImpl) GetAllOffers(
	ctx context.Context,
) ([]domain.Offer, error) {
	offers := scan(&r.store.lock, r.store.offers, r.staged(ctx))
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].ExpiresAt < offers[j].ExpiresAt
	})
	return offers, nil
}

func (r *offerRepositoryImpl) DeleteOffer(ctx context.Context, address string) error {
	staged := r.staged(ctx)
	if _, ok := lookup(&r.store.lock, r.store.offers, staged, address); !ok {
		return fmt.Errorf("%w: %s", domain.ErrOfferNotFound, address)
	}
	remove(&r.store.lock, r.store.offers, staged, address)
	return nil
}

func (r *offerRepositoryImpl) staged(ctx context.Context) map[string]*domain.Offer {
	if t := txFromContext(ctx); t != nil {
		return t.offers
	}
	return nil
}

type vaultRepositoryImpl struct {
	store *store
}

// NewVaultRepositoryImpl returns a new inmemory VaultRepository implementation.
func NewVaultRepositoryImpl(s *store) domain.VaultRepository {
	return &vaultRepositoryImpl{s}
}

func (r *vaultRepositoryImpl) AddVault(ctx context.Context, vault domain.Vault) error {
	staged := r.staged(ctx)
	if _, ok := lookup(&r.store.lock, r.store.vaults, staged, vault.Address); ok {
		return fmt.Errorf("%w: vault %s", domain.ErrDuplicateOfferID, vault.Address)
	}
	put(&r.store.lock, r.store.vaults, staged, vault.Address, vault)
	return nil
}

func (r *vaultRepositoryImpl) GetVault(
	ctx context.Context, address string,
) (*domain.Vault, error) {
	vault, ok := lookup(&r.store.lock, r.store.vaults, r.staged(ctx), address)
	if !ok {
		return nil, fmt.Errorf("%w: vault %s", domain.ErrOfferNotFound, address)
	}
	return vault, nil
}

func (r *vaultRepositoryImpl) DeleteVault(ctx context.Context, address string) error {
	staged := r.staged(ctx)
	if _, ok := lookup(&r.store.lock, r.store.vaults, staged, address); !ok {
		return fmt.Errorf("%w: vault %s", domain.ErrOfferNotFound, address)
	}
	remove(&r.store.lock, r.store.vaults, staged, address)
	return nil
}

func (r *vaultRepositoryImpl) staged(ctx context.Context) map[string]*domain.Vault {
	if t := txFromContext(ctx); t != nil {
		return t.vaults
	}
	return nil
}
