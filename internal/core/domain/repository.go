package domain

import "context"

// AssetRepository is the abstraction for any kind of database intended to
// persist Assets.
type AssetRepository interface {
	// AddAsset stores a new asset, failing with ErrAssetAlreadyExists if the
	// mint is already registered.
	AddAsset(ctx context.Context, asset Asset) error
	// GetAsset returns the asset with the given mint or ErrAssetNotFound.
	GetAsset(ctx context.Context, mint string) (*Asset, error)
	// GetAllAssets ...
	GetAllAssets(ctx context.Context) ([]Asset, error)
}

// HoldingRepository persists balances keyed by their derived address.
type HoldingRepository interface {
	// GetHolding returns the holding of owner for asset. A missing holding is
	// returned empty, never as an error.
	GetHolding(ctx context.Context, owner, asset string) (*Holding, error)
	// GetHoldingsForOwner returns all non empty holdings of owner.
	GetHoldingsForOwner(ctx context.Context, owner string) ([]Holding, error)
	// UpdateHolding allows to commit multiple changes to the same holding in a
	// transactional way. Holdings left empty are removed.
	UpdateHolding(
		ctx context.Context, owner, asset string,
		updateFn func(h *Holding) (*Holding, error),
	) error
}

// OfferRepository persists open offer records.
type OfferRepository interface {
	// AddOffer stores a new offer, failing with ErrDuplicateOfferID if its
	// address is already in use.
	AddOffer(ctx context.Context, offer Offer) error
	// GetOffer returns the offer at the given address or ErrOfferNotFound.
	GetOffer(ctx context.Context, address string) (*Offer, error)
	// GetAllOffers returns every stored offer, sorted by expiration time and
	// address.
	GetAllOffers(ctx context.Context) ([]Offer, error)
	// DeleteOffer removes the offer, failing with ErrOfferNotFound if absent.
	DeleteOffer(ctx context.Context, address string) error
}

// VaultRepository persists vaults of open offers.
type VaultRepository interface {
	// AddVault ...
	AddVault(ctx context.Context, vault Vault) error
	// GetVault returns the vault at the given address or ErrOfferNotFound,
	// since a vault never outlives its offer.
	GetVault(ctx context.Context, address string) (*Vault, error)
	// DeleteVault ...
	DeleteVault(ctx context.Context, address string) error
}
