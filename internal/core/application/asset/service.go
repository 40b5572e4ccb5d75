package asset

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/tdex-network/escrowd/internal/core/ports"
	"github.com/tdex-network/escrowd/pkg/mathutil"
)

const DefaultCacheSize = 256

// HoldingInfo is the balance of a holding projected in UI units.
type HoldingInfo struct {
	Address    string          `json:"address"`
	Asset      string          `json:"asset"`
	Name       string          `json:"name"`
	Symbol     string          `json:"symbol"`
	Decimals   uint            `json:"decimals"`
	Amount     decimal.Decimal `json:"amount"`
	BaseAmount uint64          `json:"base_amount"`
}

// Service registers assets and exposes their metadata and holdings.
// Assets never change once registered, therefore they're kept in a LRU cache
// after the first read.
type Service struct {
	repoManager ports.RepoManager
	cache       *lru.Cache[string, domain.Asset]
}

func NewService(repoManager ports.RepoManager, cacheSize int) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, domain.Asset](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{repoManager, cache}, nil
}

// CreateAsset registers a new asset and mints its whole supply, given in UI
// units, to the creator.
func (s *Service) CreateAsset(
	ctx context.Context, creator, name, symbol string, decimals uint,
	supply decimal.Decimal,
) (*domain.Asset, error) {
	if !domain.IsValidIdentity(creator) {
		return nil, domain.ErrInvalidIdentity
	}
	if decimals > mathutil.MaxPrecision {
		return nil, domain.ErrInvalidDecimals
	}
	baseSupply, err := mathutil.ToBaseUnits(supply, decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: supply %s", domain.ErrInvalidAmount, supply)
	}
	asset, err := domain.NewAsset(creator, name, symbol, decimals, baseSupply)
	if err != nil {
		return nil, err
	}

	if _, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			if err := s.repoManager.AssetRepository().AddAsset(
				ctx, *asset,
			); err != nil {
				return nil, err
			}
			return nil, s.repoManager.HoldingRepository().UpdateHolding(
				ctx, creator, asset.Mint,
				func(h *domain.Holding) (*domain.Holding, error) {
					if err := h.Credit(asset.Supply); err != nil {
						return nil, err
					}
					return h, nil
				},
			)
		},
	); err != nil {
		return nil, err
	}

	s.cache.Add(asset.Mint, *asset)
	log.WithFields(log.Fields{
		"mint":   asset.Mint,
		"symbol": asset.Symbol,
		"supply": supply.String(),
	}).Info("asset registered")
	return asset, nil
}

// GetAsset returns the asset identified by mint.
func (s *Service) GetAsset(ctx context.Context, mint string) (*domain.Asset, error) {
	if asset, ok := s.cache.Get(mint); ok {
		return &asset, nil
	}
	if !domain.IsValidAddress(mint) {
		return nil, domain.ErrInvalidAddress
	}

	asset, err := s.repoManager.AssetRepository().GetAsset(ctx, mint)
	if err != nil {
		return nil, err
	}
	s.cache.Add(mint, *asset)
	return asset, nil
}

// ListAssets returns the registered assets matching the optional filter.
func (s *Service) ListAssets(
	ctx context.Context, filter string,
) ([]domain.Asset, error) {
	assets, err := s.repoManager.AssetRepository().GetAllAssets(ctx)
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(strings.TrimSpace(filter))
	if term == "" {
		return assets, nil
	}

	filtered := make([]domain.Asset, 0, len(assets))
	for _, a := range assets {
		if a.Matches(term) {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// ListHoldings returns the non empty holdings of owner in UI units.
func (s *Service) ListHoldings(
	ctx context.Context, owner string,
) ([]HoldingInfo, error) {
	if !domain.IsValidIdentity(owner) {
		return nil, domain.ErrInvalidIdentity
	}

	holdings, err := s.repoManager.HoldingRepository().GetHoldingsForOwner(
		ctx, owner,
	)
	if err != nil {
		return nil, err
	}

	list := make([]HoldingInfo, 0, len(holdings))
	for _, h := range holdings {
		asset, err := s.GetAsset(ctx, h.Asset)
		if err != nil {
			return nil, err
		}
		amount, err := mathutil.ToUIAmount(h.Amount, asset.Decimals)
		if err != nil {
			return nil, err
		}
		list = append(list, HoldingInfo{
			Address:    h.Address,
			Asset:      h.Asset,
			Name:       asset.Name,
			Symbol:     asset.Symbol,
			Decimals:   asset.Decimals,
			Amount:     amount,
			BaseAmount: h.Amount,
		})
	}
	return list, nil
}
