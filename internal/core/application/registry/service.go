package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tdex-network/escrowd/internal/core/application/asset"
	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/tdex-network/escrowd/internal/core/ports"
	"github.com/tdex-network/escrowd/pkg/mathutil"
)

// OfferInfo is an offer projected in UI units.
type OfferInfo struct {
	Address           string          `json:"address"`
	Bump              uint8           `json:"bump"`
	ID                uint64          `json:"id"`
	Maker             string          `json:"maker"`
	AssetOffered      string          `json:"asset_offered"`
	AssetOfferedCode  string          `json:"asset_offered_symbol"`
	AssetWanted       string          `json:"asset_wanted"`
	AssetWantedCode   string          `json:"asset_wanted_symbol"`
	AmountOffered     decimal.Decimal `json:"amount_offered"`
	AmountWanted      decimal.Decimal `json:"amount_wanted"`
	BaseAmountOffered uint64          `json:"base_amount_offered"`
	BaseAmountWanted  uint64          `json:"base_amount_wanted"`
	Vault             string          `json:"vault"`
	ExpiresAt         int64           `json:"expires_at"`
	CreatedAt         int64           `json:"created_at"`
	Status            string          `json:"status"`
	Expired           bool            `json:"expired"`
}

// DerivedOffer holds the addresses derived for an offer that may or may not
// exist yet.
type DerivedOffer struct {
	Address   string `json:"address"`
	Bump      uint8  `json:"bump"`
	Vault     string `json:"vault,omitempty"`
	VaultBump uint8  `json:"vault_bump,omitempty"`
	Exists    bool   `json:"exists"`
}

// Service is the read side of offers. It never mutates state and never keeps
// its own index of offers: every query is a scan of the committed records.
type Service struct {
	repoManager ports.RepoManager
	assets      *asset.Service
	clock       ports.Clock
}

func NewService(
	repoManager ports.RepoManager, assetSvc *asset.Service, clock ports.Clock,
) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if assetSvc == nil {
		return nil, fmt.Errorf("missing asset service")
	}
	if clock == nil {
		clock = ports.NewSystemClock()
	}
	return &Service{repoManager, assetSvc, clock}, nil
}

// ListOpenOffers returns the page of not expired offers matching the optional
// free-text filter, sorted by expiration time.
func (s *Service) ListOpenOffers(
	ctx context.Context, filter string, page domain.Page,
) ([]OfferInfo, error) {
	res, err := s.repoManager.RunTransaction(
		ctx, true, func(ctx context.Context) (interface{}, error) {
			return s.repoManager.OfferRepository().GetAllOffers(ctx)
		},
	)
	if err != nil {
		return nil, err
	}
	offers := res.([]domain.Offer)

	now := s.clock.Now()
	term := strings.ToLower(strings.TrimSpace(filter))
	list := make([]OfferInfo, 0)
	for i := range offers {
		offer := offers[i]
		if offer.IsExpired(now) {
			continue
		}
		info, err := s.project(ctx, offer)
		if err != nil {
			return nil, err
		}
		if term != "" && !matches(offer, info, term) {
			continue
		}
		list = append(list, *info)
	}

	return paginate(list, page), nil
}

// GetOffer returns the offer at the given address, whether expired or not.
func (s *Service) GetOffer(
	ctx context.Context, address string,
) (*OfferInfo, error) {
	if !domain.IsValidAddress(address) {
		return nil, domain.ErrInvalidAddress
	}
	offer, err := s.repoManager.OfferRepository().GetOffer(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, *offer)
}

// DeriveOffer returns the address of the offer identified by maker and id,
// and whether an open offer currently lives there. The vault address is
// derived too if the offered asset is given.
func (s *Service) DeriveOffer(
	ctx context.Context, maker string, id uint64, assetOffered string,
) (*DerivedOffer, error) {
	addr, bump, err := domain.DeriveOfferAddress(maker, id)
	if err != nil {
		return nil, err
	}
	derived := &DerivedOffer{Address: addr, Bump: bump}
	if assetOffered != "" {
		if derived.Vault, derived.VaultBump, err = domain.DeriveVaultAddress(
			addr, assetOffered,
		); err != nil {
			return nil, err
		}
	}

	exists := true
	if _, err := s.repoManager.OfferRepository().GetOffer(
		ctx, addr,
	); err != nil {
		if domain.KindOf(err) != domain.KindLifecycle {
			return nil, err
		}
		exists = false
	}
	derived.Exists = exists
	return derived, nil
}

func (s *Service) project(
	ctx context.Context, offer domain.Offer,
) (*OfferInfo, error) {
	offered, err := s.assets.GetAsset(ctx, offer.AssetOffered)
	if err != nil {
		return nil, err
	}
	wanted, err := s.assets.GetAsset(ctx, offer.AssetWanted)
	if err != nil {
		return nil, err
	}
	amountOffered, err := mathutil.ToUIAmount(offer.AmountOffered, offered.Decimals)
	if err != nil {
		return nil, err
	}
	amountWanted, err := mathutil.ToUIAmount(offer.AmountWanted, wanted.Decimals)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	return &OfferInfo{
		Address:           offer.Address,
		Bump:              offer.Bump,
		ID:                offer.ID,
		Maker:             offer.Maker,
		AssetOffered:      offer.AssetOffered,
		AssetOfferedCode:  offered.Symbol,
		AssetWanted:       offer.AssetWanted,
		AssetWantedCode:   wanted.Symbol,
		AmountOffered:     amountOffered,
		AmountWanted:      amountWanted,
		BaseAmountOffered: offer.AmountOffered,
		BaseAmountWanted:  offer.AmountWanted,
		Vault:             offer.Vault,
		ExpiresAt:         offer.ExpiresAt,
		CreatedAt:         offer.CreatedAt,
		Status:            offer.Status(now).String(),
		Expired:           offer.IsExpired(now),
	}, nil
}

func matches(offer domain.Offer, info *OfferInfo, term string) bool {
	return offer.Matches(term) ||
		strings.Contains(strings.ToLower(info.AssetOfferedCode), term) ||
		strings.Contains(strings.ToLower(info.AssetWantedCode), term)
}

func paginate(list []OfferInfo, page domain.Page) []OfferInfo {
	page = domain.NewPage(page.Number, page.Size)
	start := (page.Number - 1) * page.Size
	if start >= len(list) {
		return []OfferInfo{}
	}
	end := start + page.Size
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}
