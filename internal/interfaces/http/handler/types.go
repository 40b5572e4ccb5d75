package httphandler

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/tdex-network/escrowd/pkg/mathutil"
)

type createAssetRequest struct {
	Name     string `json:"name" binding:"required"`
	Symbol   string `json:"symbol" binding:"required"`
	Decimals uint   `json:"decimals"`
	Supply   string `json:"supply" binding:"required"`
}

type createOfferRequest struct {
	ID            uint64 `json:"id"`
	AssetOffered  string `json:"asset_offered" binding:"required"`
	AssetWanted   string `json:"asset_wanted" binding:"required"`
	AmountOffered string `json:"amount_offered" binding:"required"`
	AmountWanted  string `json:"amount_wanted" binding:"required"`
	ExpiresAt     int64  `json:"expires_at"`
}

func (r createOfferRequest) toDomain() (*domain.OfferTerms, error) {
	amountOffered, err := mathutil.ParseUIAmount(r.AmountOffered)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: amount offered %q", domain.ErrInvalidAmount, r.AmountOffered,
		)
	}
	amountWanted, err := mathutil.ParseUIAmount(r.AmountWanted)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: amount wanted %q", domain.ErrInvalidAmount, r.AmountWanted,
		)
	}
	return &domain.OfferTerms{
		ID:            r.ID,
		AssetOffered:  r.AssetOffered,
		AssetWanted:   r.AssetWanted,
		AmountOffered: amountOffered,
		AmountWanted:  amountWanted,
		ExpiresAt:     r.ExpiresAt,
	}, nil
}

// acceptOfferRequest is the optional body of an accept, binding it to the
// amounts the taker agreed to.
type acceptOfferRequest struct {
	AmountOffered string `json:"amount_offered" binding:"required"`
	AmountWanted  string `json:"amount_wanted" binding:"required"`
}

func (r acceptOfferRequest) toDomain() (*domain.AcceptTerms, error) {
	amountOffered, err := mathutil.ParseUIAmount(r.AmountOffered)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: amount offered %q", domain.ErrInvalidAmount, r.AmountOffered,
		)
	}
	amountWanted, err := mathutil.ParseUIAmount(r.AmountWanted)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: amount wanted %q", domain.ErrInvalidAmount, r.AmountWanted,
		)
	}
	return &domain.AcceptTerms{
		AmountOffered: amountOffered,
		AmountWanted:  amountWanted,
	}, nil
}

type listOffersQuery struct {
	Filter string `form:"filter"`
	Page   int    `form:"page"`
	Size   int    `form:"size"`
}

type deriveOfferQuery struct {
	Maker string `form:"maker" binding:"required"`
	ID    uint64 `form:"id"`
	Asset string `form:"asset"`
}

type addWebhookRequest struct {
	Event    string `json:"event" binding:"required"`
	Endpoint string `json:"endpoint" binding:"required"`
	Secret   string `json:"secret"`
}

type assetView struct {
	Mint       string          `json:"mint"`
	Name       string          `json:"name"`
	Symbol     string          `json:"symbol"`
	Decimals   uint            `json:"decimals"`
	Creator    string          `json:"creator"`
	Supply     decimal.Decimal `json:"supply"`
	BaseSupply uint64          `json:"base_supply"`
}

func newAssetView(a domain.Asset) assetView {
	supply, _ := mathutil.ToUIAmount(a.Supply, a.Decimals)
	return assetView{
		Mint:       a.Mint,
		Name:       a.Name,
		Symbol:     a.Symbol,
		Decimals:   a.Decimals,
		Creator:    a.Creator,
		Supply:     supply,
		BaseSupply: a.Supply,
	}
}

type receiptView struct {
	Offer         string `json:"offer"`
	Maker         string `json:"maker"`
	Counterparty  string `json:"counterparty"`
	AssetOffered  string `json:"asset_offered"`
	AssetWanted   string `json:"asset_wanted"`
	AmountOffered string `json:"amount_offered"`
	AmountWanted  string `json:"amount_wanted"`
	RentReturned  uint64 `json:"rent_returned"`
	Timestamp     int64  `json:"timestamp"`
}

func newReceiptView(r domain.Receipt, offered, wanted domain.Asset) receiptView {
	return receiptView{
		Offer:         r.Offer,
		Maker:         r.Maker,
		Counterparty:  r.Counterparty,
		AssetOffered:  r.AssetOffered,
		AssetWanted:   r.AssetWanted,
		AmountOffered: mathutil.FormatUIAmount(r.AmountOffered, offered.Decimals),
		AmountWanted:  mathutil.FormatUIAmount(r.AmountWanted, wanted.Decimals),
		RentReturned:  r.RentReturned,
		Timestamp:     r.Timestamp,
	}
}
