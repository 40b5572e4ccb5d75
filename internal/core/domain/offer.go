package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tdex-network/escrowd/pkg/mathutil"
)

// OfferStatus is derived from the existence of the offer record and from its
// expiration time; it is never stored.
type OfferStatus int

const (
	OfferStatusOpen OfferStatus = iota
	OfferStatusExpired
)

func (s OfferStatus) String() string {
	if s == OfferStatusExpired {
		return "EXPIRED"
	}
	return "OPEN"
}

// Offer is the standing proposal of a maker to swap a fixed amount of one
// asset for a fixed amount of another before the expiration time.
type Offer struct {
	Address       string
	Bump          uint8
	ID            uint64
	Maker         string
	AssetOffered  string
	AssetWanted   string
	AmountOffered uint64
	AmountWanted  uint64
	// ExpiresAt is a unix timestamp in seconds.
	ExpiresAt int64
	CreatedAt int64
	Vault     string
}

// OfferTerms are the arguments of an offer as entered by its maker.
type OfferTerms struct {
	ID            uint64
	AssetOffered  string
	AssetWanted   string
	AmountOffered decimal.Decimal
	AmountWanted  decimal.Decimal
	ExpiresAt     int64
}

// Validate checks the terms that don't require reading any state.
func (t OfferTerms) Validate(now time.Time, minDuration time.Duration) error {
	if !IsValidAddress(t.AssetOffered) || !IsValidAddress(t.AssetWanted) {
		return ErrInvalidAddress
	}
	if t.AssetOffered == t.AssetWanted {
		return ErrSameAsset
	}
	minExpiry := now.Add(minDuration).Unix()
	if t.ExpiresAt < minExpiry {
		return fmt.Errorf(
			"%w: must be at least %d, got %d", ErrInvalidExpiry, minExpiry, t.ExpiresAt,
		)
	}
	if !t.AmountOffered.IsPositive() || !t.AmountWanted.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// NewOffer converts the terms into base units of the given assets and returns
// the offer together with its vault, holding exactly the offered amount.
func NewOffer(
	maker string, terms OfferTerms, offered, wanted Asset, now time.Time,
) (*Offer, *Vault, error) {
	if offered.Mint != terms.AssetOffered || wanted.Mint != terms.AssetWanted {
		return nil, nil, fmt.Errorf("assets do not match offer terms")
	}

	amountOffered, err := toBaseUnits(terms.AmountOffered, offered)
	if err != nil {
		return nil, nil, err
	}
	amountWanted, err := toBaseUnits(terms.AmountWanted, wanted)
	if err != nil {
		return nil, nil, err
	}

	offerAddr, offerBump, err := DeriveOfferAddress(maker, terms.ID)
	if err != nil {
		return nil, nil, err
	}
	vaultAddr, vaultBump, err := DeriveVaultAddress(offerAddr, offered.Mint)
	if err != nil {
		return nil, nil, err
	}

	offer := &Offer{
		Address:       offerAddr,
		Bump:          offerBump,
		ID:            terms.ID,
		Maker:         maker,
		AssetOffered:  offered.Mint,
		AssetWanted:   wanted.Mint,
		AmountOffered: amountOffered,
		AmountWanted:  amountWanted,
		ExpiresAt:     terms.ExpiresAt,
		CreatedAt:     now.Unix(),
		Vault:         vaultAddr,
	}
	vault := &Vault{
		Address: vaultAddr,
		Bump:    vaultBump,
		Offer:   offerAddr,
		Asset:   offered.Mint,
		Amount:  amountOffered,
	}
	return offer, vault, nil
}

// IsExpired returns whether the offer can't be accepted anymore at the given
// time.
func (o *Offer) IsExpired(now time.Time) bool {
	return now.Unix() >= o.ExpiresAt
}

// Status ...
func (o *Offer) Status(now time.Time) OfferStatus {
	if o.IsExpired(now) {
		return OfferStatusExpired
	}
	return OfferStatusOpen
}

// CanBeAcceptedBy checks the preconditions of the accept transition that
// don't depend on the taker's balance.
func (o *Offer) CanBeAcceptedBy(taker string, now time.Time) error {
	if o.IsExpired(now) {
		return ErrOfferExpired
	}
	if taker == o.Maker {
		return ErrSelfTrade
	}
	return nil
}

// AcceptTerms are the amounts a taker agrees to swap when accepting an
// offer, in UI units. They bind an accept request to the offer the taker has
// seen, since a closed offer's address is reused by the next offer of the
// same maker and id.
type AcceptTerms struct {
	AmountOffered decimal.Decimal
	AmountWanted  decimal.Decimal
}

// MatchesTerms checks that the offer swaps exactly the agreed amounts.
func (o *Offer) MatchesTerms(t AcceptTerms, offered, wanted Asset) error {
	amountOffered, err := toBaseUnits(t.AmountOffered, offered)
	if err != nil {
		return err
	}
	amountWanted, err := toBaseUnits(t.AmountWanted, wanted)
	if err != nil {
		return err
	}
	if amountOffered != o.AmountOffered || amountWanted != o.AmountWanted {
		return fmt.Errorf(
			"%w: offer swaps %d for %d base units",
			ErrTermsMismatch, o.AmountOffered, o.AmountWanted,
		)
	}
	return nil
}

// CanBeCancelledBy checks that the caller is either the maker or that the
// offer has already expired.
func (o *Offer) CanBeCancelledBy(caller string, now time.Time) error {
	if caller != o.Maker && !o.IsExpired(now) {
		return ErrNotExpiredAndNotMaker
	}
	return nil
}

// IsLinkedTo returns whether the vault is the one derived for this offer.
func (o *Offer) IsLinkedTo(v *Vault) bool {
	return v != nil && v.Address == o.Vault && v.Offer == o.Address &&
		v.Asset == o.AssetOffered
}

// Matches returns whether the maker or any of the offer assets contains the
// given lowercase term.
func (o *Offer) Matches(term string) bool {
	return strings.Contains(strings.ToLower(o.Maker), term) ||
		strings.Contains(strings.ToLower(o.AssetOffered), term) ||
		strings.Contains(strings.ToLower(o.AssetWanted), term)
}

// Receipt summarizes the fund movements of a settled or cancelled offer.
type Receipt struct {
	Offer         string
	Maker         string
	Counterparty  string
	AssetOffered  string
	AssetWanted   string
	AmountOffered uint64
	AmountWanted  uint64
	RentReturned  uint64
	Timestamp     int64
}

func toBaseUnits(amount decimal.Decimal, asset Asset) (uint64, error) {
	base, err := mathutil.ToBaseUnits(amount, asset.Decimals)
	if err != nil {
		if errors.Is(err, mathutil.ErrInvalidPrecision) {
			return 0, ErrInvalidDecimals
		}
		return 0, fmt.Errorf(
			"%w: %s with %d decimals", ErrInvalidAmount, amount, asset.Decimals,
		)
	}
	return base, nil
}
