package domain

import (
	"fmt"
	"strings"

	"github.com/tdex-network/escrowd/pkg/mathutil"
)

// Asset is a fungible token type. Its precision is fixed at registration and
// never changes afterwards.
type Asset struct {
	// Mint is the derived address identifying the asset.
	Mint     string
	Name     string
	Symbol   string
	Decimals uint
	Creator  string
	// Supply is the amount of base units minted at registration.
	Supply uint64
}

// NewAsset validates the arguments and returns an asset whose mint address is
// derived from the creator and the symbol.
func NewAsset(
	creator, name, symbol string, decimals uint, supply uint64,
) (*Asset, error) {
	name, symbol = strings.TrimSpace(name), strings.TrimSpace(symbol)
	if name == "" || symbol == "" {
		return nil, ErrInvalidAsset
	}
	if decimals > mathutil.MaxPrecision {
		return nil, ErrInvalidDecimals
	}
	if supply == 0 {
		return nil, fmt.Errorf("%w: supply must be positive", ErrInvalidAmount)
	}
	mint, err := DeriveAssetAddress(creator, symbol)
	if err != nil {
		return nil, err
	}

	return &Asset{
		Mint:     mint,
		Name:     name,
		Symbol:   symbol,
		Decimals: decimals,
		Creator:  creator,
		Supply:   supply,
	}, nil
}

// Matches returns whether the asset mint, name or symbol contains the
// given lowercase term.
func (a Asset) Matches(term string) bool {
	return strings.Contains(strings.ToLower(a.Mint), term) ||
		strings.Contains(strings.ToLower(a.Name), term) ||
		strings.Contains(strings.ToLower(a.Symbol), term)
}
