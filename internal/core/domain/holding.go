package domain

import (
	"fmt"

	"github.com/tdex-network/escrowd/pkg/mathutil"
)

// Holding is the balance of one asset owned by one identity, stored at the
// address derived from the pair.
type Holding struct {
	Address string
	Owner   string
	Asset   string
	Amount  uint64
}

// NewHolding returns an empty holding for the given owner and asset.
func NewHolding(owner, asset string) (*Holding, error) {
	addr, err := DeriveHoldingAddress(owner, asset)
	if err != nil {
		return nil, err
	}
	return &Holding{Address: addr, Owner: owner, Asset: asset}, nil
}

// Debit removes amount from the holding.
func (h *Holding) Debit(amount uint64) error {
	balance, err := mathutil.SafeSub(h.Amount, amount)
	if err != nil {
		return fmt.Errorf(
			"%w: %s holds %d of %s, %d required",
			ErrInsufficientFunds, h.Owner, h.Amount, h.Asset, amount,
		)
	}
	h.Amount = balance
	return nil
}

// Credit adds amount to the holding.
func (h *Holding) Credit(amount uint64) error {
	balance, err := mathutil.SafeAdd(h.Amount, amount)
	if err != nil {
		return fmt.Errorf("%w: %s of %s", ErrAmountOverflow, h.Owner, h.Asset)
	}
	h.Amount = balance
	return nil
}

// IsEmpty ...
func (h *Holding) IsEmpty() bool {
	return h.Amount == 0
}
