package domain

// Vault escrows the offered funds of one offer. Nobody but the lifecycle
// transitions of that offer can move them.
type Vault struct {
	Address string
	Bump    uint8
	Offer   string
	Asset   string
	Amount  uint64
	// RentDeposit is the custody overhead, in native asset, paid by the maker
	// at creation and returned to the maker when the vault is closed.
	RentDeposit uint64
}

// Withdraw empties the vault and returns its content. A vault is never
// partially withdrawn.
func (v *Vault) Withdraw() uint64 {
	amount := v.Amount
	v.Amount = 0
	return amount
}
