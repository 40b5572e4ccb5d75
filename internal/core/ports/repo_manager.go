package ports

import (
	"context"

	"github.com/tdex-network/escrowd/internal/core/domain"
)

// RepoManager interface defines the methods for assets, holdings, offers and
// vaults along with the way to group their changes in a single atomic unit.
type RepoManager interface {
	AssetRepository() domain.AssetRepository
	HoldingRepository() domain.HoldingRepository
	OfferRepository() domain.OfferRepository
	VaultRepository() domain.VaultRepository

	// RunTransaction invokes handler with a context carrying the db
	// transaction. Every repository call made with such context is committed
	// only if handler returns no error, otherwise none of them is.
	// A commit that conflicts with a concurrent one fails with
	// domain.ErrTransactionConflict.
	RunTransaction(
		ctx context.Context,
		readOnly bool,
		handler func(ctx context.Context) (interface{}, error),
	) (interface{}, error)

	Close()
}
