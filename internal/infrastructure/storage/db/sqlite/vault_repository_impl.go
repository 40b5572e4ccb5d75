package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tdex-network/escrowd/internal/core/domain"
)

const (
	insertVaultQuery = `INSERT INTO vaults (address, bump, offer, asset, amount, rent_deposit)
VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(address) DO NOTHING`
	selectVaultQuery = `SELECT address, bump, offer, asset, amount, rent_deposit FROM vaults WHERE address = ?`
	deleteVaultQuery = `DELETE FROM vaults WHERE address = ?`
)

type vaultRepositoryImpl struct {
	querier func(ctx context.Context) querier
}

// NewVaultRepositoryImpl returns a new sqlite VaultRepository implementation.
func NewVaultRepositoryImpl(
	q func(ctx context.Context) querier,
) domain.VaultRepository {
	return &vaultRepositoryImpl{q}
}

func (r *vaultRepositoryImpl) AddVault(ctx context.Context, vault domain.Vault) error {
	res, err := r.querier(ctx).ExecContext(
		ctx, insertVaultQuery, vault.Address, int64(vault.Bump), vault.Offer,
		vault.Asset, encodeUint(vault.Amount), encodeUint(vault.RentDeposit),
	)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: vault %s", domain.ErrDuplicateOfferID, vault.Address)
	}
	return nil
}

func (r *vaultRepositoryImpl) GetVault(
	ctx context.Context, address string,
) (*domain.Vault, error) {
	var vault domain.Vault
	var bump int64
	var amount, rent string
	if err := r.querier(ctx).QueryRowContext(
		ctx, selectVaultQuery, address,
	).Scan(
		&vault.Address, &bump, &vault.Offer, &vault.Asset, &amount, &rent,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: vault %s", domain.ErrOfferNotFound, address)
		}
		return nil, mapError(err)
	}

	vault.Bump = uint8(bump)
	var err error
	if vault.Amount, err = decodeUint(amount); err != nil {
		return nil, err
	}
	if vault.RentDeposit, err = decodeUint(rent); err != nil {
		return nil, err
	}
	return &vault, nil
}

func (r *vaultRepositoryImpl) DeleteVault(ctx context.Context, address string) error {
	res, err := r.querier(ctx).ExecContext(ctx, deleteVaultQuery, address)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: vault %s", domain.ErrOfferNotFound, address)
	}
	return nil
}
