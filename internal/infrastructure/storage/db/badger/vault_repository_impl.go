package dbbadger

import (
	"context"
	"errors"
	"fmt"

	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type vaultRepositoryImpl struct {
	store *badgerhold.Store
}

// NewVaultRepositoryImpl returns a new badger VaultRepository implementation.
func NewVaultRepositoryImpl(store *badgerhold.Store) domain.VaultRepository {
	return vaultRepositoryImpl{store}
}

func (r vaultRepositoryImpl) AddVault(ctx context.Context, vault domain.Vault) error {
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxInsert(tx, vault.Address, &vault)
	} else {
		err = r.store.Insert(vault.Address, &vault)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("%w: vault %s", domain.ErrDuplicateOfferID, vault.Address)
		}
		return err
	}
	return nil
}

func (r vaultRepositoryImpl) GetVault(
	ctx context.Context, address string,
) (*domain.Vault, error) {
	var vault domain.Vault
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, address, &vault)
	} else {
		err = r.store.Get(address, &vault)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: vault %s", domain.ErrOfferNotFound, address)
		}
		return nil, err
	}
	return &vault, nil
}

func (r vaultRepositoryImpl) DeleteVault(ctx context.Context, address string) error {
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxDelete(tx, address, domain.Vault{})
	} else {
		err = r.store.Delete(address, domain.Vault{})
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: vault %s", domain.ErrOfferNotFound, address)
		}
		return err
	}
	return nil
}
