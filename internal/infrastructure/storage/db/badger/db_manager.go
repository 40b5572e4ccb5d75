package dbbadger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/tdex-network/escrowd/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

const escrowDir = "escrow"

type repoManager struct {
	store *badgerhold.Store

	assetRepository   domain.AssetRepository
	holdingRepository domain.HoldingRepository
	offerRepository   domain.OfferRepository
	vaultRepository   domain.VaultRepository
}

// NewRepoManager opens (or creates if not exists) the badger store on disk.
// It expects a base data dir and an optional logger. An empty data dir makes
// the store live in memory only.
func NewRepoManager(
	baseDbDir string, logger badger.Logger,
) (ports.RepoManager, error) {
	var dbDir string
	if len(baseDbDir) > 0 {
		dbDir = filepath.Join(baseDbDir, escrowDir)
	}

	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening escrow db: %w", err)
	}

	return &repoManager{
		store:             store,
		assetRepository:   NewAssetRepositoryImpl(store),
		holdingRepository: NewHoldingRepositoryImpl(store),
		offerRepository:   NewOfferRepositoryImpl(store),
		vaultRepository:   NewVaultRepositoryImpl(store),
	}, nil
}

func (d *repoManager) AssetRepository() domain.AssetRepository {
	return d.assetRepository
}

func (d *repoManager) HoldingRepository() domain.HoldingRepository {
	return d.holdingRepository
}

func (d *repoManager) OfferRepository() domain.OfferRepository {
	return d.offerRepository
}

func (d *repoManager) VaultRepository() domain.VaultRepository {
	return d.vaultRepository
}

// RunTransaction runs handler in a badger transaction. Badger transactions
// are optimistic: if any key read by handler has been committed by another
// transaction in the meantime, the commit fails with
// domain.ErrTransactionConflict and nothing is written.
func (d *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if _, ok := ctx.Value("tx").(*badger.Txn); ok {
		return handler(ctx)
	}

	tx := d.store.Badger().NewTransaction(!readOnly)
	defer tx.Discard()

	res, err := handler(context.WithValue(ctx, "tx", tx))
	if err != nil {
		return nil, err
	}
	if readOnly {
		return res, nil
	}

	if err := tx.Commit(); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return nil, domain.ErrTransactionConflict
		}
		return nil, err
	}
	return res, nil
}

func (d *repoManager) Close() {
	d.store.Close()
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}

func txFromContext(ctx context.Context) *badger.Txn {
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok {
		return tx
	}
	return nil
}
