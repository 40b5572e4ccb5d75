package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/tdex-network/escrowd/internal/core/ports"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	sqliteDriver = "sqlite"
	dbFile       = "escrow.db"
	inMemoryDsn  = ":memory:"
	dsnTemplate  = "file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS assets (
		mint TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		decimals INTEGER NOT NULL,
		creator TEXT NOT NULL,
		supply TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		address TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		asset TEXT NOT NULL,
		amount TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS holdings_owner ON holdings(owner)`,
	`CREATE TABLE IF NOT EXISTS offers (
		address TEXT PRIMARY KEY,
		bump INTEGER NOT NULL,
		id TEXT NOT NULL,
		maker TEXT NOT NULL,
		asset_offered TEXT NOT NULL,
		asset_wanted TEXT NOT NULL,
		amount_offered TEXT NOT NULL,
		amount_wanted TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		vault TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS offers_expiry ON offers(expires_at, address)`,
	`CREATE TABLE IF NOT EXISTS vaults (
		address TEXT PRIMARY KEY,
		bump INTEGER NOT NULL,
		offer TEXT NOT NULL,
		asset TEXT NOT NULL,
		amount TEXT NOT NULL,
		rent_deposit TEXT NOT NULL
	)`,
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type repoManager struct {
	db *sql.DB

	assetRepository   domain.AssetRepository
	holdingRepository domain.HoldingRepository
	offerRepository   domain.OfferRepository
	vaultRepository   domain.VaultRepository
}

// NewRepoManager opens (or creates if not exists) the sqlite db in the given
// directory. An empty directory makes the db live in memory only.
// The db is accessed through a single connection, therefore transactions are
// serialized.
func NewRepoManager(baseDbDir string) (ports.RepoManager, error) {
	dsn := inMemoryDsn
	if len(baseDbDir) > 0 {
		if err := os.MkdirAll(baseDbDir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
		dsn = fmt.Sprintf(dsnTemplate, filepath.Join(baseDbDir, dbFile))
	}

	db, err := sql.Open(sqliteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := migrate(db); err != nil {
		//nolint
		db.Close()
		return nil, err
	}

	rm := &repoManager{db: db}
	rm.assetRepository = NewAssetRepositoryImpl(rm.querier)
	rm.holdingRepository = NewHoldingRepositoryImpl(rm.querier)
	rm.offerRepository = NewOfferRepositoryImpl(rm.querier)
	rm.vaultRepository = NewVaultRepositoryImpl(rm.querier)

	return rm, nil
}

func (r *repoManager) AssetRepository() domain.AssetRepository {
	return r.assetRepository
}

func (r *repoManager) HoldingRepository() domain.HoldingRepository {
	return r.holdingRepository
}

func (r *repoManager) OfferRepository() domain.OfferRepository {
	return r.offerRepository
}

func (r *repoManager) VaultRepository() domain.VaultRepository {
	return r.vaultRepository
}

func (r *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if _, ok := ctx.Value("tx").(*sql.Tx); ok {
		return handler(ctx)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, mapError(err)
	}

	// Rollback is safe to call even if the tx is already closed, so if
	// the tx commits successfully, this is a no-op.
	defer func() {
		err := tx.Rollback()
		switch {
		case errors.Is(err, sql.ErrTxDone):
			return
		case err != nil:
			log.Errorf("unable to rollback db tx: %v", err)
		}
	}()

	res, err := handler(context.WithValue(ctx, "tx", tx))
	if err != nil {
		return nil, err
	}
	if readOnly {
		return res, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

func (r *repoManager) Close() {
	if err := r.db.Close(); err != nil {
		log.WithError(err).Warn("failed to close sqlite db")
	}
}

// querier returns the transaction carried by ctx, if any, or the db.
func (r *repoManager) querier(ctx context.Context) querier {
	if tx, ok := ctx.Value("tx").(*sql.Tx); ok {
		return tx
	}
	return r.db
}

func migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// mapError turns a lock contention on the db file, ie. held by another
// process, into a conflict the caller can retry.
func mapError(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %s", domain.ErrTransactionConflict, err)
		}
	}
	return err
}
