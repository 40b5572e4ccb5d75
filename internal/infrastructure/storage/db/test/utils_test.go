package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/tdex-network/escrowd/internal/core/ports"
	dbbadger "github.com/tdex-network/escrowd/internal/infrastructure/storage/db/badger"
	"github.com/tdex-network/escrowd/internal/infrastructure/storage/db/inmemory"
	sqlitedb "github.com/tdex-network/escrowd/internal/infrastructure/storage/db/sqlite"
)

type repoManager struct {
	Name string
	ports.RepoManager
}

func (r repoManager) read(
	query func(context.Context) (interface{}, error),
) (interface{}, error) {
	return r.RunTransaction(context.Background(), true, query)
}

func (r repoManager) write(
	query func(context.Context) (interface{}, error),
) (interface{}, error) {
	return r.RunTransaction(context.Background(), false, query)
}

// createRepoManagers returns one fresh repo manager per storage engine. Both
// badger and sqlite are kept in memory.
func createRepoManagers(t *testing.T) []repoManager {
	badgerRepoManager, err := dbbadger.NewRepoManager("", nil)
	require.NoError(t, err)
	sqliteRepoManager, err := sqlitedb.NewRepoManager("")
	require.NoError(t, err)

	t.Cleanup(func() {
		badgerRepoManager.Close()
		sqliteRepoManager.Close()
	})

	return []repoManager{
		{"inmemory", inmemory.NewRepoManager()},
		{"badger", badgerRepoManager},
		{"sqlite", sqliteRepoManager},
	}
}

func randomIdentity(t *testing.T) string {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return domain.IdentityFromPubKey(key.PubKey())
}

func randomAsset(t *testing.T, decimals uint) domain.Asset {
	asset, err := domain.NewAsset(randomIdentity(t), "Token", "TKN", decimals, 1000)
	require.NoError(t, err)
	return *asset
}

func randomOffer(t *testing.T, expiresAt int64) (domain.Offer, domain.Vault) {
	maker := randomIdentity(t)
	offered, wanted := randomAsset(t, 6), randomAsset(t, 2)
	offerAddr, offerBump, err := domain.DeriveOfferAddress(maker, uint64(expiresAt))
	require.NoError(t, err)
	vaultAddr, vaultBump, err := domain.DeriveVaultAddress(offerAddr, offered.Mint)
	require.NoError(t, err)

	offer := domain.Offer{
		Address:       offerAddr,
		Bump:          offerBump,
		ID:            uint64(expiresAt),
		Maker:         maker,
		AssetOffered:  offered.Mint,
		AssetWanted:   wanted.Mint,
		AmountOffered: ^uint64(0),
		AmountWanted:  1,
		ExpiresAt:     expiresAt,
		CreatedAt:     time.Now().Unix(),
		Vault:         vaultAddr,
	}
	vault := domain.Vault{
		Address:     vaultAddr,
		Bump:        vaultBump,
		Offer:       offerAddr,
		Asset:       offered.Mint,
		Amount:      offer.AmountOffered,
		RentDeposit: 2039280,
	}
	return offer, vault
}
