package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/escrowd/internal/config"
	"github.com/tdex-network/escrowd/internal/core/application/asset"
	"github.com/tdex-network/escrowd/internal/core/application/escrow"
	"github.com/tdex-network/escrowd/internal/core/application/pubsub"
	"github.com/tdex-network/escrowd/internal/core/application/registry"
	"github.com/tdex-network/escrowd/internal/core/ports"
	webhookpubsub "github.com/tdex-network/escrowd/internal/infrastructure/pubsub"
	dbbadger "github.com/tdex-network/escrowd/internal/infrastructure/storage/db/badger"
	"github.com/tdex-network/escrowd/internal/infrastructure/storage/db/inmemory"
	sqlitedb "github.com/tdex-network/escrowd/internal/infrastructure/storage/db/sqlite"
	httpinterface "github.com/tdex-network/escrowd/internal/interfaces/http"
	httphandler "github.com/tdex-network/escrowd/internal/interfaces/http/handler"
	"github.com/tdex-network/escrowd/pkg/stats"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("error while initializing config")
	}

	var (
		datadir = config.GetDatadir()
		dbType  = config.GetString(config.DbTypeKey)
		dbDir   = config.GetDbDir()

		tradeAddress    = fmt.Sprintf(":%d", config.GetInt(config.TradeListeningPortKey))
		operatorAddress = fmt.Sprintf(":%d", config.GetInt(config.OperatorListeningPortKey))
	)

	repoManager, err := newRepoManager(dbType, dbDir)
	if err != nil {
		log.WithError(err).Fatal("error while opening db")
	}
	log.Infof("using %s db", dbType)

	webhooksDir := datadir
	if dbType == config.DbTypeInMemory {
		webhooksDir = ""
	}
	webhooks, err := webhookpubsub.NewService(
		webhooksDir,
		config.GetDuration(config.WebhookTimeoutKey),
		config.GetInt(config.WebhookRateLimitKey),
		log.StandardLogger(),
	)
	if err != nil {
		log.WithError(err).Fatal("error while setting up webhooks")
	}

	eventHub := httphandler.NewEventHub()
	pubsubSvc := pubsub.NewService(webhooks, eventHub)

	assetSvc, err := asset.NewService(
		repoManager, config.GetInt(config.AssetCacheSizeKey),
	)
	if err != nil {
		log.WithError(err).Fatal("error while setting up asset service")
	}
	escrowSvc, err := escrow.NewService(
		repoManager, pubsubSvc, nil, escrow.Options{
			MinOfferDuration: config.GetDuration(config.MinOfferDurationKey),
			VaultRent:        config.GetUint64(config.VaultRentKey),
			NativeAsset:      config.GetString(config.NativeAssetKey),
		},
	)
	if err != nil {
		log.WithError(err).Fatal("error while setting up escrow service")
	}
	registrySvc, err := registry.NewService(repoManager, assetSvc, nil)
	if err != nil {
		log.WithError(err).Fatal("error while setting up registry service")
	}

	if config.GetBool(config.NoAuthKey) {
		log.Warn("signature verification is disabled, do not use in production")
	}
	if log.GetLevel() < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	svc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		NoAuth:          config.GetBool(config.NoAuthKey),
		AuthWindow:      config.GetDuration(config.AuthWindowKey),
		TradeAddress:    tradeAddress,
		OperatorAddress: operatorAddress,
		EscrowSvc:       escrowSvc,
		RegistrySvc:     registrySvc,
		AssetSvc:        assetSvc,
		PubSubSvc:       pubsubSvc,
		EventHub:        eventHub,
	})
	if err != nil {
		log.WithError(err).Fatal("error while setting up interfaces")
	}

	ctx, cancel := context.WithCancel(context.Background())
	if interval := config.GetDuration(config.StatsIntervalKey); interval > 0 {
		stats.EnableMemoryStatistics(ctx, interval)
	}

	log.Info("starting daemon")
	if err := svc.Start(); err != nil {
		log.WithError(err).Fatal("error while starting daemon")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, os.Interrupt)
	<-sigChan

	log.Info("shutting down daemon")
	cancel()
	svc.Stop()
	pubsubSvc.Close()
	repoManager.Close()
	log.Info("exiting")
}

func newRepoManager(dbType, dbDir string) (ports.RepoManager, error) {
	switch dbType {
	case config.DbTypeSqlite:
		return sqlitedb.NewRepoManager(dbDir)
	case config.DbTypeInMemory:
		return inmemory.NewRepoManager(), nil
	default:
		return dbbadger.NewRepoManager(dbDir, log.StandardLogger())
	}
}
