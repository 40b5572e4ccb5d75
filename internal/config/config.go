package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tdex-network/escrowd/internal/core/domain"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// TradeListeningPortKey is the port where the public HTTP interface listens on
	TradeListeningPortKey = "TRADE_LISTENING_PORT"
	// OperatorListeningPortKey is the port where the operator HTTP interface listens on
	OperatorListeningPortKey = "OPERATOR_LISTENING_PORT"
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// LogFileKey is the optional path of a log file, rotated when too big
	LogFileKey = "LOG_FILE"
	// DbTypeKey is the storage engine, one of badger, sqlite or inmemory
	DbTypeKey = "DB_TYPE"
	// MinOfferDurationKey is the minimum time between creation and expiry of an offer
	MinOfferDurationKey = "MIN_OFFER_DURATION"
	// VaultRentKey is the amount of native asset base units locked for every open vault
	VaultRentKey = "VAULT_RENT"
	// NativeAssetKey is the mint of the asset used to pay the vault rent
	NativeAssetKey = "NATIVE_ASSET"
	// AssetCacheSizeKey is the number of assets kept in memory
	AssetCacheSizeKey = "ASSET_CACHE_SIZE"
	// WebhookTimeoutKey is the timeout of every webhook request
	WebhookTimeoutKey = "WEBHOOK_TIMEOUT"
	// WebhookRateLimitKey is the max number of webhook requests per second
	WebhookRateLimitKey = "WEBHOOK_RATE_LIMIT"
	// NoAuthKey disables the verification of signed requests. Development only.
	NoAuthKey = "NO_AUTH"
	// AuthWindowKey is the max age of a signed request, older or replayed
	// ones are rejected
	AuthWindowKey = "AUTH_WINDOW"
	// StatsIntervalKey defines interval for printing basic memory statistics,
	// zero disables them
	StatsIntervalKey = "STATS_INTERVAL"

	DbLocation = "db"

	DbTypeBadger   = "badger"
	DbTypeSqlite   = "sqlite"
	DbTypeInMemory = "inmemory"
)

var (
	vip            *viper.Viper
	defaultDatadir = btcutil.AppDataDir("escrowd", false)

	supportedDbTypes = map[string]struct{}{
		DbTypeBadger:   {},
		DbTypeSqlite:   {},
		DbTypeInMemory: {},
	}
)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("ESCROW")
	vip.AutomaticEnv()

	vip.SetDefault(TradeListeningPortKey, 9945)
	vip.SetDefault(OperatorListeningPortKey, 9000)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DbTypeKey, DbTypeBadger)
	vip.SetDefault(MinOfferDurationKey, time.Hour)
	vip.SetDefault(VaultRentKey, 0)
	vip.SetDefault(AssetCacheSizeKey, 256)
	vip.SetDefault(WebhookTimeoutKey, 10*time.Second)
	vip.SetDefault(WebhookRateLimitKey, 20)
	vip.SetDefault(NoAuthKey, false)
	vip.SetDefault(AuthWindowKey, 30*time.Second)
	vip.SetDefault(StatsIntervalKey, 0)
}

// InitConfig validates the current configuration, creates the datadir if
// missing, and sets up the logger accordingly.
func InitConfig() error {
	if err := validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %w", err)
	}
	initLogger()
	return nil
}

// GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

// GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

// GetUint64 ...
func GetUint64(key string) uint64 {
	return vip.GetUint64(key)
}

// GetDuration ...
func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

// GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetDbDir returns the directory of the db, empty for the inmemory engine.
func GetDbDir() string {
	if GetString(DbTypeKey) == DbTypeInMemory {
		return ""
	}
	return filepath.Join(GetDatadir(), DbLocation)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// IsSet returns whether the give key is set
func IsSet(key string) bool {
	return vip.IsSet(key)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	dbType := strings.ToLower(GetString(DbTypeKey))
	if _, ok := supportedDbTypes[dbType]; !ok {
		return fmt.Errorf(
			"db type must be one of '%s', '%s' or '%s'",
			DbTypeBadger, DbTypeSqlite, DbTypeInMemory,
		)
	}
	vip.Set(DbTypeKey, dbType)

	if GetDuration(MinOfferDurationKey) <= 0 {
		return fmt.Errorf("min offer duration must be positive")
	}

	if GetUint64(VaultRentKey) > 0 {
		if !domain.IsValidAddress(GetString(NativeAssetKey)) {
			return fmt.Errorf("vault rent requires a valid native asset")
		}
	}

	if GetInt(AssetCacheSizeKey) <= 0 {
		return fmt.Errorf("asset cache size must be positive")
	}
	if GetDuration(AuthWindowKey) <= 0 {
		return fmt.Errorf("auth window must be positive")
	}
	if GetDuration(WebhookTimeoutKey) <= 0 {
		return fmt.Errorf("webhook timeout must be positive")
	}
	if GetInt(WebhookRateLimitKey) <= 0 {
		return fmt.Errorf("webhook rate limit must be positive")
	}

	level := GetInt(LogLevelKey)
	if level < int(log.PanicLevel) || level > int(log.TraceLevel) {
		return fmt.Errorf(
			"log level must be in range [%d, %d]", log.PanicLevel, log.TraceLevel,
		)
	}
	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(datadir); err != nil {
		return err
	}
	if dbDir := GetDbDir(); dbDir != "" {
		return makeDirectoryIfNotExists(dbDir)
	}
	return nil
}

func initLogger() {
	log.SetLevel(log.Level(GetInt(LogLevelKey)))

	logFile := GetString(LogFileKey)
	if logFile == "" {
		return
	}
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
