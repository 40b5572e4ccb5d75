package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitConfig(t *testing.T) {
	datadir := t.TempDir()
	Set(DatadirKey, datadir)

	require.NoError(t, InitConfig())
	require.DirExists(t, filepath.Join(datadir, DbLocation))
	require.Equal(t, 9945, GetInt(TradeListeningPortKey))
	require.Equal(t, time.Hour, GetDuration(MinOfferDurationKey))
	require.Equal(t, 30*time.Second, GetDuration(AuthWindowKey))
	require.Equal(t, filepath.Join(datadir, DbLocation), GetDbDir())
}

func TestFailingInitConfig(t *testing.T) {
	datadir := t.TempDir()

	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"unknown db type", DbTypeKey, "postgres"},
		{"zero offer duration", MinOfferDurationKey, "0s"},
		{"rent without native asset", VaultRentKey, 1000},
		{"invalid log level", LogLevelKey, 9},
		{"zero rate limit", WebhookRateLimitKey, 0},
		{"zero auth window", AuthWindowKey, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Set(DatadirKey, datadir)
			prev := vip.Get(tt.key)
			Set(tt.key, tt.value)
			defer Set(tt.key, prev)

			require.Error(t, InitConfig())
		})
	}
}
