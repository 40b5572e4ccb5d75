package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func TestVerifier(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubkey := Identity(key)
	path := "/v1/offers/abc/accept"

	now := time.Unix(1700000000, 0)
	v := newVerifier(30*time.Second, 2, func() time.Time { return now })

	signAt := func(ts time.Time) (string, string) {
		timestamp := strconv.FormatInt(ts.Unix(), 10)
		return SignAt(key, "POST", path, timestamp, nil), timestamp
	}

	t.Run("replayed request", func(t *testing.T) {
		sig, ts := signAt(now)
		identity, err := v.Verify(pubkey, sig, "POST", path, ts, nil)
		require.NoError(t, err)
		require.Equal(t, pubkey, identity)

		_, err = v.Verify(pubkey, sig, "POST", path, ts, nil)
		require.ErrorIs(t, err, ErrReplayedRequest)
	})

	t.Run("out of window", func(t *testing.T) {
		for _, ts := range []time.Time{
			now.Add(-31 * time.Second), now.Add(31 * time.Second),
		} {
			sig, timestamp := signAt(ts)
			_, err := v.Verify(pubkey, sig, "POST", path, timestamp, nil)
			require.ErrorIs(t, err, ErrExpiredRequest)
		}
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		sig := SignAt(key, "POST", path, "yesterday", nil)
		_, err := v.Verify(pubkey, sig, "POST", path, "yesterday", nil)
		require.ErrorIs(t, err, ErrInvalidTimestamp)
	})

	t.Run("full cache", func(t *testing.T) {
		sig, ts := signAt(now.Add(-time.Second))
		_, err := v.Verify(pubkey, sig, "POST", path, ts, nil)
		require.NoError(t, err)

		sig, ts = signAt(now.Add(-2 * time.Second))
		_, err = v.Verify(pubkey, sig, "POST", path, ts, nil)
		require.ErrorIs(t, err, ErrTooManyRequests)
	})
}
