package main

import (
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/escrowd/pkg/auth"
)

func TestSignedPost(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if _, err := auth.Verify(
			r.Header.Get(auth.PubkeyHeader), r.Header.Get(auth.SignatureHeader),
			r.Method, r.URL.Path, r.Header.Get(auth.TimestampHeader), body,
		); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			//nolint
			w.Write([]byte(`{"error":"Unauthenticated","message":"` + err.Error() + `"}`))
			return
		}
		//nolint
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	reply, err := newClient(srv.URL, key).post("/v1/offers", map[string]int{"id": 1})
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(reply))

	_, err = newClient(srv.URL, nil).post("/v1/offers", map[string]int{"id": 1})
	require.EqualError(t, err, "Unauthenticated: missing public key header")
}

func TestFailingResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, nil).get("/v1/offers", nil)
	require.EqualError(t, err, "request failed with status 502")
}

func TestState(t *testing.T) {
	escrowDataDir = t.TempDir()
	statePath = filepath.Join(escrowDataDir, "state.json")

	_, err := getState()
	require.Error(t, err)

	require.NoError(t, setState(map[string]string{"daemon_url": "http://localhost:9945"}))
	require.NoError(t, setState(map[string]string{"operator_url": "http://localhost:9000"}))

	state, err := getState()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9945", state["daemon_url"])
	require.Equal(t, "http://localhost:9000", state["operator_url"])

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	require.NoError(t, setState(map[string]string{"key": hex.EncodeToString(key.Serialize())}))

	client, err := getTradeClient()
	require.NoError(t, err)
	identity, err := client.identity()
	require.NoError(t, err)
	require.Equal(t, auth.Identity(key), identity)

	_, err = parseKey("deadbeef")
	require.Error(t, err)
}
