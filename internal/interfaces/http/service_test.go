package httpinterface_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/escrowd/internal/core/application/asset"
	"github.com/tdex-network/escrowd/internal/core/application/escrow"
	"github.com/tdex-network/escrowd/internal/core/application/pubsub"
	"github.com/tdex-network/escrowd/internal/core/application/registry"
	webhookpubsub "github.com/tdex-network/escrowd/internal/infrastructure/pubsub"
	"github.com/tdex-network/escrowd/internal/infrastructure/storage/db/inmemory"
	httpinterface "github.com/tdex-network/escrowd/internal/interfaces/http"
	httphandler "github.com/tdex-network/escrowd/internal/interfaces/http/handler"
	"github.com/tdex-network/escrowd/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	trade    *gin.Engine
	operator *gin.Engine
	hub      *httphandler.EventHub

	maker, taker *btcec.PrivateKey
	tokenX       string
	tokenY       string
}

func newTestEnv(t *testing.T) *testEnv {
	repo := inmemory.NewRepoManager()
	webhooks, err := webhookpubsub.NewService("", time.Second, 100, nil)
	require.NoError(t, err)

	hub := httphandler.NewEventHub()
	pubsubSvc := pubsub.NewService(webhooks, hub)
	t.Cleanup(pubsubSvc.Close)
	assetSvc, err := asset.NewService(repo, 0)
	require.NoError(t, err)
	escrowSvc, err := escrow.NewService(repo, pubsubSvc, nil, escrow.Options{})
	require.NoError(t, err)
	registrySvc, err := registry.NewService(repo, assetSvc, nil)
	require.NoError(t, err)

	opts := httpinterface.ServiceOpts{
		TradeAddress:    ":0",
		OperatorAddress: ":0",
		EscrowSvc:       escrowSvc,
		RegistrySvc:     registrySvc,
		AssetSvc:        assetSvc,
		PubSubSvc:       pubsubSvc,
		EventHub:        hub,
	}
	_, err = httpinterface.NewService(opts)
	require.NoError(t, err)

	env := &testEnv{
		trade:    httpinterface.NewTradeRouter(opts),
		operator: httpinterface.NewOperatorRouter(opts),
		hub:      hub,
		maker:    newKey(t),
		taker:    newKey(t),
	}
	env.tokenX = env.createAsset(t, env.maker, "Token X", "TKX", 6)
	env.tokenY = env.createAsset(t, env.taker, "Token Y", "TKY", 2)
	return env
}

func newKey(t *testing.T) *btcec.PrivateKey {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return key
}

func (e *testEnv) createAsset(
	t *testing.T, key *btcec.PrivateKey, name, symbol string, decimals uint,
) string {
	w := e.do(t, e.trade, key, http.MethodPost, "/v1/assets", map[string]interface{}{
		"name": name, "symbol": symbol, "decimals": decimals, "supply": "1000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res["mint"].(string)
}

func (e *testEnv) createOffer(t *testing.T, id uint64) map[string]interface{} {
	return e.createOfferWithAmounts(t, id, "10", "5.25")
}

func (e *testEnv) createOfferWithAmounts(
	t *testing.T, id uint64, amountOffered, amountWanted string,
) map[string]interface{} {
	w := e.do(t, e.trade, e.maker, http.MethodPost, "/v1/offers", map[string]interface{}{
		"id":             id,
		"asset_offered":  e.tokenX,
		"asset_wanted":   e.tokenY,
		"amount_offered": amountOffered,
		"amount_wanted":  amountWanted,
		"expires_at":     time.Now().Add(2 * time.Hour).Unix(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

// do sends the request signed with key, or unsigned if key is nil.
func (e *testEnv) do(
	t *testing.T, r http.Handler, key *btcec.PrivateKey,
	method, path string, body interface{},
) *httptest.ResponseRecorder {
	req := newRequest(t, key, method, path, body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newRequest(
	t *testing.T, key *btcec.PrivateKey, method, path string, body interface{},
) *http.Request {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if key != nil {
		urlPath := strings.SplitN(path, "?", 2)[0]
		sig, ts := auth.Sign(key, method, urlPath, payload)
		req.Header.Set(auth.PubkeyHeader, auth.Identity(key))
		req.Header.Set(auth.SignatureHeader, sig)
		req.Header.Set(auth.TimestampHeader, ts)
	}
	return req
}

func TestOfferRoutes(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t, 1)
	addr := offer["address"].(string)
	require.Equal(t, "OPEN", offer["status"])

	t.Run("list", func(t *testing.T) {
		w := env.do(t, env.trade, nil, http.MethodGet, "/v1/offers?filter=tky&page=1&size=5", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var res struct {
			Offers []map[string]interface{} `json:"offers"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Len(t, res.Offers, 1)
		require.Equal(t, addr, res.Offers[0]["address"])
		require.Equal(t, "5.25", res.Offers[0]["amount_wanted"])
	})

	t.Run("derive", func(t *testing.T) {
		path := fmt.Sprintf(
			"/v1/derive/offer?maker=%s&id=1&asset=%s", auth.Identity(env.maker), env.tokenX,
		)
		w := env.do(t, env.trade, nil, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var res map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Equal(t, addr, res["address"])
		require.Equal(t, offer["vault"], res["vault"])
		require.Equal(t, true, res["exists"])
	})

	t.Run("holdings", func(t *testing.T) {
		path := fmt.Sprintf("/v1/accounts/%s/holdings", auth.Identity(env.maker))
		w := env.do(t, env.trade, nil, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"base_amount":990000000`)
	})

	t.Run("accept", func(t *testing.T) {
		path := fmt.Sprintf("/v1/offers/%s/accept", addr)
		w := env.do(t, env.trade, env.taker, http.MethodPost, path, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var res map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Equal(t, "10.000000", res["amount_offered"])
		require.Equal(t, "5.25", res["amount_wanted"])
		require.Equal(t, auth.Identity(env.taker), res["counterparty"])

		w = env.do(t, env.trade, env.taker, http.MethodPost, path, map[string]string{
			"amount_offered": "10", "amount_wanted": "5.25",
		})
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Contains(t, w.Body.String(), "OfferNotFound")
	})
}

func TestFailingOfferRoutes(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t, 1)
	addr := offer["address"].(string)

	tests := []struct {
		name   string
		key    *btcec.PrivateKey
		method string
		path   string
		body   interface{}
		status int
		error  string
	}{
		{
			name:   "unsigned create",
			method: http.MethodPost,
			path:   "/v1/offers",
			body:   map[string]interface{}{"id": 2},
			status: http.StatusUnauthorized,
			error:  "Unauthenticated",
		},
		{
			name:   "duplicate id",
			key:    env.maker,
			method: http.MethodPost,
			path:   "/v1/offers",
			body: map[string]interface{}{
				"id": 1, "asset_offered": env.tokenX, "asset_wanted": env.tokenY,
				"amount_offered": "1", "amount_wanted": "1",
				"expires_at": time.Now().Add(2 * time.Hour).Unix(),
			},
			status: http.StatusBadRequest,
			error:  "DuplicateOfferId",
		},
		{
			name:   "insufficient funds",
			key:    env.maker,
			method: http.MethodPost,
			path:   "/v1/offers",
			body: map[string]interface{}{
				"id": 3, "asset_offered": env.tokenX, "asset_wanted": env.tokenY,
				"amount_offered": "5000", "amount_wanted": "1",
				"expires_at": time.Now().Add(2 * time.Hour).Unix(),
			},
			status: http.StatusPaymentRequired,
			error:  "InsufficientFunds",
		},
		{
			name:   "expiry too soon",
			key:    env.maker,
			method: http.MethodPost,
			path:   "/v1/offers",
			body: map[string]interface{}{
				"id": 4, "asset_offered": env.tokenX, "asset_wanted": env.tokenY,
				"amount_offered": "1", "amount_wanted": "1",
				"expires_at": time.Now().Add(time.Minute).Unix(),
			},
			status: http.StatusBadRequest,
			error:  "InvalidExpiry",
		},
		{
			name:   "malformed amount",
			key:    env.maker,
			method: http.MethodPost,
			path:   "/v1/offers",
			body: map[string]interface{}{
				"id": 5, "asset_offered": env.tokenX, "asset_wanted": env.tokenY,
				"amount_offered": "1e3", "amount_wanted": "1",
				"expires_at": time.Now().Add(2 * time.Hour).Unix(),
			},
			status: http.StatusBadRequest,
			error:  "InvalidAmount",
		},
		{
			name:   "self trade",
			key:    env.maker,
			method: http.MethodPost,
			path:   fmt.Sprintf("/v1/offers/%s/accept", addr),
			status: http.StatusBadRequest,
			error:  "SelfTradeNotAllowed",
		},
		{
			name:   "cancel by other before expiry",
			key:    env.taker,
			method: http.MethodPost,
			path:   fmt.Sprintf("/v1/offers/%s/cancel", addr),
			status: http.StatusConflict,
			error:  "NotExpiredAndNotMaker",
		},
		{
			name:   "unknown asset",
			method: http.MethodGet,
			path:   "/v1/assets/" + offer["vault"].(string),
			status: http.StatusNotFound,
			error:  "AssetNotFound",
		},
		{
			name:   "invalid address",
			method: http.MethodGet,
			path:   "/v1/offers/not-an-address",
			status: http.StatusBadRequest,
			error:  "InvalidAddress",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, env.trade, tt.key, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			var res map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			require.Equal(t, tt.error, res["error"])
		})
	}
}

func TestAcceptBoundToTerms(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t, 1)
	path := fmt.Sprintf("/v1/offers/%s/accept", offer["address"])

	// The maker holds back the accept signed by the taker.
	held := newRequest(t, env.taker, http.MethodPost, path, map[string]string{
		"amount_offered": "10", "amount_wanted": "5.25",
	})

	w := env.do(t, env.trade, env.maker, http.MethodPost,
		fmt.Sprintf("/v1/offers/%s/cancel", offer["address"]), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Same id, same address, worse terms for the taker.
	recreated := env.createOfferWithAmounts(t, 1, "0.000001", "999")
	require.Equal(t, offer["address"], recreated["address"])

	w = httptest.NewRecorder()
	env.trade.ServeHTTP(w, held)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "OfferTermsMismatch")

	path = fmt.Sprintf("/v1/accounts/%s/holdings", auth.Identity(env.taker))
	w = env.do(t, env.trade, nil, http.MethodGet, path, nil)
	require.Contains(t, w.Body.String(), `"base_amount":100000`)
	require.NotContains(t, w.Body.String(), env.tokenX)
}

func TestReplayedRequest(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t, 1)
	path := fmt.Sprintf("/v1/offers/%s/accept", offer["address"])

	body := []byte(`{"amount_offered":"10","amount_wanted":"5.25"}`)
	sig, ts := auth.Sign(env.taker, http.MethodPost, path, body)
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(auth.PubkeyHeader, auth.Identity(env.taker))
		req.Header.Set(auth.SignatureHeader, sig)
		req.Header.Set(auth.TimestampHeader, ts)
		w := httptest.NewRecorder()
		env.trade.ServeHTTP(w, req)
		return w
	}

	w := send()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Even an offer with the very same terms can't be accepted with the
	// request already served.
	env.createOfferWithAmounts(t, 1, "10", "5.250")

	w = send()
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), auth.ErrReplayedRequest.Error())
}

func TestStaleSignedRequest(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t, 1)
	path := fmt.Sprintf("/v1/offers/%s/accept", offer["address"])

	stale := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set(auth.PubkeyHeader, auth.Identity(env.taker))
	req.Header.Set(auth.SignatureHeader, auth.SignAt(env.taker, http.MethodPost, path, stale, nil))
	req.Header.Set(auth.TimestampHeader, stale)

	w := httptest.NewRecorder()
	env.trade.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), auth.ErrExpiredRequest.Error())

	// The offer is still open.
	w = env.do(t, env.trade, nil, http.MethodGet, "/v1/offers/"+offer["address"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"OPEN"`)
}

func TestCancelOfferRoute(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t, 1)

	path := fmt.Sprintf("/v1/offers/%s/cancel", offer["address"])
	w := env.do(t, env.trade, env.maker, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	path = fmt.Sprintf("/v1/accounts/%s/holdings", auth.Identity(env.maker))
	w = env.do(t, env.trade, nil, http.MethodGet, path, nil)
	require.Contains(t, w.Body.String(), `"base_amount":1000000000`)
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t)

	srv := httptest.NewServer(env.trade)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events?event=OFFER_CREATED"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return env.hub.NumOfClients() == 1
	}, time.Second, 10*time.Millisecond)

	offer := env.createOffer(t, 1)

	//nolint
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(message, &event))
	require.Equal(t, "OFFER_CREATED", event["event"])
	require.Equal(t, offer["address"], event["offer"].(map[string]interface{})["address"])
}

func TestWebhookRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, env.operator, nil, http.MethodPost, "/v1/webhooks", map[string]string{
		"event": "OFFER_ACCEPTED", "endpoint": "http://127.0.0.1:1/hook", "secret": "s",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var added map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	require.NotEmpty(t, added["id"])

	w = env.do(t, env.operator, nil, http.MethodPost, "/v1/webhooks", map[string]string{
		"event": "OFFER_SETTLED", "endpoint": "http://127.0.0.1:1/hook",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, env.operator, nil, http.MethodGet, "/v1/webhooks?event=OFFER_ACCEPTED", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), added["id"])
	require.Contains(t, w.Body.String(), `"is_secured":true`)

	w = env.do(t, env.operator, nil, http.MethodDelete, "/v1/webhooks/"+added["id"], nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, env.operator, nil, http.MethodDelete, "/v1/webhooks/"+added["id"], nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t)
	env.createOffer(t, 1)

	w := env.do(t, env.operator, nil, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "escrow_offer_transitions_total")
}
