package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/escrowd/internal/interfaces/http/middleware"
	"github.com/tdex-network/escrowd/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(noAuth bool) *gin.Engine {
	r := gin.New()
	r.POST("/v1/echo", middleware.Auth(noAuth, auth.NewVerifier(0, 0)), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.JSON(http.StatusOK, gin.H{
			"identity": middleware.Identity(c),
			"body":     string(body),
		})
	})
	return r
}

func TestAuth(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	identity := auth.Identity(key)
	body := []byte(`{"hello":"world"}`)

	r := newRouter(false)

	sig, ts := auth.Sign(key, http.MethodPost, "/v1/echo", body)
	newSignedRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/v1/echo", bytes.NewReader(body))
		req.Header.Set(auth.PubkeyHeader, identity)
		req.Header.Set(auth.SignatureHeader, sig)
		req.Header.Set(auth.TimestampHeader, ts)
		return req
	}

	t.Run("valid signature", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, newSignedRequest())

		require.Equal(t, http.StatusOK, w.Code)
		var res map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Equal(t, identity, res["identity"])
		require.Equal(t, string(body), res["body"])
	})

	t.Run("replayed request", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, newSignedRequest())

		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Body.String(), auth.ErrReplayedRequest.Error())
	})

	t.Run("stale timestamp", func(t *testing.T) {
		stale := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
		req := httptest.NewRequest(http.MethodPost, "/v1/echo", bytes.NewReader(body))
		req.Header.Set(auth.PubkeyHeader, identity)
		req.Header.Set(auth.SignatureHeader, auth.SignAt(key, http.MethodPost, "/v1/echo", stale, body))
		req.Header.Set(auth.TimestampHeader, stale)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Body.String(), auth.ErrExpiredRequest.Error())
	})

	t.Run("invalid signature", func(t *testing.T) {
		otherSig, otherTs := auth.Sign(key, http.MethodPost, "/v1/other", body)
		req := httptest.NewRequest(http.MethodPost, "/v1/echo", bytes.NewReader(body))
		req.Header.Set(auth.PubkeyHeader, identity)
		req.Header.Set(auth.SignatureHeader, otherSig)
		req.Header.Set(auth.TimestampHeader, otherTs)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Body.String(), "Unauthenticated")
	})

	t.Run("missing headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/echo", bytes.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestNoAuth(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	identity := auth.Identity(key)

	r := newRouter(true)

	req := httptest.NewRequest(http.MethodPost, "/v1/echo", nil)
	req.Header.Set(auth.PubkeyHeader, identity)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), identity)

	req = httptest.NewRequest(http.MethodPost, "/v1/echo", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
