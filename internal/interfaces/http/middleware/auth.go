package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/escrowd/pkg/auth"
)

const identityKey = "identity"

// Auth verifies the signature of the request and stores the identity of the
// signer in the gin context. Stale and replayed requests are rejected by the
// given verifier. With noAuth, the identity is taken from the public key
// header as is, and the signature is ignored.
func Auth(noAuth bool, verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		pubkey := c.GetHeader(auth.PubkeyHeader)
		if noAuth {
			if pubkey == "" {
				abortUnauthenticated(c, auth.ErrMissingPubkey)
				return
			}
			c.Set(identityKey, pubkey)
			c.Next()
			return
		}

		body, err := readBody(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "InvalidRequest",
				"message": err.Error(),
			})
			return
		}

		identity, err := verifier.Verify(
			pubkey, c.GetHeader(auth.SignatureHeader),
			c.Request.Method, c.Request.URL.Path,
			c.GetHeader(auth.TimestampHeader), body,
		)
		if err != nil {
			log.WithError(err).Debugf("rejected request %s", c.Request.URL.Path)
			abortUnauthenticated(c, err)
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// Identity returns the authenticated identity of the caller.
func Identity(c *gin.Context) string {
	return c.GetString(identityKey)
}

// readBody consumes the request body and restores it for the next handlers.
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func abortUnauthenticated(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "Unauthenticated",
		"message": err.Error(),
	})
}
