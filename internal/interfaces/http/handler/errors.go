package httphandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/escrowd/internal/core/domain"
)

func statusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInput:
		return http.StatusBadRequest
	case domain.KindResource:
		return http.StatusPaymentRequired
	case domain.KindLifecycle:
		if errors.Is(err, domain.ErrOfferNotFound) ||
			errors.Is(err, domain.ErrAssetNotFound) {
			return http.StatusNotFound
		}
		return http.StatusConflict
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Errorf("%s %s", c.Request.Method, c.FullPath())
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":   domain.NameOf(err),
		"message": err.Error(),
	})
}

func abortWithBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "InvalidRequest",
		"message": err.Error(),
	})
}
