package httphandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tdex-network/escrowd/internal/core/application/pubsub"
	"github.com/tdex-network/escrowd/internal/core/ports"
)

// OperatorHandler serves the webhook management routes.
type OperatorHandler struct {
	pubsubSvc *pubsub.Service
}

func NewOperatorHandler(pubsubSvc *pubsub.Service) *OperatorHandler {
	return &OperatorHandler{pubsubSvc}
}

func (h *OperatorHandler) AddWebhook(c *gin.Context) {
	var req addWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBadRequest(c, err)
		return
	}

	id, err := h.pubsubSvc.AddWebhook(
		c.Request.Context(), req.Event, req.Endpoint, req.Secret,
	)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *OperatorHandler) RemoveWebhook(c *gin.Context) {
	if err := h.pubsubSvc.RemoveWebhook(
		c.Request.Context(), c.Param("id"),
	); err != nil {
		if errors.Is(err, ports.ErrSubscriptionNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":   "WebhookNotFound",
				"message": err.Error(),
			})
			return
		}
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OperatorHandler) ListWebhooks(c *gin.Context) {
	hooks, err := h.pubsubSvc.ListWebhooks(c.Request.Context(), c.Query("event"))
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhooks": hooks})
}
