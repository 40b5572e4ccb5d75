package httphandler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/escrowd/internal/core/application/asset"
	"github.com/tdex-network/escrowd/internal/core/application/escrow"
	"github.com/tdex-network/escrowd/internal/core/application/registry"
	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/tdex-network/escrowd/internal/interfaces/http/middleware"
	"github.com/tdex-network/escrowd/pkg/mathutil"
)

// TradeHandler serves the public routes for assets, holdings and offers.
type TradeHandler struct {
	escrowSvc   *escrow.Service
	registrySvc *registry.Service
	assetSvc    *asset.Service
}

func NewTradeHandler(
	escrowSvc *escrow.Service, registrySvc *registry.Service,
	assetSvc *asset.Service,
) *TradeHandler {
	return &TradeHandler{escrowSvc, registrySvc, assetSvc}
}

func (h *TradeHandler) CreateAsset(c *gin.Context) {
	var req createAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBadRequest(c, err)
		return
	}
	supply, err := mathutil.ParseUIAmount(req.Supply)
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: supply %q", domain.ErrInvalidAmount, req.Supply))
		return
	}

	a, err := h.assetSvc.CreateAsset(
		c.Request.Context(), middleware.Identity(c),
		req.Name, req.Symbol, req.Decimals, supply,
	)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAssetView(*a))
}

func (h *TradeHandler) ListAssets(c *gin.Context) {
	assets, err := h.assetSvc.ListAssets(c.Request.Context(), c.Query("filter"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	views := make([]assetView, 0, len(assets))
	for _, a := range assets {
		views = append(views, newAssetView(a))
	}
	c.JSON(http.StatusOK, gin.H{"assets": views})
}

func (h *TradeHandler) GetAsset(c *gin.Context) {
	a, err := h.assetSvc.GetAsset(c.Request.Context(), c.Param("mint"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAssetView(*a))
}

func (h *TradeHandler) ListHoldings(c *gin.Context) {
	holdings, err := h.assetSvc.ListHoldings(c.Request.Context(), c.Param("owner"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"holdings": holdings})
}

func (h *TradeHandler) CreateOffer(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBadRequest(c, err)
		return
	}
	terms, err := req.toDomain()
	if err != nil {
		abortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	offer, err := h.escrowSvc.CreateOffer(ctx, middleware.Identity(c), *terms)
	if err != nil {
		abortWithError(c, err)
		return
	}
	info, err := h.registrySvc.GetOffer(ctx, offer.Address)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (h *TradeHandler) ListOffers(c *gin.Context) {
	var query listOffersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithBadRequest(c, err)
		return
	}

	offers, err := h.registrySvc.ListOpenOffers(
		c.Request.Context(), query.Filter, domain.NewPage(query.Page, query.Size),
	)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

func (h *TradeHandler) GetOffer(c *gin.Context) {
	info, err := h.registrySvc.GetOffer(c.Request.Context(), c.Param("address"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// AcceptOffer settles the offer. If the body carries the amounts agreed by
// the taker, the offer is settled only if they match.
func (h *TradeHandler) AcceptOffer(c *gin.Context) {
	ctx := c.Request.Context()
	taker, address := middleware.Identity(c), c.Param("address")

	var (
		receipt *domain.Receipt
		err     error
	)
	if c.Request.ContentLength > 0 {
		var req acceptOfferRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			abortWithBadRequest(c, bindErr)
			return
		}
		terms, termsErr := req.toDomain()
		if termsErr != nil {
			abortWithError(c, termsErr)
			return
		}
		receipt, err = h.escrowSvc.AcceptOfferWithTerms(ctx, taker, address, *terms)
	} else {
		receipt, err = h.escrowSvc.AcceptOffer(ctx, taker, address)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.replyWithReceipt(c, *receipt)
}

func (h *TradeHandler) CancelOffer(c *gin.Context) {
	ctx := c.Request.Context()
	receipt, err := h.escrowSvc.CancelOffer(
		ctx, middleware.Identity(c), c.Param("address"),
	)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.replyWithReceipt(c, *receipt)
}

func (h *TradeHandler) DeriveOffer(c *gin.Context) {
	var query deriveOfferQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithBadRequest(c, err)
		return
	}
	derived, err := h.registrySvc.DeriveOffer(
		c.Request.Context(), query.Maker, query.ID, query.Asset,
	)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, derived)
}

// Amounts of the reply fall back to base units if an asset can't be fetched.
func (h *TradeHandler) replyWithReceipt(c *gin.Context, r domain.Receipt) {
	ctx := c.Request.Context()
	// The transition is already committed, the receipt is returned anyway
	// with amounts in base units if an asset can't be read.
	offered, err := h.assetSvc.GetAsset(ctx, r.AssetOffered)
	if err != nil {
		log.WithError(err).Warnf("failed to get asset %s for receipt", r.AssetOffered)
		offered = &domain.Asset{}
	}
	wanted, err := h.assetSvc.GetAsset(ctx, r.AssetWanted)
	if err != nil {
		log.WithError(err).Warnf("failed to get asset %s for receipt", r.AssetWanted)
		wanted = &domain.Asset{}
	}
	c.JSON(http.StatusOK, newReceiptView(r, *offered, *wanted))
}
