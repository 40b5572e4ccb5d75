package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/escrowd/internal/core/application/asset"
	"github.com/tdex-network/escrowd/internal/core/application/escrow"
	"github.com/tdex-network/escrowd/internal/core/application/pubsub"
	"github.com/tdex-network/escrowd/internal/core/application/registry"
	interfaces "github.com/tdex-network/escrowd/internal/interfaces"
	httphandler "github.com/tdex-network/escrowd/internal/interfaces/http/handler"
	"github.com/tdex-network/escrowd/internal/interfaces/http/middleware"
	"github.com/tdex-network/escrowd/pkg/auth"
)

const shutdownTimeout = 5 * time.Second

type service struct {
	opts           ServiceOpts
	tradeServer    *http.Server
	operatorServer *http.Server
}

type ServiceOpts struct {
	NoAuth bool
	// AuthWindow bounds the age of signed requests, defaults to
	// auth.DefaultWindow.
	AuthWindow time.Duration

	TradeAddress    string
	OperatorAddress string

	EscrowSvc   *escrow.Service
	RegistrySvc *registry.Service
	AssetSvc    *asset.Service
	PubSubSvc   *pubsub.Service
	EventHub    *httphandler.EventHub
}

func (o ServiceOpts) validate() error {
	if o.TradeAddress == "" {
		return fmt.Errorf("missing trade address")
	}
	if o.OperatorAddress == "" {
		return fmt.Errorf("missing operator address")
	}
	if o.EscrowSvc == nil {
		return fmt.Errorf("escrow app service must not be null")
	}
	if o.RegistrySvc == nil {
		return fmt.Errorf("registry app service must not be null")
	}
	if o.AssetSvc == nil {
		return fmt.Errorf("asset app service must not be null")
	}
	if o.PubSubSvc == nil {
		return fmt.Errorf("pubsub app service must not be null")
	}
	if o.EventHub == nil {
		return fmt.Errorf("event hub must not be null")
	}
	return nil
}

func NewService(opts ServiceOpts) (interfaces.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}

	return &service{
		opts: opts,
		tradeServer: &http.Server{
			Addr:              opts.TradeAddress,
			Handler:           NewTradeRouter(opts),
			ReadHeaderTimeout: 10 * time.Second,
		},
		operatorServer: &http.Server{
			Addr:              opts.OperatorAddress,
			Handler:           NewOperatorRouter(opts),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *service) Start() error {
	for _, srv := range []*http.Server{s.tradeServer, s.operatorServer} {
		srv := srv
		go func() {
			if err := srv.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Fatalf("error listening on %s", srv.Addr)
			}
		}()
	}

	log.Infof("trade interface is listening on %s", s.opts.TradeAddress)
	log.Infof("operator interface is listening on %s", s.opts.OperatorAddress)
	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.opts.EventHub.Close()
	for _, srv := range []*http.Server{s.tradeServer, s.operatorServer} {
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Warnf("error stopping server on %s", srv.Addr)
		}
	}
	log.Debug("stopped http servers")
}

// NewTradeRouter returns the router of the public interface. Every route
// changing the state requires a signed request.
func NewTradeRouter(opts ServiceOpts) *gin.Engine {
	h := httphandler.NewTradeHandler(
		opts.EscrowSvc, opts.RegistrySvc, opts.AssetSvc,
	)
	signed := middleware.Auth(
		opts.NoAuth,
		auth.NewVerifier(opts.AuthWindow, auth.DefaultReplayCacheSize),
	)

	r := newRouter()
	v1 := r.Group("/v1")

	assets := v1.Group("/assets")
	assets.POST("", signed, h.CreateAsset)
	assets.GET("", h.ListAssets)
	assets.GET("/:mint", h.GetAsset)

	v1.GET("/accounts/:owner/holdings", h.ListHoldings)

	offers := v1.Group("/offers")
	offers.POST("", signed, h.CreateOffer)
	offers.GET("", h.ListOffers)
	offers.GET("/:address", h.GetOffer)
	offers.POST("/:address/accept", signed, h.AcceptOffer)
	offers.POST("/:address/cancel", signed, h.CancelOffer)

	v1.GET("/derive/offer", h.DeriveOffer)
	v1.GET("/events", opts.EventHub.Stream)

	return r
}

// NewOperatorRouter returns the router of the operator interface, meant to be
// reachable only from the operator's network.
func NewOperatorRouter(opts ServiceOpts) *gin.Engine {
	h := httphandler.NewOperatorHandler(opts.PubSubSvc)

	r := newRouter()
	v1 := r.Group("/v1")
	v1.POST("/webhooks", h.AddWebhook)
	v1.DELETE("/webhooks/:id", h.RemoveWebhook)
	v1.GET("/webhooks", h.ListWebhooks)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())
	return r
}
