package pubsub

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt"
	"github.com/sony/gobreaker"
	"github.com/tdex-network/escrowd/internal/core/ports"
	"github.com/tdex-network/escrowd/pkg/circuitbreaker"
	"github.com/timshannon/badgerhold/v4"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
)

const (
	webhooksDir = "webhooks"

	DefaultRequestTimeout = 10 * time.Second
	DefaultRateLimit      = 20
)

type service struct {
	store      *badgerhold.Store
	httpClient *resty.Client
	limiter    ratelimit.Limiter

	lock sync.Mutex
	cbs  map[string]*gobreaker.CircuitBreaker

	// storeLock guards the store against being closed while in use.
	storeLock sync.RWMutex
	closed    bool
}

// NewService returns a pubsub that delivers messages to webhooks via POST
// requests. Subscriptions are persisted in a badger store in the given
// datadir, or in memory if datadir is empty. Requests are rate limited
// globally and go through a circuit breaker per endpoint.
func NewService(
	datadir string, requestTimeout time.Duration, rateLimit int,
	logger badger.Logger,
) (ports.PubSub, error) {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}

	store, err := openStore(datadir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening webhooks db: %w", err)
	}

	return &service{
		store:      store,
		httpClient: resty.New().SetTimeout(requestTimeout),
		limiter:    ratelimit.New(rateLimit),
		cbs:        make(map[string]*gobreaker.CircuitBreaker),
	}, nil
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}

	ws.storeLock.RLock()
	defer ws.storeLock.RUnlock()
	if ws.closed {
		return "", ports.ErrPubSubClosed
	}

	if err := ws.store.Insert(sub.ID, sub); err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (ws *service) Unsubscribe(_, id string) error {
	ws.storeLock.RLock()
	defer ws.storeLock.RUnlock()
	if ws.closed {
		return ports.ErrPubSubClosed
	}

	if err := ws.store.Delete(id, Subscription{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ports.ErrSubscriptionNotFound
		}
		return err
	}
	return nil
}

func (ws *service) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	ws.storeLock.RLock()
	defer ws.storeLock.RUnlock()
	if ws.closed {
		return nil
	}

	return ws.listSubscriptionsForTopic(topic).toPortable()
}

func (ws *service) Publish(topic string, message string) error {
	ws.storeLock.RLock()
	defer ws.storeLock.RUnlock()
	if ws.closed {
		return ports.ErrPubSubClosed
	}

	subs := ws.listSubscriptionsForTopic(topic)

	eg := &errgroup.Group{}
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.doRequest(topic, sub, message) })
	}
	return eg.Wait()
}

// Close waits for the pending publishes and closes the store. It's safe to
// call it more than once.
func (ws *service) Close() {
	ws.storeLock.Lock()
	defer ws.storeLock.Unlock()
	if ws.closed {
		return
	}
	ws.closed = true

	//nolint
	ws.store.Close()
}

func (ws *service) listSubscriptionsForTopic(topic string) subscriptions {
	var query *badgerhold.Query
	if topic != ports.UnspecifiedTopic {
		topics := []interface{}{topic}
		if topic != ports.AnyTopic {
			topics = append(topics, ports.AnyTopic)
		}
		query = badgerhold.Where("Event").In(topics...).Index("Event")
	}

	var subs []Subscription
	if err := ws.store.Find(&subs, query); err != nil {
		return nil
	}
	return subscriptions(subs).sorted()
}

func (ws *service) doRequest(topic string, sub Subscription, payload string) error {
	ws.limiter.Take()

	_, err := ws.circuitBreaker(sub.Endpoint).Execute(func() (interface{}, error) {
		req := ws.httpClient.R().
			SetHeader("Content-Type", "application/json").
			SetBody(payload)

		if sub.IsSecured() {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
				Subject:  topic,
				IssuedAt: time.Now().Unix(),
			})
			tokenString, err := token.SignedString([]byte(sub.Secret))
			if err != nil {
				return nil, err
			}
			req.SetAuthToken(tokenString)
		}

		resp, err := req.Post(sub.Endpoint)
		if err != nil {
			return nil, err
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf(
				"webhook %s replied with %d: %s", sub.ID, resp.StatusCode(), resp.String(),
			)
		}
		return nil, nil
	})

	return err
}

func (ws *service) circuitBreaker(endpoint string) *gobreaker.CircuitBreaker {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	cb, ok := ws.cbs[endpoint]
	if !ok {
		cb = circuitbreaker.NewCircuitBreaker(endpoint)
		ws.cbs[endpoint] = cb
	}
	return cb
}

func openStore(datadir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badger.DefaultOptions("")
	if len(datadir) > 0 {
		opts = badger.DefaultOptions(filepath.Join(datadir, webhooksDir))
	} else {
		opts.InMemory = true
	}
	opts.Logger = logger

	return badgerhold.Open(badgerhold.Options{
		Encoder: badgerhold.DefaultEncode,
		Decoder: badgerhold.DefaultDecode,
		Options: opts,
	})
}
