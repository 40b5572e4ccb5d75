package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/tdex-network/escrowd/internal/core/ports"
	"github.com/tdex-network/escrowd/pkg/mathutil"
	"github.com/tdex-network/escrowd/pkg/stats"
)

const (
	EventOfferCreated   = "OFFER_CREATED"
	EventOfferAccepted  = "OFFER_ACCEPTED"
	EventOfferCancelled = "OFFER_CANCELLED"
)

var events = map[string]struct{}{
	EventOfferCreated:   {},
	EventOfferAccepted:  {},
	EventOfferCancelled: {},
	ports.AnyTopic:      {},
}

// WebhookInfo ...
type WebhookInfo struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Endpoint  string `json:"endpoint"`
	IsSecured bool   `json:"is_secured"`
}

// Service publishes offer events to webhooks and in-process listeners.
// Events are published only after the transition they describe has been
// committed, and a failure to deliver them never affects the transition.
// Once closed, events are no longer delivered to webhooks.
type Service struct {
	pubsub    ports.PubSub
	listeners []ports.EventListener

	lock    sync.RWMutex
	closed  bool
	pending sync.WaitGroup
}

func NewService(
	pubsub ports.PubSub, listeners ...ports.EventListener,
) *Service {
	return &Service{pubsub: pubsub, listeners: listeners}
}

func (s *Service) AddWebhook(
	_ context.Context, event, endpoint, secret string,
) (string, error) {
	if _, ok := events[event]; !ok {
		return "", fmt.Errorf("invalid webhook event type %q", event)
	}
	return s.pubsub.Subscribe(event, endpoint, secret)
}

func (s *Service) RemoveWebhook(_ context.Context, id string) error {
	return s.pubsub.Unsubscribe(ports.UnspecifiedTopic, id)
}

func (s *Service) ListWebhooks(
	_ context.Context, event string,
) ([]WebhookInfo, error) {
	if _, ok := events[event]; !ok && event != ports.UnspecifiedTopic {
		return nil, fmt.Errorf("invalid webhook event type %q", event)
	}
	subs := s.pubsub.ListSubscriptionsForTopic(event)
	webhooks := make([]WebhookInfo, 0, len(subs))
	for _, sub := range subs {
		webhooks = append(webhooks, WebhookInfo{
			ID:        sub.Id(),
			Event:     sub.Topic(),
			Endpoint:  sub.NotifyAt(),
			IsSecured: sub.IsSecured(),
		})
	}
	return webhooks, nil
}

func (s *Service) PublishOfferCreatedEvent(
	offer domain.Offer, offered, wanted domain.Asset,
) {
	event := EventOfferCreated
	payload := map[string]interface{}{
		"event":      event,
		"offer":      getOfferPayload(offer, offered, wanted),
		"created_at": offer.CreatedAt,
	}
	s.publish(event, payload)
}

func (s *Service) PublishOfferAcceptedEvent(
	receipt domain.Receipt, offered, wanted domain.Asset,
) {
	event := EventOfferAccepted
	payload := map[string]interface{}{
		"event":   event,
		"receipt": getReceiptPayload(receipt, offered, wanted),
		"taker":   receipt.Counterparty,
	}
	s.publish(event, payload)
}

func (s *Service) PublishOfferCancelledEvent(
	receipt domain.Receipt, offered, wanted domain.Asset,
) {
	event := EventOfferCancelled
	payload := map[string]interface{}{
		"event":        event,
		"receipt":      getReceiptPayload(receipt, offered, wanted),
		"cancelled_by": receipt.Counterparty,
	}
	s.publish(event, payload)
}

// Close waits for in-flight deliveries before closing the underlying pubsub.
func (s *Service) Close() {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.closed = true
	s.lock.Unlock()

	s.pending.Wait()
	s.pubsub.Close()
}

func (s *Service) publish(event string, payload map[string]interface{}) {
	message, _ := json.Marshal(payload)

	for _, l := range s.listeners {
		l.OnEvent(event, message)
	}

	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.closed {
		log.Debugf("pubsub closed, skipping delivery of %s event", event)
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		if err := s.pubsub.Publish(event, string(message)); err != nil {
			stats.RecordPublishFailure()
			log.WithError(err).Warnf("failed to publish %s event", event)
		}
	}()
}

func getOfferPayload(
	offer domain.Offer, offered, wanted domain.Asset,
) map[string]interface{} {
	return map[string]interface{}{
		"address":        offer.Address,
		"id":             offer.ID,
		"maker":          offer.Maker,
		"asset_offered":  offer.AssetOffered,
		"asset_wanted":   offer.AssetWanted,
		"amount_offered": mathutil.FormatUIAmount(offer.AmountOffered, offered.Decimals),
		"amount_wanted":  mathutil.FormatUIAmount(offer.AmountWanted, wanted.Decimals),
		"expires_at":     offer.ExpiresAt,
		"expiry_date":    time.Unix(offer.ExpiresAt, 0).UTC().Format(time.RFC3339),
	}
}

func getReceiptPayload(
	r domain.Receipt, offered, wanted domain.Asset,
) map[string]interface{} {
	return map[string]interface{}{
		"offer":          r.Offer,
		"maker":          r.Maker,
		"asset_offered":  r.AssetOffered,
		"asset_wanted":   r.AssetWanted,
		"amount_offered": mathutil.FormatUIAmount(r.AmountOffered, offered.Decimals),
		"amount_wanted":  mathutil.FormatUIAmount(r.AmountWanted, wanted.Decimals),
		"rent_returned":  r.RentReturned,
		"timestamp":      r.Timestamp,
	}
}
