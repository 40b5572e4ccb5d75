package pubsub_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/escrowd/internal/core/application/pubsub"
	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/tdex-network/escrowd/internal/core/ports"
)

type published struct {
	topic   string
	message string
}

type mockPubSub struct {
	published chan published
	err       error
	topics    []string
	release   chan struct{}
	closed    bool
}

func (m *mockPubSub) Subscribe(topic, _, _ string) (string, error) {
	m.topics = append(m.topics, topic)
	return "id", nil
}
func (m *mockPubSub) Unsubscribe(_, _ string) error { return nil }
func (m *mockPubSub) ListSubscriptionsForTopic(string) []ports.Subscription {
	return nil
}
func (m *mockPubSub) Publish(topic, message string) error {
	if m.release != nil {
		<-m.release
	}
	if m.closed {
		panic("publish on closed pubsub")
	}
	m.published <- published{topic, message}
	return m.err
}
func (m *mockPubSub) Close() { m.closed = true }

type listener struct {
	topics []string
}

func (l *listener) OnEvent(topic string, _ []byte) {
	l.topics = append(l.topics, topic)
}

var (
	offered = domain.Asset{Mint: "mintX", Symbol: "TKX", Decimals: 6}
	wanted  = domain.Asset{Mint: "mintY", Symbol: "TKY", Decimals: 2}
)

func TestAddWebhook(t *testing.T) {
	ps := &mockPubSub{}
	svc := pubsub.NewService(ps)

	for _, event := range []string{
		pubsub.EventOfferCreated, pubsub.EventOfferAccepted,
		pubsub.EventOfferCancelled, ports.AnyTopic,
	} {
		_, err := svc.AddWebhook(context.Background(), event, "http://localhost/hook", "")
		require.NoError(t, err)
	}
	require.Len(t, ps.topics, 4)

	_, err := svc.AddWebhook(context.Background(), "OFFER_SETTLED", "http://localhost/hook", "")
	require.Error(t, err)
	_, err = svc.ListWebhooks(context.Background(), "OFFER_SETTLED")
	require.Error(t, err)
}

func TestPublishEvents(t *testing.T) {
	ps := &mockPubSub{
		published: make(chan published, 3),
		err:       errors.New("endpoint down"),
	}
	l := &listener{}
	svc := pubsub.NewService(ps, l)

	offer := domain.Offer{
		Address:       "offer",
		Maker:         "maker",
		AssetOffered:  offered.Mint,
		AssetWanted:   wanted.Mint,
		AmountOffered: 10_500_000,
		AmountWanted:  525,
		ExpiresAt:     1700003600,
	}
	receipt := domain.Receipt{
		Offer:         offer.Address,
		Maker:         offer.Maker,
		Counterparty:  "taker",
		AssetOffered:  offer.AssetOffered,
		AssetWanted:   offer.AssetWanted,
		AmountOffered: offer.AmountOffered,
		AmountWanted:  offer.AmountWanted,
	}

	svc.PublishOfferCreatedEvent(offer, offered, wanted)
	svc.PublishOfferAcceptedEvent(receipt, offered, wanted)
	svc.PublishOfferCancelledEvent(receipt, offered, wanted)

	// Listeners are notified synchronously.
	require.Equal(t, []string{
		pubsub.EventOfferCreated, pubsub.EventOfferAccepted, pubsub.EventOfferCancelled,
	}, l.topics)

	// A failing webhook delivery doesn't affect the other events.
	got := map[string]map[string]interface{}{}
	for i := 0; i < 3; i++ {
		select {
		case p := <-ps.published:
			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(p.message), &payload))
			got[p.topic] = payload
		case <-time.After(time.Second):
			t.Fatal("event not published")
		}
	}

	created := got[pubsub.EventOfferCreated]["offer"].(map[string]interface{})
	require.Equal(t, "10.500000", created["amount_offered"])
	require.Equal(t, "5.25", created["amount_wanted"])

	accepted := got[pubsub.EventOfferAccepted]
	require.Equal(t, "taker", accepted["taker"])
	cancelled := got[pubsub.EventOfferCancelled]
	require.Equal(t, "taker", cancelled["cancelled_by"])
}

func TestCloseWaitsForDeliveries(t *testing.T) {
	ps := &mockPubSub{
		published: make(chan published, 2),
		release:   make(chan struct{}),
	}
	svc := pubsub.NewService(ps)

	offer := domain.Offer{
		Address: "offer", AssetOffered: offered.Mint, AssetWanted: wanted.Mint,
	}
	svc.PublishOfferCreatedEvent(offer, offered, wanted)

	done := make(chan struct{})
	go func() {
		svc.Close()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("close returned with a pending delivery")
	case <-time.After(100 * time.Millisecond):
	}

	close(ps.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close did not return")
	}
	require.Len(t, ps.published, 1)
	require.True(t, ps.closed)

	// Events published after close reach listeners only.
	svc.PublishOfferCreatedEvent(offer, offered, wanted)
	require.Len(t, ps.published, 1)
}
