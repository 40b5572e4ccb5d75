package pubsub_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/escrowd/internal/core/ports"
	"github.com/tdex-network/escrowd/internal/infrastructure/pubsub"
)

const (
	topicCreated  = "OFFER_CREATED"
	topicAccepted = "OFFER_ACCEPTED"
	secret        = "secret"
)

type receiver struct {
	lock     sync.Mutex
	payloads []string
	tokens   []string
}

func (r *receiver) handler(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.lock.Lock()
	defer r.lock.Unlock()
	r.payloads = append(r.payloads, string(body))
	r.tokens = append(r.tokens, strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer "))
	w.WriteHeader(http.StatusOK)
}

func (r *receiver) received() ([]string, []string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string{}, r.payloads...), append([]string{}, r.tokens...)
}

func newTestService(t *testing.T, datadir string) ports.PubSub {
	ps, err := pubsub.NewService(datadir, time.Second, 100, nil)
	require.NoError(t, err)
	return ps
}

func TestSubscriptions(t *testing.T) {
	ps := newTestService(t, "")
	defer ps.Close()

	createdID, err := ps.Subscribe(topicCreated, "http://127.0.0.1:1/created", "")
	require.NoError(t, err)
	acceptedID, err := ps.Subscribe(topicAccepted, "http://127.0.0.1:1/accepted", secret)
	require.NoError(t, err)
	anyID, err := ps.Subscribe(ports.AnyTopic, "http://127.0.0.1:1/any", "")
	require.NoError(t, err)

	subs := ps.ListSubscriptionsForTopic(topicCreated)
	require.Len(t, subs, 2)
	ids := []string{subs[0].Id(), subs[1].Id()}
	require.ElementsMatch(t, []string{createdID, anyID}, ids)

	subs = ps.ListSubscriptionsForTopic(topicAccepted)
	require.Len(t, subs, 2)
	for _, s := range subs {
		if s.Id() == acceptedID {
			require.True(t, s.IsSecured())
		}
	}

	require.Len(t, ps.ListSubscriptionsForTopic(ports.AnyTopic), 1)
	require.Len(t, ps.ListSubscriptionsForTopic(ports.UnspecifiedTopic), 3)

	require.NoError(t, ps.Unsubscribe(topicCreated, createdID))
	require.Len(t, ps.ListSubscriptionsForTopic(topicCreated), 1)

	err = ps.Unsubscribe(topicCreated, createdID)
	require.ErrorIs(t, err, ports.ErrSubscriptionNotFound)
}

func TestFailingSubscribe(t *testing.T) {
	ps := newTestService(t, "")
	defer ps.Close()

	tests := []struct {
		name     string
		topic    string
		endpoint string
	}{
		{"missing topic", "", "http://127.0.0.1:1/hook"},
		{"invalid endpoint", topicCreated, "not an url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ps.Subscribe(tt.topic, tt.endpoint, "")
			require.Error(t, err)
			require.Empty(t, id)
		})
	}
}

func TestPublish(t *testing.T) {
	r := &receiver{}
	srv := httptest.NewServer(http.HandlerFunc(r.handler))
	defer srv.Close()

	ps := newTestService(t, "")
	defer ps.Close()

	_, err := ps.Subscribe(topicCreated, srv.URL+"/plain", "")
	require.NoError(t, err)
	_, err = ps.Subscribe(ports.AnyTopic, srv.URL+"/secured", secret)
	require.NoError(t, err)
	_, err = ps.Subscribe(topicAccepted, srv.URL+"/other", "")
	require.NoError(t, err)

	message := `{"offer":"abc"}`
	require.NoError(t, ps.Publish(topicCreated, message))

	payloads, tokens := r.received()
	require.Len(t, payloads, 2)
	for _, p := range payloads {
		require.Equal(t, message, p)
	}

	var signed string
	for _, tk := range tokens {
		if len(tk) > 0 {
			signed = tk
		}
	}
	require.NotEmpty(t, signed)

	token, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)
}

func TestFailingPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ps := newTestService(t, "")
	defer ps.Close()

	_, err := ps.Subscribe(topicCreated, srv.URL, "")
	require.NoError(t, err)

	require.Error(t, ps.Publish(topicCreated, "{}"))
}

func TestPersistedSubscriptions(t *testing.T) {
	datadir := t.TempDir()

	ps := newTestService(t, datadir)
	id, err := ps.Subscribe(topicCreated, "http://127.0.0.1:1/hook", "")
	require.NoError(t, err)
	ps.Close()

	ps = newTestService(t, datadir)
	defer ps.Close()

	subs := ps.ListSubscriptionsForTopic(topicCreated)
	require.Len(t, subs, 1)
	require.Equal(t, id, subs[0].Id())
}

func TestClosedService(t *testing.T) {
	ps := newTestService(t, "")
	_, err := ps.Subscribe(topicCreated, "http://127.0.0.1:1/hook", "")
	require.NoError(t, err)

	ps.Close()
	ps.Close()

	require.ErrorIs(t, ps.Publish(topicCreated, "{}"), ports.ErrPubSubClosed)
	require.Empty(t, ps.ListSubscriptionsForTopic(topicCreated))
	_, err = ps.Subscribe(topicCreated, "http://127.0.0.1:1/hook", "")
	require.ErrorIs(t, err, ports.ErrPubSubClosed)
	require.ErrorIs(t, ps.Unsubscribe("", "id"), ports.ErrPubSubClosed)
}
