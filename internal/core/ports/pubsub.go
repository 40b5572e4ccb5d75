package ports

import "errors"

const AnyTopic = "*"
const UnspecifiedTopic = ""

// ErrSubscriptionNotFound is returned when unsubscribing an unknown id.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// ErrPubSubClosed is returned by any operation on a closed pubsub.
var ErrPubSubClosed = errors.New("pubsub is closed")

type Subscription interface {
	Topic() string
	Id() string
	IsSecured() bool
	NotifyAt() string
}

// PubSub defines the methods of a pubsub service notifying external endpoints.
type PubSub interface {
	// Subscribe adds a new subscription for the requested topic.
	Subscribe(topic, endpoint, secret string) (string, error)
	// Unsubscribe removes some client defined by its id for a topic.
	Unsubscribe(topic, id string) error
	// ListSubscriptionsForTopic returns the info of all clients subscribed for
	// a certain topic.
	ListSubscriptionsForTopic(topic string) []Subscription
	// Publish publishes a message for a certain topic. All clients subscribed
	// for such topic will receive the message.
	Publish(topic string, message string) error
	// Close should be used to gracefully stop the service.
	Close()
}

// EventListener is notified in-process of every published event, ie. to
// stream them to connected clients.
type EventListener interface {
	OnEvent(topic string, message []byte)
}
