package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/models"
)

// ErrNotRecipient is returned when a user touches someone else's notification.
var ErrNotRecipient = errors.New("notification belongs to another user")

// publishTimeout bounds how long Notify waits for the broker.
const publishTimeout = 3 * time.Second

// Publisher pushes a payload to a topic on the message broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Dispatcher stores notifications and fans them out to the broker.
// Notify never fails the caller: persistence and publish errors are logged.
type Dispatcher struct {
	store     db.NotificationCollection
	publisher Publisher
	prefix    string
	cb        *gobreaker.CircuitBreaker
	log       logrus.FieldLogger
}

// NewDispatcher creates a Dispatcher. A nil publisher stores notifications without publishing them.
func NewDispatcher(store db.NotificationCollection, publisher Publisher, topicPrefix string, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if topicPrefix == "" {
		topicPrefix = "motorent"
	}
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		prefix:    topicPrefix,
		cb:        CircuitBreaker("notificationPublisher", log),
		log:       log,
	}
}

// CircuitBreaker trips after three consecutive publish failures and lets one publish through again after ten seconds.
func CircuitBreaker(name string, log logrus.FieldLogger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("Circuit breaker state changed")
		},
	})
}

// Topic is the broker topic for a recipient's notifications.
func (d *Dispatcher) Topic(recipientID string) string {
	return fmt.Sprintf("%s/notifications/%s", d.prefix, recipientID)
}

// BreakerState reports the publish circuit breaker state, or "disabled" without a publisher.
func (d *Dispatcher) BreakerState() string {
	if d.publisher == nil {
		return "disabled"
	}
	return d.cb.State().String()
}

// Notify persists n and publishes it to the recipient's topic.
func (d *Dispatcher) Notify(ctx context.Context, n models.Notification) {
	entry := d.log.WithFields(logrus.Fields{
		"recipient": n.Recipient.Hex(),
		"type":      n.Type,
	})
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if err := d.store.InsertNotification(ctx, &n); err != nil {
		entry.WithError(err).Error("Failed to store notification")
		return
	}
	if d.publisher == nil {
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		entry.WithError(err).Error("Failed to marshal notification")
		return
	}
	topic := d.Topic(n.Recipient.Hex())
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	_, err = d.cb.Execute(func() (interface{}, error) {
		return nil, d.publisher.Publish(pubCtx, topic, payload)
	})
	if err != nil {
		entry.WithError(err).WithField("topic", topic).Warn("Failed to publish notification")
		return
	}
	entry.WithField("topic", topic).Debug("Notification published")
}

// List returns the recipient's notifications, newest first.
func (d *Dispatcher) List(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error) {
	return d.store.FindNotifications(ctx, recipientID, unreadOnly)
}

// MarkRead marks one of the recipient's notifications as read.
func (d *Dispatcher) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	n, err := d.store.FindNotificationByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.Recipient.Hex() != recipientID {
		return ErrNotRecipient
	}
	return d.store.MarkRead(ctx, notificationID)
}
