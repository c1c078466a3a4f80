package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockPublisher is a mock implementation of Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

func newNotification(recipient primitive.ObjectID) models.Notification {
	return models.Notification{
		Recipient: recipient,
		Type:      models.NotifyBookingConfirmed,
		Title:     "Booking Confirmed",
		Message:   "Your booking for Kawasaki Ninja ZX-10R has been confirmed",
	}
}

func TestDispatcher_NotifyStoresAndPublishes(t *testing.T) {
	store := db.NewMemoryStore()
	pub := new(MockPublisher)
	logger, _ := test.NewNullLogger()
	d := NewDispatcher(store, pub, "motorent", logger)
	recipient := primitive.NewObjectID()

	pub.On("Publish", mock.Anything, "motorent/notifications/"+recipient.Hex(), mock.MatchedBy(func(payload []byte) bool {
		var n models.Notification
		return json.Unmarshal(payload, &n) == nil && n.Type == models.NotifyBookingConfirmed
	})).Return(nil).Once()

	d.Notify(context.Background(), newNotification(recipient))

	pub.AssertExpectations(t)
	stored, err := d.List(context.Background(), recipient.Hex(), false)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].CreatedAt.IsZero())
}

func TestDispatcher_PublishFailureIsSwallowed(t *testing.T) {
	store := db.NewMemoryStore()
	pub := new(MockPublisher)
	logger, hook := test.NewNullLogger()
	d := NewDispatcher(store, pub, "motorent", logger)
	recipient := primitive.NewObjectID()

	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	for i := 0; i < 5; i++ {
		d.Notify(context.Background(), newNotification(recipient))
	}

	// the breaker opens after three failures, so the broker sees no more than three attempts
	pub.AssertNumberOfCalls(t, "Publish", 3)
	assert.Equal(t, "open", d.BreakerState())
	assert.NotEmpty(t, hook.AllEntries())

	stored, err := d.List(context.Background(), recipient.Hex(), false)
	require.NoError(t, err)
	assert.Len(t, stored, 5, "notifications are stored even when publishing fails")
}

func TestDispatcher_WithoutPublisher(t *testing.T) {
	store := db.NewMemoryStore()
	d := NewDispatcher(store, nil, "", nil)
	recipient := primitive.NewObjectID()

	d.Notify(context.Background(), newNotification(recipient))
	assert.Equal(t, "disabled", d.BreakerState())
	assert.Equal(t, "motorent/notifications/abc", d.Topic("abc"))

	stored, err := d.List(context.Background(), recipient.Hex(), true)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestDispatcher_MarkRead(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	d := NewDispatcher(store, nil, "motorent", nil)
	recipient := primitive.NewObjectID()
	d.Notify(ctx, newNotification(recipient))

	stored, err := d.List(ctx, recipient.Hex(), true)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	id := stored[0].ID.Hex()

	assert.ErrorIs(t, d.MarkRead(ctx, primitive.NewObjectID().Hex(), id), ErrNotRecipient)
	require.NoError(t, d.MarkRead(ctx, recipient.Hex(), id))

	unread, err := d.List(ctx, recipient.Hex(), true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	assert.ErrorIs(t, d.MarkRead(ctx, recipient.Hex(), primitive.NewObjectID().Hex()), db.ErrNotFound)
}

func TestDispatcher_PublishIsBounded(t *testing.T) {
	store := db.NewMemoryStore()
	pub := new(MockPublisher)
	d := NewDispatcher(store, pub, "motorent", nil)

	pub.On("Publish", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= publishTimeout
	}), mock.Anything, mock.Anything).Return(nil).Once()

	d.Notify(context.Background(), newNotification(primitive.NewObjectID()))
	pub.AssertExpectations(t)
}
