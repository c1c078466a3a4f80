package db

import (
	"context"
	"time"

	"github.com/ukydev/moto-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoNotificationCollection implements NotificationCollection for MongoDB.
type MongoNotificationCollection struct {
	Collection *mongo.Collection
}

// InsertNotification inserts a notification.
func (c *MongoNotificationCollection) InsertNotification(ctx context.Context, n *models.Notification) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := c.Collection.InsertOne(ctx, n)
	return err
}

// FindNotificationByID finds a notification by its ID.
func (c *MongoNotificationCollection) FindNotificationByID(ctx context.Context, id string) (*models.Notification, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var n models.Notification
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&n); err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

// FindNotifications lists a recipient's notifications, newest first.
func (c *MongoNotificationCollection) FindNotifications(ctx context.Context, recipient string, unreadOnly bool) ([]models.Notification, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(recipient)
	if err != nil {
		return []models.Notification{}, nil
	}
	query := bson.M{"recipient": oid}
	if unreadOnly {
		query["read"] = false
	}
	cursor, err := c.Collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Notification](ctx, cursor)
}

// MarkRead flags a notification as read.
func (c *MongoNotificationCollection) MarkRead(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
