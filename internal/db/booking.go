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

// MongoBookingCollection implements BookingCollection for MongoDB.
type MongoBookingCollection struct {
	Collection *mongo.Collection
}

// InsertBooking inserts a booking record into the collection.
func (c *MongoBookingCollection) InsertBooking(ctx context.Context, b *models.Booking) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	_, err := c.Collection.InsertOne(ctx, b)
	return err
}

// FindBookingByID finds a booking by its ID.
func (c *MongoBookingCollection) FindBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var b models.Booking
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&b); err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// FindBookings returns one page of matching bookings, newest first, and the total match count.
func (c *MongoBookingCollection) FindBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, int64, error) {
	if c.Collection == nil {
		return nil, 0, errNilCollection
	}
	query := bson.M{}
	if filter.UserID != "" {
		oid, err := objectID(filter.UserID)
		if err != nil {
			return []models.Booking{}, 0, nil
		}
		query["user"] = oid
	}
	if filter.MotorcycleIDs != nil {
		ids := make([]primitive.ObjectID, 0, len(filter.MotorcycleIDs))
		for _, id := range filter.MotorcycleIDs {
			if oid, err := objectID(id); err == nil {
				ids = append(ids, oid)
			}
		}
		query["motorcycle"] = bson.M{"$in": ids}
	}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}

	total, err := c.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip((page - 1) * filter.Limit).SetLimit(filter.Limit)
	}
	cursor, err := c.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	bookings, err := decodeAll[models.Booking](ctx, cursor)
	return bookings, total, err
}

// UpdateBooking replaces the stored booking with b.
func (c *MongoBookingCollection) UpdateBooking(ctx context.Context, b *models.Booking) error {
	if c.Collection == nil {
		return errNilCollection
	}
	b.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": b.ID}, b)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBooking deletes a booking by its ID.
func (c *MongoBookingCollection) DeleteBooking(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
