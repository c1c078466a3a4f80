package db

import (
	"context"
	"regexp"
	"time"

	"github.com/ukydev/moto-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMotorcycleCollection implements MotorcycleCollection for MongoDB.
type MongoMotorcycleCollection struct {
	Collection *mongo.Collection
}

// InsertMotorcycle inserts a motorcycle. New listings start available.
func (c *MongoMotorcycleCollection) InsertMotorcycle(ctx context.Context, m *models.Motorcycle) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	_, err := c.Collection.InsertOne(ctx, m)
	return err
}

// FindMotorcycleByID finds a motorcycle by its ID.
func (c *MongoMotorcycleCollection) FindMotorcycleByID(ctx context.Context, id string) (*models.Motorcycle, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var m models.Motorcycle
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&m); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// FindMotorcycles lists motorcycles matching filter, newest first.
func (c *MongoMotorcycleCollection) FindMotorcycles(ctx context.Context, filter MotorcycleFilter) ([]models.Motorcycle, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	query := bson.M{}
	if filter.Owner != "" {
		oid, err := objectID(filter.Owner)
		if err != nil {
			return []models.Motorcycle{}, nil
		}
		query["owner"] = oid
	}
	if filter.Location != "" {
		query["location"] = bson.M{"$regex": "^" + regexp.QuoteMeta(filter.Location) + "$", "$options": "i"}
	}
	if filter.Brand != "" {
		query["brand"] = bson.M{"$regex": "^" + regexp.QuoteMeta(filter.Brand) + "$", "$options": "i"}
	}
	if filter.Available != nil {
		query["available"] = *filter.Available
	}
	rate := bson.M{}
	if filter.MinRate > 0 {
		rate["$gte"] = filter.MinRate
	}
	if filter.MaxRate > 0 {
		rate["$lte"] = filter.MaxRate
	}
	if len(rate) > 0 {
		query["daily_rate"] = rate
	}
	cursor, err := c.Collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Motorcycle](ctx, cursor)
}

// UpdateMotorcycle applies the non-nil fields of update.
func (c *MongoMotorcycleCollection) UpdateMotorcycle(ctx context.Context, id string, update MotorcycleUpdate) error {
	set := bson.M{"updated_at": time.Now()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Brand != nil {
		set["brand"] = *update.Brand
	}
	if update.Model != nil {
		set["model"] = *update.Model
	}
	if update.Year != nil {
		set["year"] = *update.Year
	}
	if update.CC != nil {
		set["cc"] = *update.CC
	}
	if update.DailyRate != nil {
		set["daily_rate"] = *update.DailyRate
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.ImageURL != nil {
		set["image_url"] = *update.ImageURL
	}
	if update.Features != nil {
		set["features"] = update.Features
	}
	if update.Location != nil {
		set["location"] = *update.Location
	}
	return c.updateOne(ctx, id, bson.M{"$set": set})
}

// SetAvailability writes the derived availability flag.
func (c *MongoMotorcycleCollection) SetAvailability(ctx context.Context, id string, available bool) error {
	return c.updateOne(ctx, id, bson.M{"$set": bson.M{"available": available, "updated_at": time.Now()}})
}

// SetRating writes the derived mean rating.
func (c *MongoMotorcycleCollection) SetRating(ctx context.Context, id string, rating float64, count int) error {
	return c.updateOne(ctx, id, bson.M{"$set": bson.M{"rating": rating, "review_count": count, "updated_at": time.Now()}})
}

// AddRef appends ref to the given reference list.
func (c *MongoMotorcycleCollection) AddRef(ctx context.Context, id string, field RefField, ref primitive.ObjectID) error {
	return c.updateOne(ctx, id, bson.M{"$addToSet": bson.M{string(field): ref}})
}

// RemoveRef removes ref from the given reference list.
func (c *MongoMotorcycleCollection) RemoveRef(ctx context.Context, id string, field RefField, ref primitive.ObjectID) error {
	return c.updateOne(ctx, id, bson.M{"$pull": bson.M{string(field): ref}})
}

// DeleteMotorcycle deletes a motorcycle by its ID.
func (c *MongoMotorcycleCollection) DeleteMotorcycle(ctx context.Context, id string) error {
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

func (c *MongoMotorcycleCollection) updateOne(ctx context.Context, id string, update bson.M) error {
	if c.Collection == nil {
		return errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
