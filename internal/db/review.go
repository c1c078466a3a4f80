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

// MongoReviewCollection implements ReviewCollection for MongoDB.
type MongoReviewCollection struct {
	Collection *mongo.Collection
}

// InsertReview inserts a review.
func (c *MongoReviewCollection) InsertReview(ctx context.Context, r *models.Review) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	r.CreatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, r)
	return err
}

// FindReviewsByMotorcycle returns every review of a motorcycle, newest first.
func (c *MongoReviewCollection) FindReviewsByMotorcycle(ctx context.Context, motorcycleID string) ([]models.Review, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(motorcycleID)
	if err != nil {
		return []models.Review{}, nil
	}
	cursor, err := c.Collection.Find(ctx, bson.M{"motorcycle": oid},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Review](ctx, cursor)
}
