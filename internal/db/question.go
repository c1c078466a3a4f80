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

// MongoQuestionCollection implements QuestionCollection for MongoDB.
type MongoQuestionCollection struct {
	Collection *mongo.Collection
}

// InsertQuestion inserts a question.
func (c *MongoQuestionCollection) InsertQuestion(ctx context.Context, q *models.Question) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if q.ID.IsZero() {
		q.ID = primitive.NewObjectID()
	}
	now := time.Now()
	q.CreatedAt, q.UpdatedAt = now, now
	_, err := c.Collection.InsertOne(ctx, q)
	return err
}

// FindQuestionByID finds a question by its ID.
func (c *MongoQuestionCollection) FindQuestionByID(ctx context.Context, id string) (*models.Question, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var q models.Question
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&q); err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

// FindQuestionsByMotorcycle returns the questions asked about a motorcycle, newest first.
func (c *MongoQuestionCollection) FindQuestionsByMotorcycle(ctx context.Context, motorcycleID string) ([]models.Question, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(motorcycleID)
	if err != nil {
		return []models.Question{}, nil
	}
	cursor, err := c.Collection.Find(ctx, bson.M{"motorcycle": oid},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Question](ctx, cursor)
}

// UpdateQuestion replaces the stored question with q.
func (c *MongoQuestionCollection) UpdateQuestion(ctx context.Context, q *models.Question) error {
	if c.Collection == nil {
		return errNilCollection
	}
	q.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": q.ID}, q)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteQuestion deletes a question by its ID.
func (c *MongoQuestionCollection) DeleteQuestion(ctx context.Context, id string) error {
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
