package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Aggregator stores reviews and keeps each motorcycle's rating equal to the mean of all its reviews.
type Aggregator struct {
	motorcycles db.MotorcycleCollection
	reviews     db.ReviewCollection
	log         logrus.FieldLogger
}

// NewAggregator creates an Aggregator over the store's motorcycles and reviews.
func NewAggregator(store *db.Store, log logrus.FieldLogger) *Aggregator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{motorcycles: store.Motorcycles, reviews: store.Reviews, log: log}
}

// AddReview records the actor's review of a motorcycle and refreshes its rating.
func (a *Aggregator) AddReview(ctx context.Context, actor Actor, motorcycleID string, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, &ValidationError{Field: "comment", Reason: "is required"}
	}
	reviewer, err := primitive.ObjectIDFromHex(actor.UserID)
	if err != nil {
		return nil, &ValidationError{Field: "user", Reason: "invalid user id"}
	}
	moto, err := a.motorcycles.FindMotorcycleByID(ctx, motorcycleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, &NotFoundError{Kind: "motorcycle", ID: motorcycleID}
		}
		return nil, fmt.Errorf("find motorcycle: %w", err)
	}
	if moto.IsOwnedBy(actor.UserID) {
		return nil, fmt.Errorf("%w: owners cannot review their own motorcycle", ErrForbidden)
	}

	review := &models.Review{Motorcycle: moto.ID, User: reviewer, Rating: rating, Comment: comment}
	if err := a.reviews.InsertReview(ctx, review); err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	motoID := moto.ID.Hex()
	if err := a.motorcycles.AddRef(ctx, motoID, db.RefReviews, review.ID); err != nil && !errors.Is(err, db.ErrNotFound) {
		a.log.WithError(err).WithField("review_id", review.ID.Hex()).Warn("Failed to link review to motorcycle")
	}
	// The review is stored either way; the next recompute picks it up.
	if _, _, err := a.Recompute(ctx, motoID); err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{
			"review_id":     review.ID.Hex(),
			"motorcycle_id": motoID,
		}).Error("Failed to recompute rating after review")
	}
	return review, nil
}

// Recompute re-reads every review of the motorcycle and stores their mean rating.
// A motorcycle that no longer exists is skipped with a warning.
func (a *Aggregator) Recompute(ctx context.Context, motorcycleID string) (float64, int, error) {
	reviews, err := a.reviews.FindReviewsByMotorcycle(ctx, motorcycleID)
	if err != nil {
		return 0, 0, fmt.Errorf("find reviews: %w", err)
	}
	mean := MeanRating(reviews)
	if err := a.motorcycles.SetRating(ctx, motorcycleID, mean, len(reviews)); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			a.log.WithField("motorcycle_id", motorcycleID).Warn("Motorcycle missing while recomputing rating")
			return mean, len(reviews), nil
		}
		return 0, 0, fmt.Errorf("set rating: %w", err)
	}
	return mean, len(reviews), nil
}

// MeanRating averages the ratings; no reviews gives 0.
func MeanRating(reviews []models.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}
