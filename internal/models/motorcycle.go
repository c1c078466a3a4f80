package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Motorcycle represents a listed vehicle available for rental.
type Motorcycle struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Owner       primitive.ObjectID   `bson:"owner" json:"owner"`
	Name        string               `bson:"name" json:"name"`
	Brand       string               `bson:"brand" json:"brand"`
	Model       string               `bson:"model" json:"model"`
	Year        int                  `bson:"year" json:"year"`
	CC          int                  `bson:"cc" json:"cc"`
	DailyRate   Money                `bson:"daily_rate" json:"daily_rate"` // minor units
	Description string               `bson:"description" json:"description"`
	ImageURL    string               `bson:"image_url" json:"image_url"`
	Features    []string             `bson:"features" json:"features"`
	Location    string               `bson:"location" json:"location"`
	Available   bool                 `bson:"available" json:"available"`     // derived from blocking bookings
	Rating      float64              `bson:"rating" json:"rating"`           // mean of review ratings
	ReviewCount int                  `bson:"review_count" json:"review_count"`
	Bookings    []primitive.ObjectID `bson:"bookings" json:"bookings"`
	Reviews     []primitive.ObjectID `bson:"reviews" json:"reviews"`
	Questions   []primitive.ObjectID `bson:"questions" json:"questions"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}

// IsOwnedBy reports whether userID owns the listing.
func (m *Motorcycle) IsOwnedBy(userID string) bool {
	return !m.Owner.IsZero() && m.Owner.Hex() == userID
}

// DefaultImageURL is used when a listing is created without an image.
const DefaultImageURL = "/images/motorcycle-placeholder.jpg"
