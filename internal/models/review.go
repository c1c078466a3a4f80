package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is a renter's rating of a motorcycle.
type Review struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Motorcycle primitive.ObjectID `bson:"motorcycle" json:"motorcycle"`
	User       primitive.ObjectID `bson:"user" json:"user"`
	Rating     int                `bson:"rating" json:"rating"` // 1..5
	Comment    string             `bson:"comment" json:"comment"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
