package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Answer is the owner's reply to a question.
type Answer struct {
	Text       string             `bson:"text" json:"text"`
	AnsweredBy primitive.ObjectID `bson:"answered_by,omitempty" json:"answered_by,omitempty"`
	AnsweredAt *time.Time         `bson:"answered_at,omitempty" json:"answered_at,omitempty"`
}

// Question is asked by a prospective renter about a motorcycle.
type Question struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Motorcycle primitive.ObjectID `bson:"motorcycle" json:"motorcycle"`
	User       primitive.ObjectID `bson:"user" json:"user"`
	Text       string             `bson:"text" json:"text"`
	Answer     Answer             `bson:"answer" json:"answer"`
	IsAnswered bool               `bson:"is_answered" json:"is_answered"`
	IsPublic   bool               `bson:"is_public" json:"is_public"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
