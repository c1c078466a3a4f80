package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType categorises a notification.
type NotificationType string

const (
	NotifyBookingRequest   NotificationType = "booking_request"
	NotifyBookingConfirmed NotificationType = "booking_confirmed"
	NotifyBookingCancelled NotificationType = "booking_cancelled"
	NotifyBookingCompleted NotificationType = "booking_completed"
	NotifyBookingRejected  NotificationType = "booking_rejected"
	NotifyPaymentReceived  NotificationType = "payment_received"
	NotifyNewQuestion      NotificationType = "new_question"
	NotifyQuestionAnswered NotificationType = "question_answered"
)

// Notification is a message addressed to a single user.
type Notification struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Recipient         primitive.ObjectID `bson:"recipient" json:"recipient"`
	Type              NotificationType   `bson:"type" json:"type"`
	Title             string             `bson:"title" json:"title"`
	Message           string             `bson:"message" json:"message"`
	RelatedBooking    primitive.ObjectID `bson:"related_booking,omitempty" json:"related_booking,omitempty"`
	RelatedMotorcycle primitive.ObjectID `bson:"related_motorcycle,omitempty" json:"related_motorcycle,omitempty"`
	Read              bool               `bson:"read" json:"read"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
}
