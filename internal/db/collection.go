package db

import (
	"context"
	"errors"

	"github.com/ukydev/moto-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when a document does not exist or the id is malformed.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint is violated.
var ErrDuplicate = errors.New("duplicate key")

// RefField names a list of references held on a motorcycle document.
type RefField string

const (
	RefBookings  RefField = "bookings"
	RefReviews   RefField = "reviews"
	RefQuestions RefField = "questions"
)

// MotorcycleFilter narrows a listing query. Zero values are ignored.
type MotorcycleFilter struct {
	Owner     string
	Location  string
	Brand     string
	Available *bool
	MinRate   models.Money
	MaxRate   models.Money
}

// MotorcycleUpdate carries the owner-editable fields. Nil fields are left untouched.
type MotorcycleUpdate struct {
	Name        *string
	Brand       *string
	Model       *string
	Year        *int
	CC          *int
	DailyRate   *models.Money
	Description *string
	ImageURL    *string
	Features    []string
	Location    *string
}

// BookingFilter narrows a booking query. Limit 0 returns every match.
type BookingFilter struct {
	UserID        string
	MotorcycleIDs []string
	Statuses      []models.BookingStatus
	Page          int64
	Limit         int64
}

// MotorcycleCollection defines the interface for motorcycle data operations.
type MotorcycleCollection interface {
	InsertMotorcycle(ctx context.Context, m *models.Motorcycle) error
	FindMotorcycleByID(ctx context.Context, id string) (*models.Motorcycle, error)
	FindMotorcycles(ctx context.Context, filter MotorcycleFilter) ([]models.Motorcycle, error)
	UpdateMotorcycle(ctx context.Context, id string, update MotorcycleUpdate) error
	SetAvailability(ctx context.Context, id string, available bool) error
	SetRating(ctx context.Context, id string, rating float64, count int) error
	AddRef(ctx context.Context, id string, field RefField, ref primitive.ObjectID) error
	RemoveRef(ctx context.Context, id string, field RefField, ref primitive.ObjectID) error
	DeleteMotorcycle(ctx context.Context, id string) error
}

// BookingCollection defines the interface for booking data operations.
type BookingCollection interface {
	InsertBooking(ctx context.Context, b *models.Booking) error
	FindBookingByID(ctx context.Context, id string) (*models.Booking, error)
	FindBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, int64, error)
	UpdateBooking(ctx context.Context, b *models.Booking) error
	DeleteBooking(ctx context.Context, id string) error
}

// ReviewCollection defines the interface for review data operations.
type ReviewCollection interface {
	InsertReview(ctx context.Context, r *models.Review) error
	FindReviewsByMotorcycle(ctx context.Context, motorcycleID string) ([]models.Review, error)
}

// QuestionCollection defines the interface for question data operations.
type QuestionCollection interface {
	InsertQuestion(ctx context.Context, q *models.Question) error
	FindQuestionByID(ctx context.Context, id string) (*models.Question, error)
	FindQuestionsByMotorcycle(ctx context.Context, motorcycleID string) ([]models.Question, error)
	UpdateQuestion(ctx context.Context, q *models.Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

// NotificationCollection defines the interface for notification data operations.
type NotificationCollection interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	FindNotificationByID(ctx context.Context, id string) (*models.Notification, error)
	FindNotifications(ctx context.Context, recipient string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, user models.User) error
	DeleteUser(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string) error
}

// Store groups every collection the service uses.
type Store struct {
	Motorcycles   MotorcycleCollection
	Bookings      BookingCollection
	Reviews       ReviewCollection
	Questions     QuestionCollection
	Notifications NotificationCollection
	Users         UserCollection
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errors.Join(ErrNotFound, err)
	}
	return oid, nil
}

// sameID reports whether id is the hex form of oid, in any letter case.
func sameID(oid primitive.ObjectID, id string) bool {
	parsed, err := primitive.ObjectIDFromHex(id)
	return err == nil && parsed == oid
}
