package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
	StatusRejected  BookingStatus = "rejected"
)

var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusRejected},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
	StatusCancelled: {},
	StatusCompleted: {},
	StatusRejected:  {},
}

// IsValid returns true for a recognised status.
func (s BookingStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo returns true if moving from s to target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no further transitions exist.
func (s BookingStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsBlocking reports whether a booking in this status makes its motorcycle unavailable.
func (s BookingStatus) IsBlocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

// BlockingStatuses lists every status that blocks the motorcycle.
var BlockingStatuses = []BookingStatus{StatusPending, StatusConfirmed}

// PaymentStatus tracks the simulated payment of a booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// PaymentDetails records a simulated charge. Card numbers are stored masked.
type PaymentDetails struct {
	Method        string    `bson:"method" json:"method"` // "credit_card" or "debit_card"
	CardLast4     string    `bson:"card_last4" json:"card_last4"`
	TransactionID string    `bson:"transaction_id" json:"transaction_id"`
	Amount        Money     `bson:"amount" json:"amount"`
	Currency      string    `bson:"currency" json:"currency"`
	PaymentDate   time.Time `bson:"payment_date" json:"payment_date"`
}

// Booking is a renter's request to use a motorcycle for an inclusive range of calendar days.
type Booking struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Motorcycle         primitive.ObjectID `bson:"motorcycle" json:"motorcycle"`
	User               primitive.ObjectID `bson:"user" json:"user"`
	StartDate          time.Time          `bson:"start_date" json:"start_date"`
	EndDate            time.Time          `bson:"end_date" json:"end_date"`
	DailyRate          Money              `bson:"daily_rate" json:"daily_rate"`
	Days               int                `bson:"days" json:"days"`
	TotalPrice         Money              `bson:"total_price" json:"total_price"`
	Status             BookingStatus      `bson:"status" json:"status"`
	PaymentStatus      PaymentStatus      `bson:"payment_status" json:"payment_status"`
	PaymentDetails     *PaymentDetails    `bson:"payment_details,omitempty" json:"payment_details,omitempty"`
	CancellationReason string             `bson:"cancellation_reason,omitempty" json:"cancellation_reason,omitempty"`
	CancellationDate   *time.Time         `bson:"cancellation_date,omitempty" json:"cancellation_date,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsRenter reports whether userID placed the booking.
func (b *Booking) IsRenter(userID string) bool {
	return !b.User.IsZero() && b.User.Hex() == userID
}
