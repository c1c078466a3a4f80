package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ukydev/moto-rentals/internal/models"
)

var (
	// ErrForbidden is returned when the actor may not perform the operation on the booking.
	ErrForbidden = errors.New("not authorized for this booking")
)

// InvalidDateError reports a malformed date or an end date before the start date.
type InvalidDateError struct {
	Value  string
	Reason string
}

func (e *InvalidDateError) Error() string {
	if e.Value == "" {
		return "invalid date: " + e.Reason
	}
	return fmt.Sprintf("invalid date %q: %s", e.Value, e.Reason)
}

// ConflictError reports that a motorcycle cannot take the requested range.
// Conflicts holds the blocking bookings when the refusal came from an overlap scan.
type ConflictError struct {
	MotorcycleID string
	Reason       string
	Conflicts    []models.Booking
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return fmt.Sprintf("motorcycle %s: %s", e.MotorcycleID, e.Reason)
	}
	ids := make([]string, 0, len(e.Conflicts))
	for _, b := range e.Conflicts {
		ids = append(ids, b.ID.Hex())
	}
	return fmt.Sprintf("motorcycle %s: %s (conflicting bookings: %s)", e.MotorcycleID, e.Reason, strings.Join(ids, ", "))
}

// InvalidPricingInputError reports a daily rate that cannot produce a price.
type InvalidPricingInputError struct {
	Rate   models.Money
	Reason string
}

func (e *InvalidPricingInputError) Error() string {
	return fmt.Sprintf("invalid daily rate %s: %s", e.Rate, e.Reason)
}

// InvalidTransitionError reports a lifecycle change the booking's state does not allow.
// Nothing is written when it is returned.
type InvalidTransitionError struct {
	From   models.BookingStatus
	To     models.BookingStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("cannot move booking from %s to %s", e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// NotFoundError reports a missing motorcycle or booking.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ValidationError reports bad caller input that is not a date or rate problem.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
