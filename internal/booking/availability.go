package booking

import (
	"context"
	"fmt"

	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/models"
)

// Checker answers availability questions from the bookings that currently block a motorcycle.
type Checker struct {
	bookings db.BookingCollection
}

// NewChecker creates a Checker reading from bookings.
func NewChecker(bookings db.BookingCollection) *Checker {
	return &Checker{bookings: bookings}
}

// Blocking returns every pending or confirmed booking for the motorcycle.
func (c *Checker) Blocking(ctx context.Context, motorcycleID string) ([]models.Booking, error) {
	found, _, err := c.bookings.FindBookings(ctx, db.BookingFilter{
		MotorcycleIDs: []string{motorcycleID},
		Statuses:      models.BlockingStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("find blocking bookings: %w", err)
	}
	return found, nil
}

// Check returns a *ConflictError when another blocking booking on the motorcycle
// overlaps rng. excludeID skips the booking being updated; pass "" on create.
func (c *Checker) Check(ctx context.Context, motorcycleID string, rng DateRange, excludeID string) error {
	blocking, err := c.Blocking(ctx, motorcycleID)
	if err != nil {
		return err
	}
	var conflicts []models.Booking
	for _, b := range blocking {
		if excludeID != "" && b.ID.Hex() == excludeID {
			continue
		}
		if Overlaps(rng, DateRange{Start: b.StartDate, End: b.EndDate}) {
			conflicts = append(conflicts, b)
		}
	}
	if len(conflicts) > 0 {
		return &ConflictError{
			MotorcycleID: motorcycleID,
			Reason:       "already booked for " + rng.String(),
			Conflicts:    conflicts,
		}
	}
	return nil
}

// IsFree reports whether no blocking booking remains on the motorcycle.
func (c *Checker) IsFree(ctx context.Context, motorcycleID string) (bool, error) {
	blocking, err := c.Blocking(ctx, motorcycleID)
	if err != nil {
		return false, err
	}
	return len(blocking) == 0, nil
}
