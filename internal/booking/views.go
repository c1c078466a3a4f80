package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MotorcycleSummary is the part of a listing shown next to its bookings.
type MotorcycleSummary struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	Brand     string             `json:"brand"`
	Model     string             `json:"model"`
	DailyRate models.Money       `json:"daily_rate"`
	Location  string             `json:"location"`
	ImageURL  string             `json:"image_url"`
}

// RenterSummary identifies who placed a booking.
type RenterSummary struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

// BookingView is a booking joined with its motorcycle and renter. Either side is
// nil when the record has since been deleted.
type BookingView struct {
	models.Booking
	MotorcycleDetails *MotorcycleSummary `json:"motorcycle_details"`
	Renter            *RenterSummary     `json:"renter"`
}

// views joins each booking with its motorcycle and renter, reading each distinct record once.
func (m *Manager) views(ctx context.Context, bookings []models.Booking) ([]BookingView, error) {
	motos := make(map[primitive.ObjectID]*MotorcycleSummary)
	renters := make(map[primitive.ObjectID]*RenterSummary)
	out := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		moto, seen := motos[b.Motorcycle]
		if !seen {
			found, err := m.store.Motorcycles.FindMotorcycleByID(ctx, b.Motorcycle.Hex())
			switch {
			case err == nil:
				moto = &MotorcycleSummary{
					ID:        found.ID,
					Name:      found.Name,
					Brand:     found.Brand,
					Model:     found.Model,
					DailyRate: found.DailyRate,
					Location:  found.Location,
					ImageURL:  found.ImageURL,
				}
			case !errors.Is(err, db.ErrNotFound):
				return nil, fmt.Errorf("find motorcycle: %w", err)
			}
			motos[b.Motorcycle] = moto
		}

		renter, seen := renters[b.User]
		if !seen && m.store.Users != nil {
			found, err := m.store.Users.FindUserByID(ctx, b.User.Hex())
			switch {
			case err == nil:
				renter = &RenterSummary{ID: found.ID, Name: found.Name, Email: found.Email}
			case !errors.Is(err, db.ErrNotFound):
				return nil, fmt.Errorf("find renter: %w", err)
			}
			renters[b.User] = renter
		}

		out = append(out, BookingView{Booking: b, MotorcycleDetails: moto, Renter: renter})
	}
	return out, nil
}
