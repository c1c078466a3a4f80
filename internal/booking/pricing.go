package booking

import (
	"math"

	"github.com/ukydev/moto-rentals/internal/models"
)

// Quote prices rng at the daily rate: inclusive days times rate, in minor units.
func Quote(rate models.Money, rng DateRange) (models.Money, error) {
	if rate <= 0 {
		return 0, &InvalidPricingInputError{Rate: rate, Reason: "must be positive"}
	}
	days := int64(rng.Days())
	if int64(rate) > math.MaxInt64/days {
		return 0, &InvalidPricingInputError{Rate: rate, Reason: "total price overflows"}
	}
	return rate * models.Money(days), nil
}
