package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/moto-rentals/internal/models"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := ParseRange(start, end)
	require.NoError(t, err)
	return r
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-03-01", date("2024-03-01"), false},
		{" 2024-03-01 ", date("2024-03-01"), false},
		{"2024-03-01T18:30:00Z", date("2024-03-01"), false},
		{"2024-03-01T23:30:00-05:00", date("2024-03-02"), false},
		{"", time.Time{}, true},
		{"01/03/2024", time.Time{}, true},
		{"2024-02-30", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				var dateErr *InvalidDateError
				assert.True(t, errors.As(err, &dateErr))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestNewDateRange_RejectsEndBeforeStart(t *testing.T) {
	_, err := NewDateRange(date("2024-03-05"), date("2024-03-01"))
	var dateErr *InvalidDateError
	require.ErrorAs(t, err, &dateErr)
	assert.Contains(t, dateErr.Error(), "before start date")

	_, err = NewDateRange(time.Time{}, date("2024-03-01"))
	assert.ErrorAs(t, err, &dateErr)
}

func TestNewDateRange_TruncatesToDays(t *testing.T) {
	r, err := NewDateRange(
		time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC),
		time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Days())
	assert.Equal(t, "2024-03-01..2024-03-01", r.String())
}

func TestDayCount(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"2024-01-01", "2024-01-03", 3},
		{"2024-01-01", "2024-01-01", 1},
		{"2024-02-28", "2024-03-01", 3},
		{"2023-12-31", "2024-01-01", 2},
		{"2024-03-09", "2024-03-11", 3},
		{"2024-01-05", "2024-01-01", 1},
	}
	for _, tt := range tests {
		t.Run(tt.start+".."+tt.end, func(t *testing.T) {
			got := DayCount(date(tt.start), date(tt.end))
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 1)
		})
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b [2]string
		want bool
	}{
		{"identical", [2]string{"2024-03-01", "2024-03-03"}, [2]string{"2024-03-01", "2024-03-03"}, true},
		{"touching end", [2]string{"2024-03-01", "2024-03-03"}, [2]string{"2024-03-03", "2024-03-05"}, true},
		{"contained", [2]string{"2024-03-01", "2024-03-10"}, [2]string{"2024-03-04", "2024-03-05"}, true},
		{"partial", [2]string{"2024-03-01", "2024-03-05"}, [2]string{"2024-03-04", "2024-03-08"}, true},
		{"adjacent days", [2]string{"2024-03-01", "2024-03-03"}, [2]string{"2024-03-04", "2024-03-05"}, false},
		{"far apart", [2]string{"2024-03-01", "2024-03-03"}, [2]string{"2024-04-01", "2024-04-03"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustRange(t, tt.a[0], tt.a[1])
			b := mustRange(t, tt.b[0], tt.b[1])
			assert.Equal(t, tt.want, Overlaps(a, b))
			assert.Equal(t, Overlaps(a, b), Overlaps(b, a), "overlap must be symmetric")
		})
	}
}

func TestDateRange_Contains(t *testing.T) {
	r := mustRange(t, "2024-03-01", "2024-03-03")
	assert.True(t, r.Contains(time.Date(2024, 3, 3, 23, 59, 0, 0, time.UTC)))
	assert.False(t, r.Contains(date("2024-03-04")))
}

func TestQuote(t *testing.T) {
	price, err := Quote(models.MustMoney("85"), mustRange(t, "2024-01-01", "2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, models.MustMoney("255"), price)
	assert.Equal(t, "255.00", price.String())

	price, err = Quote(models.MustMoney("99.99"), mustRange(t, "2024-01-01", "2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, models.MustMoney("299.97"), price)

	price, err = Quote(models.MustMoney("100"), mustRange(t, "2024-03-01", "2024-03-03"))
	require.NoError(t, err)
	assert.Equal(t, models.MustMoney("300"), price)
}

func TestQuote_InvalidRate(t *testing.T) {
	rng := mustRange(t, "2024-01-01", "2024-01-03")
	for _, rate := range []models.Money{0, -100} {
		_, err := Quote(rate, rng)
		var pricingErr *InvalidPricingInputError
		assert.ErrorAs(t, err, &pricingErr)
	}

	_, err := Quote(models.Money(1<<62), rng)
	var pricingErr *InvalidPricingInputError
	require.ErrorAs(t, err, &pricingErr)
	assert.Contains(t, pricingErr.Error(), "overflows")
}
