package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ukydev/moto-rentals/internal/models"
)

// ErrDeclined is returned when the card was valid but the charge was refused.
var ErrDeclined = errors.New("payment declined")

// Supported payment methods.
const (
	MethodCreditCard = "credit_card"
	MethodDebitCard  = "debit_card"
)

// CardError reports card details that fail validation before any charge is attempted.
type CardError struct {
	Field  string
	Reason string
}

func (e *CardError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Card is what the renter submits. It is never persisted.
type Card struct {
	Method string `json:"payment_method" validate:"required,oneof=credit_card debit_card"`
	Number string `json:"card_number" validate:"required"`
	Holder string `json:"card_holder"`
	Expiry string `json:"card_expiry" validate:"required"`
	CVV    string `json:"card_cvv" validate:"required"`
}

// ChargeRequest asks the processor to take Amount for a booking.
type ChargeRequest struct {
	BookingID string
	Card      Card
	Amount    models.Money
	Currency  string
}

// Receipt describes a successful charge.
type Receipt struct {
	TransactionID string
	Method        string
	CardLast4     string
	Amount        models.Money
	Currency      string
	ProcessedAt   time.Time
}

// Processor charges a card.
type Processor interface {
	Charge(ctx context.Context, req ChargeRequest) (*Receipt, error)
}

// Simulated validates cards locally and approves every charge except
// the card numbers it was told to decline. No money moves.
type Simulated struct {
	declined map[string]bool
	now      func() time.Time
}

// NewSimulated returns a processor that declines the given card numbers.
func NewSimulated(declined ...string) *Simulated {
	s := &Simulated{declined: make(map[string]bool), now: time.Now}
	for _, n := range declined {
		s.declined[digitsOnly(n)] = true
	}
	return s
}

// Charge validates the card and issues a DUM- transaction id.
func (s *Simulated) Charge(ctx context.Context, req ChargeRequest) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, &CardError{Field: "amount", Reason: "must be greater than 0"}
	}
	number, err := ValidateCard(req.Card, s.now())
	if err != nil {
		return nil, err
	}
	if s.declined[number] {
		return nil, ErrDeclined
	}
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	return &Receipt{
		TransactionID: "DUM-" + uuid.New().String(),
		Method:        req.Card.Method,
		CardLast4:     number[len(number)-4:],
		Amount:        req.Amount,
		Currency:      currency,
		ProcessedAt:   s.now(),
	}, nil
}

// ValidateCard checks method, number, expiry and CVV, returning the bare card digits.
func ValidateCard(card Card, now time.Time) (string, error) {
	if card.Method != MethodCreditCard && card.Method != MethodDebitCard {
		return "", &CardError{Field: "payment_method", Reason: "must be credit_card or debit_card"}
	}
	number := digitsOnly(card.Number)
	if len(number) < 13 || len(number) > 19 || len(number) != len(strings.NewReplacer(" ", "", "-", "").Replace(card.Number)) {
		return "", &CardError{Field: "card_number", Reason: "must be 13 to 19 digits"}
	}
	if !luhn(number) {
		return "", &CardError{Field: "card_number", Reason: "failed checksum"}
	}
	if err := validateExpiry(card.Expiry, now); err != nil {
		return "", err
	}
	cvv := strings.TrimSpace(card.CVV)
	if len(cvv) < 3 || len(cvv) > 4 || digitsOnly(cvv) != cvv {
		return "", &CardError{Field: "card_cvv", Reason: "must be 3 or 4 digits"}
	}
	return number, nil
}

// validateExpiry accepts MM/YY; the card is good through the last day of that month.
func validateExpiry(expiry string, now time.Time) error {
	mm, yy, ok := strings.Cut(strings.TrimSpace(expiry), "/")
	if !ok || len(mm) != 2 || len(yy) != 2 {
		return &CardError{Field: "card_expiry", Reason: "expected MM/YY"}
	}
	month, err := strconv.Atoi(mm)
	if err != nil || month < 1 || month > 12 {
		return &CardError{Field: "card_expiry", Reason: "month must be 01 to 12"}
	}
	year, err := strconv.Atoi(yy)
	if err != nil || year < 0 {
		return &CardError{Field: "card_expiry", Reason: "expected MM/YY"}
	}
	firstOfNextMonth := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.UTC().Before(firstOfNextMonth) {
		return &CardError{Field: "card_expiry", Reason: "card has expired"}
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func luhn(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
