package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/models"
	"github.com/ukydev/moto-rentals/internal/payment"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// recordingNotifier keeps every notification it receives.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) types(recipient primitive.ObjectID) []models.NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.NotificationType
	for _, n := range r.sent {
		if n.Recipient == recipient {
			out = append(out, n.Type)
		}
	}
	return out
}

type fixture struct {
	store    *db.Store
	manager  *Manager
	notifier *recordingNotifier
	owner    Actor
	renter   Actor
	admin    Actor
	bike     *models.Motorcycle
}

func newFixture(t *testing.T, rate string) *fixture {
	t.Helper()
	store := db.NewMemoryStore().Store()
	logger, _ := test.NewNullLogger()
	notifier := &recordingNotifier{}
	processor := payment.NewSimulated("4000000000000002")

	f := &fixture{
		store:    store,
		notifier: notifier,
		manager:  NewManager(store, processor, notifier, logger, "INR"),
		owner:    Actor{UserID: primitive.NewObjectID().Hex(), Role: models.RoleUser},
		renter:   Actor{UserID: primitive.NewObjectID().Hex(), Role: models.RoleUser},
		admin:    Actor{UserID: primitive.NewObjectID().Hex(), Role: models.RoleAdmin},
	}
	ownerID, _ := primitive.ObjectIDFromHex(f.owner.UserID)
	f.bike = &models.Motorcycle{
		Owner:     ownerID,
		Name:      "Street Glide",
		Brand:     "Harley-Davidson",
		Model:     "Street Glide",
		DailyRate: models.MustMoney(rate),
		Location:  "Mumbai",
		Available: true,
	}
	require.NoError(t, store.Motorcycles.InsertMotorcycle(context.Background(), f.bike))
	return f
}

func (f *fixture) available(t *testing.T) bool {
	t.Helper()
	m, err := f.store.Motorcycles.FindMotorcycleByID(context.Background(), f.bike.ID.Hex())
	require.NoError(t, err)
	return m.Available
}

func (f *fixture) create(t *testing.T, start, end string) *models.Booking {
	t.Helper()
	b, err := f.manager.Create(context.Background(), f.renter, f.bike.ID.Hex(), mustRange(t, start, end))
	require.NoError(t, err)
	return b
}

func goodCard() payment.Card {
	return payment.Card{Method: payment.MethodCreditCard, Number: "4242424242424242", Expiry: "12/99", CVV: "123"}
}

func TestManager_BookingScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")

	first := f.create(t, "2024-03-01", "2024-03-03")
	assert.Equal(t, models.StatusPending, first.Status)
	assert.Equal(t, models.PaymentPending, first.PaymentStatus)
	assert.Equal(t, 3, first.Days)
	assert.Equal(t, models.MustMoney("300"), first.TotalPrice)
	assert.False(t, f.available(t), "pending booking blocks the motorcycle")

	_, err := f.manager.Create(ctx, f.renter, f.bike.ID.Hex(), mustRange(t, "2024-03-03", "2024-03-05"))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, first.ID, conflict.Conflicts[0].ID)

	cancelled, err := f.manager.Cancel(ctx, f.renter, first.ID.Hex(), "user cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, "user cancelled", cancelled.CancellationReason)
	assert.NotNil(t, cancelled.CancellationDate)
	assert.True(t, f.available(t), "no blocking bookings remain")
}

func TestManager_CreateRejectsUnavailableMotorcycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	f.create(t, "2024-03-01", "2024-03-03")

	_, err := f.manager.Create(ctx, f.renter, f.bike.ID.Hex(), mustRange(t, "2024-04-01", "2024-04-02"))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Empty(t, conflict.Conflicts)
	assert.Contains(t, conflict.Error(), "not available")
}

func TestManager_CreateErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	rng := mustRange(t, "2024-03-01", "2024-03-03")

	_, err := f.manager.Create(ctx, f.renter, primitive.NewObjectID().Hex(), rng)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "motorcycle", notFound.Kind)

	_, err = f.manager.Create(ctx, f.owner, f.bike.ID.Hex(), rng)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.manager.Create(ctx, Actor{UserID: "bogus"}, f.bike.ID.Hex(), rng)
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)

	free := newFixture(t, "0")
	_, err = free.manager.Create(ctx, free.renter, free.bike.ID.Hex(), rng)
	var pricing *InvalidPricingInputError
	require.ErrorAs(t, err, &pricing)

	page, err := free.manager.ListAll(ctx, free.admin, ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, page.Total, "failed create must not persist a booking")
	assert.True(t, free.available(t))
}

func TestManager_CreateNotifiesOwnerAndRenter(t *testing.T) {
	f := newFixture(t, "100")
	f.create(t, "2024-03-01", "2024-03-03")

	assert.Equal(t, []models.NotificationType{models.NotifyBookingRequest}, f.notifier.types(f.bike.Owner))
	renterID, _ := primitive.ObjectIDFromHex(f.renter.UserID)
	assert.Equal(t, []models.NotificationType{models.NotifyBookingRequest}, f.notifier.types(renterID))

	found, err := f.store.Motorcycles.FindMotorcycleByID(context.Background(), f.bike.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, found.Bookings, 1)
}

func TestManager_Transitions(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm then complete", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")

		confirmed, err := f.manager.Confirm(ctx, f.owner, b.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, confirmed.Status)
		assert.False(t, f.available(t))

		completed, err := f.manager.Complete(ctx, f.owner, b.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, completed.Status)
		assert.True(t, f.available(t))

		renterID, _ := primitive.ObjectIDFromHex(f.renter.UserID)
		assert.Contains(t, f.notifier.types(renterID), models.NotifyBookingConfirmed)
		assert.Contains(t, f.notifier.types(renterID), models.NotifyBookingCompleted)
	})

	t.Run("reject frees the motorcycle", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")

		rejected, err := f.manager.Reject(ctx, f.admin, b.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, rejected.Status)
		assert.True(t, f.available(t))
	})

	t.Run("illegal transitions do not mutate", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")

		_, err := f.manager.Complete(ctx, f.owner, b.ID.Hex())
		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, models.StatusPending, invalid.From)
		assert.Equal(t, models.StatusCompleted, invalid.To)

		_, err = f.manager.Reject(ctx, f.owner, b.ID.Hex())
		require.NoError(t, err)
		for _, op := range []func() error{
			func() error { _, err := f.manager.Confirm(ctx, f.owner, b.ID.Hex()); return err },
			func() error { _, err := f.manager.Cancel(ctx, f.owner, b.ID.Hex(), "late"); return err },
			func() error { _, err := f.manager.Complete(ctx, f.owner, b.ID.Hex()); return err },
		} {
			assert.ErrorAs(t, op(), &invalid)
		}
		stored, err := f.store.Bookings.FindBookingByID(ctx, b.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, stored.Status)
	})

	t.Run("only owner or admin may confirm", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")

		_, err := f.manager.Confirm(ctx, f.renter, b.ID.Hex())
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.manager.Confirm(ctx, Actor{UserID: primitive.NewObjectID().Hex()}, b.ID.Hex())
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("set status dispatches by name", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")

		_, err := f.manager.SetStatus(ctx, f.owner, b.ID.Hex(), models.StatusCancelled)
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)

		got, err := f.manager.SetStatus(ctx, f.owner, b.ID.Hex(), models.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, got.Status)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t, "100")
		_, err := f.manager.Confirm(ctx, f.owner, primitive.NewObjectID().Hex())
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestManager_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("renter must give a reason", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")

		_, err := f.manager.Cancel(ctx, f.renter, b.ID.Hex(), "   ")
		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		stored, err := f.store.Bookings.FindBookingByID(ctx, b.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, stored.Status)
		assert.False(t, f.available(t))
	})

	t.Run("owner may cancel without a reason", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")

		cancelled, err := f.manager.Cancel(ctx, f.owner, b.ID.Hex(), "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, cancelled.Status)

		renterID, _ := primitive.ObjectIDFromHex(f.renter.UserID)
		assert.Contains(t, f.notifier.types(renterID), models.NotifyBookingCancelled)
	})

	t.Run("paid booking is refunded", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")
		_, err := f.manager.Pay(ctx, f.renter, b.ID.Hex(), goodCard())
		require.NoError(t, err)

		cancelled, err := f.manager.Cancel(ctx, f.renter, b.ID.Hex(), "plans changed")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentRefunded, cancelled.PaymentStatus)
		assert.True(t, f.available(t))
		assert.Contains(t, f.notifier.types(f.bike.Owner), models.NotifyBookingCancelled)
	})

	t.Run("strangers may not cancel", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")
		_, err := f.manager.Cancel(ctx, Actor{UserID: primitive.NewObjectID().Hex()}, b.ID.Hex(), "nope")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("other blocking bookings keep the motorcycle unavailable", func(t *testing.T) {
		f := newFixture(t, "100")
		first := f.create(t, "2024-03-01", "2024-03-03")

		// A second booking can only be seeded directly because the listing is now unavailable.
		renterID, _ := primitive.ObjectIDFromHex(f.renter.UserID)
		second := &models.Booking{Motorcycle: f.bike.ID, User: renterID, StartDate: date("2024-04-01"), EndDate: date("2024-04-02"), Status: models.StatusConfirmed}
		require.NoError(t, f.store.Bookings.InsertBooking(ctx, second))

		_, err := f.manager.Cancel(ctx, f.renter, first.ID.Hex(), "changed dates")
		require.NoError(t, err)
		assert.False(t, f.available(t))
	})
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("paid confirmed booking cannot be deleted", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")
		paid, err := f.manager.Pay(ctx, f.renter, b.ID.Hex(), goodCard())
		require.NoError(t, err)
		require.Equal(t, models.StatusConfirmed, paid.Status)

		err = f.manager.Delete(ctx, f.renter, b.ID.Hex())
		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, models.StatusConfirmed, invalid.From)

		_, err = f.store.Bookings.FindBookingByID(ctx, b.ID.Hex())
		assert.NoError(t, err, "refused delete must leave the booking in place")
	})

	t.Run("pending booking is removed and availability restored", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")

		require.NoError(t, f.manager.Delete(ctx, f.renter, b.ID.Hex()))
		_, err := f.store.Bookings.FindBookingByID(ctx, b.ID.Hex())
		assert.ErrorIs(t, err, db.ErrNotFound)
		assert.True(t, f.available(t))

		found, err := f.store.Motorcycles.FindMotorcycleByID(ctx, f.bike.ID.Hex())
		require.NoError(t, err)
		assert.Empty(t, found.Bookings)
	})

	t.Run("owner may not delete", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")
		assert.ErrorIs(t, f.manager.Delete(ctx, f.owner, b.ID.Hex()), ErrForbidden)
		assert.NoError(t, f.manager.Delete(ctx, f.admin, b.ID.Hex()))
	})
}

func TestManager_Pay(t *testing.T) {
	ctx := context.Background()

	t.Run("success confirms and notifies owner", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")

		paid, err := f.manager.Pay(ctx, f.renter, b.ID.Hex(), goodCard())
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
		assert.Equal(t, models.StatusConfirmed, paid.Status)
		require.NotNil(t, paid.PaymentDetails)
		assert.Equal(t, "4242", paid.PaymentDetails.CardLast4)
		assert.Equal(t, models.MustMoney("300"), paid.PaymentDetails.Amount)
		assert.Equal(t, "INR", paid.PaymentDetails.Currency)
		assert.Contains(t, f.notifier.types(f.bike.Owner), models.NotifyPaymentReceived)

		_, err = f.manager.Pay(ctx, f.renter, b.ID.Hex(), goodCard())
		var invalid *InvalidTransitionError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("declined card marks payment failed", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")
		card := goodCard()
		card.Number = "4000000000000002"

		_, err := f.manager.Pay(ctx, f.renter, b.ID.Hex(), card)
		assert.ErrorIs(t, err, payment.ErrDeclined)
		stored, err := f.store.Bookings.FindBookingByID(ctx, b.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, models.PaymentFailed, stored.PaymentStatus)
		assert.Equal(t, models.StatusPending, stored.Status)
	})

	t.Run("invalid card writes nothing", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")
		card := goodCard()
		card.CVV = "1"

		_, err := f.manager.Pay(ctx, f.renter, b.ID.Hex(), card)
		var cardErr *payment.CardError
		require.ErrorAs(t, err, &cardErr)
		stored, err := f.store.Bookings.FindBookingByID(ctx, b.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
	})

	t.Run("only the renter pays", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")
		_, err := f.manager.Pay(ctx, f.owner, b.ID.Hex(), goodCard())
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("cancelled booking cannot be paid", func(t *testing.T) {
		f := newFixture(t, "100")
		b := f.create(t, "2024-03-01", "2024-03-03")
		_, err := f.manager.Cancel(ctx, f.renter, b.ID.Hex(), "no longer needed")
		require.NoError(t, err)
		_, err = f.manager.Pay(ctx, f.renter, b.ID.Hex(), goodCard())
		var invalid *InvalidTransitionError
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestManager_GetAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	b := f.create(t, "2024-03-01", "2024-03-03")

	for _, actor := range []Actor{f.renter, f.owner, f.admin} {
		got, err := f.manager.Get(ctx, actor, b.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
	}
	_, err := f.manager.Get(ctx, Actor{UserID: primitive.NewObjectID().Hex()}, b.ID.Hex())
	assert.ErrorIs(t, err, ErrForbidden)

	mine, err := f.manager.ListForRenter(ctx, f.renter, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.Total)
	assert.Equal(t, int64(1), mine.Page)
	assert.Equal(t, int64(defaultPageSize), mine.Limit)

	owned, err := f.manager.ListForOwner(ctx, f.owner, ListOptions{Statuses: []models.BookingStatus{models.StatusPending}})
	require.NoError(t, err)
	require.Len(t, owned.Bookings, 1)
	require.NotNil(t, owned.Bookings[0].MotorcycleDetails)
	assert.Equal(t, "Harley-Davidson", owned.Bookings[0].MotorcycleDetails.Brand)
	assert.Nil(t, owned.Bookings[0].Renter, "renter has no user record")

	owned, err = f.manager.ListForOwner(ctx, f.renter, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, owned.Bookings, "renter owns no motorcycles")

	_, err = f.manager.ListAll(ctx, f.owner, ListOptions{})
	assert.ErrorIs(t, err, ErrForbidden)
	all, err := f.manager.ListAll(ctx, f.admin, ListOptions{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(maxPageSize), all.Limit)

	_, err = f.manager.ListAll(ctx, f.admin, ListOptions{Statuses: []models.BookingStatus{"archived"}})
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestManager_Quote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "85")

	q, err := f.manager.Quote(ctx, f.bike.ID.Hex(), mustRange(t, "2024-01-01", "2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 3, q.Days)
	assert.Equal(t, models.MustMoney("255"), q.TotalPrice)
	assert.True(t, q.Available)

	f.create(t, "2024-01-02", "2024-01-02")
	q, err = f.manager.Quote(ctx, f.bike.ID.Hex(), mustRange(t, "2024-01-01", "2024-01-03"))
	require.NoError(t, err)
	assert.False(t, q.Available)
}

// failingAvailability refuses availability writes.
type failingAvailability struct {
	db.MotorcycleCollection
}

func (failingAvailability) SetAvailability(context.Context, string, bool) error {
	return errors.New("write failed")
}

func TestManager_CreateCompensatesOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	f.manager.store.Motorcycles = failingAvailability{f.store.Motorcycles}

	_, err := f.manager.Create(ctx, f.renter, f.bike.ID.Hex(), mustRange(t, "2024-03-01", "2024-03-03"))
	require.Error(t, err)

	found, _, err := f.store.Bookings.FindBookings(ctx, db.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, found, "inserted booking must be removed")
	assert.Empty(t, f.notifier.sent)
}

func TestManager_CancelRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	b := f.create(t, "2024-03-01", "2024-03-03")
	f.manager.store.Motorcycles = failingAvailability{f.store.Motorcycles}

	_, err := f.manager.Cancel(ctx, f.renter, b.ID.Hex(), "changed plans")
	require.Error(t, err)

	stored, err := f.store.Bookings.FindBookingByID(ctx, b.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestManager_ConcurrentCreatesDoNotDoubleBook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	rng := mustRange(t, "2024-03-01", "2024-03-03")

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actor := Actor{UserID: primitive.NewObjectID().Hex(), Role: models.RoleUser}
			if _, err := f.manager.Create(ctx, actor, f.bike.ID.Hex(), rng); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Zero(t, f.manager.locks.size())
}

func TestManager_NilCollaboratorsUseDefaults(t *testing.T) {
	store := db.NewMemoryStore().Store()
	m := NewManager(store, nil, nil, nil, "")
	assert.Equal(t, "INR", m.currency)
	assert.IsType(t, nopNotifier{}, m.notifier)
	assert.IsType(t, &payment.Simulated{}, m.payments)
	assert.Equal(t, logrus.StandardLogger(), m.log)
	assert.NotNil(t, m.Checker())
}

func TestManager_UsesClock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	fixed := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)
	f.manager.now = func() time.Time { return fixed }

	b := f.create(t, "2024-03-01", "2024-03-03")
	cancelled, err := f.manager.Cancel(ctx, f.renter, b.ID.Hex(), "sick")
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancellationDate)
	assert.Equal(t, fixed, *cancelled.CancellationDate)
}

func TestManager_UppercaseMotorcycleIDSharesState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	upper := strings.ToUpper(f.bike.ID.Hex())
	require.NotEqual(t, f.bike.ID.Hex(), upper)
	rng := mustRange(t, "2024-03-01", "2024-03-03")

	b, err := f.manager.Create(ctx, f.renter, upper, rng)
	require.NoError(t, err)
	assert.Equal(t, f.bike.ID, b.Motorcycle)
	assert.False(t, f.available(t))

	other := Actor{UserID: primitive.NewObjectID().Hex(), Role: models.RoleUser}
	_, err = f.manager.Create(ctx, other, upper, rng)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, b.ID, conflict.Conflicts[0].ID)

	blocking, err := f.manager.Checker().Blocking(ctx, upper)
	require.NoError(t, err)
	assert.Len(t, blocking, 1)

	q, err := f.manager.Quote(ctx, upper, rng)
	require.NoError(t, err)
	assert.Equal(t, f.bike.ID.Hex(), q.MotorcycleID)
	assert.False(t, q.Available)

	found, _, err := f.store.Bookings.FindBookings(ctx, db.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Zero(t, f.manager.locks.size())
}

func TestManager_ConcurrentCreatesWithMixedCaseIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	rng := mustRange(t, "2024-03-01", "2024-03-03")
	ids := []string{f.bike.ID.Hex(), strings.ToUpper(f.bike.ID.Hex())}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			actor := Actor{UserID: primitive.NewObjectID().Hex(), Role: models.RoleUser}
			if _, err := f.manager.Create(ctx, actor, id, rng); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(ids[i%2])
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

// lockWatcher records how many motorcycle locks are held whenever a notification arrives.
type lockWatcher struct {
	mu      sync.Mutex
	manager *Manager
	held    []int
	ctxErrs []error
}

func (w *lockWatcher) Notify(ctx context.Context, _ models.Notification) {
	held := w.manager.locks.size()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.held = append(w.held, held)
	w.ctxErrs = append(w.ctxErrs, ctx.Err())
}

func TestManager_NotifiesAfterReleasingLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	watcher := &lockWatcher{manager: f.manager}
	f.manager.notifier = watcher

	b := f.create(t, "2024-03-01", "2024-03-03")
	_, err := f.manager.Pay(ctx, f.renter, b.ID.Hex(), goodCard())
	require.NoError(t, err)
	_, err = f.manager.Cancel(ctx, f.renter, b.ID.Hex(), "plans changed")
	require.NoError(t, err)

	b = f.create(t, "2024-04-01", "2024-04-02")
	_, err = f.manager.Confirm(ctx, f.owner, b.ID.Hex())
	require.NoError(t, err)

	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	// create x2 (owner + renter), payment, cancel, create x2, confirm
	require.Len(t, watcher.held, 7)
	for i, held := range watcher.held {
		assert.Zero(t, held, "notification %d sent while a lock was held", i)
	}
}

func TestManager_DispatchSurvivesCancelledRequest(t *testing.T) {
	f := newFixture(t, "100")
	watcher := &lockWatcher{manager: f.manager}
	f.manager.notifier = watcher

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out outbox
	out.add(time.Now(), f.bike.Owner, models.NotifyBookingRequest, "New Booking Request", "msg", &models.Booking{Motorcycle: f.bike.ID})
	out.add(time.Now(), primitive.NilObjectID, models.NotifyBookingRequest, "dropped", "no recipient", &models.Booking{})
	f.manager.dispatch(ctx, out)

	require.Len(t, watcher.ctxErrs, 1)
	assert.NoError(t, watcher.ctxErrs[0])
}

func TestManager_ListJoinsRenter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")
	renterID, _ := primitive.ObjectIDFromHex(f.renter.UserID)
	require.NoError(t, f.store.Users.InsertUser(ctx, &models.User{ID: renterID, Name: "Ravi Kumar", Email: "ravi@example.com", Role: models.RoleUser}))
	first := f.create(t, "2024-03-01", "2024-03-03")
	_, err := f.manager.Reject(ctx, f.owner, first.ID.Hex())
	require.NoError(t, err)
	f.create(t, "2024-03-10", "2024-03-11")

	owned, err := f.manager.ListForOwner(ctx, f.owner, ListOptions{})
	require.NoError(t, err)
	require.Len(t, owned.Bookings, 2)
	for _, v := range owned.Bookings {
		require.NotNil(t, v.Renter)
		assert.Equal(t, "Ravi Kumar", v.Renter.Name)
		assert.Equal(t, "ravi@example.com", v.Renter.Email)
		require.NotNil(t, v.MotorcycleDetails)
		assert.Equal(t, f.bike.ID, v.MotorcycleDetails.ID)
	}
	// both views share one lookup per record
	assert.Same(t, owned.Bookings[0].Renter, owned.Bookings[1].Renter)
}
