package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/models"
	"github.com/ukydev/moto-rentals/internal/payment"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// statusDeleted is the pseudo-target reported when a delete is refused.
const statusDeleted models.BookingStatus = "deleted"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Notifier receives a notification after each completed transition.
// Delivery failures are the notifier's business; the lifecycle never waits on them.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, models.Notification) {}

// Actor identifies who is asking for a lifecycle operation.
type Actor struct {
	UserID string
	Role   models.Role
}

// ActorFromClaims converts authenticated token claims into an Actor.
func ActorFromClaims(c *models.Claims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{UserID: c.UserID, Role: c.Role}
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// ListOptions narrows and pages a booking listing.
type ListOptions struct {
	Statuses []models.BookingStatus
	Page     int64
	Limit    int64
}

func (o ListOptions) normalized() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit <= 0 {
		o.Limit = defaultPageSize
	}
	if o.Limit > maxPageSize {
		o.Limit = maxPageSize
	}
	return o
}

// Page is one page of a booking listing.
type Page struct {
	Bookings []BookingView `json:"bookings"`
	Total    int64         `json:"total"`
	Page     int64         `json:"page"`
	Limit    int64         `json:"limit"`
}

// QuoteResult prices a range for a motorcycle without booking it.
type QuoteResult struct {
	MotorcycleID string       `json:"motorcycle_id"`
	Range        DateRange    `json:"range"`
	Days         int          `json:"days"`
	DailyRate    models.Money `json:"daily_rate"`
	TotalPrice   models.Money `json:"total_price"`
	Available    bool         `json:"available"`
}

// Manager runs the booking state machine. Every write that touches a motorcycle's
// bookings holds that motorcycle's lock, so the conflict scan and the write it guards
// cannot interleave with another request for the same motorcycle.
type Manager struct {
	store    *db.Store
	checker  *Checker
	payments payment.Processor
	notifier Notifier
	log      logrus.FieldLogger
	currency string
	locks    keyedMutex
	now      func() time.Time
}

// NewManager wires a Manager. A nil notifier drops notifications, a nil processor
// uses the simulated card processor and a nil logger uses the logrus standard logger.
func NewManager(store *db.Store, payments payment.Processor, notifier Notifier, log logrus.FieldLogger, currency string) *Manager {
	if payments == nil {
		payments = payment.NewSimulated()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if currency == "" {
		currency = "INR"
	}
	return &Manager{
		store:    store,
		checker:  NewChecker(store.Bookings),
		payments: payments,
		notifier: notifier,
		log:      log,
		currency: currency,
		now:      time.Now,
	}
}

// Checker exposes the availability checker the manager uses.
func (m *Manager) Checker() *Checker {
	return m.checker
}

// Quote prices rng for the motorcycle and reports whether the range is currently free.
func (m *Manager) Quote(ctx context.Context, motorcycleID string, rng DateRange) (*QuoteResult, error) {
	moto, err := m.motorcycle(ctx, motorcycleID)
	if err != nil {
		return nil, err
	}
	total, err := Quote(moto.DailyRate, rng)
	if err != nil {
		return nil, err
	}
	available := moto.Available
	if err := m.checker.Check(ctx, moto.ID.Hex(), rng, ""); err != nil {
		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		available = false
	}
	return &QuoteResult{
		MotorcycleID: moto.ID.Hex(),
		Range:        rng,
		Days:         rng.Days(),
		DailyRate:    moto.DailyRate,
		TotalPrice:   total,
		Available:    available,
	}, nil
}

// Create books rng on the motorcycle for the actor as a pending request.
func (m *Manager) Create(ctx context.Context, actor Actor, motorcycleID string, rng DateRange) (*models.Booking, error) {
	renter, err := primitive.ObjectIDFromHex(actor.UserID)
	if err != nil {
		return nil, &ValidationError{Field: "user", Reason: "invalid user id"}
	}
	// Resolve first so every spelling of the id shares one lock.
	moto, err := m.motorcycle(ctx, motorcycleID)
	if err != nil {
		return nil, err
	}

	var out outbox
	b, err := m.create(ctx, actor, renter, moto.ID.Hex(), rng, &out)
	if err != nil {
		return nil, err
	}
	m.dispatch(ctx, out)
	return b, nil
}

func (m *Manager) create(ctx context.Context, actor Actor, renter primitive.ObjectID, motorcycleID string, rng DateRange, out *outbox) (*models.Booking, error) {
	unlock := m.locks.Lock(motorcycleID)
	defer unlock()

	moto, err := m.motorcycle(ctx, motorcycleID)
	if err != nil {
		return nil, err
	}
	if moto.IsOwnedBy(actor.UserID) {
		return nil, fmt.Errorf("%w: owners cannot book their own motorcycle", ErrForbidden)
	}
	if err := m.checker.Check(ctx, motorcycleID, rng, ""); err != nil {
		return nil, err
	}
	if !moto.Available {
		return nil, &ConflictError{MotorcycleID: motorcycleID, Reason: "motorcycle is not available for booking"}
	}
	total, err := Quote(moto.DailyRate, rng)
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		Motorcycle:    moto.ID,
		User:          renter,
		StartDate:     rng.Start,
		EndDate:       rng.End,
		DailyRate:     moto.DailyRate,
		Days:          rng.Days(),
		TotalPrice:    total,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
	}
	if err := m.store.Bookings.InsertBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	if err := m.store.Motorcycles.AddRef(ctx, motorcycleID, db.RefBookings, b.ID); err != nil {
		m.undoCreate(ctx, b)
		return nil, fmt.Errorf("link booking to motorcycle: %w", err)
	}
	if err := m.RecomputeAvailability(ctx, motorcycleID); err != nil {
		m.undoCreate(ctx, b)
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"booking_id":    b.ID.Hex(),
		"motorcycle_id": motorcycleID,
		"user_id":       actor.UserID,
		"range":         rng.String(),
		"total_price":   total.String(),
	}).Info("Booking created")

	out.add(m.now(), moto.Owner, models.NotifyBookingRequest, "New Booking Request",
		fmt.Sprintf("A new booking request has been made for your %s", title(moto)), b)
	out.add(m.now(), renter, models.NotifyBookingRequest, "Booking Request Sent",
		fmt.Sprintf("Your booking request for %s has been sent to the owner", title(moto)), b)
	return b, nil
}

// undoCreate removes a booking whose follow-up writes failed. It runs detached from
// the request context so a cancelled request still cleans up.
func (m *Manager) undoCreate(ctx context.Context, b *models.Booking) {
	ctx = context.WithoutCancel(ctx)
	id := b.ID.Hex()
	motoID := b.Motorcycle.Hex()
	if err := m.store.Bookings.DeleteBooking(ctx, id); err != nil && !errors.Is(err, db.ErrNotFound) {
		m.log.WithError(err).WithField("booking_id", id).Error("Failed to remove booking after create failure")
	}
	if err := m.store.Motorcycles.RemoveRef(ctx, motoID, db.RefBookings, b.ID); err != nil && !errors.Is(err, db.ErrNotFound) {
		m.log.WithError(err).WithField("booking_id", id).Error("Failed to unlink booking after create failure")
	}
	if err := m.RecomputeAvailability(ctx, motoID); err != nil {
		m.log.WithError(err).WithField("motorcycle_id", motoID).Error("Failed to restore availability after create failure")
	}
}

// RecomputeAvailability sets the motorcycle available iff no pending or confirmed
// booking remains on it.
func (m *Manager) RecomputeAvailability(ctx context.Context, motorcycleID string) error {
	free, err := m.checker.IsFree(ctx, motorcycleID)
	if err != nil {
		return err
	}
	if err := m.store.Motorcycles.SetAvailability(ctx, motorcycleID, free); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			m.log.WithField("motorcycle_id", motorcycleID).Warn("Motorcycle missing while recomputing availability")
			return nil
		}
		return fmt.Errorf("set availability: %w", err)
	}
	return nil
}

// Confirm accepts a pending booking. Only the motorcycle owner or an admin may confirm.
func (m *Manager) Confirm(ctx context.Context, actor Actor, bookingID string) (*models.Booking, error) {
	return m.transition(ctx, actor, bookingID, models.StatusConfirmed, ownerOrAdmin, nil)
}

// Reject declines a pending booking. Only the motorcycle owner or an admin may reject.
func (m *Manager) Reject(ctx context.Context, actor Actor, bookingID string) (*models.Booking, error) {
	return m.transition(ctx, actor, bookingID, models.StatusRejected, ownerOrAdmin, nil)
}

// Complete closes a confirmed booking once the rental is over.
func (m *Manager) Complete(ctx context.Context, actor Actor, bookingID string) (*models.Booking, error) {
	return m.transition(ctx, actor, bookingID, models.StatusCompleted, ownerOrAdmin, nil)
}

// Cancel cancels a pending or confirmed booking. A renter must say why.
// A paid booking is marked refunded.
func (m *Manager) Cancel(ctx context.Context, actor Actor, bookingID, reason string) (*models.Booking, error) {
	reason = strings.TrimSpace(reason)
	return m.transition(ctx, actor, bookingID, models.StatusCancelled, anyParty,
		func(b *models.Booking) error {
			if reason == "" && b.IsRenter(actor.UserID) {
				return &InvalidTransitionError{From: b.Status, To: models.StatusCancelled, Reason: "a cancellation reason is required"}
			}
			now := m.now()
			b.CancellationReason = reason
			b.CancellationDate = &now
			if b.PaymentStatus == models.PaymentPaid {
				b.PaymentStatus = models.PaymentRefunded
			}
			return nil
		})
}

// SetStatus applies an owner-side status change by name.
func (m *Manager) SetStatus(ctx context.Context, actor Actor, bookingID string, status models.BookingStatus) (*models.Booking, error) {
	switch status {
	case models.StatusConfirmed:
		return m.Confirm(ctx, actor, bookingID)
	case models.StatusRejected:
		return m.Reject(ctx, actor, bookingID)
	case models.StatusCompleted:
		return m.Complete(ctx, actor, bookingID)
	default:
		return nil, &ValidationError{Field: "status", Reason: "must be confirmed, rejected or completed"}
	}
}

type authorizer func(actor Actor, b *models.Booking, moto *models.Motorcycle) bool

func ownerOrAdmin(actor Actor, _ *models.Booking, moto *models.Motorcycle) bool {
	return actor.IsAdmin() || (moto != nil && moto.IsOwnedBy(actor.UserID))
}

func anyParty(actor Actor, b *models.Booking, moto *models.Motorcycle) bool {
	return b.IsRenter(actor.UserID) || ownerOrAdmin(actor, b, moto)
}

func renterOrAdmin(actor Actor, b *models.Booking, _ *models.Motorcycle) bool {
	return actor.IsAdmin() || b.IsRenter(actor.UserID)
}

// transition moves a booking to target under the motorcycle lock. prepare may edit
// the booking before it is written or veto the move; nothing is written on a veto.
func (m *Manager) transition(ctx context.Context, actor Actor, bookingID string, target models.BookingStatus, allowed authorizer, prepare func(*models.Booking) error) (*models.Booking, error) {
	var out outbox
	b, err := m.transitionLocked(ctx, actor, bookingID, target, allowed, prepare, &out)
	if err != nil {
		return nil, err
	}
	m.dispatch(ctx, out)
	return b, nil
}

func (m *Manager) transitionLocked(ctx context.Context, actor Actor, bookingID string, target models.BookingStatus, allowed authorizer, prepare func(*models.Booking) error, out *outbox) (*models.Booking, error) {
	b, moto, unlock, err := m.lockBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !allowed(actor, b, moto) {
		return nil, ErrForbidden
	}
	if !b.Status.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: b.Status, To: target}
	}

	previous := *b
	if prepare != nil {
		if err := prepare(b); err != nil {
			return nil, err
		}
	}
	b.Status = target
	if err := m.store.Bookings.UpdateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}
	if !target.IsBlocking() {
		if err := m.RecomputeAvailability(ctx, b.Motorcycle.Hex()); err != nil {
			if rbErr := m.store.Bookings.UpdateBooking(context.WithoutCancel(ctx), &previous); rbErr != nil {
				m.log.WithError(rbErr).WithField("booking_id", bookingID).Error("Failed to roll back booking status")
			}
			return nil, err
		}
	}

	m.log.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"from":       previous.Status,
		"to":         target,
		"actor":      actor.UserID,
	}).Info("Booking status changed")

	m.notifyTransition(out, actor, b, moto)
	return b, nil
}

// lockBooking loads the booking, takes its motorcycle's lock and reloads the booking
// under it. The motorcycle is nil when the listing has since been deleted.
func (m *Manager) lockBooking(ctx context.Context, bookingID string) (*models.Booking, *models.Motorcycle, func(), error) {
	b, err := m.booking(ctx, bookingID)
	if err != nil {
		return nil, nil, nil, err
	}
	unlock := m.locks.Lock(b.Motorcycle.Hex())
	b, err = m.booking(ctx, bookingID)
	if err != nil {
		unlock()
		return nil, nil, nil, err
	}
	moto, err := m.store.Motorcycles.FindMotorcycleByID(ctx, b.Motorcycle.Hex())
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			unlock()
			return nil, nil, nil, fmt.Errorf("find motorcycle: %w", err)
		}
		moto = nil
	}
	return b, moto, unlock, nil
}

// Delete removes a booking. Only the renter or an admin may delete, and a confirmed
// booking that has been paid must be cancelled with a refund instead.
func (m *Manager) Delete(ctx context.Context, actor Actor, bookingID string) error {
	b, moto, unlock, err := m.lockBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	defer unlock()

	if !renterOrAdmin(actor, b, moto) {
		return ErrForbidden
	}
	if b.Status == models.StatusConfirmed && b.PaymentStatus == models.PaymentPaid {
		return &InvalidTransitionError{From: b.Status, To: statusDeleted, Reason: "a paid confirmed booking can only be cancelled with a refund"}
	}

	if err := m.store.Bookings.DeleteBooking(ctx, bookingID); err != nil {
		return m.notFoundOr(err, "booking", bookingID)
	}
	motoID := b.Motorcycle.Hex()
	if err := m.RecomputeAvailability(ctx, motoID); err != nil {
		if rbErr := m.store.Bookings.InsertBooking(context.WithoutCancel(ctx), b); rbErr != nil {
			m.log.WithError(rbErr).WithField("booking_id", bookingID).Error("Failed to restore deleted booking")
		}
		return err
	}
	if moto != nil {
		if err := m.store.Motorcycles.RemoveRef(ctx, motoID, db.RefBookings, b.ID); err != nil && !errors.Is(err, db.ErrNotFound) {
			m.log.WithError(err).WithField("booking_id", bookingID).Warn("Failed to unlink deleted booking")
		}
	}
	m.log.WithFields(logrus.Fields{"booking_id": bookingID, "actor": actor.UserID}).Info("Booking deleted")
	return nil
}

// Pay charges the renter's card for the booking total. A successful charge confirms
// a pending booking; a declined charge marks the payment failed and returns payment.ErrDeclined.
func (m *Manager) Pay(ctx context.Context, actor Actor, bookingID string, card payment.Card) (*models.Booking, error) {
	var out outbox
	b, err := m.pay(ctx, actor, bookingID, card, &out)
	if err != nil {
		return nil, err
	}
	m.dispatch(ctx, out)
	return b, nil
}

func (m *Manager) pay(ctx context.Context, actor Actor, bookingID string, card payment.Card, out *outbox) (*models.Booking, error) {
	b, moto, unlock, err := m.lockBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !b.IsRenter(actor.UserID) {
		return nil, ErrForbidden
	}
	if b.PaymentStatus == models.PaymentPaid {
		return nil, &InvalidTransitionError{From: b.Status, To: models.StatusConfirmed, Reason: "payment already completed"}
	}
	if !b.Status.IsBlocking() {
		return nil, &InvalidTransitionError{From: b.Status, To: models.StatusConfirmed, Reason: "only pending or confirmed bookings can be paid"}
	}

	receipt, err := m.payments.Charge(ctx, payment.ChargeRequest{
		BookingID: bookingID,
		Card:      card,
		Amount:    b.TotalPrice,
		Currency:  m.currency,
	})
	if errors.Is(err, payment.ErrDeclined) {
		b.PaymentStatus = models.PaymentFailed
		if upErr := m.store.Bookings.UpdateBooking(ctx, b); upErr != nil {
			m.log.WithError(upErr).WithField("booking_id", bookingID).Error("Failed to record declined payment")
		}
		m.log.WithField("booking_id", bookingID).Warn("Payment declined")
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	previous := b.Status
	b.PaymentStatus = models.PaymentPaid
	b.PaymentDetails = &models.PaymentDetails{
		Method:        receipt.Method,
		CardLast4:     receipt.CardLast4,
		TransactionID: receipt.TransactionID,
		Amount:        receipt.Amount,
		Currency:      receipt.Currency,
		PaymentDate:   receipt.ProcessedAt,
	}
	if b.Status == models.StatusPending {
		b.Status = models.StatusConfirmed
	}
	if err := m.store.Bookings.UpdateBooking(ctx, b); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"booking_id":     bookingID,
			"transaction_id": receipt.TransactionID,
		}).Error("Charge succeeded but booking update failed")
		return nil, fmt.Errorf("record payment: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"booking_id":     bookingID,
		"transaction_id": receipt.TransactionID,
		"amount":         receipt.Amount.String(),
		"from":           previous,
		"to":             b.Status,
	}).Info("Payment recorded")

	if moto != nil {
		out.add(m.now(), moto.Owner, models.NotifyPaymentReceived, "Payment Received",
			fmt.Sprintf("Payment has been received for the booking of your %s", title(moto)), b)
	}
	return b, nil
}

// Get returns the booking to its renter, the motorcycle owner or an admin.
func (m *Manager) Get(ctx context.Context, actor Actor, bookingID string) (*models.Booking, error) {
	b, err := m.booking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.IsRenter(actor.UserID) || actor.IsAdmin() {
		return b, nil
	}
	moto, err := m.store.Motorcycles.FindMotorcycleByID(ctx, b.Motorcycle.Hex())
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("find motorcycle: %w", err)
	}
	if moto == nil || !moto.IsOwnedBy(actor.UserID) {
		return nil, ErrForbidden
	}
	return b, nil
}

// ListForRenter pages through the actor's own bookings, newest first.
func (m *Manager) ListForRenter(ctx context.Context, actor Actor, opts ListOptions) (*Page, error) {
	return m.list(ctx, db.BookingFilter{UserID: actor.UserID}, opts)
}

// ListForOwner pages through bookings on every motorcycle the actor lists.
func (m *Manager) ListForOwner(ctx context.Context, actor Actor, opts ListOptions) (*Page, error) {
	owned, err := m.store.Motorcycles.FindMotorcycles(ctx, db.MotorcycleFilter{Owner: actor.UserID})
	if err != nil {
		return nil, fmt.Errorf("find owned motorcycles: %w", err)
	}
	ids := make([]string, 0, len(owned))
	for _, moto := range owned {
		ids = append(ids, moto.ID.Hex())
	}
	return m.list(ctx, db.BookingFilter{MotorcycleIDs: ids}, opts)
}

// ListAll pages through every booking. Admin only.
func (m *Manager) ListAll(ctx context.Context, actor Actor, opts ListOptions) (*Page, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return m.list(ctx, db.BookingFilter{}, opts)
}

func (m *Manager) list(ctx context.Context, filter db.BookingFilter, opts ListOptions) (*Page, error) {
	opts = opts.normalized()
	for _, s := range opts.Statuses {
		if !s.IsValid() {
			return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
		}
	}
	filter.Statuses = opts.Statuses
	filter.Page = opts.Page
	filter.Limit = opts.Limit
	found, total, err := m.store.Bookings.FindBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find bookings: %w", err)
	}
	views, err := m.views(ctx, found)
	if err != nil {
		return nil, err
	}
	return &Page{Bookings: views, Total: total, Page: opts.Page, Limit: opts.Limit}, nil
}

func (m *Manager) motorcycle(ctx context.Context, id string) (*models.Motorcycle, error) {
	moto, err := m.store.Motorcycles.FindMotorcycleByID(ctx, id)
	if err != nil {
		return nil, m.notFoundOr(err, "motorcycle", id)
	}
	return moto, nil
}

func (m *Manager) booking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := m.store.Bookings.FindBookingByID(ctx, id)
	if err != nil {
		return nil, m.notFoundOr(err, "booking", id)
	}
	return b, nil
}

func (m *Manager) notFoundOr(err error, kind, id string) error {
	if errors.Is(err, db.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return fmt.Errorf("%s %s: %w", kind, id, err)
}

// notifyTransition tells the other party about a status change.
func (m *Manager) notifyTransition(out *outbox, actor Actor, b *models.Booking, moto *models.Motorcycle) {
	name := "motorcycle"
	if moto != nil {
		name = title(moto)
	}
	var typ models.NotificationType
	var heading, verb string
	switch b.Status {
	case models.StatusConfirmed:
		typ, heading, verb = models.NotifyBookingConfirmed, "Booking Confirmed", "has been confirmed"
	case models.StatusRejected:
		typ, heading, verb = models.NotifyBookingRejected, "Booking Rejected", "has been rejected by the owner"
	case models.StatusCompleted:
		typ, heading, verb = models.NotifyBookingCompleted, "Booking Completed", "has been marked as completed"
	case models.StatusCancelled:
		typ, heading, verb = models.NotifyBookingCancelled, "Booking Cancelled", "has been cancelled"
	default:
		return
	}

	if !b.IsRenter(actor.UserID) {
		out.add(m.now(), b.User, typ, heading, fmt.Sprintf("Your booking for %s %s", name, verb), b)
	}
	if b.Status == models.StatusCancelled && moto != nil && !moto.IsOwnedBy(actor.UserID) {
		msg := fmt.Sprintf("A booking for your %s %s", name, verb)
		if b.CancellationReason != "" {
			msg += ": " + b.CancellationReason
		}
		out.add(m.now(), moto.Owner, typ, heading, msg, b)
	}
}

// outbox collects the notifications of one operation so they can be sent
// after the motorcycle lock is released.
type outbox []models.Notification

func (o *outbox) add(now time.Time, recipient primitive.ObjectID, typ models.NotificationType, heading, message string, b *models.Booking) {
	if recipient.IsZero() {
		return
	}
	*o = append(*o, models.Notification{
		Recipient:         recipient,
		Type:              typ,
		Title:             heading,
		Message:           message,
		RelatedBooking:    b.ID,
		RelatedMotorcycle: b.Motorcycle,
		CreatedAt:         now,
	})
}

// dispatch hands the collected notifications to the notifier. The write they
// describe is already committed, so a cancelled request still sends them.
func (m *Manager) dispatch(ctx context.Context, out outbox) {
	ctx = context.WithoutCancel(ctx)
	for _, n := range out {
		m.notifier.Notify(ctx, n)
	}
}

func title(moto *models.Motorcycle) string {
	name := strings.TrimSpace(moto.Brand + " " + moto.Model)
	if name == "" {
		return moto.Name
	}
	return name
}
