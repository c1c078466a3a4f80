package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ukydev/moto-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps every collection in process memory. It backs STORE=memory
// for local runs and the package tests; nothing survives a restart.
type MemoryStore struct {
	mu            sync.RWMutex
	motorcycles   map[primitive.ObjectID]models.Motorcycle
	bookings      map[primitive.ObjectID]models.Booking
	reviews       map[primitive.ObjectID]models.Review
	questions     map[primitive.ObjectID]models.Question
	notifications map[primitive.ObjectID]models.Notification
	users         map[primitive.ObjectID]models.User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		motorcycles:   make(map[primitive.ObjectID]models.Motorcycle),
		bookings:      make(map[primitive.ObjectID]models.Booking),
		reviews:       make(map[primitive.ObjectID]models.Review),
		questions:     make(map[primitive.ObjectID]models.Question),
		notifications: make(map[primitive.ObjectID]models.Notification),
		users:         make(map[primitive.ObjectID]models.User),
	}
}

// Store exposes the memory store through the collection interfaces.
func (s *MemoryStore) Store() *Store {
	return &Store{
		Motorcycles:   s,
		Bookings:      s,
		Reviews:       s,
		Questions:     s,
		Notifications: s,
		Users:         s,
	}
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return nil
	}
	return append([]primitive.ObjectID(nil), ids...)
}

func cloneMotorcycle(m models.Motorcycle) models.Motorcycle {
	m.Features = append([]string(nil), m.Features...)
	m.Bookings = cloneIDs(m.Bookings)
	m.Reviews = cloneIDs(m.Reviews)
	m.Questions = cloneIDs(m.Questions)
	return m
}

func cloneBooking(b models.Booking) models.Booking {
	if b.PaymentDetails != nil {
		pd := *b.PaymentDetails
		b.PaymentDetails = &pd
	}
	if b.CancellationDate != nil {
		cd := *b.CancellationDate
		b.CancellationDate = &cd
	}
	return b
}

// Motorcycles

func (s *MemoryStore) InsertMotorcycle(ctx context.Context, m *models.Motorcycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if _, exists := s.motorcycles[m.ID]; exists {
		return ErrDuplicate
	}
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	s.motorcycles[m.ID] = cloneMotorcycle(*m)
	return nil
}

func (s *MemoryStore) FindMotorcycleByID(ctx context.Context, id string) (*models.Motorcycle, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.motorcycles[oid]
	if !ok {
		return nil, ErrNotFound
	}
	m = cloneMotorcycle(m)
	return &m, nil
}

func (s *MemoryStore) FindMotorcycles(ctx context.Context, filter MotorcycleFilter) ([]models.Motorcycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Motorcycle{}
	for _, m := range s.motorcycles {
		if filter.Owner != "" && !sameID(m.Owner, filter.Owner) {
			continue
		}
		if filter.Location != "" && !strings.EqualFold(m.Location, filter.Location) {
			continue
		}
		if filter.Brand != "" && !strings.EqualFold(m.Brand, filter.Brand) {
			continue
		}
		if filter.Available != nil && m.Available != *filter.Available {
			continue
		}
		if filter.MinRate > 0 && m.DailyRate < filter.MinRate {
			continue
		}
		if filter.MaxRate > 0 && m.DailyRate > filter.MaxRate {
			continue
		}
		out = append(out, cloneMotorcycle(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateMotorcycle(ctx context.Context, id string, update MotorcycleUpdate) error {
	return s.mutateMotorcycle(id, func(m *models.Motorcycle) {
		if update.Name != nil {
			m.Name = *update.Name
		}
		if update.Brand != nil {
			m.Brand = *update.Brand
		}
		if update.Model != nil {
			m.Model = *update.Model
		}
		if update.Year != nil {
			m.Year = *update.Year
		}
		if update.CC != nil {
			m.CC = *update.CC
		}
		if update.DailyRate != nil {
			m.DailyRate = *update.DailyRate
		}
		if update.Description != nil {
			m.Description = *update.Description
		}
		if update.ImageURL != nil {
			m.ImageURL = *update.ImageURL
		}
		if update.Features != nil {
			m.Features = append([]string(nil), update.Features...)
		}
		if update.Location != nil {
			m.Location = *update.Location
		}
	})
}

func (s *MemoryStore) SetAvailability(ctx context.Context, id string, available bool) error {
	return s.mutateMotorcycle(id, func(m *models.Motorcycle) { m.Available = available })
}

func (s *MemoryStore) SetRating(ctx context.Context, id string, rating float64, count int) error {
	return s.mutateMotorcycle(id, func(m *models.Motorcycle) {
		m.Rating = rating
		m.ReviewCount = count
	})
}

func (s *MemoryStore) AddRef(ctx context.Context, id string, field RefField, ref primitive.ObjectID) error {
	return s.mutateMotorcycle(id, func(m *models.Motorcycle) {
		list := refList(m, field)
		for _, existing := range *list {
			if existing == ref {
				return
			}
		}
		*list = append(*list, ref)
	})
}

func (s *MemoryStore) RemoveRef(ctx context.Context, id string, field RefField, ref primitive.ObjectID) error {
	return s.mutateMotorcycle(id, func(m *models.Motorcycle) {
		list := refList(m, field)
		kept := (*list)[:0]
		for _, existing := range *list {
			if existing != ref {
				kept = append(kept, existing)
			}
		}
		*list = kept
	})
}

func (s *MemoryStore) DeleteMotorcycle(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.motorcycles[oid]; !ok {
		return ErrNotFound
	}
	delete(s.motorcycles, oid)
	return nil
}

func refList(m *models.Motorcycle, field RefField) *[]primitive.ObjectID {
	switch field {
	case RefReviews:
		return &m.Reviews
	case RefQuestions:
		return &m.Questions
	default:
		return &m.Bookings
	}
}

func (s *MemoryStore) mutateMotorcycle(id string, fn func(*models.Motorcycle)) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.motorcycles[oid]
	if !ok {
		return ErrNotFound
	}
	m = cloneMotorcycle(m)
	fn(&m)
	m.UpdatedAt = time.Now()
	s.motorcycles[oid] = m
	return nil
}

// Bookings

func (s *MemoryStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	if _, exists := s.bookings[b.ID]; exists {
		return ErrDuplicate
	}
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	s.bookings[b.ID] = cloneBooking(*b)
	return nil
}

func (s *MemoryStore) FindBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[oid]
	if !ok {
		return nil, ErrNotFound
	}
	b = cloneBooking(b)
	return &b, nil
}

func (s *MemoryStore) FindBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var motorcycles map[primitive.ObjectID]bool
	if filter.MotorcycleIDs != nil {
		motorcycles = make(map[primitive.ObjectID]bool, len(filter.MotorcycleIDs))
		for _, id := range filter.MotorcycleIDs {
			if oid, err := objectID(id); err == nil {
				motorcycles[oid] = true
			}
		}
	}
	matched := []models.Booking{}
	for _, b := range s.bookings {
		if filter.UserID != "" && !sameID(b.User, filter.UserID) {
			continue
		}
		if motorcycles != nil && !motorcycles[b.Motorcycle] {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, b.Status) {
			continue
		}
		matched = append(matched, cloneBooking(b))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.Hex() > matched[j].ID.Hex()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start >= total {
			return []models.Booking{}, total, nil
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func containsStatus(statuses []models.BookingStatus, s models.BookingStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s *MemoryStore) UpdateBooking(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return ErrNotFound
	}
	b.UpdatedAt = time.Now()
	s.bookings[b.ID] = cloneBooking(*b)
	return nil
}

func (s *MemoryStore) DeleteBooking(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[oid]; !ok {
		return ErrNotFound
	}
	delete(s.bookings, oid)
	return nil
}

// Reviews

func (s *MemoryStore) InsertReview(ctx context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	r.CreatedAt = time.Now()
	s.reviews[r.ID] = *r
	return nil
}

func (s *MemoryStore) FindReviewsByMotorcycle(ctx context.Context, motorcycleID string) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Review{}
	for _, r := range s.reviews {
		if sameID(r.Motorcycle, motorcycleID) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Questions

func (s *MemoryStore) InsertQuestion(ctx context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID.IsZero() {
		q.ID = primitive.NewObjectID()
	}
	now := time.Now()
	q.CreatedAt, q.UpdatedAt = now, now
	s.questions[q.ID] = *q
	return nil
}

func (s *MemoryStore) FindQuestionByID(ctx context.Context, id string) (*models.Question, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &q, nil
}

func (s *MemoryStore) FindQuestionsByMotorcycle(ctx context.Context, motorcycleID string) ([]models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Question{}
	for _, q := range s.questions {
		if sameID(q.Motorcycle, motorcycleID) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateQuestion(ctx context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return ErrNotFound
	}
	q.UpdatedAt = time.Now()
	s.questions[q.ID] = *q
	return nil
}

func (s *MemoryStore) DeleteQuestion(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[oid]; !ok {
		return ErrNotFound
	}
	delete(s.questions, oid)
	return nil
}

// Notifications

func (s *MemoryStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.notifications[n.ID] = *n
	return nil
}

func (s *MemoryStore) FindNotificationByID(ctx context.Context, id string) (*models.Notification, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (s *MemoryStore) FindNotifications(ctx context.Context, recipient string, unreadOnly bool) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Notification{}
	for _, n := range s.notifications {
		if !sameID(n.Recipient, recipient) || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[oid]
	if !ok {
		return ErrNotFound
	}
	n.Read = true
	s.notifications[oid] = n
	return nil
}

// Users

func (s *MemoryStore) InsertUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	user.IsActive = true
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id string, user models.User) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[oid]; !ok {
		return ErrNotFound
	}
	user.ID = oid
	user.Email = strings.ToLower(user.Email)
	for other, u := range s.users {
		if other != oid && u.Email == user.Email {
			return ErrDuplicate
		}
	}
	user.UpdatedAt = time.Now()
	s.users[oid] = user
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, oid)
	return nil
}

func (s *MemoryStore) UpdateLastLogin(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[oid]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	u.LastLogin = &now
	u.UpdatedAt = now
	s.users[oid] = u
	return nil
}
