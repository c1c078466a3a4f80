package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/moto-rentals/internal/booking"
	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MotorcycleHandler serves the motorcycle catalogue.
type MotorcycleHandler struct {
	motorcycles db.MotorcycleCollection
	bookings    *booking.Manager
	log         logrus.FieldLogger
}

// NewMotorcycleHandler creates a motorcycle handler.
func NewMotorcycleHandler(motorcycles db.MotorcycleCollection, bookings *booking.Manager, log logrus.FieldLogger) *MotorcycleHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MotorcycleHandler{motorcycles: motorcycles, bookings: bookings, log: log}
}

type motorcycleRequest struct {
	Name        string       `json:"name" validate:"required,max=120"`
	Brand       string       `json:"brand" validate:"required,max=60"`
	Model       string       `json:"model" validate:"required,max=60"`
	Year        int          `json:"year" validate:"required,gte=1900,lte=2100"`
	CC          int          `json:"cc" validate:"omitempty,gt=0"`
	DailyRate   models.Money `json:"daily_rate" validate:"required,gt=0"`
	Description string       `json:"description" validate:"max=2000"`
	ImageURL    string       `json:"image_url"`
	Features    []string     `json:"features" validate:"max=30,dive,max=80"`
	Location    string       `json:"location" validate:"required,max=120"`
}

type motorcyclePatch struct {
	Name        *string       `json:"name" validate:"omitempty,min=1,max=120"`
	Brand       *string       `json:"brand" validate:"omitempty,min=1,max=60"`
	Model       *string       `json:"model" validate:"omitempty,min=1,max=60"`
	Year        *int          `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	CC          *int          `json:"cc" validate:"omitempty,gt=0"`
	DailyRate   *models.Money `json:"daily_rate" validate:"omitempty,gt=0"`
	Description *string       `json:"description" validate:"omitempty,max=2000"`
	ImageURL    *string       `json:"image_url"`
	Features    []string      `json:"features" validate:"omitempty,max=30,dive,max=80"`
	Location    *string       `json:"location" validate:"omitempty,min=1,max=120"`
}

// List returns the catalogue filtered by location, brand, availability and price.
func (h *MotorcycleHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := motorcycleFilter(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	motorcycles, err := h.motorcycles.FindMotorcycles(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, motorcycles)
}

func motorcycleFilter(r *http.Request) (db.MotorcycleFilter, error) {
	q := r.URL.Query()
	filter := db.MotorcycleFilter{
		Location: strings.TrimSpace(q.Get("location")),
		Brand:    strings.TrimSpace(q.Get("brand")),
	}
	if v := q.Get("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			return filter, &requestError{msg: "available must be true or false"}
		}
		filter.Available = &available
	}
	var err error
	if v := q.Get("min_price"); v != "" {
		if filter.MinRate, err = models.ParseMoney(v); err != nil {
			return filter, &requestError{msg: "min_price: " + err.Error()}
		}
	}
	if v := q.Get("max_price"); v != "" {
		if filter.MaxRate, err = models.ParseMoney(v); err != nil {
			return filter, &requestError{msg: "max_price: " + err.Error()}
		}
	}
	return filter, nil
}

// Mine lists the caller's own motorcycles.
func (h *MotorcycleHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	motorcycles, err := h.motorcycles.FindMotorcycles(r.Context(), db.MotorcycleFilter{Owner: claims.UserID})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, motorcycles)
}

// Get returns one motorcycle.
func (h *MotorcycleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	moto, err := h.motorcycles.FindMotorcycleByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, notFound(err, "motorcycle", id))
		return
	}
	writeJSON(w, http.StatusOK, moto)
}

// Create lists a new motorcycle owned by the caller.
func (h *MotorcycleHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req motorcycleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	owner, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid user id")
		return
	}

	moto := &models.Motorcycle{
		Owner:       owner,
		Name:        strings.TrimSpace(req.Name),
		Brand:       strings.TrimSpace(req.Brand),
		Model:       strings.TrimSpace(req.Model),
		Year:        req.Year,
		CC:          req.CC,
		DailyRate:   req.DailyRate,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Features:    req.Features,
		Location:    strings.TrimSpace(req.Location),
		Available:   true,
		Bookings:    []primitive.ObjectID{},
		Reviews:     []primitive.ObjectID{},
		Questions:   []primitive.ObjectID{},
	}
	if moto.ImageURL == "" {
		moto.ImageURL = models.DefaultImageURL
	}
	if moto.Features == nil {
		moto.Features = []string{}
	}
	if err := h.motorcycles.InsertMotorcycle(r.Context(), moto); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"motorcycle_id": moto.ID.Hex(),
		"owner_id":      claims.UserID,
	}).Info("Motorcycle listed")
	writeJSON(w, http.StatusCreated, moto)
}

// Update patches the owner-editable fields. Availability, rating and references
// are derived and cannot be set here.
func (h *MotorcycleHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	var req motorcyclePatch
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if _, err := h.ownedMotorcycle(r, claims, id); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	update := db.MotorcycleUpdate{
		Name:        req.Name,
		Brand:       req.Brand,
		Model:       req.Model,
		Year:        req.Year,
		CC:          req.CC,
		DailyRate:   req.DailyRate,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Features:    req.Features,
		Location:    req.Location,
	}
	if err := h.motorcycles.UpdateMotorcycle(r.Context(), id, update); err != nil {
		respondError(w, r, h.log, notFound(err, "motorcycle", id))
		return
	}
	moto, err := h.motorcycles.FindMotorcycleByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, notFound(err, "motorcycle", id))
		return
	}
	writeJSON(w, http.StatusOK, moto)
}

// Delete removes a motorcycle that has no pending or confirmed bookings.
func (h *MotorcycleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	moto, err := h.ownedMotorcycle(r, claims, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	id := moto.ID.Hex()
	blocking, err := h.bookings.Checker().Blocking(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if len(blocking) > 0 {
		respondError(w, r, h.log, &booking.ConflictError{
			MotorcycleID: id,
			Reason:       "has active bookings",
			Conflicts:    blocking,
		})
		return
	}
	if err := h.motorcycles.DeleteMotorcycle(r.Context(), id); err != nil {
		respondError(w, r, h.log, notFound(err, "motorcycle", id))
		return
	}
	h.log.WithField("motorcycle_id", id).Info("Motorcycle deleted")
	writeMessage(w, "Motorcycle deleted successfully")
}

// Quote prices ?start=&end= for the motorcycle without booking it.
func (h *MotorcycleHandler) Quote(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q := r.URL.Query()
	rng, err := booking.ParseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	quote, err := h.bookings.Quote(r.Context(), id, rng)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *MotorcycleHandler) ownedMotorcycle(r *http.Request, claims *models.Claims, id string) (*models.Motorcycle, error) {
	moto, err := h.motorcycles.FindMotorcycleByID(r.Context(), id)
	if err != nil {
		return nil, notFound(err, "motorcycle", id)
	}
	if !moto.IsOwnedBy(claims.UserID) && !claims.IsAdmin() {
		return nil, fmt.Errorf("%w: not the owner of this motorcycle", booking.ErrForbidden)
	}
	return moto, nil
}

// notFound turns a store miss into the typed error the response mapper reports with its kind.
func notFound(err error, kind, id string) error {
	if errors.Is(err, db.ErrNotFound) {
		return &booking.NotFoundError{Kind: kind, ID: id}
	}
	return err
}
