package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/moto-rentals/internal/booking"
	"github.com/ukydev/moto-rentals/internal/models"
	"github.com/ukydev/moto-rentals/internal/payment"
)

// BookingHandler exposes the booking lifecycle over HTTP.
type BookingHandler struct {
	manager *booking.Manager
	log     logrus.FieldLogger
}

// NewBookingHandler creates a booking handler.
func NewBookingHandler(manager *booking.Manager, log logrus.FieldLogger) *BookingHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BookingHandler{manager: manager, log: log}
}

type createBookingRequest struct {
	MotorcycleID string `json:"motorcycle_id" validate:"required,len=24,hexadecimal"`
	StartDate    string `json:"start_date" validate:"required"`
	EndDate      string `json:"end_date" validate:"required"`
}

type statusRequest struct {
	Status models.BookingStatus `json:"status" validate:"required,oneof=confirmed rejected completed"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Create requests a booking for the caller.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	rng, err := booking.ParseRange(req.StartDate, req.EndDate)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	b, err := h.manager.Create(r.Context(), booking.ActorFromClaims(claims), req.MotorcycleID, rng)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// Mine lists the caller's bookings as a renter.
func (h *BookingHandler) Mine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.manager.ListForRenter)
}

// Owner lists bookings made on the caller's motorcycles.
func (h *BookingHandler) Owner(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.manager.ListForOwner)
}

// AdminList lists every booking.
func (h *BookingHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.manager.ListAll)
}

type listFunc func(ctx context.Context, actor booking.Actor, opts booking.ListOptions) (*booking.Page, error)

func (h *BookingHandler) list(w http.ResponseWriter, r *http.Request, fetch listFunc) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	page, err := fetch(r.Context(), booking.ActorFromClaims(claims), opts)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get returns a booking visible to the caller.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	b, err := h.manager.Get(r.Context(), booking.ActorFromClaims(claims), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdateStatus lets the owner confirm, reject or complete a booking.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	b, err := h.manager.SetStatus(r.Context(), booking.ActorFromClaims(claims), mux.Vars(r)["id"], req.Status)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Cancel cancels a booking. Renters must say why.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	b, err := h.manager.Cancel(r.Context(), booking.ActorFromClaims(claims), mux.Vars(r)["id"], req.Reason)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Delete removes a booking.
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.manager.Delete(r.Context(), booking.ActorFromClaims(claims), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeMessage(w, "Booking deleted successfully")
}

// Pay charges the renter's card for the booking.
func (h *BookingHandler) Pay(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var card payment.Card
	if err := decodeJSON(r, &card); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	b, err := h.manager.Pay(r.Context(), booking.ActorFromClaims(claims), mux.Vars(r)["id"], card)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
