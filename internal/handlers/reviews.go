package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/moto-rentals/internal/booking"
	"github.com/ukydev/moto-rentals/internal/db"
)

// ReviewHandler serves motorcycle reviews.
type ReviewHandler struct {
	aggregator *booking.Aggregator
	reviews    db.ReviewCollection
	log        logrus.FieldLogger
}

// NewReviewHandler creates a review handler.
func NewReviewHandler(aggregator *booking.Aggregator, reviews db.ReviewCollection, log logrus.FieldLogger) *ReviewHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReviewHandler{aggregator: aggregator, reviews: reviews, log: log}
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,max=2000"`
}

// Create adds the caller's review and refreshes the motorcycle's rating.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	review, err := h.aggregator.AddReview(r.Context(), booking.ActorFromClaims(claims), mux.Vars(r)["id"], req.Rating, req.Comment)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// List returns a motorcycle's reviews, newest first.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.FindReviewsByMotorcycle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}
