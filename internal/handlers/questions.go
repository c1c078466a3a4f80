package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/moto-rentals/internal/booking"
	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuestionHandler serves questions renters ask owners about a motorcycle.
type QuestionHandler struct {
	questions   db.QuestionCollection
	motorcycles db.MotorcycleCollection
	notifier    booking.Notifier
	log         logrus.FieldLogger
}

// NewQuestionHandler creates a question handler.
func NewQuestionHandler(store *db.Store, notifier booking.Notifier, log logrus.FieldLogger) *QuestionHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &QuestionHandler{
		questions:   store.Questions,
		motorcycles: store.Motorcycles,
		notifier:    notifier,
		log:         log,
	}
}

type askRequest struct {
	MotorcycleID string `json:"motorcycle_id" validate:"required,len=24,hexadecimal"`
	Text         string `json:"text" validate:"required,max=1000"`
	IsPublic     *bool  `json:"is_public"`
}

type answerRequest struct {
	Answer string `json:"answer" validate:"required,max=2000"`
}

// Ask records a question and tells the owner about it.
func (h *QuestionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	asker, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid user id")
		return
	}
	moto, err := h.motorcycles.FindMotorcycleByID(r.Context(), req.MotorcycleID)
	if err != nil {
		respondError(w, r, h.log, notFound(err, "motorcycle", req.MotorcycleID))
		return
	}

	q := &models.Question{
		Motorcycle: moto.ID,
		User:       asker,
		Text:       text,
		IsPublic:   req.IsPublic == nil || *req.IsPublic,
	}
	if err := h.questions.InsertQuestion(r.Context(), q); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.motorcycles.AddRef(r.Context(), req.MotorcycleID, db.RefQuestions, q.ID); err != nil {
		h.log.WithError(err).WithField("question_id", q.ID.Hex()).Warn("Failed to link question to motorcycle")
	}

	if !moto.IsOwnedBy(claims.UserID) {
		h.notifier.Notify(r.Context(), models.Notification{
			Recipient:         moto.Owner,
			Type:              models.NotifyNewQuestion,
			Title:             "New Question",
			Message:           fmt.Sprintf("Someone asked a question about your %s %s", moto.Brand, moto.Model),
			RelatedMotorcycle: moto.ID,
			CreatedAt:         time.Now(),
		})
	}
	writeJSON(w, http.StatusCreated, q)
}

// List returns a motorcycle's questions. Private ones are shown only to the
// owner, an admin, or the person who asked.
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	moto, err := h.motorcycles.FindMotorcycleByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, notFound(err, "motorcycle", id))
		return
	}
	questions, err := h.questions.FindQuestionsByMotorcycle(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	claims, _ := currentUserOptional(r)
	if claims != nil && (claims.IsAdmin() || moto.IsOwnedBy(claims.UserID)) {
		writeJSON(w, http.StatusOK, questions)
		return
	}
	visible := make([]models.Question, 0, len(questions))
	for _, q := range questions {
		if q.IsPublic || (claims != nil && q.User.Hex() == claims.UserID) {
			visible = append(visible, q)
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

// Answer lets the motorcycle's owner answer a question.
func (h *QuestionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	text := strings.TrimSpace(req.Answer)
	if text == "" {
		writeError(w, http.StatusBadRequest, "answer is required")
		return
	}

	id := mux.Vars(r)["id"]
	q, err := h.questions.FindQuestionByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, notFound(err, "question", id))
		return
	}
	moto, err := h.motorcycles.FindMotorcycleByID(r.Context(), q.Motorcycle.Hex())
	if err != nil {
		respondError(w, r, h.log, notFound(err, "motorcycle", q.Motorcycle.Hex()))
		return
	}
	if !moto.IsOwnedBy(claims.UserID) {
		writeError(w, http.StatusForbidden, "only the owner can answer questions")
		return
	}

	answeredBy, _ := primitive.ObjectIDFromHex(claims.UserID)
	now := time.Now()
	q.Answer = models.Answer{Text: text, AnsweredBy: answeredBy, AnsweredAt: &now}
	q.IsAnswered = true
	if err := h.questions.UpdateQuestion(r.Context(), q); err != nil {
		respondError(w, r, h.log, notFound(err, "question", id))
		return
	}

	h.notifier.Notify(r.Context(), models.Notification{
		Recipient:         q.User,
		Type:              models.NotifyQuestionAnswered,
		Title:             "Question Answered",
		Message:           fmt.Sprintf("Your question about the %s %s has been answered", moto.Brand, moto.Model),
		RelatedMotorcycle: moto.ID,
		CreatedAt:         now,
	})
	writeJSON(w, http.StatusOK, q)
}

// Delete removes a question. Only the asker or an admin may do so.
func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	q, err := h.questions.FindQuestionByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, notFound(err, "question", id))
		return
	}
	if q.User.Hex() != claims.UserID && !claims.IsAdmin() {
		writeError(w, http.StatusForbidden, "not authorized to delete this question")
		return
	}
	if err := h.questions.DeleteQuestion(r.Context(), id); err != nil {
		respondError(w, r, h.log, notFound(err, "question", id))
		return
	}
	if err := h.motorcycles.RemoveRef(r.Context(), q.Motorcycle.Hex(), db.RefQuestions, q.ID); err != nil {
		h.log.WithError(err).WithField("question_id", id).Warn("Failed to unlink question from motorcycle")
	}
	writeMessage(w, "Question deleted successfully")
}
