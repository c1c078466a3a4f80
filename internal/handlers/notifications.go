package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/moto-rentals/internal/notify"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	dispatcher *notify.Dispatcher
	log        logrus.FieldLogger
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(dispatcher *notify.Dispatcher, log logrus.FieldLogger) *NotificationHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &NotificationHandler{dispatcher: dispatcher, log: log}
}

// List returns the caller's notifications, newest first. ?unread=true hides read ones.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	unreadOnly := false
	if v := r.URL.Query().Get("unread"); v != "" {
		var err error
		if unreadOnly, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "unread must be true or false")
			return
		}
	}
	notifications, err := h.dispatcher.List(r.Context(), claims.UserID, unreadOnly)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.dispatcher.MarkRead(r.Context(), claims.UserID, id); err != nil {
		respondError(w, r, h.log, notFound(err, "notification", id))
		return
	}
	writeMessage(w, "Notification marked as read")
}
