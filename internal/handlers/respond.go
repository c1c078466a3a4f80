package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/moto-rentals/internal/booking"
	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/middleware"
	"github.com/ukydev/moto-rentals/internal/models"
	"github.com/ukydev/moto-rentals/internal/notify"
	"github.com/ukydev/moto-rentals/internal/payment"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestError is a malformed or invalid request body.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

// decodeJSON reads the body into v and runs its validate tags.
func decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return &requestError{msg: "failed to read request body"}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &requestError{msg: "invalid JSON"}
	}
	if err := validate.Struct(v); err != nil {
		return &requestError{msg: validationMessage(err)}
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(msgs, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// respondError maps a service error onto an HTTP status. Anything unrecognised is
// logged and reported as a 500 without detail.
func respondError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	var (
		reqErr        *requestError
		dateErr       *booking.InvalidDateError
		pricingErr    *booking.InvalidPricingInputError
		validationErr *booking.ValidationError
		cardErr       *payment.CardError
		notFoundErr   *booking.NotFoundError
		conflictErr   *booking.ConflictError
		transitionErr *booking.InvalidTransitionError
	)
	switch {
	case errors.As(err, &reqErr), errors.As(err, &dateErr), errors.As(err, &pricingErr),
		errors.As(err, &validationErr), errors.As(err, &cardErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &conflictErr):
		ids := make([]string, 0, len(conflictErr.Conflicts))
		for _, b := range conflictErr.Conflicts {
			ids = append(ids, b.ID.Hex())
		}
		writeJSON(w, http.StatusConflict, map[string]interface{}{"error": err.Error(), "conflicts": ids})
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, db.ErrDuplicate):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, booking.ErrForbidden), errors.Is(err, notify.ErrNotRecipient):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, payment.ErrDeclined):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		log.WithError(err).WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.GetRequestID(r.Context()),
		}).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// currentUser returns the authenticated caller or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.Claims, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user context not found")
		return nil, false
	}
	return claims, true
}

// currentUserOptional returns the caller when a valid token was sent.
func currentUserOptional(r *http.Request) (*models.Claims, bool) {
	return middleware.GetUserFromContext(r.Context())
}

// listOptions reads page, limit and a comma separated status filter from the query.
func listOptions(r *http.Request) (booking.ListOptions, error) {
	q := r.URL.Query()
	var opts booking.ListOptions
	var err error
	if v := q.Get("page"); v != "" {
		if opts.Page, err = strconv.ParseInt(v, 10, 64); err != nil {
			return opts, &requestError{msg: "page must be a number"}
		}
	}
	if v := q.Get("limit"); v != "" {
		if opts.Limit, err = strconv.ParseInt(v, 10, 64); err != nil {
			return opts, &requestError{msg: "limit must be a number"}
		}
	}
	if v := q.Get("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			opts.Statuses = append(opts.Statuses, models.BookingStatus(strings.TrimSpace(s)))
		}
	}
	return opts, nil
}
