package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/moto-rentals/internal/auth"
	"github.com/ukydev/moto-rentals/internal/booking"
	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/middleware"
	"github.com/ukydev/moto-rentals/internal/models"
	"github.com/ukydev/moto-rentals/internal/notify"
)

// Dependencies is everything the HTTP layer needs.
type Dependencies struct {
	Store         *db.Store
	Auth          *auth.Service
	Bookings      *booking.Manager
	Reviews       *booking.Aggregator
	Notifications *notify.Dispatcher
	Log           logrus.FieldLogger

	// RateLimit requests per RateWindow are allowed on the auth endpoints. Zero disables the limit.
	RateLimit      int
	RateWindow     time.Duration
	RequestTimeout time.Duration
	CORSOrigins    []string

	// Ping reports store health on /health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// NewRouter builds the API router wrapped in request ids, access logging, CORS and panic recovery.
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if deps.Notifications == nil {
		deps.Notifications = notify.NewDispatcher(deps.Store.Notifications, nil, "", log)
	}
	authMW := middleware.NewAuthMiddleware(deps.Auth)
	rateLimiter := middleware.NewRateLimitMiddleware()

	authHandler := NewAuthHandler(deps.Auth, deps.Store.Users, log)
	motorcycleHandler := NewMotorcycleHandler(deps.Store.Motorcycles, deps.Bookings, log)
	bookingHandler := NewBookingHandler(deps.Bookings, log)
	reviewHandler := NewReviewHandler(deps.Reviews, deps.Store.Reviews, log)
	questionHandler := NewQuestionHandler(deps.Store, deps.Notifications, log)
	notificationHandler := NewNotificationHandler(deps.Notifications, log)

	router := mux.NewRouter()
	if deps.RequestTimeout > 0 {
		router.Use(middleware.Timeout(deps.RequestTimeout))
	}

	authed := func(f http.HandlerFunc) http.Handler { return authMW.Authenticate(f) }
	admin := func(f http.HandlerFunc) http.Handler {
		return authMW.Authenticate(authMW.RequireRole(models.RoleAdmin)(f))
	}
	limited := func(f http.HandlerFunc) http.Handler {
		if deps.RateLimit <= 0 {
			return f
		}
		return rateLimiter.RateLimit(deps.RateLimit, deps.RateWindow)(f)
	}

	router.HandleFunc("/health", healthHandler(deps)).Methods(http.MethodGet)

	// Auth
	router.Handle("/api/auth/register", limited(authHandler.Register)).Methods(http.MethodPost)
	router.Handle("/api/auth/login", limited(authHandler.Login)).Methods(http.MethodPost)
	router.Handle("/api/auth/profile", authed(authHandler.GetProfile)).Methods(http.MethodGet)
	router.Handle("/api/auth/profile", authed(authHandler.UpdateProfile)).Methods(http.MethodPut)
	router.Handle("/api/auth/change-password", authed(authHandler.ChangePassword)).Methods(http.MethodPost)

	// Motorcycles. /mine must be registered before /{id}.
	router.HandleFunc("/api/motorcycles", motorcycleHandler.List).Methods(http.MethodGet)
	router.Handle("/api/motorcycles", authed(motorcycleHandler.Create)).Methods(http.MethodPost)
	router.Handle("/api/motorcycles/mine", authed(motorcycleHandler.Mine)).Methods(http.MethodGet)
	router.HandleFunc("/api/motorcycles/{id}", motorcycleHandler.Get).Methods(http.MethodGet)
	router.Handle("/api/motorcycles/{id}", authed(motorcycleHandler.Update)).Methods(http.MethodPatch)
	router.Handle("/api/motorcycles/{id}", authed(motorcycleHandler.Delete)).Methods(http.MethodDelete)
	router.HandleFunc("/api/motorcycles/{id}/quote", motorcycleHandler.Quote).Methods(http.MethodGet)
	router.HandleFunc("/api/motorcycles/{id}/reviews", reviewHandler.List).Methods(http.MethodGet)
	router.Handle("/api/motorcycles/{id}/reviews", authed(reviewHandler.Create)).Methods(http.MethodPost)
	router.Handle("/api/motorcycles/{id}/questions", authMW.OptionalAuthenticate(http.HandlerFunc(questionHandler.List))).Methods(http.MethodGet)

	// Bookings
	router.Handle("/api/bookings", authed(bookingHandler.Create)).Methods(http.MethodPost)
	router.Handle("/api/bookings/mine", authed(bookingHandler.Mine)).Methods(http.MethodGet)
	router.Handle("/api/bookings/owner", authed(bookingHandler.Owner)).Methods(http.MethodGet)
	router.Handle("/api/bookings/{id}", authed(bookingHandler.Get)).Methods(http.MethodGet)
	router.Handle("/api/bookings/{id}", authed(bookingHandler.Delete)).Methods(http.MethodDelete)
	router.Handle("/api/bookings/{id}/status", authed(bookingHandler.UpdateStatus)).Methods(http.MethodPut)
	router.Handle("/api/bookings/{id}/cancel", authed(bookingHandler.Cancel)).Methods(http.MethodPost)
	router.Handle("/api/bookings/{id}/pay", authed(bookingHandler.Pay)).Methods(http.MethodPost)
	router.Handle("/api/admin/bookings", admin(bookingHandler.AdminList)).Methods(http.MethodGet)

	// Questions
	router.Handle("/api/questions", authed(questionHandler.Ask)).Methods(http.MethodPost)
	router.Handle("/api/questions/{id}", authed(questionHandler.Answer)).Methods(http.MethodPatch)
	router.Handle("/api/questions/{id}", authed(questionHandler.Delete)).Methods(http.MethodDelete)

	// Notifications
	router.Handle("/api/notifications", authed(notificationHandler.List)).Methods(http.MethodGet)
	router.Handle("/api/notifications/{id}/read", authed(notificationHandler.MarkRead)).Methods(http.MethodPut)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(origins),
		gorillaHandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		gorillaHandlers.AllowedHeaders([]string{"Authorization", "Content-Type", middleware.RequestIDHeader}),
		gorillaHandlers.ExposedHeaders([]string{middleware.RequestIDHeader}),
	)
	recovery := gorillaHandlers.RecoveryHandler(
		gorillaHandlers.RecoveryLogger(log),
		gorillaHandlers.PrintRecoveryStack(true),
	)

	// RequestID sits outside the access log so generated ids reach it too.
	return middleware.RequestID(gorillaHandlers.CustomLoggingHandler(io.Discard, recovery(cors(router)), accessLog(log)))
}

// accessLog writes one structured line per request through logrus.
func accessLog(log logrus.FieldLogger) gorillaHandlers.LogFormatter {
	return func(_ io.Writer, params gorillaHandlers.LogFormatterParams) {
		entry := log.WithFields(logrus.Fields{
			"method":      params.Request.Method,
			"path":        params.URL.Path,
			"status":      params.StatusCode,
			"size":        params.Size,
			"remote_addr": params.Request.RemoteAddr,
			"duration_ms": time.Since(params.TimeStamp).Milliseconds(),
		})
		if id := middleware.GetRequestID(params.Request.Context()); id != "" {
			entry = entry.WithField("request_id", id)
		}
		switch {
		case params.StatusCode >= http.StatusInternalServerError:
			entry.Error("HTTP request")
		case params.StatusCode >= http.StatusBadRequest:
			entry.Warn("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	}
}

func healthHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok", "store": "ok"}
		status := http.StatusOK
		if deps.Ping != nil {
			if err := deps.Ping(r.Context()); err != nil {
				body["status"] = "degraded"
				body["store"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		if deps.Notifications != nil {
			body["notifications"] = deps.Notifications.BreakerState()
		}
		writeJSON(w, status, body)
	}
}
