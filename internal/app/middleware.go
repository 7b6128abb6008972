package app

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"supermock/internal/auth"
	"supermock/internal/metrics"
	"supermock/internal/storage"
)

// contextKey is a custom type to use as a key for context values.
type contextKey string

const (
	userContextKey      = contextKey("user")
	requestIDContextKey = contextKey("requestID")
)

const requestIDHeader = "X-Request-ID"

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestID tags every request with an id, reusing the client's when given.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// requestLogger returns the application logger tagged with the request id.
func (a *Application) requestLogger(r *http.Request) logrus.FieldLogger {
	return a.Logger.WithField("request_id", requestIDFromContext(r.Context()))
}

// recoverPanic turns a handler panic into a 500 envelope.
func (a *Application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				a.requestLogger(r).WithField("panic", rec).Error("Handler panicked")
				writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// accessLog logs every request and records HTTP metrics by route template.
func (a *Application) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		a.requestLogger(r).WithFields(logrus.Fields{
			"method":      r.Method,
			"route":       route,
			"status":      rec.status,
			"duration_ms": elapsed.Milliseconds(),
		}).Debug("Request handled")
	})
}

// requireAuth is a middleware that ensures a user is authenticated.
// It resolves the bearer token to a stored user and puts it in the context.
func (a *Application) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			a.respondError(w, r, auth.ErrInvalidToken)
			return
		}

		user, err := a.Auth.VerifyToken(r.Context(), token)
		if err != nil {
			a.respondError(w, r, err)
			return
		}

		next.ServeHTTP(w, withUser(r, user))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// withUser adds the authenticated user to the request's context.
func withUser(r *http.Request, u *storage.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, u)
	return r.WithContext(ctx)
}

// userFromContext retrieves the authenticated user from the request's context.
func userFromContext(r *http.Request) (*storage.User, bool) {
	u, ok := r.Context().Value(userContextKey).(*storage.User)
	return u, ok
}
