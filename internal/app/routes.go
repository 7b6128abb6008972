package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// routes builds the API router wrapped in CORS and the common middleware.
func (a *Application) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(a.accessLog, a.recoverPanic)

	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)

	authRoutes := r.PathPrefix("/api/auth").Subrouter()
	authRoutes.HandleFunc("/register", a.handleRegister).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)
	authRoutes.HandleFunc("/telegram", a.handleTelegramWebApp).Methods(http.MethodPost)
	authRoutes.HandleFunc("/telegram-widget", a.handleTelegramWidget).Methods(http.MethodPost)
	authRoutes.HandleFunc("/telegram-widget/callback", a.handleTelegramWidgetCallback).Methods(http.MethodGet)
	authRoutes.Handle("/verify-extended-token", a.requireAuth(http.HandlerFunc(a.handleVerifyToken))).Methods(http.MethodPost)
	authRoutes.Handle("/verify", a.requireAuth(http.HandlerFunc(a.handleVerifyToken))).Methods(http.MethodGet)

	userRoutes := r.PathPrefix("/api/user-status").Subrouter()
	protected := userRoutes.NewRoute().Subrouter()
	protected.Use(a.requireAuth)
	protected.HandleFunc("/status", a.handleGetStatus).Methods(http.MethodGet)
	protected.HandleFunc("/status", a.handleUpdateStatus).Methods(http.MethodPut)
	protected.HandleFunc("/profile", a.handleUpdateProfile).Methods(http.MethodPut)
	protected.HandleFunc("/candidates", a.handleCandidates).Methods(http.MethodGet)
	protected.HandleFunc("/interviews", a.handleListInterviews).Methods(http.MethodGet)
	protected.HandleFunc("/interview", a.handleCreateInterview).Methods(http.MethodPost)
	protected.HandleFunc("/interview/{id:[0-9]+}/complete", a.handleCompleteInterview).Methods(http.MethodPatch)
	protected.HandleFunc("/interview/{id:[0-9]+}/feedback", a.handleAddFeedback).Methods(http.MethodPost)

	botRoutes := r.PathPrefix("/api/telegram-bot").Subrouter()
	botRoutes.HandleFunc("/auth-url", a.handleBotAuthURL).Methods(http.MethodPost)
	botRoutes.HandleFunc("/verify-user", a.handleBotVerifyUser).Methods(http.MethodPost)

	if !a.Config.IsProduction() {
		authRoutes.HandleFunc("/test-token", a.handleTestToken).Methods(http.MethodGet)
		userRoutes.HandleFunc("/test/status", a.handleTestStatus).Methods(http.MethodPut)
		a.Logger.Warn("Test endpoints enabled")
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Error: "route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Success: false, Error: "method not allowed"})
	})

	c := cors.New(corsOptions(a.Config.CORS.AllowedOrigins))

	return requestID(c.Handler(r))
}

// corsOptions allows credentials only for an explicit origin list; with a
// wildcard every origin could send them.
func corsOptions(origins []string) cors.Options {
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: !wildcard,
	}
}
