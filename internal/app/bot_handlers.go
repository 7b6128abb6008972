package app

import (
	"net/http"
)

type botAuthURLRequest struct {
	UserID      int64  `json:"userId" validate:"required,gt=0"`
	RedirectURL string `json:"redirectUrl" validate:"omitempty,url"`
}

type botVerifyRequest struct {
	UserID int64  `json:"userId" validate:"required,gt=0"`
	AuthID string `json:"authId"`
}

func (a *Application) handleBotAuthURL(w http.ResponseWriter, r *http.Request) {
	var req botAuthURLRequest
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	authURL, authID, err := a.Auth.BotAuthURL(r.Context(), req.UserID, req.RedirectURL)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"authUrl": authURL, "authId": authID})
}

func (a *Application) handleBotVerifyUser(w http.ResponseWriter, r *http.Request) {
	var req botVerifyRequest
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	res, err := a.Auth.BotVerifyUser(r.Context(), req.UserID, req.AuthID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, newAuthResponse(res))
}

func (a *Application) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.Storage.Ping(r.Context()); err != nil {
		a.requestLogger(r).WithError(err).Warn("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Error: "database unavailable"})
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}
