package app

import (
	"net/http"
	"strconv"

	"supermock/internal/auth"
	"supermock/internal/storage"
	"supermock/internal/telegram"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type webAppRequest struct {
	InitData string `json:"initData" validate:"required"`
}

func (a *Application) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	res, err := a.Auth.Register(r.Context(), req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, newAuthResponse(res))
}

func (a *Application) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	res, err := a.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, newAuthResponse(res))
}

func (a *Application) handleTelegramWebApp(w http.ResponseWriter, r *http.Request) {
	var req webAppRequest
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	res, err := a.Auth.TelegramWebApp(r.Context(), req.InitData)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, newAuthResponse(res))
}

func (a *Application) handleTelegramWidget(w http.ResponseWriter, r *http.Request) {
	var req telegram.WidgetPayload
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	res, err := a.Auth.TelegramWidget(r.Context(), req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, newAuthResponse(res))
}

// handleTelegramWidgetCallback accepts the widget's redirect, where the
// payload arrives as query parameters.
func (a *Application) handleTelegramWidgetCallback(w http.ResponseWriter, r *http.Request) {
	res, err := a.Auth.TelegramWidgetValues(r.Context(), r.URL.Query())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, newAuthResponse(res))
}

func (a *Application) handleTestToken(w http.ResponseWriter, r *http.Request) {
	var telegramID int64
	if v := r.URL.Query().Get("telegramId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			a.respondError(w, r, errBadRequest)
			return
		}
		telegramID = id
	}
	status := storage.Status(r.URL.Query().Get("status"))

	res, err := a.Auth.TestToken(r.Context(), telegramID, status)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, newAuthResponse(res))
}

// handleVerifyToken serves both verify endpoints; requireAuth has already
// resolved the token.
func (a *Application) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r)
	respondData(w, http.StatusOK, map[string]interface{}{"user": newUserResponse(user)})
}
