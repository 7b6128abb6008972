package app

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"supermock/internal/service"
	"supermock/internal/storage"
)

type statusRequest struct {
	Status storage.Status `json:"status" validate:"required,oneof=INTERVIEWER CANDIDATE"`
}

type testStatusRequest struct {
	UserID int64          `json:"userId" validate:"required,gt=0"`
	Status storage.Status `json:"status" validate:"required,oneof=INTERVIEWER CANDIDATE"`
}

type createInterviewRequest struct {
	CandidateID int64 `json:"candidateId" validate:"required,gt=0"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback" validate:"required"`
}

func interviewID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: interview id must be a positive integer", errBadRequest)
	}
	return id, nil
}

func (a *Application) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r)
	respondData(w, http.StatusOK, map[string]string{"status": string(user.Status)})
}

func (a *Application) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r)
	var req statusRequest
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	updated, err := a.Users.UpdateStatus(r.Context(), user.ID, req.Status)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"user": newUserResponse(updated)})
}

func (a *Application) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r)
	var req service.ProfileUpdate
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	updated, err := a.Users.UpdateProfile(r.Context(), user.ID, req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"user": newUserResponse(updated)})
}

// handleTestStatus sets any user's status without a token. Only routed
// outside production.
func (a *Application) handleTestStatus(w http.ResponseWriter, r *http.Request) {
	var req testStatusRequest
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	updated, err := a.Users.UpdateStatus(r.Context(), req.UserID, req.Status)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"user": newUserResponse(updated)})
}

func (a *Application) handleCandidates(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r)
	candidates, err := a.Users.Candidates(r.Context(), user.ID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, newUserList(candidates))
}

func (a *Application) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r)
	interviews, err := a.Interviews.List(r.Context(), user.ID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, newInterviewList(interviews))
}

func (a *Application) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r)
	var req createInterviewRequest
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	iv, err := a.Interviews.Create(r.Context(), user.ID, req.CandidateID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, map[string]interface{}{"interview": newInterviewResponse(iv)})
}

func (a *Application) handleCompleteInterview(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r)
	id, err := interviewID(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	iv, err := a.Interviews.Complete(r.Context(), user.ID, id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"interview": newInterviewResponse(iv)})
}

func (a *Application) handleAddFeedback(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r)
	id, err := interviewID(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req feedbackRequest
	if err := a.decode(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	iv, err := a.Interviews.AddFeedback(r.Context(), user.ID, id, req.Feedback)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"interview": newInterviewResponse(iv)})
}
