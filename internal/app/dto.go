package app

import (
	"time"

	"supermock/internal/auth"
	"supermock/internal/storage"
)

type userResponse struct {
	ID         int64     `json:"id"`
	TelegramID *int64    `json:"telegramId,omitempty"`
	Email      string    `json:"email,omitempty"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newUserResponse(u *storage.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.TelegramID.Valid {
		id := u.TelegramID.Int64
		resp.TelegramID = &id
	}
	if u.Email.Valid {
		resp.Email = u.Email.String
	}
	return resp
}

func newUserList(users []storage.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, newUserResponse(&users[i]))
	}
	return out
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func newAuthResponse(res *auth.Result) authResponse {
	return authResponse{Token: res.Token, User: newUserResponse(res.User)}
}

type participantResponse struct {
	ID         int64  `json:"id"`
	TelegramID *int64 `json:"telegramId,omitempty"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName,omitempty"`
}

func newParticipantResponse(p *storage.Participant) *participantResponse {
	if p == nil {
		return nil
	}
	resp := &participantResponse{
		ID:        p.ID,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}
	if p.TelegramID.Valid {
		id := p.TelegramID.Int64
		resp.TelegramID = &id
	}
	return resp
}

type interviewResponse struct {
	ID                 int64                `json:"id"`
	InterviewerID      int64                `json:"interviewerId"`
	CandidateID        int64                `json:"candidateId"`
	Status             string               `json:"status"`
	Feedback           *string              `json:"feedback,omitempty"`
	FeedbackReceivedAt *time.Time           `json:"feedbackReceivedAt,omitempty"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
	Interviewer        *participantResponse `json:"interviewer,omitempty"`
	Candidate          *participantResponse `json:"candidate,omitempty"`
}

func newInterviewResponse(iv *storage.Interview) interviewResponse {
	resp := interviewResponse{
		ID:            iv.ID,
		InterviewerID: iv.InterviewerID,
		CandidateID:   iv.CandidateID,
		Status:        string(iv.Status),
		CreatedAt:     iv.CreatedAt,
		UpdatedAt:     iv.UpdatedAt,
		Interviewer:   newParticipantResponse(iv.Interviewer),
		Candidate:     newParticipantResponse(iv.Candidate),
	}
	if iv.Feedback.Valid {
		fb := iv.Feedback.String
		resp.Feedback = &fb
	}
	if iv.FeedbackReceivedAt.Valid {
		at := iv.FeedbackReceivedAt.Time
		resp.FeedbackReceivedAt = &at
	}
	return resp
}

func newInterviewList(interviews []storage.Interview) []interviewResponse {
	out := make([]interviewResponse, 0, len(interviews))
	for i := range interviews {
		out = append(out, newInterviewResponse(&interviews[i]))
	}
	return out
}
