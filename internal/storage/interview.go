package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const interviewColumns = `i.id, i.interviewer_id, i.candidate_id, i.status, i.feedback, i.feedback_received_at, i.created_at, i.updated_at`

func scanInterview(row rowScanner, extra ...interface{}) (*Interview, error) {
	iv := &Interview{}
	var status string
	dest := []interface{}{
		&iv.ID,
		&iv.InterviewerID,
		&iv.CandidateID,
		&status,
		&iv.Feedback,
		&iv.FeedbackReceivedAt,
		&iv.CreatedAt,
		&iv.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	iv.Status = InterviewStatus(status)
	return iv, nil
}

// CreateInterview inserts a PENDING interview between two existing users.
func (s *SQLiteStorage) CreateInterview(ctx context.Context, interviewerID, candidateID int64) (*Interview, error) {
	if interviewerID <= 0 || candidateID <= 0 {
		return nil, fmt.Errorf("%w: participant IDs must be positive", ErrInvalidInput)
	}
	if interviewerID == candidateID {
		return nil, fmt.Errorf("%w: interviewer and candidate must differ", ErrInvalidInput)
	}

	ts := now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO interviews (interviewer_id, candidate_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		interviewerID, candidateID, string(InterviewPending), ts, ts,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: participant does not exist", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create interview: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get interview id: %w", err)
	}

	return &Interview{
		ID:            id,
		InterviewerID: interviewerID,
		CandidateID:   candidateID,
		Status:        InterviewPending,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}, nil
}

// GetInterview retrieves an interview by ID without participant details.
func (s *SQLiteStorage) GetInterview(ctx context.Context, id int64) (*Interview, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interviews i WHERE i.id = ?`, id)
	iv, err := scanInterview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: interview %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	return iv, nil
}

// ListInterviewsForUser returns every interview the user takes part in,
// newest first, with both participants filled in.
func (s *SQLiteStorage) ListInterviewsForUser(ctx context.Context, userID int64) ([]Interview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+interviewColumns+`,
			iu.id, iu.telegram_id, iu.username, iu.first_name, iu.last_name,
			cu.id, cu.telegram_id, cu.username, cu.first_name, cu.last_name
		FROM interviews i
		JOIN users iu ON iu.id = i.interviewer_id
		JOIN users cu ON cu.id = i.candidate_id
		WHERE i.interviewer_id = ? OR i.candidate_id = ?
		ORDER BY i.created_at DESC, i.id DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query interviews: %w", err)
	}
	defer rows.Close()

	interviews := []Interview{}
	for rows.Next() {
		interviewer := &Participant{}
		candidate := &Participant{}
		iv, err := scanInterview(rows,
			&interviewer.ID, &interviewer.TelegramID, &interviewer.Username, &interviewer.FirstName, &interviewer.LastName,
			&candidate.ID, &candidate.TelegramID, &candidate.Username, &candidate.FirstName, &candidate.LastName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		iv.Interviewer = interviewer
		iv.Candidate = candidate
		interviews = append(interviews, *iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interviews: %w", err)
	}
	return interviews, nil
}

// transition moves an interview from one status to another with a single
// conditional UPDATE. set holds extra assignments and their arguments.
func (s *SQLiteStorage) transition(ctx context.Context, id int64, from, to InterviewStatus, set string, args ...interface{}) (*Interview, error) {
	query := `UPDATE interviews SET status = ?, updated_at = ?` + set + ` WHERE id = ? AND status = ?`
	params := append([]interface{}{string(to), now()}, args...)
	params = append(params, id, string(from))

	result, err := s.db.ExecContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to update interview: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	iv, err := s.GetInterview(ctx, id)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: interview %d is %s, want %s", ErrInvalidTransition, id, iv.Status, from)
	}
	return iv, nil
}

// CompleteInterview moves a PENDING interview to COMPLETED.
func (s *SQLiteStorage) CompleteInterview(ctx context.Context, id int64) (*Interview, error) {
	return s.transition(ctx, id, InterviewPending, InterviewCompleted, "")
}

// AddFeedback attaches feedback to a COMPLETED interview and moves it to
// FEEDBACK_RECEIVED.
func (s *SQLiteStorage) AddFeedback(ctx context.Context, id int64, feedback string) (*Interview, error) {
	if strings.TrimSpace(feedback) == "" {
		return nil, fmt.Errorf("%w: feedback cannot be empty", ErrInvalidInput)
	}
	return s.transition(ctx, id, InterviewCompleted, InterviewFeedbackReceived,
		`, feedback = ?, feedback_received_at = ?`, feedback, now())
}
