package storage

import (
	"context"
	"fmt"
	"time"
)

// Stats holds row counts grouped by status. Every known status is present,
// zero when no rows have it.
type Stats struct {
	Users       map[Status]int64
	Interviews  map[InterviewStatus]int64
	CollectedAt time.Time
}

// TotalUsers returns the number of users across all statuses.
func (st *Stats) TotalUsers() int64 {
	var n int64
	for _, c := range st.Users {
		n += c
	}
	return n
}

// GetStats counts users and interviews by status.
func (s *SQLiteStorage) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Users: map[Status]int64{
			StatusInterviewer: 0,
			StatusCandidate:   0,
		},
		Interviews: map[InterviewStatus]int64{
			InterviewPending:          0,
			InterviewCompleted:        0,
			InterviewFeedbackReceived: 0,
		},
		CollectedAt: time.Now(),
	}

	if err := s.countByStatus(ctx, "users", func(status string, n int64) {
		stats.Users[Status(status)] = n
	}); err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	if err := s.countByStatus(ctx, "interviews", func(status string, n int64) {
		stats.Interviews[InterviewStatus(status)] = n
	}); err != nil {
		return nil, fmt.Errorf("failed to get interview stats: %w", err)
	}

	return stats, nil
}

func (s *SQLiteStorage) countByStatus(ctx context.Context, table string, fn func(status string, n int64)) error {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM `+table+` GROUP BY status`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return err
		}
		fn(status, n)
	}
	return rows.Err()
}
