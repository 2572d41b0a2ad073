package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// QuizGraded is the record handed to the downstream progress tracker once
// an attempt is scored. The quiz core itself never reads progress state.
type QuizGraded struct {
	EnrollmentID int64   `json:"enrollment_id,omitempty"`
	QuizID       int64   `json:"quiz_id"`
	Passed       bool    `json:"passed"`
	Score        float64 `json:"score"`
	SecondsSpent int64   `json:"seconds_spent"`
}

const EventQuizGraded = "quiz.graded"

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// AppendQuizGraded appends one event keyed by attempt id. The log is
// append-only; consumers tail it by seq.
func (r *EventRepo) AppendQuizGraded(ctx context.Context, attemptID string, ev QuizGraded) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO progress_events (typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		EventQuizGraded, attemptID, string(data), time.Now().Unix())
	return err
}
