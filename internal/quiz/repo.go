package quiz

import (
	"context"
	"time"
)

type ListOpts struct {
	Q      string
	Limit  int
	Offset int
}

type AttemptListOpts struct {
	QuizID int64  // filter by quiz
	UserID string // filter by learner
	Status string // optional: open|graded
	Limit  int
	Offset int
}

// Store is the ledger plus the read-only quiz/question/answer surface the
// session builder and grading engine consume. Only MarkGraded ever mutates
// an existing attempt row, and only while the row is still open.
type Store interface {
	GetQuiz(ctx context.Context, quizID int64) (Quiz, error)
	ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error)

	// QuestionsByQuiz returns questions ordered by stored position.
	QuestionsByQuiz(ctx context.Context, quizID int64) ([]Question, error)
	// AnswersByQuiz loads every option of every question in one pass,
	// grouped by question id, in stored order.
	AnswersByQuiz(ctx context.Context, quizID int64) (map[int64][]Answer, error)

	UserExists(ctx context.Context, userID string) (bool, error)

	CountAttempts(ctx context.Context, quizID int64, userID string) (int, error)
	InsertOpenAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, attemptID string) (Attempt, error)
	// MarkGraded is a conditional write: it succeeds only while the row is
	// still open, so concurrent submissions resolve to exactly one score.
	MarkGraded(ctx context.Context, attemptID string, score float64, completedAt time.Time) error
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
}
