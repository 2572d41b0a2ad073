package quiz

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) GetQuiz(ctx context.Context, quizID int64) (Quiz, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, module_id, lesson_id, title, attempts_allowed, time_limit_seconds,
		        shuffle_questions, shuffle_options, feedback_mode, weight, is_final
		 FROM quizzes WHERE id=$1`, quizID)
	var q Quiz
	var moduleID, lessonID, limitSec sql.NullInt64
	if err := row.Scan(&q.ID, &moduleID, &lessonID, &q.Title, &q.AttemptsAllowed, &limitSec,
		&q.ShuffleQuestions, &q.ShuffleOptions, &q.FeedbackMode, &q.Weight, &q.IsFinal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, err
	}
	if moduleID.Valid {
		q.ModuleID = &moduleID.Int64
	}
	if lessonID.Valid {
		q.LessonID = &lessonID.Int64
	}
	if limitSec.Valid {
		v := int(limitSec.Int64)
		q.TimeLimitSeconds = &v
	}
	return q, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	var rows *sql.Rows
	var err error
	if q := strings.TrimSpace(opts.Q); q != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, module_id, lesson_id, title, attempts_allowed, time_limit_seconds,
			        shuffle_questions, shuffle_options, feedback_mode, weight, is_final
			 FROM quizzes WHERE title LIKE $1 ORDER BY id LIMIT $2 OFFSET $3`,
			"%"+q+"%", opts.Limit, opts.Offset)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, module_id, lesson_id, title, attempts_allowed, time_limit_seconds,
			        shuffle_questions, shuffle_options, feedback_mode, weight, is_final
			 FROM quizzes ORDER BY id LIMIT $1 OFFSET $2`,
			opts.Limit, opts.Offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quiz{}
	for rows.Next() {
		var q Quiz
		var moduleID, lessonID, limitSec sql.NullInt64
		if err := rows.Scan(&q.ID, &moduleID, &lessonID, &q.Title, &q.AttemptsAllowed, &limitSec,
			&q.ShuffleQuestions, &q.ShuffleOptions, &q.FeedbackMode, &q.Weight, &q.IsFinal); err != nil {
			return nil, err
		}
		if moduleID.Valid {
			q.ModuleID = &moduleID.Int64
		}
		if lessonID.Valid {
			q.LessonID = &lessonID.Int64
		}
		if limitSec.Valid {
			v := int(limitSec.Int64)
			q.TimeLimitSeconds = &v
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) QuestionsByQuiz(ctx context.Context, quizID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quiz_id, question_type, question, points, position
		 FROM questions WHERE quiz_id=$1 ORDER BY position, id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Type, &q.Prompt, &q.Points, &q.Position); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) AnswersByQuiz(ctx context.Context, quizID int64) (map[int64][]Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.question_id, a.answer_text, a.is_correct
		 FROM answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE q.quiz_id=$1
		 ORDER BY a.id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64][]Answer{}
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			return nil, err
		}
		out[a.QuestionID] = append(out[a.QuestionID], a)
	}
	return out, rows.Err()
}

func (s *SQLStore) UserExists(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=$1`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStore) CountAttempts(ctx context.Context, quizID int64, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE quiz_id=$1 AND user_id=$2`, quizID, userID).Scan(&n)
	return n, err
}

func (s *SQLStore) InsertOpenAttempt(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, quiz_id, user_id, attempt_number, started_at, expires_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.QuizID, a.UserID, a.AttemptNumber, a.StartedAt.Unix(), a.ExpiresAt.Unix())
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateAttempt
	}
	return err
}

func (s *SQLStore) GetAttempt(ctx context.Context, attemptID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, quiz_id, user_id, attempt_number, started_at, expires_at, completed_at, score
		 FROM attempts WHERE id=$1`, attemptID)
	return scanAttempt(row)
}

// MarkGraded flips the row from open to graded. The WHERE clause on
// completed_at plus the affected-row check is what makes grading
// at-most-once under concurrent submissions.
func (s *SQLStore) MarkGraded(ctx context.Context, attemptID string, score float64, completedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE attempts SET completed_at=$1, score=$2 WHERE id=$3 AND completed_at IS NULL`,
		completedAt.Unix(), score, attemptID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM attempts WHERE id=$1`, attemptID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAttemptNotFound
		}
		if err != nil {
			return err
		}
		return ErrAlreadySubmitted
	}
	return nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	q := `SELECT id, quiz_id, user_id, attempt_number, started_at, expires_at, completed_at, score
	      FROM attempts WHERE 1=1`
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return placeholder(n)
	}
	if opts.QuizID != 0 {
		q += ` AND quiz_id=` + arg(opts.QuizID)
	}
	if opts.UserID != "" {
		q += ` AND user_id=` + arg(opts.UserID)
	}
	switch opts.Status {
	case "open":
		q += ` AND completed_at IS NULL`
	case "graded":
		q += ` AND completed_at IS NOT NULL`
	}
	q += ` ORDER BY started_at DESC LIMIT ` + arg(opts.Limit) + ` OFFSET ` + arg(opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var startedAt, expiresAt int64
	var completedAt sql.NullInt64
	var score sql.NullFloat64
	if err := row.Scan(&a.ID, &a.QuizID, &a.UserID, &a.AttemptNumber,
		&startedAt, &expiresAt, &completedAt, &score); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, err
	}
	a.StartedAt = time.Unix(startedAt, 0).UTC()
	a.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		a.CompletedAt = &t
	}
	if score.Valid {
		a.Score = &score.Float64
	}
	return a, nil
}

func placeholder(n int) string {
	// Both drivers accept $N-style parameters.
	return "$" + strconv.Itoa(n)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	// sqlite. Match the unique wording only; "FOREIGN KEY constraint
	// failed" must surface as-is, not as a lost attempt-number race.
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
