package quiz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lioon17/lms-sub000/internal/grading"
)

const (
	defaultPassThreshold   = 70
	defaultTimeLimitSec    = 600
	startAttemptMaxRetries = 3
)

// Service is the attempt session builder plus the grading engine entry
// point. The store owns all state; the service is request-scoped logic.
type Service struct {
	store         Store
	grader        grading.Grader
	passThreshold float64
	defaultLimit  int // seconds, applied when the quiz has none
	now           func() time.Time
}

type Option func(*Service)

func WithPassThreshold(pct float64) Option { return func(s *Service) { s.passThreshold = pct } }
func WithDefaultTimeLimit(sec int) Option  { return func(s *Service) { s.defaultLimit = sec } }
func WithGrader(g grading.Grader) Option   { return func(s *Service) { s.grader = g } }
func WithNow(now func() time.Time) Option  { return func(s *Service) { s.now = now } }

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		grader:        grading.NewDefaultGrader(),
		passThreshold: defaultPassThreshold,
		defaultLimit:  defaultTimeLimitSec,
		now:           time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// StartAttempt checks the per-user cap, inserts an open ledger row and
// returns the question payload with answer keys stripped. Shuffle order is
// per call and never persisted; grading is independent of it.
func (s *Service) StartAttempt(ctx context.Context, quizID int64, userID string) (Session, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Session{}, err
	}
	if userID == "" {
		return Session{}, ErrUserNotFound
	}
	ok, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrUserNotFound
	}

	limit := s.defaultLimit
	if q.TimeLimitSeconds != nil && *q.TimeLimitSeconds > 0 {
		limit = *q.TimeLimitSeconds
	}

	// The count is a plain read; the unique (quiz, user, attempt_number)
	// index arbitrates concurrent starts, so losing the race re-reads.
	var att Attempt
	for try := 0; ; try++ {
		n, err := s.store.CountAttempts(ctx, quizID, userID)
		if err != nil {
			return Session{}, err
		}
		if n >= q.AttemptsAllowed {
			return Session{}, ErrAttemptsExhausted
		}
		now := s.now()
		att = Attempt{
			ID:            uuid.NewString(),
			QuizID:        quizID,
			UserID:        userID,
			AttemptNumber: n + 1,
			StartedAt:     now,
			ExpiresAt:     now.Add(time.Duration(limit) * time.Second),
		}
		err = s.store.InsertOpenAttempt(ctx, att)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateAttempt) && try < startAttemptMaxRetries-1 {
			continue
		}
		return Session{}, fmt.Errorf("start attempt: %w", err)
	}

	questions, err := s.store.QuestionsByQuiz(ctx, quizID)
	if err != nil {
		return Session{}, err
	}
	options, err := s.store.AnswersByQuiz(ctx, quizID)
	if err != nil {
		return Session{}, err
	}
	if q.ShuffleQuestions {
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	payload := make([]SessionQuestion, 0, len(questions))
	for _, question := range questions {
		payload = append(payload, sessionQuestion(question, options[question.ID], q.ShuffleOptions))
	}
	return Session{
		AttemptID:        att.ID,
		AttemptNumber:    att.AttemptNumber,
		TimeLimitSeconds: limit,
		ExpiresAt:        att.ExpiresAt,
		FeedbackMode:     q.FeedbackMode,
		Questions:        payload,
	}, nil
}

// SubmitAttempt grades a submission against the stored answer key and
// persists score + completion exactly once. Score computation is purely
// in-memory; a storage failure on the final write leaves the attempt open
// and the submission safe to retry.
func (s *Service) SubmitAttempt(ctx context.Context, attemptID string, sub Submission) (GradeReport, error) {
	att, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return GradeReport{}, err
	}
	if att.CompletedAt != nil {
		return GradeReport{}, ErrAlreadySubmitted
	}

	// Grading order is stored position order, independent of whatever
	// order the session presented.
	questions, err := s.store.QuestionsByQuiz(ctx, att.QuizID)
	if err != nil {
		return GradeReport{}, err
	}
	if len(questions) == 0 {
		if err := s.store.MarkGraded(ctx, attemptID, 0, s.now()); err != nil {
			return GradeReport{}, err
		}
		return GradeReport{Details: []QuestionResult{}}, nil
	}

	key, err := s.store.AnswersByQuiz(ctx, att.QuizID)
	if err != nil {
		return GradeReport{}, err
	}

	var earned, total float64
	details := make([]QuestionResult, 0, len(questions))
	for _, q := range questions {
		total += q.Points

		var correctIDs []int64
		var correctTexts []string
		var refs []AnswerRef
		for _, opt := range key[q.ID] {
			if !opt.IsCorrect {
				continue
			}
			correctIDs = append(correctIDs, opt.ID)
			correctTexts = append(correctTexts, opt.Text)
			refs = append(refs, AnswerRef{ID: opt.ID, Text: opt.Text})
		}

		raw, answered := sub[strconv.FormatInt(q.ID, 10)]
		var response any
		if answered {
			response = raw
		}
		res := s.grader.Grade(grading.Q{
			Type:         q.Type,
			Points:       q.Points,
			CorrectIDs:   correctIDs,
			CorrectTexts: correctTexts,
		}, response)

		result := "incorrect"
		if res.Correct {
			result = "correct"
			earned += res.Awarded
		}
		details = append(details, QuestionResult{
			QuestionID: q.ID,
			Your:       response,
			Correct:    refs,
			Points:     q.Points,
			Awarded:    res.Awarded,
			Result:     result,
		})
	}

	var score float64
	if total > 0 {
		score = math.Round(earned/total*10000) / 100
	}
	if err := s.store.MarkGraded(ctx, attemptID, score, s.now()); err != nil {
		return GradeReport{}, err
	}
	return GradeReport{
		Score:   score,
		Passed:  score >= s.passThreshold,
		Earned:  earned,
		Total:   total,
		Details: details,
	}, nil
}

// Attempt returns a single ledger row.
func (s *Service) Attempt(ctx context.Context, attemptID string) (Attempt, error) {
	return s.store.GetAttempt(ctx, attemptID)
}

func (s *Service) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	return s.store.ListAttempts(ctx, opts)
}

// QuizPreview is the student-safe read of a quiz definition: questions and
// options in stored order, no correctness flags.
func (s *Service) QuizPreview(ctx context.Context, quizID int64) (QuizDetail, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizDetail{}, err
	}
	questions, err := s.store.QuestionsByQuiz(ctx, quizID)
	if err != nil {
		return QuizDetail{}, err
	}
	options, err := s.store.AnswersByQuiz(ctx, quizID)
	if err != nil {
		return QuizDetail{}, err
	}
	payload := make([]SessionQuestion, 0, len(questions))
	for _, question := range questions {
		payload = append(payload, sessionQuestion(question, options[question.ID], false))
	}
	return QuizDetail{Quiz: q, Questions: payload}, nil
}

func (s *Service) ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error) {
	return s.store.ListQuizzes(ctx, opts)
}

func sessionQuestion(q Question, opts []Answer, shuffle bool) SessionQuestion {
	out := SessionQuestion{
		ID:      q.ID,
		Type:    q.Type,
		Prompt:  q.Prompt,
		Points:  q.Points,
		Options: make([]SessionOption, 0, len(opts)),
	}
	for _, o := range opts {
		out.Options = append(out.Options, SessionOption{ID: o.ID, Text: o.Text})
	}
	if shuffle {
		rand.Shuffle(len(out.Options), func(i, j int) {
			out.Options[i], out.Options[j] = out.Options[j], out.Options[i]
		})
	}
	return out
}
