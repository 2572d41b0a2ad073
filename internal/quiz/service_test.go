package quiz_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lioon17/lms-sub000/internal/quiz"
)

/* ---------------- In-memory fake that satisfies quiz.Store ---------------- */

type fakeStore struct {
	quizzes   map[int64]quiz.Quiz
	questions map[int64][]quiz.Question        // quizID -> questions (position order)
	answers   map[int64]map[int64][]quiz.Answer // quizID -> questionID -> options
	users     map[string]bool
	attempts  map[string]quiz.Attempt

	failInserts int // make the next n inserts lose the unique-index race
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		quizzes:   map[int64]quiz.Quiz{},
		questions: map[int64][]quiz.Question{},
		answers:   map[int64]map[int64][]quiz.Answer{},
		users:     map[string]bool{},
		attempts:  map[string]quiz.Attempt{},
	}
}

func (f *fakeStore) GetQuiz(_ context.Context, quizID int64) (quiz.Quiz, error) {
	q, ok := f.quizzes[quizID]
	if !ok {
		return quiz.Quiz{}, quiz.ErrQuizNotFound
	}
	return q, nil
}

func (f *fakeStore) ListQuizzes(_ context.Context, _ quiz.ListOpts) ([]quiz.Quiz, error) {
	out := []quiz.Quiz{}
	for _, q := range f.quizzes {
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeStore) QuestionsByQuiz(_ context.Context, quizID int64) ([]quiz.Question, error) {
	return f.questions[quizID], nil
}

func (f *fakeStore) AnswersByQuiz(_ context.Context, quizID int64) (map[int64][]quiz.Answer, error) {
	m := f.answers[quizID]
	if m == nil {
		m = map[int64][]quiz.Answer{}
	}
	return m, nil
}

func (f *fakeStore) UserExists(_ context.Context, userID string) (bool, error) {
	return f.users[userID], nil
}

func (f *fakeStore) CountAttempts(_ context.Context, quizID int64, userID string) (int, error) {
	n := 0
	for _, a := range f.attempts {
		if a.QuizID == quizID && a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) InsertOpenAttempt(_ context.Context, a quiz.Attempt) error {
	if f.failInserts > 0 {
		f.failInserts--
		return quiz.ErrDuplicateAttempt
	}
	for _, e := range f.attempts {
		if e.QuizID == a.QuizID && e.UserID == a.UserID && e.AttemptNumber == a.AttemptNumber {
			return quiz.ErrDuplicateAttempt
		}
	}
	f.attempts[a.ID] = a
	return nil
}

func (f *fakeStore) GetAttempt(_ context.Context, attemptID string) (quiz.Attempt, error) {
	a, ok := f.attempts[attemptID]
	if !ok {
		return quiz.Attempt{}, quiz.ErrAttemptNotFound
	}
	return a, nil
}

func (f *fakeStore) MarkGraded(_ context.Context, attemptID string, score float64, completedAt time.Time) error {
	a, ok := f.attempts[attemptID]
	if !ok {
		return quiz.ErrAttemptNotFound
	}
	if a.CompletedAt != nil {
		return quiz.ErrAlreadySubmitted
	}
	a.CompletedAt = &completedAt
	a.Score = &score
	f.attempts[attemptID] = a
	return nil
}

func (f *fakeStore) ListAttempts(_ context.Context, opts quiz.AttemptListOpts) ([]quiz.Attempt, error) {
	out := []quiz.Attempt{}
	for _, a := range f.attempts {
		if opts.QuizID != 0 && a.QuizID != opts.QuizID {
			continue
		}
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

/* ---------------- Seeding helpers ---------------- */

func intPtr(v int) *int { return &v }

// seedTwoQuestionQuiz: q1 multiple_choice worth 30 (correct option 2),
// q2 short_answer worth 70 (correct text " Paris ").
func seedTwoQuestionQuiz(st *fakeStore, quizID int64, shuffleQ, shuffleO bool) {
	st.quizzes[quizID] = quiz.Quiz{
		ID:               quizID,
		Title:            "Geography Final",
		AttemptsAllowed:  3,
		FeedbackMode:     quiz.FeedbackOnFinish,
		ShuffleQuestions: shuffleQ,
		ShuffleOptions:   shuffleO,
		Weight:           1,
	}
	st.questions[quizID] = []quiz.Question{
		{ID: 10, QuizID: quizID, Type: quiz.TypeMultipleChoice, Prompt: "Pick one", Points: 30, Position: 1},
		{ID: 11, QuizID: quizID, Type: quiz.TypeShortAnswer, Prompt: "Capital of France?", Points: 70, Position: 2},
	}
	st.answers[quizID] = map[int64][]quiz.Answer{
		10: {
			{ID: 1, QuestionID: 10, Text: "A"},
			{ID: 2, QuestionID: 10, Text: "B", IsCorrect: true},
			{ID: 3, QuestionID: 10, Text: "C"},
		},
		11: {
			{ID: 4, QuestionID: 11, Text: " Paris ", IsCorrect: true},
		},
	}
	st.users["u1"] = true
}

/* ---------------- StartAttempt ---------------- */

func TestStartAttempt_CapEnforced(t *testing.T) {
	st := newFakeStore()
	seedTwoQuestionQuiz(st, 1, false, false)
	st.quizzes[1] = withAttemptsAllowed(st.quizzes[1], 2)
	svc := quiz.New(st)
	ctx := context.Background()

	s1, err := svc.StartAttempt(ctx, 1, "u1")
	if err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if s1.AttemptNumber != 1 {
		t.Fatalf("attempt_number = %d, want 1", s1.AttemptNumber)
	}
	s2, err := svc.StartAttempt(ctx, 1, "u1")
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if s2.AttemptNumber != 2 {
		t.Fatalf("attempt_number = %d, want 2", s2.AttemptNumber)
	}
	if _, err := svc.StartAttempt(ctx, 1, "u1"); !errors.Is(err, quiz.ErrAttemptsExhausted) {
		t.Fatalf("third attempt: got %v, want ErrAttemptsExhausted", err)
	}
	if len(st.attempts) != 2 {
		t.Fatalf("ledger has %d rows, want 2 (exhausted start must not insert)", len(st.attempts))
	}
}

func withAttemptsAllowed(q quiz.Quiz, n int) quiz.Quiz {
	q.AttemptsAllowed = n
	return q
}

func TestStartAttempt_QuizMissing(t *testing.T) {
	st := newFakeStore()
	st.users["u1"] = true
	svc := quiz.New(st)
	if _, err := svc.StartAttempt(context.Background(), 99, "u1"); !errors.Is(err, quiz.ErrQuizNotFound) {
		t.Fatalf("got %v, want ErrQuizNotFound", err)
	}
}

func TestStartAttempt_UserMissing(t *testing.T) {
	st := newFakeStore()
	seedTwoQuestionQuiz(st, 1, false, false)
	svc := quiz.New(st)
	if _, err := svc.StartAttempt(context.Background(), 1, "ghost"); !errors.Is(err, quiz.ErrUserNotFound) {
		t.Fatalf("got %v, want ErrUserNotFound", err)
	}
	if len(st.attempts) != 0 {
		t.Fatalf("no attempt row should exist for an unknown user")
	}
}

func TestStartAttempt_PayloadHidesAnswerKey(t *testing.T) {
	st := newFakeStore()
	seedTwoQuestionQuiz(st, 1, false, false)
	svc := quiz.New(st)

	sess, err := svc.StartAttempt(context.Background(), 1, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(sess.Questions))
	}
	q := sess.Questions[0]
	if q.ID != 10 || len(q.Options) != 3 {
		t.Fatalf("unexpected first question %+v", q)
	}
	for _, o := range q.Options {
		if o.Text == "" || o.ID == 0 {
			t.Fatalf("option missing id/text: %+v", o)
		}
	}
	// SessionOption carries only id+text; correctness cannot leak by type.
}

func TestStartAttempt_ExpiryDefaults(t *testing.T) {
	st := newFakeStore()
	seedTwoQuestionQuiz(st, 1, false, false)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := quiz.New(st, quiz.WithNow(func() time.Time { return now }))

	sess, err := svc.StartAttempt(context.Background(), 1, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.TimeLimitSeconds != 600 {
		t.Fatalf("time_limit = %d, want default 600", sess.TimeLimitSeconds)
	}
	if want := now.Add(600 * time.Second); !sess.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %v, want %v", sess.ExpiresAt, want)
	}
}

func TestStartAttempt_ExplicitTimeLimit(t *testing.T) {
	st := newFakeStore()
	seedTwoQuestionQuiz(st, 1, false, false)
	q := st.quizzes[1]
	q.TimeLimitSeconds = intPtr(90)
	st.quizzes[1] = q
	svc := quiz.New(st)

	sess, err := svc.StartAttempt(context.Background(), 1, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.TimeLimitSeconds != 90 {
		t.Fatalf("time_limit = %d, want 90", sess.TimeLimitSeconds)
	}
}

func TestStartAttempt_RetriesLostRace(t *testing.T) {
	st := newFakeStore()
	seedTwoQuestionQuiz(st, 1, false, false)
	st.failInserts = 1 // first insert loses the unique-index race
	svc := quiz.New(st)

	sess, err := svc.StartAttempt(context.Background(), 1, "u1")
	if err != nil {
		t.Fatalf("start should recover from one lost race: %v", err)
	}
	if sess.AttemptID == "" {
		t.Fatal("missing attempt id")
	}
}

/* ---------------- SubmitAttempt ---------------- */

func startOne(t *testing.T, svc *quiz.Service, quizID int64, userID string) string {
	t.Helper()
	sess, err := svc.StartAttempt(context.Background(), quizID, userID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return sess.AttemptID
}

func TestSubmit_ScoreArithmetic(t *testing.T) {
	st := newFakeStore()
	seedTwoQuestionQuiz(st, 1, false, false)
	svc := quiz.New(st)
	ctx := context.Background()
	attemptID := startOne(t, svc, 1, "u1")

	// First question correct, second incorrect.
	report, err := svc.SubmitAttempt(ctx, attemptID, quiz.Submission{
		"10": float64(2),
		"11": "London",
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Earned != 30 || report.Total != 100 {
		t.Fatalf("earned/total = %v/%v, want 30/100", report.Earned, report.Total)
	}
	if report.Score != 30.00 {
		t.Fatalf("score = %v, want 30.00", report.Score)
	}
	if report.Passed {
		t.Fatalf("30%% must not pass a 70%% threshold")
	}
	if len(report.Details) != 2 {
		t.Fatalf("got %d details, want 2", len(report.Details))
	}
	if report.Details[0].Result != "correct" || report.Details[0].Awarded != 30 {
		t.Fatalf("first detail %+v", report.Details[0])
	}
	if report.Details[1].Result != "incorrect" || report.Details[1].Awarded != 0 {
		t.Fatalf("second detail %+v", report.Details[1])
	}
	if len(report.Details[0].Correct) != 1 || report.Details[0].Correct[0].ID != 2 {
		t.Fatalf("correct set of first detail %+v", report.Details[0].Correct)
	}

	a, err := svc.Attempt(ctx, attemptID)
	if err != nil {
		t.Fatal(err)
	}
	if a.CompletedAt == nil || a.Score == nil || *a.Score != 30.00 {
		t.Fatalf("ledger row not graded: %+v", a)
	}
}

func TestSubmit_PassAtThreshold(t *testing.T) {
	st := newFakeStore()
	seedTwoQuestionQuiz(st, 1, false, false)
	svc := quiz.New(st)
	ctx := context.Background()
	attemptID := startOne(t, svc, 1, "u1")

	report, err := svc.SubmitAttempt(ctx, attemptID, quiz.Submission{
		"11": "paris", // 70 of 100
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Score != 70.00 || !report.Passed {
		t.Fatalf("score=%v passed=%v, want 70.00/true", report.Score, report.Passed)
	}
}

func TestSubmit_RoundsToTwoDecimals(t *testing.T) {
	st := newFakeStore()
	st.users["u1"] = true
	st.quizzes[1] = quiz.Quiz{ID: 1, AttemptsAllowed: 1, FeedbackMode: quiz.FeedbackNone, Weight: 1}
	st.questions[1] = []quiz.Question{
		{ID: 1, QuizID: 1, Type: quiz.TypeTrueFalse, Points: 1, Position: 1},
		{ID: 2, QuizID: 1, Type: quiz.TypeTrueFalse, Points: 1, Position: 2},
		{ID: 3, QuizID: 1, Type: quiz.TypeTrueFalse, Points: 1, Position: 3},
	}
	st.answers[1] = map[int64][]quiz.Answer{
		1: {{ID: 1, QuestionID: 1, Text: "True", IsCorrect: true}},
		2: {{ID: 2, QuestionID: 2, Text: "True", IsCorrect: true}},
		3: {{ID: 3, QuestionID: 3, Text: "True", IsCorrect: true}},
	}
	svc := quiz.New(st)
	attemptID := startOne(t, svc, 1, "u1")

	report, err := svc.SubmitAttempt(context.Background(), attemptID, quiz.Submission{"1": float64(1)})
	if err != nil {
		t.Fatal(err)
	}
	if report.Score != 33.33 {
		t.Fatalf("score = %v, want 33.33", report.Score)
	}
}

func TestSubmit_MissingAnswerIncorrect(t *testing.T) {
	st := newFakeStore()
	seedTwoQuestionQuiz(st, 1, false, false)
	svc := quiz.New(st)
	attemptID := startOne(t, svc, 1, "u1")

	report, err := svc.SubmitAttempt(context.Background(), attemptID, quiz.Submission{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Earned != 0 || report.Score != 0 {
		t.Fatalf("empty submission earned %v", report.Earned)
	}
	for _, d := range report.Details {
		if d.Result != "incorrect" || d.Your != nil {
			t.Fatalf("missing answer detail %+v", d)
		}
	}
}

func TestSubmit_EmptyQuiz(t *testing.T) {
	st := newFakeStore()
	st.users["u1"] = true
	st.quizzes[5] = quiz.Quiz{ID: 5, AttemptsAllowed: 1, FeedbackMode: quiz.FeedbackNone, Weight: 1}
	svc := quiz.New(st)
	attemptID := startOne(t, svc, 5, "u1")

	report, err := svc.SubmitAttempt(context.Background(), attemptID, quiz.Submission{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Score != 0 || report.Passed || report.Earned != 0 || report.Total != 0 {
		t.Fatalf("empty quiz report %+v", report)
	}
	if report.Details == nil || len(report.Details) != 0 {
		t.Fatalf("details should be an empty slice, got %#v", report.Details)
	}
	a, _ := svc.Attempt(context.Background(), attemptID)
	if a.CompletedAt == nil {
		t.Fatal("empty quiz must still complete the attempt")
	}
}

func TestSubmit_AlreadySubmitted(t *testing.T) {
	st := newFakeStore()
	seedTwoQuestionQuiz(st, 1, false, false)
	svc := quiz.New(st)
	ctx := context.Background()
	attemptID := startOne(t, svc, 1, "u1")

	if _, err := svc.SubmitAttempt(ctx, attemptID, quiz.Submission{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitAttempt(ctx, attemptID, quiz.Submission{}); !errors.Is(err, quiz.ErrAlreadySubmitted) {
		t.Fatalf("got %v, want ErrAlreadySubmitted", err)
	}
}

func TestSubmit_AttemptMissing(t *testing.T) {
	st := newFakeStore()
	svc := quiz.New(st)
	if _, err := svc.SubmitAttempt(context.Background(), "nope", quiz.Submission{}); !errors.Is(err, quiz.ErrAttemptNotFound) {
		t.Fatalf("got %v, want ErrAttemptNotFound", err)
	}
}

func TestSubmit_ShuffleIndependence(t *testing.T) {
	sub := quiz.Submission{"10": []any{float64(2)}, "11": " PARIS "}

	grade := func(shuffleQ, shuffleO bool) quiz.GradeReport {
		st := newFakeStore()
		seedTwoQuestionQuiz(st, 1, shuffleQ, shuffleO)
		svc := quiz.New(st)
		attemptID := startOne(t, svc, 1, "u1")
		report, err := svc.SubmitAttempt(context.Background(), attemptID, sub)
		if err != nil {
			t.Fatal(err)
		}
		return report
	}

	plain := grade(false, false)
	shuffled := grade(true, true)
	if plain.Score != shuffled.Score || plain.Earned != shuffled.Earned {
		t.Fatalf("shuffle changed grading: %v vs %v", plain, shuffled)
	}
	if plain.Score != 100.00 || !plain.Passed {
		t.Fatalf("both answers correct should score 100, got %v", plain.Score)
	}
	// Details come back in position order either way.
	if plain.Details[0].QuestionID != shuffled.Details[0].QuestionID {
		t.Fatalf("detail order should follow stored position, not presentation")
	}
}

func TestSubmit_CustomPassThreshold(t *testing.T) {
	st := newFakeStore()
	seedTwoQuestionQuiz(st, 1, false, false)
	svc := quiz.New(st, quiz.WithPassThreshold(30))
	attemptID := startOne(t, svc, 1, "u1")

	report, err := svc.SubmitAttempt(context.Background(), attemptID, quiz.Submission{"10": float64(2)})
	if err != nil {
		t.Fatal(err)
	}
	if report.Score != 30.00 || !report.Passed {
		t.Fatalf("score=%v passed=%v, want 30.00/true with threshold 30", report.Score, report.Passed)
	}
}
