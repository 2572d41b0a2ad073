package quiz

import "time"

// Question types understood by the grading engine.
const (
	TypeMultipleChoice = "multiple_choice"
	TypeTrueFalse      = "true_false"
	TypeShortAnswer    = "short_answer"
	TypeFillBlank      = "fill_blank"
)

// Feedback modes are presentation policy only; grading never consults them.
const (
	FeedbackImmediate = "immediate"
	FeedbackOnFinish  = "on_finish"
	FeedbackNone      = "none"
)

// Quiz is the definition owned by course authoring. A quiz scoped to a
// module is the course final; one scoped to a lesson is formative.
type Quiz struct {
	ID               int64   `json:"id"`
	ModuleID         *int64  `json:"module_id,omitempty"`
	LessonID         *int64  `json:"lesson_id,omitempty"`
	Title            string  `json:"title"`
	AttemptsAllowed  int     `json:"attempts_allowed"`
	TimeLimitSeconds *int    `json:"time_limit_seconds,omitempty"`
	ShuffleQuestions bool    `json:"shuffle_questions"`
	ShuffleOptions   bool    `json:"shuffle_options"`
	FeedbackMode     string  `json:"feedback_mode"`
	Weight           float64 `json:"weight"`
	IsFinal          bool    `json:"is_final"`
}

type Question struct {
	ID       int64   `json:"id"`
	QuizID   int64   `json:"quiz_id"`
	Type     string  `json:"question_type"`
	Prompt   string  `json:"question"`
	Points   float64 `json:"points"`
	Position int     `json:"position"`
}

// Answer is one option of a question. IsCorrect never leaves the store
// except inside grading and the post-grade breakdown.
type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"answer_text"`
	IsCorrect  bool   `json:"is_correct"`
}

// Attempt is one ledger row. Open until graded; graded exactly once.
type Attempt struct {
	ID            string     `json:"id"`
	QuizID        int64      `json:"quiz_id"`
	UserID        string     `json:"user_id"`
	AttemptNumber int        `json:"attempt_number"`
	StartedAt     time.Time  `json:"started_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Score         *float64   `json:"score,omitempty"`
}

// Submission maps a question id (JSON object key, so a string) to the
// learner's raw answer: a number, an array of numbers, or free text.
type Submission map[string]any

// SessionOption deliberately has no correctness flag.
type SessionOption struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type SessionQuestion struct {
	ID      int64           `json:"id"`
	Type    string          `json:"type"`
	Prompt  string          `json:"question"`
	Points  float64         `json:"points"`
	Options []SessionOption `json:"options"`
}

// Session is the payload handed to the learner when an attempt starts.
type Session struct {
	AttemptID        string            `json:"attempt_id"`
	AttemptNumber    int               `json:"attempt_number"`
	TimeLimitSeconds int               `json:"time_limit_seconds"`
	ExpiresAt        time.Time         `json:"expires_at"`
	FeedbackMode     string            `json:"feedback_mode"`
	Questions        []SessionQuestion `json:"questions"`
}

type AnswerRef struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type QuestionResult struct {
	QuestionID int64       `json:"question_id"`
	Your       any         `json:"your"`
	Correct    []AnswerRef `json:"correct"`
	Points     float64     `json:"points"`
	Awarded    float64     `json:"awarded"`
	Result     string      `json:"result"` // correct|incorrect
}

type GradeReport struct {
	Score   float64          `json:"score"`
	Passed  bool             `json:"passed"`
	Earned  float64          `json:"earned"`
	Total   float64          `json:"total"`
	Details []QuestionResult `json:"details"`
}

// QuizDetail is the student-safe read of a quiz definition.
type QuizDetail struct {
	Quiz
	Questions []SessionQuestion `json:"questions"`
}
