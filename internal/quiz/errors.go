package quiz

import "errors"

var (
	ErrQuizNotFound    = errors.New("quiz not found")
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrUserNotFound    = errors.New("user not found")

	// ErrAttemptsExhausted: the per-user attempt cap is reached; no row is created.
	ErrAttemptsExhausted = errors.New("attempts exhausted")

	// ErrAlreadySubmitted: the attempt has completed_at set; grading is at-most-once.
	ErrAlreadySubmitted = errors.New("attempt already submitted")

	// ErrDuplicateAttempt: the unique (quiz, user, attempt_number) index rejected
	// an insert; the caller re-reads the count and retries.
	ErrDuplicateAttempt = errors.New("duplicate attempt number")

	ErrInvalidInput = errors.New("invalid input")
)
