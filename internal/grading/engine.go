package grading

import "strconv"

// Q is a minimal view of a question needed for grading.
type Q struct {
	Type         string
	Points       float64
	CorrectIDs   []int64  // option ids flagged correct
	CorrectTexts []string // their texts, in stored order
}

// Result is the outcome of grading a single question response.
// Awarded is all-or-nothing: full points or zero.
type Result struct {
	Correct bool
	Awarded float64
}

// Strategy grades a single question.
type Strategy interface {
	Grade(q Q, response any) Result
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(q Q, response any) Result
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(q Q, response any) Result {
	s, ok := g.strategies[q.Type]
	if !ok {
		// Unknown type: never creditable, never an error.
		return Result{}
	}
	return s.Grade(q, response)
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			"multiple_choice": choiceStrategy{},
			"true_false":      choiceStrategy{},
			"short_answer":    textStrategy{},
			"fill_blank":      textStrategy{},
		},
	}
}

// --- Strategies ---

// choiceStrategy: exact set equality between submitted option ids and the
// correct set. A multi-correct question requires precisely the correct
// subset; order never matters.
type choiceStrategy struct{}

func (choiceStrategy) Grade(q Q, response any) Result {
	// A question with no correct options is never creditable. Plain set
	// equality would instead credit an empty submission (empty equals
	// empty), and an omitted answer must always grade incorrect.
	if len(q.CorrectIDs) == 0 {
		return Result{}
	}
	picked := toIDSet(response)
	want := toSet(q.CorrectIDs)
	if !setEqual(picked, want) {
		return Result{}
	}
	return Result{Correct: true, Awarded: q.Points}
}

// textStrategy: trim + lowercase both sides, compare against the first
// stored correct text only. Alternative phrasings are not supported.
type textStrategy struct{}

func (textStrategy) Grade(q Q, response any) Result {
	if len(q.CorrectTexts) == 0 {
		return Result{}
	}
	s, ok := response.(string)
	if !ok {
		return Result{}
	}
	if Normalize(s) != Normalize(q.CorrectTexts[0]) {
		return Result{}
	}
	return Result{Correct: true, Awarded: q.Points}
}

// --- helpers ---

// toIDSet coerces a submitted value into a set of option ids. A bare
// scalar wraps into a one-element set; falsy/empty values are dropped.
func toIDSet(v any) map[int64]struct{} {
	out := map[int64]struct{}{}
	switch t := v.(type) {
	case nil:
		// no answer
	case []any:
		for _, e := range t {
			addID(out, e)
		}
	case []int64:
		for _, e := range t {
			if e != 0 {
				out[e] = struct{}{}
			}
		}
	default:
		addID(out, v)
	}
	return out
}

func addID(set map[int64]struct{}, v any) {
	switch t := v.(type) {
	case float64: // JSON numbers decode to float64
		if t != 0 {
			set[int64(t)] = struct{}{}
		}
	case int:
		if t != 0 {
			set[int64(t)] = struct{}{}
		}
	case int64:
		if t != 0 {
			set[t] = struct{}{}
		}
	case string:
		if id, err := strconv.ParseInt(t, 10, 64); err == nil && id != 0 {
			set[id] = struct{}{}
		}
	}
}

func toSet(arr []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(arr))
	for _, id := range arr {
		m[id] = struct{}{}
	}
	return m
}

func setEqual(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
