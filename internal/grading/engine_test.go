package grading

import "testing"

func TestChoiceExactMatch(t *testing.T) {
	q := Q{Type: "multiple_choice", Points: 4, CorrectIDs: []int64{2, 3}}
	g := NewDefaultGrader()

	tests := []struct {
		name     string
		response any
		correct  bool
	}{
		{"exact order", []any{float64(2), float64(3)}, true},
		{"reversed order", []any{float64(3), float64(2)}, true},
		{"subset", []any{float64(2)}, false},
		{"superset", []any{float64(2), float64(3), float64(4)}, false},
		{"empty array", []any{}, false},
		{"omitted", nil, false},
		{"numeric strings", []any{"2", "3"}, true},
		{"falsy members dropped", []any{float64(2), float64(3), float64(0), ""}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := g.Grade(q, tc.response)
			if res.Correct != tc.correct {
				t.Fatalf("correct=%v, want %v", res.Correct, tc.correct)
			}
			wantPts := 0.0
			if tc.correct {
				wantPts = q.Points
			}
			if res.Awarded != wantPts {
				t.Fatalf("awarded=%v, want %v", res.Awarded, wantPts)
			}
		})
	}
}

func TestChoiceBareScalar(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: "true_false", Points: 1, CorrectIDs: []int64{7}}

	if res := g.Grade(q, float64(7)); !res.Correct {
		t.Fatalf("bare scalar should wrap into a one-element set")
	}
	if res := g.Grade(q, float64(8)); res.Correct {
		t.Fatalf("wrong scalar graded correct")
	}
	if res := g.Grade(q, float64(0)); res.Correct {
		t.Fatalf("falsy scalar must be dropped, not matched")
	}
}

func TestChoiceNoCorrectOptions(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: "multiple_choice", Points: 2}

	// Without this rule an empty submission would satisfy set equality
	// against the empty key and earn full points.
	if res := g.Grade(q, []any{}); res.Correct || res.Awarded != 0 {
		t.Fatalf("question without a key must never be creditable, got %+v", res)
	}
	if res := g.Grade(q, nil); res.Correct || res.Awarded != 0 {
		t.Fatalf("omitted answer to a keyless question graded %+v, want incorrect", res)
	}
	if res := g.Grade(q, float64(1)); res.Correct {
		t.Fatalf("selection against a keyless question graded correct")
	}
}

func TestTextNormalization(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: "short_answer", Points: 5, CorrectTexts: []string{" Paris "}}

	for _, ok := range []string{"paris", "PARIS", " Paris ", "Paris"} {
		if res := g.Grade(q, ok); !res.Correct {
			t.Fatalf("%q should match after trim+lowercase", ok)
		}
	}
	for _, bad := range []string{"parisx", "par is", ""} {
		if res := g.Grade(q, bad); res.Correct {
			t.Fatalf("%q should not match", bad)
		}
	}
}

func TestTextOnlyFirstKeyConsulted(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: "fill_blank", Points: 1, CorrectTexts: []string{"colour", "color"}}

	if res := g.Grade(q, "colour"); !res.Correct {
		t.Fatalf("first key should match")
	}
	// Alternative phrasings beyond the first stored text are not supported.
	if res := g.Grade(q, "color"); res.Correct {
		t.Fatalf("second key must not be consulted")
	}
}

func TestTextNonStringResponse(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: "short_answer", Points: 1, CorrectTexts: []string{"42"}}
	if res := g.Grade(q, float64(42)); res.Correct {
		t.Fatalf("non-string response to a text question is incorrect, not coerced")
	}
}

func TestUnknownTypeNeverPanics(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: "essay", Points: 10, CorrectTexts: []string{"anything"}}
	res := g.Grade(q, "anything")
	if res.Correct || res.Awarded != 0 {
		t.Fatalf("unknown type must grade to zero, got %+v", res)
	}
}
