package quiz

import "github.com/abhisek/examforge/internal/evaluate"

// scoredMsg carries the evaluation of one submitted answer.
type scoredMsg struct {
	Index  int
	Graded evaluate.Graded
}
