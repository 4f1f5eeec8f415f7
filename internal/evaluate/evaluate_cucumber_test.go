//go:build cucumber

package evaluate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/llm"
)

// TestEvaluationScenarios runs the scoring feature scenarios.
func TestEvaluationScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "evaluation",
		ScenarioInitializer: InitializeEvaluationScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("..", "..", "features", "evaluation.feature")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeEvaluationScenario wires steps for scoring scenarios.
func InitializeEvaluationScenario(ctx *godog.ScenarioContext) {
	state := &evaluationScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^an open_question worth (\d+) points$`, state.givenOpenQuestion)
	ctx.Step(`^a multiple_choice question whose answer is "([A-D])"$`, state.givenMultipleChoice)
	ctx.Step(`^no backend$`, state.givenNoBackend)
	ctx.Step(`^the backend replies "([^"]*)"$`, state.givenReply)
	ctx.Step(`^the student answers "([^"]*)"$`, state.whenAnswer)
	ctx.Step(`^the score is at most (\d+)$`, state.thenAtMost)
	ctx.Step(`^the score is (\d+(?:\.\d+)?)$`, state.thenScore)
	ctx.Step(`^the scoring method is "([^"]*)"$`, state.thenMethod)
}

type evaluationScenarioState struct {
	record   exam.QuestionRecord
	provider llm.Provider
	result   Result
}

// reset clears scenario state.
func (s *evaluationScenarioState) reset() {
	s.record = exam.QuestionRecord{}
	s.provider = nil
	s.result = Result{}
}

func (s *evaluationScenarioState) givenOpenQuestion(points int) error {
	s.record = exam.NewRecord(exam.KindOpenQuestion)
	s.record.Prompt = "Describe encapsulation."
	s.record.Answer = exam.KeyPointsAnswer("bundles data and methods", "hides internal state")
	s.record.Points = points
	return nil
}

func (s *evaluationScenarioState) givenMultipleChoice(letter string) error {
	s.record = exam.NewRecord(exam.KindMultipleChoice)
	s.record.Prompt = "Which principle lets one interface serve many forms?"
	s.record.Choices = []string{"Encapsulation", "Inheritance", "Polymorphism", "Abstraction"}
	s.record.Answer = exam.TextAnswer(letter)
	return nil
}

func (s *evaluationScenarioState) givenNoBackend() error {
	s.provider = nil
	return nil
}

func (s *evaluationScenarioState) givenReply(reply string) error {
	s.provider = llm.NewMockProvider(llm.MockText(strings.ReplaceAll(reply, `\n`, "\n")))
	return nil
}

func (s *evaluationScenarioState) whenAnswer(answer string) error {
	s.result = New(s.provider, DefaultConfig()).Evaluate(context.Background(), s.record, answer)
	return nil
}

func (s *evaluationScenarioState) thenAtMost(n int) error {
	if s.result.Points > float64(n) {
		return fmt.Errorf("score %.2f exceeds %d", s.result.Points, n)
	}
	return nil
}

func (s *evaluationScenarioState) thenScore(want float64) error {
	if s.result.Points != want {
		return fmt.Errorf("score %.2f, want %.2f (%s)", s.result.Points, want, s.result.Rationale)
	}
	return nil
}

func (s *evaluationScenarioState) thenMethod(m string) error {
	if string(s.result.Method) != m {
		return fmt.Errorf("method %q, want %q", s.result.Method, m)
	}
	return nil
}
