//go:build cucumber

package generate

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/llm"
)

// TestGenerationScenarios runs the generation feature scenarios.
func TestGenerationScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "generation",
		ScenarioInitializer: InitializeGenerationScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("..", "..", "features", "generation.feature")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeGenerationScenario wires steps for generation scenarios.
func InitializeGenerationScenario(ctx *godog.ScenarioContext) {
	state := &generationScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^the source text "([^"]*)"$`, state.givenSource)
	ctx.Step(`^the backend is unavailable$`, state.givenUnavailable)
	ctx.Step(`^the backend drafts a reply and converts it to:$`, state.givenConversion)
	ctx.Step(`^I request (\d+) (\S+) questions?$`, state.whenRequest)
	ctx.Step(`^I generate the exam$`, state.whenGenerate)
	ctx.Step(`^the exam has (\d+) items?$`, state.thenItemCount)
	ctx.Step(`^all items are (model|synthesized)$`, state.thenProvenance)
	ctx.Step(`^the winning extraction tier is "([^"]*)"$`, state.thenTier)
	ctx.Step(`^the shortfall is empty$`, state.thenNoShortfall)
	ctx.Step(`^item (\d+) has choice A "([^"]*)" and answer "([^"]*)"$`, state.thenChoiceA)
}

type generationScenarioState struct {
	source   string
	provider *llm.MockProvider
	quota    exam.QuotaSpec
	result   *Result
}

// reset clears scenario state.
func (s *generationScenarioState) reset() {
	s.source = ""
	s.provider = llm.NewMockProvider()
	s.quota = exam.QuotaSpec{}
	s.result = nil
}

func (s *generationScenarioState) givenSource(text string) error {
	s.source = text
	return nil
}

// givenUnavailable leaves the mock queue empty, which fails every call.
func (s *generationScenarioState) givenUnavailable() error {
	s.provider = llm.NewMockProvider()
	return nil
}

func (s *generationScenarioState) givenConversion(doc *godog.DocString) error {
	s.provider = llm.NewMockProvider(llm.MockText("1. draft question"), llm.MockText(doc.Content))
	return nil
}

func (s *generationScenarioState) whenRequest(n int, kind string) error {
	k := exam.ResolveKind(kind)
	if k == exam.KindUnrecognized {
		return fmt.Errorf("unknown kind %q", kind)
	}
	s.quota[k] += n
	return nil
}

func (s *generationScenarioState) whenGenerate() error {
	o := New(s.provider, DefaultConfig())
	res, err := o.Generate(context.Background(), s.source, s.quota, "")
	if err != nil {
		return err
	}
	s.result = res
	return nil
}

func (s *generationScenarioState) thenItemCount(n int) error {
	if got := len(s.result.Items); got != n {
		return fmt.Errorf("got %d items, want %d", got, n)
	}
	return nil
}

func (s *generationScenarioState) thenProvenance(p string) error {
	for i, it := range s.result.Items {
		if string(it.Provenance) != p {
			return fmt.Errorf("item %d is %s, want %s", i+1, it.Provenance, p)
		}
	}
	return nil
}

func (s *generationScenarioState) thenTier(tier string) error {
	if got := s.result.Session.Extraction.Tier; got != tier {
		return fmt.Errorf("winning tier %q, want %q", got, tier)
	}
	return nil
}

func (s *generationScenarioState) thenNoShortfall() error {
	if s.result.Shortfall.Total() != 0 {
		return fmt.Errorf("unexpected shortfall %s", s.result.Shortfall)
	}
	return nil
}

func (s *generationScenarioState) thenChoiceA(n int, choice, answer string) error {
	if n < 1 || n > len(s.result.Items) {
		return fmt.Errorf("no item %d", n)
	}
	rec := s.result.Items[n-1].Record
	if len(rec.Choices) == 0 || rec.Choices[0] != choice {
		return fmt.Errorf("choice A is %q, want %q", rec.Choices, choice)
	}
	if rec.Answer.Value != answer {
		return fmt.Errorf("answer %q, want %q", rec.Answer.Value, answer)
	}
	return nil
}
