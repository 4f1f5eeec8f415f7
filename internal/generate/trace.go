package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/extract"
	"github.com/abhisek/examforge/internal/store"
)

// Trace is the structured record of one Generate call.
type Trace struct {
	SessionID string
	Title     string
	Model     string
	Quota     exam.QuotaSpec
	States    []State

	DraftPrompt   string
	DraftText     string
	ConvertPrompt string
	ConvertText   string

	ExtractedFrom string
	WinningTier   string
	Outcomes      []extract.Outcome

	ModelItems map[exam.Kind]int
	SynthItems map[exam.Kind]int
	Shortfall  exam.QuotaSpec

	Duration time.Duration
	Errors   []string
}

// TraceSink receives the Trace of every finished run.
type TraceSink interface {
	Record(ctx context.Context, tr Trace) error
}

// TraceSinkFunc adapts a function to TraceSink.
type TraceSinkFunc func(ctx context.Context, tr Trace) error

func (f TraceSinkFunc) Record(ctx context.Context, tr Trace) error { return f(ctx, tr) }

// StoreSink writes traces to the generation trace table.
type StoreSink struct {
	repo store.GenerationRepo
}

// NewStoreSink creates a StoreSink over repo.
func NewStoreSink(repo store.GenerationRepo) *StoreSink {
	return &StoreSink{repo: repo}
}

// Record implements TraceSink.
func (s *StoreSink) Record(ctx context.Context, tr Trace) error {
	data, err := tr.generationData()
	if err != nil {
		return err
	}
	return s.repo.AppendGeneration(ctx, data)
}

func (tr Trace) generationData() (store.GenerationData, error) {
	states := make([]string, len(tr.States))
	for i, s := range tr.States {
		states[i] = s.String()
	}
	statesJSON, err := json.Marshal(states)
	if err != nil {
		return store.GenerationData{}, fmt.Errorf("marshal states: %w", err)
	}
	outcomes := tr.Outcomes
	if outcomes == nil {
		outcomes = []extract.Outcome{}
	}
	outcomesJSON, err := json.Marshal(outcomes)
	if err != nil {
		return store.GenerationData{}, fmt.Errorf("marshal tier outcomes: %w", err)
	}

	return store.GenerationData{
		SessionID:     tr.SessionID,
		Title:         tr.Title,
		Model:         tr.Model,
		Quota:         tr.Quota.String(),
		Requested:     tr.Quota.Total(),
		ModelItems:    sum(tr.ModelItems),
		SynthItems:    sum(tr.SynthItems),
		Shortfall:     tr.Shortfall.String(),
		WinningTier:   tr.WinningTier,
		States:        string(statesJSON),
		TierOutcomes:  string(outcomesJSON),
		DraftPrompt:   tr.DraftPrompt,
		DraftText:     tr.DraftText,
		ConvertPrompt: tr.ConvertPrompt,
		ConvertText:   tr.ConvertText,
		DurationMs:    tr.Duration.Milliseconds(),
		ErrorMessage:  strings.Join(tr.Errors, "; "),
	}, nil
}

func sum(m map[exam.Kind]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

type titleKey struct{}

// WithTitle labels the generation started with ctx in its trace.
func WithTitle(ctx context.Context, title string) context.Context {
	return context.WithValue(ctx, titleKey{}, title)
}

func titleFrom(ctx context.Context) string {
	v, _ := ctx.Value(titleKey{}).(string)
	return v
}
