// Package evaluate scores a submitted answer against a QuestionRecord.
// Closed kinds are compared locally; open kinds are graded by the
// inference backend with a length heuristic as the fallback.
package evaluate

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/llm"
	"github.com/abhisek/examforge/internal/prompt"
)

// Method names how a score was obtained.
type Method string

const (
	MethodExact     Method = "exact"
	MethodModel     Method = "model"
	MethodHeuristic Method = "heuristic"
)

// RationaleInsufficient is given to empty open answers and to those below
// Config.MinWords.
const RationaleInsufficient = "insufficient answer"

// Result is the score of one answer. Points is always in [0, MaxPoints].
type Result struct {
	Points    float64 `json:"points"`
	MaxPoints int     `json:"max_points"`
	Rationale string  `json:"rationale"`
	Method    Method  `json:"method"`
}

// Correct reports whether the answer earned full points.
func (r Result) Correct() bool {
	return r.MaxPoints > 0 && r.Points >= float64(r.MaxPoints)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Evaluator) { e.tracer = t }
}

// WithPromptConfig sets the rubric prompt settings.
func WithPromptConfig(cfg prompt.Config) Option {
	return func(e *Evaluator) { e.prompts = prompt.NewBuilder(cfg) }
}

// Evaluator scores answers. A nil provider grades open answers with the
// heuristic only.
type Evaluator struct {
	provider llm.Provider
	cfg      Config
	prompts  *prompt.Builder
	tracer   trace.Tracer
	logger   *zap.Logger
}

// New creates an Evaluator.
func New(provider llm.Provider, cfg Config, opts ...Option) *Evaluator {
	e := &Evaluator{
		provider: provider,
		cfg:      cfg,
		prompts:  prompt.NewBuilder(prompt.DefaultConfig()),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("github.com/abhisek/examforge/internal/evaluate")
	}
	return e
}

// Evaluate scores answer against record. It never fails: backend errors
// fall back to the heuristic.
func (e *Evaluator) Evaluate(ctx context.Context, record exam.QuestionRecord, answer string) Result {
	ctx, span := e.tracer.Start(ctx, "evaluate",
		trace.WithAttributes(
			attribute.String("question.kind", string(record.Kind)),
			attribute.Int("question.points", record.Points),
		),
	)
	defer span.End()

	var res Result
	switch {
	case record.Kind.IsClosed():
		res = e.closed(record, answer)
	case record.Kind.IsOpen():
		res = e.open(ctx, span, record, answer)
	default:
		res = e.recall(record, answer)
	}
	res.MaxPoints = record.Points
	res.Points = clamp(res.Points, record.Points)

	span.SetAttributes(
		attribute.String("evaluate.method", string(res.Method)),
		attribute.Float64("evaluate.points", res.Points),
	)
	e.logger.Debug("evaluated answer",
		zap.String("question", record.ID),
		zap.String("kind", string(record.Kind)),
		zap.String("method", string(res.Method)),
		zap.Float64("points", res.Points),
		zap.Int("max_points", res.MaxPoints),
	)
	return res
}

func (e *Evaluator) closed(record exam.QuestionRecord, answer string) Result {
	var (
		got string
		ok  bool
	)
	switch record.Kind {
	case exam.KindMultipleChoice:
		got, ok = exam.ParseChoiceLetter(answer, record.Choices)
	case exam.KindTrueFalse:
		got, ok = exam.ParseTrueFalse(answer)
	}
	if ok && got == record.Answer.Value {
		return Result{Points: float64(record.Points), Rationale: "correct", Method: MethodExact}
	}
	return Result{Rationale: "incorrect: expected " + expected(record), Method: MethodExact}
}

// recall grades flashcard and cloze answers by normalized text.
func (e *Evaluator) recall(record exam.QuestionRecord, answer string) Result {
	got := exam.NormalizeText(answer)
	want := exam.NormalizeText(record.Answer.Text())
	if got != "" && want != "" && (got == want || strings.Contains(got, want)) {
		return Result{Points: float64(record.Points), Rationale: "correct", Method: MethodExact}
	}
	return Result{Rationale: "incorrect: expected " + expected(record), Method: MethodExact}
}

func expected(record exam.QuestionRecord) string {
	if c := record.CorrectChoice(); c != "" {
		return record.Answer.Value + ") " + c
	}
	return record.Answer.Text()
}

func (e *Evaluator) open(ctx context.Context, span trace.Span, record exam.QuestionRecord, answer string) Result {
	words := len(strings.Fields(answer))
	if words == 0 || words < e.cfg.MinWords {
		return Result{Rationale: RationaleInsufficient, Method: MethodHeuristic}
	}
	if e.provider == nil {
		return e.heuristic(words, record, "no backend configured")
	}

	reply, err := e.call(ctx, record, answer)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("rubric scoring failed, using heuristic",
			zap.String("question", record.ID),
			zap.Error(err),
		)
		return e.heuristic(words, record, "backend unavailable")
	}

	score, rationale, ok := parseReply(reply, record.Points)
	if !ok {
		e.logger.Warn("unparsable rubric reply, using heuristic",
			zap.String("question", record.ID),
			zap.String("reply", clip(reply)),
		)
		return e.heuristic(words, record, "unparsable backend reply")
	}
	return Result{Points: score, Rationale: rationale, Method: MethodModel}
}

func (e *Evaluator) heuristic(words int, record exam.QuestionRecord, why string) Result {
	return Result{
		Points:    Heuristic(words, record.Points, e.cfg),
		Rationale: fmt.Sprintf("estimated from answer length (%d words); %s", words, why),
		Method:    MethodHeuristic,
	}
}

func (e *Evaluator) call(ctx context.Context, record exam.QuestionRecord, answer string) (string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeEvaluate)
	if e.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()
	}

	req := e.prompts.Rubric(record, answer).Request(llm.ModeChat)
	req.MaxTokens = e.cfg.MaxTokens
	req.Temperature = e.cfg.Temperature

	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		if partial, ok := llm.PartialContent(err); ok {
			return (&llm.Response{Content: partial}).Text(), nil
		}
		return "", fmt.Errorf("%w: %w", exam.ErrBackendUnavailable, err)
	}
	return resp.Text(), nil
}

// Graded is one scored answer of an exam.
type Graded struct {
	ID     string    `json:"id"`
	Kind   exam.Kind `json:"kind"`
	Answer string    `json:"answer"`
	Result Result    `json:"result"`
}

// Sheet is the scored form of a full exam.
type Sheet struct {
	Items     []Graded `json:"items"`
	Points    float64  `json:"points"`
	MaxPoints int      `json:"max_points"`
}

// EvaluateAll scores every item of ex against answers, keyed by record
// ID. Unanswered items score zero. Items keep exam order.
func (e *Evaluator) EvaluateAll(ctx context.Context, ex *exam.Exam, answers map[string]string) Sheet {
	sheet := Sheet{Items: make([]Graded, len(ex.Items))}

	g, ctx := errgroup.WithContext(ctx)
	if e.cfg.Concurrency > 0 {
		g.SetLimit(e.cfg.Concurrency)
	}
	for i, it := range ex.Items {
		g.Go(func() error {
			answer := answers[it.Record.ID]
			sheet.Items[i] = Graded{
				ID:     it.Record.ID,
				Kind:   it.Record.Kind,
				Answer: answer,
				Result: e.Evaluate(ctx, it.Record, answer),
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, gr := range sheet.Items {
		sheet.Points += gr.Result.Points
		sheet.MaxPoints += gr.Result.MaxPoints
	}
	sheet.Points = clamp(sheet.Points, sheet.MaxPoints)
	return sheet
}
