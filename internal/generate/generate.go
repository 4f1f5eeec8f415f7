// Package generate runs the draft, convert, extract and reconcile pipeline
// that turns a source document into a quota-exact set of exam items.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/extract"
	"github.com/abhisek/examforge/internal/llm"
	"github.com/abhisek/examforge/internal/normalize"
	"github.com/abhisek/examforge/internal/prompt"
	"github.com/abhisek/examforge/internal/synth"
)

const tracerName = "github.com/abhisek/examforge/internal/generate"

// Result is the output of Generate.
type Result struct {
	// Items are ordered by kind, model records before synthesized ones
	// within each kind.
	Items []exam.Item

	// Shortfall is what neither the backend nor the synthesizer could
	// supply.
	Shortfall exam.QuotaSpec

	Session *Session
}

// Err reports ErrQuotaUnsatisfiable when the result is short.
func (r *Result) Err() error {
	if r.Shortfall.Total() == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing %s", exam.ErrQuotaUnsatisfiable, r.Shortfall)
}

// Records returns the records of all items in order.
func (r *Result) Records() []exam.QuestionRecord {
	out := make([]exam.QuestionRecord, len(r.Items))
	for i, it := range r.Items {
		out[i] = it.Record
	}
	return out
}

// Count returns the number of items per kind with provenance p.
func (r *Result) Count(p exam.Provenance) map[exam.Kind]int {
	out := map[exam.Kind]int{}
	for _, it := range r.Items {
		if it.Provenance == p {
			out[it.Record.Kind]++
		}
	}
	return out
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithTraceSink sets where finished runs are reported.
func WithTraceSink(s TraceSink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithTracer overrides the OpenTelemetry tracer. Default: the global
// provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// Orchestrator drives one generation at a time per call. It is safe for
// concurrent use; every call gets its own Session.
type Orchestrator struct {
	provider llm.Provider
	cfg      Config
	prompts  *prompt.Builder
	chain    *extract.Chain
	filter   *normalize.Filter
	synth    *synth.Synthesizer
	sink     TraceSink
	tracer   trace.Tracer
	logger   *zap.Logger
}

// New creates an Orchestrator over provider.
func New(provider llm.Provider, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{provider: provider, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	synthCfg := cfg.Synth
	if len(cfg.Points) > 0 {
		synthCfg.Points = cfg.Points
	}
	o.prompts = prompt.NewBuilder(cfg.Prompt)
	o.chain = extract.NewChain(o.logger)
	o.filter = normalize.NewFilter(normalize.Config{Points: cfg.Points}, o.logger)
	o.synth = synth.New(synthCfg, o.logger)
	return o
}

// Generate produces exactly quota.Total() items minus the reported
// shortfall. Backend failures are recovered locally: the run falls back
// to synthesized items and still returns a Result. Only an invalid quota
// is returned as an error.
//
// Cancelling ctx aborts the in-flight backend call only. Records already
// extracted are kept and reconciliation always runs.
func (o *Orchestrator) Generate(ctx context.Context, source string, quota exam.QuotaSpec, override string) (*Result, error) {
	if err := quota.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	sess := newSession(o.logger)
	ctx = llm.WithSession(ctx, sess.ID)
	ctx, span := o.tracer.Start(ctx, "generate",
		trace.WithAttributes(
			attribute.String("session.id", sess.ID),
			attribute.String("quota", quota.String()),
		),
	)
	defer span.End()

	tr := Trace{
		SessionID: sess.ID,
		Title:     titleFrom(ctx),
		Model:     o.provider.ModelID(),
		Quota:     quota.Clone(),
	}

	records := o.modelRecords(ctx, sess, &tr, source, quota, override)

	sess.enter(StateReconciling, fmt.Sprintf("%d model records", len(records)))
	res := o.reconcile(context.WithoutCancel(ctx), sess, source, quota, records)
	sess.enter(StateDone, "")

	tr.States = sess.States()
	tr.WinningTier = sess.Extraction.Tier
	tr.Outcomes = sess.Extraction.Outcomes
	tr.ExtractedFrom = sess.ExtractedFrom
	tr.ModelItems = res.Count(exam.ProvenanceModel)
	tr.SynthItems = res.Count(exam.ProvenanceSynthesized)
	tr.Shortfall = res.Shortfall
	tr.Duration = time.Since(start)
	for _, err := range sess.Errors {
		tr.Errors = append(tr.Errors, err.Error())
	}
	o.emit(context.WithoutCancel(ctx), tr)

	span.SetAttributes(
		attribute.Int("items.model", len(records)),
		attribute.Int("items.total", len(res.Items)),
		attribute.Int("shortfall", res.Shortfall.Total()),
	)
	o.logger.Info("generation finished",
		zap.String("session", sess.ID),
		zap.Stringer("quota", quota),
		zap.Int("model_items", len(records)),
		zap.Int("synth_items", len(res.Items)-len(records)),
		zap.Stringer("shortfall", res.Shortfall),
		zap.Duration("duration", tr.Duration),
	)
	return res, nil
}

// modelRecords runs Drafting, Converting and Extracting and returns whatever
// model records survived. It never fails; problems end up in sess.Errors.
func (o *Orchestrator) modelRecords(ctx context.Context, sess *Session, tr *Trace, source string, quota exam.QuotaSpec, override string) []exam.QuestionRecord {
	draftPrompt := o.prompts.Draft(source, quota, override)
	tr.DraftPrompt = draftPrompt.Text()

	req := draftPrompt.Request(o.cfg.Mode)
	req.MaxTokens = o.cfg.DraftMaxTokens
	req.Temperature = o.cfg.Temperature
	req.Stop = o.cfg.Stop

	draft, err := o.call(ctx, llm.PurposeDraft, req)
	tr.DraftText = draft
	if err != nil {
		sess.fail(err)
		return nil
	}
	if strings.TrimSpace(draft) == "" {
		sess.fail(fmt.Errorf("%w: empty draft", exam.ErrBackendUnavailable))
		return nil
	}

	var converted string
	if ctx.Err() == nil {
		sess.enter(StateConverting, "")
		convPrompt := o.prompts.Conversion(draft, quota)
		tr.ConvertPrompt = convPrompt.Text()

		req := convPrompt.Request(llm.ModeChat)
		req.MaxTokens = o.cfg.ConvertMaxTokens
		if o.cfg.NativeSchema {
			req.Schema = prompt.QuestionSetSchema
		}
		converted, err = o.call(ctx, llm.PurposeConvert, req)
		tr.ConvertText = converted
		if err != nil {
			sess.fail(err)
		}
	}

	sess.enter(StateExtracting, "")
	return o.extract(ctx, sess, quota, converted, draft)
}

// extract tries the converted text first and the draft second. The draft
// is also tried when the conversion parses but nothing survives filtering.
func (o *Orchestrator) extract(ctx context.Context, sess *Session, quota exam.QuotaSpec, converted, draft string) []exam.QuestionRecord {
	_, span := o.tracer.Start(ctx, "generate.extract")
	defer span.End()

	sources := []struct{ name, text string }{
		{SourceConversion, converted},
		{SourceDraft, draft},
	}
	for _, src := range sources {
		if strings.TrimSpace(src.text) == "" {
			continue
		}
		res := o.chain.Extract(src.text, quota)
		sess.Extraction = res
		sess.ExtractedFrom = src.name
		if res.Unparsable() {
			sess.fail(fmt.Errorf("%w: %s", exam.ErrUnparsableResponse, src.name))
			continue
		}

		records, report := o.filter.Apply(res.Items, quota)
		sess.Report = report
		span.SetAttributes(
			attribute.String("extract.source", src.name),
			attribute.String("extract.tier", res.Tier),
			attribute.Int("extract.items", len(res.Items)),
			attribute.Int("extract.kept", len(records)),
		)
		if len(records) > 0 {
			return records
		}
		o.logger.Debug("no records survived filtering",
			zap.String("source", src.name),
			zap.Int("items", len(res.Items)))
	}
	return nil
}

// reconcile fills the residual quota with synthesized records.
func (o *Orchestrator) reconcile(ctx context.Context, sess *Session, source string, quota exam.QuotaSpec, records []exam.QuestionRecord) *Result {
	_, span := o.tracer.Start(ctx, "generate.reconcile")
	defer span.End()

	kept := map[exam.Kind]int{}
	for _, r := range records {
		kept[r.Kind]++
	}
	residual := quota.Sub(kept)

	var synthesized []exam.QuestionRecord
	shortfall := exam.QuotaSpec{}
	if residual.Total() > 0 {
		synthesized, shortfall = o.synth.Synthesize(source, residual)
	}

	res := &Result{Shortfall: shortfall, Session: sess}
	for _, k := range exam.Kinds {
		for _, r := range records {
			if r.Kind == k {
				res.Items = append(res.Items, exam.Item{Record: r, Provenance: exam.ProvenanceModel})
			}
		}
		for _, r := range synthesized {
			if r.Kind == k {
				res.Items = append(res.Items, exam.Item{Record: r, Provenance: exam.ProvenanceSynthesized})
			}
		}
	}

	span.SetAttributes(
		attribute.String("residual", residual.String()),
		attribute.Int("synthesized", len(synthesized)),
	)
	return res
}

// call sends one backend request under the per-call timeout. A reply the
// provider rejected but still returned is salvaged as text.
func (o *Orchestrator) call(ctx context.Context, purpose string, req llm.Request) (string, error) {
	ctx = llm.WithPurpose(ctx, purpose)
	ctx, span := o.tracer.Start(ctx, "generate."+purpose)
	defer span.End()

	if o.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()
	}

	resp, err := o.provider.Generate(ctx, req)
	if err == nil {
		span.SetAttributes(
			attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
			attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
			attribute.Bool("llm.cached", resp.Cached),
		)
		return resp.Text(), nil
	}

	if partial, ok := llm.PartialContent(err); ok {
		o.logger.Warn("salvaging rejected backend reply",
			zap.String("purpose", purpose),
			zap.Int("bytes", len(partial)),
			zap.Strings("violations", llm.Violations(err)),
			zap.Error(err),
		)
		span.AddEvent("salvaged partial reply")
		return (&llm.Response{Content: partial}).Text(), nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errors.Is(err, exam.ErrBackendUnavailable) {
		return "", err
	}
	return "", fmt.Errorf("%w: %s call: %w", exam.ErrBackendUnavailable, purpose, err)
}

func (o *Orchestrator) emit(ctx context.Context, tr Trace) {
	if o.sink == nil {
		return
	}
	if err := o.sink.Record(ctx, tr); err != nil {
		o.logger.Warn("failed to record generation trace", zap.String("session", tr.SessionID), zap.Error(err))
	}
}
