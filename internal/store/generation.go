package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var generationColumns = []string{
	"id", "sequence", "timestamp", "session_id", "title", "model", "quota",
	"requested", "model_items", "synth_items", "shortfall", "winning_tier",
	"states", "tier_outcomes", "draft_prompt", "draft_text",
	"convert_prompt", "convert_text", "duration_ms", "error_message",
}

func (r *TraceRepo) AppendGeneration(ctx context.Context, data GenerationData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	q, args := r.builder().Insert(generationsTable).
		Columns(generationColumns[1:]...).
		Values(
			seqNum, time.Now().UTC(), data.SessionID, data.Title, data.Model, data.Quota,
			data.Requested, data.ModelItems, data.SynthItems, data.Shortfall, data.WinningTier,
			data.States, data.TierOutcomes, data.DraftPrompt, data.DraftText,
			data.ConvertPrompt, data.ConvertText, data.DurationMs, data.ErrorMessage,
		).
		Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		return fmt.Errorf("save generation trace: %w", err)
	}
	return nil
}

// QueryGenerations returns generation traces newest first.
func (r *TraceRepo) QueryGenerations(ctx context.Context, opts QueryOpts) ([]GenerationRecord, error) {
	sel := r.builder().Select(generationColumns...).
		From(entsql.Table(generationsTable)).
		OrderBy(entsql.Desc("sequence"))
	applyOpts(sel, opts)
	return r.scanGenerations(ctx, sel)
}

// GetGeneration looks a trace up by numeric ID or session ID. It returns
// nil when nothing matches.
func (r *TraceRepo) GetGeneration(ctx context.Context, key string) (*GenerationRecord, error) {
	var id int
	pred := entsql.EQ("session_id", key)
	if _, err := fmt.Sscanf(key, "%d", &id); err == nil && fmt.Sprint(id) == key {
		pred = entsql.EQ("id", id)
	}

	sel := r.builder().Select(generationColumns...).
		From(entsql.Table(generationsTable)).
		Where(pred).
		Limit(1)
	recs, err := r.scanGenerations(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (r *TraceRepo) scanGenerations(ctx context.Context, sel *entsql.Selector) ([]GenerationRecord, error) {
	q, args := sel.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("query generation traces: %w", err)
	}
	defer rows.Close()

	var out []GenerationRecord
	for rows.Next() {
		var g GenerationRecord
		if err := rows.Scan(
			&g.ID, &g.Sequence, &g.Timestamp, &g.SessionID, &g.Title, &g.Model, &g.Quota,
			&g.Requested, &g.ModelItems, &g.SynthItems, &g.Shortfall, &g.WinningTier,
			&g.States, &g.TierOutcomes, &g.DraftPrompt, &g.DraftText,
			&g.ConvertPrompt, &g.ConvertText, &g.DurationMs, &g.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan generation trace: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generation traces: %w", err)
	}
	return out, nil
}
