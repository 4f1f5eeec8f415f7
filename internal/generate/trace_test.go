package generate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/extract"
	"github.com/abhisek/examforge/internal/llm"
	"github.com/abhisek/examforge/internal/store"
)

func TestTraceSinkReceivesRun(t *testing.T) {
	var got []Trace
	sink := TraceSinkFunc(func(_ context.Context, tr Trace) error {
		got = append(got, tr)
		return nil
	})
	p := llm.NewMockProvider(llm.MockText(draftText), llm.MockText(convertedJSON))
	o := newTestOrchestrator(t, p, nil, WithTraceSink(sink))
	quota := exam.QuotaSpec{exam.KindMultipleChoice: 2, exam.KindTrueFalse: 2}

	res, err := o.Generate(WithTitle(t.Context(), "oop.txt"), sourceText, quota, "")
	require.NoError(t, err)
	require.Len(t, got, 1)

	tr := got[0]
	assert.Equal(t, res.Session.ID, tr.SessionID)
	assert.Equal(t, "oop.txt", tr.Title)
	assert.Equal(t, "mock", tr.Model)
	assert.Equal(t, quota, tr.Quota)
	assert.Equal(t, allStates, tr.States)
	assert.Equal(t, draftText, tr.DraftText)
	assert.Equal(t, convertedJSON, tr.ConvertText)
	assert.Contains(t, tr.DraftPrompt, "Encapsulation is the bundling")
	assert.Contains(t, tr.ConvertPrompt, draftText)
	assert.Equal(t, SourceConversion, tr.ExtractedFrom)
	assert.Equal(t, extract.TierFull, tr.WinningTier)
	require.Len(t, tr.Outcomes, 1)
	assert.Equal(t, 3, tr.Outcomes[0].Items)
	assert.Equal(t, map[exam.Kind]int{exam.KindMultipleChoice: 2, exam.KindTrueFalse: 1}, tr.ModelItems)
	assert.Equal(t, map[exam.Kind]int{exam.KindTrueFalse: 1}, tr.SynthItems)
	assert.Empty(t, tr.Shortfall)
	assert.Empty(t, tr.Errors)
}

func TestFailingSinkDoesNotFailGeneration(t *testing.T) {
	sink := TraceSinkFunc(func(context.Context, Trace) error { return errors.New("disk full") })
	o := newTestOrchestrator(t, llm.NewMockProvider(), nil, WithTraceSink(sink))

	res, err := o.Generate(t.Context(), sourceText, exam.QuotaSpec{exam.KindTrueFalse: 1}, "")
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestStoreSink(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	repo := s.EventRepo()
	p := llm.NewMockProvider(llm.MockText(draftText), llm.MockError(&llm.ErrProviderUnavailable{}))
	o := newTestOrchestrator(t, p, nil, WithTraceSink(NewStoreSink(repo)))

	res, err := o.Generate(WithTitle(t.Context(), "notes"), "", exam.QuotaSpec{exam.KindMultipleChoice: 2, exam.KindCloze: 1}, "")
	require.NoError(t, err)

	recs, err := repo.QueryGenerations(t.Context(), store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	g := recs[0]
	assert.Equal(t, res.Session.ID, g.SessionID)
	assert.Equal(t, "notes", g.Title)
	assert.Equal(t, "multiple_choice=2,cloze=1", g.Quota)
	assert.Equal(t, 3, g.Requested)
	assert.Equal(t, 1, g.ModelItems)
	assert.Equal(t, 2, g.SynthItems)
	assert.Empty(t, g.Shortfall)
	assert.Equal(t, extract.TierLine, g.WinningTier)
	assert.JSONEq(t, `["drafting","converting","extracting","reconciling","done"]`, g.States)
	assert.JSONEq(t, `[{"tier":"full","items":0,"error":"no JSON object found"},{"tier":"balanced","items":0,"error":"no JSON object found"},{"tier":"pattern","items":0},{"tier":"line","items":2}]`, g.TierOutcomes)
	assert.Equal(t, draftText, g.DraftText)
	assert.Contains(t, g.ErrorMessage, "inference backend unavailable")

	byID, err := repo.GetGeneration(t.Context(), res.Session.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, g.ID, byID.ID)
}

func TestTraceGenerationDataEmptyRun(t *testing.T) {
	data, err := Trace{Quota: exam.QuotaSpec{exam.KindTrueFalse: 1}}.generationData()
	require.NoError(t, err)
	assert.Equal(t, "[]", data.States)
	assert.Equal(t, "[]", data.TierOutcomes)
	assert.Equal(t, 1, data.Requested)
	assert.Zero(t, data.ModelItems)
}
