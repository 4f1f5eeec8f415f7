package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil database handle")
	}
	if s.Dialect() != dialect.SQLite {
		t.Errorf("dialect = %q, want sqlite3", s.Dialect())
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)

	for _, table := range []string{llmEventsTable, generationsTable, sequenceTable} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("query sqlite_master for %s: %v", table, err)
		}
	}
}

func TestReopenKeepsSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.EventRepo().AppendLLMRequest(ctx, LLMRequestEventData{Purpose: "draft", Success: true}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EventRepo().AppendLLMRequest(ctx, LLMRequestEventData{Purpose: "convert", Success: true}))

	events, err := s.EventRepo().QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].Sequence)
	assert.Equal(t, int64(1), events[1].Sequence)
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestLLMEventsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
		SessionID:    "sess-1",
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		Purpose:      "draft",
		InputTokens:  100,
		OutputTokens: 50,
		LatencyMs:    200,
		Success:      true,
		RequestBody:  "[user]\nwrite questions",
		ResponseBody: "1. What is X?",
	}))
	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
		SessionID:    "sess-1",
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		Purpose:      "convert",
		InputTokens:  300,
		OutputTokens: 120,
		LatencyMs:    400,
		Success:      false,
		ErrorMessage: "rate limited",
	}))

	events, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "convert", events[0].Purpose, "newest first")
	assert.False(t, events[0].Success)
	assert.Equal(t, "rate limited", events[0].ErrorMessage)
	assert.WithinDuration(t, time.Now(), events[0].Timestamp, time.Minute)

	filtered, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "draft"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "1. What is X?", filtered[0].ResponseBody)

	limited, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 1, Before: events[0].Sequence})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "draft", limited[0].Purpose)

	got, err := repo.GetLLMEvent(ctx, filtered[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "[user]\nwrite questions", got.RequestBody)
	assert.Equal(t, "sess-1", got.SessionID)

	missing, err := repo.GetLLMEvent(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLLMUsageAggregates(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for _, e := range []LLMRequestEventData{
		{Model: "gpt-4o-mini", Purpose: "draft", InputTokens: 100, OutputTokens: 10, LatencyMs: 100, Success: true},
		{Model: "gpt-4o-mini", Purpose: "convert", InputTokens: 200, OutputTokens: 20, LatencyMs: 300, Success: true},
		{Model: "claude-haiku-4-5", Purpose: "draft", InputTokens: 50, OutputTokens: 5, LatencyMs: 200, Success: true},
		{Model: "gpt-4o-mini", Purpose: "draft", InputTokens: 100, OutputTokens: 10, Success: true, Cached: true},
	} {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, UsageStat{Purpose: "convert", Calls: 1, InputTokens: 200, OutputTokens: 20, AvgLatencyMs: 300}, byPurpose[0])
	assert.Equal(t, UsageStat{Purpose: "draft", Calls: 2, InputTokens: 150, OutputTokens: 15, AvgLatencyMs: 150}, byPurpose[1])

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, "claude-haiku-4-5", byModel[0].Model)
	assert.Equal(t, 2, byModel[1].Calls, "cached replays are not billed")
}

func TestGenerationTraces(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, repo.AppendGeneration(ctx, GenerationData{
		SessionID:   "sess-a",
		Title:       "oop.txt",
		Model:       "mock",
		Quota:       "multiple_choice=2",
		Requested:   2,
		ModelItems:  1,
		SynthItems:  1,
		WinningTier: "balanced",
		States:      "drafting,converting,extracting,reconciling,done",
		DurationMs:  12,
	}))
	require.NoError(t, repo.AppendGeneration(ctx, GenerationData{
		SessionID: "sess-b",
		Requested: 3,
		Shortfall: "short_answer=1",
	}))

	recs, err := repo.QueryGenerations(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "sess-b", recs[0].SessionID)

	bySession, err := repo.GetGeneration(ctx, "sess-a")
	require.NoError(t, err)
	require.NotNil(t, bySession)
	assert.Equal(t, "balanced", bySession.WinningTier)
	assert.Equal(t, 1, bySession.SynthItems)

	byID, err := repo.GetGeneration(ctx, "2")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "short_answer=1", byID.Shortfall)

	none, err := repo.GetGeneration(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEnsureDirSkipsNonPaths(t *testing.T) {
	assert.NoError(t, EnsureDir("postgres://user@localhost/examforge"))
	assert.NoError(t, EnsureDir("file::memory:?cache=shared"))

	dir := t.TempDir()
	require.NoError(t, EnsureDir(filepath.Join(dir, "nested", "trace.db")))
	assert.DirExists(t, filepath.Join(dir, "nested"))
}
