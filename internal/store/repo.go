package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit     int       // max results (0 = unlimited)
	After     int64     // sequence > After
	Before    int64     // sequence < Before
	From      time.Time // timestamp >= From
	To        time.Time // timestamp <= To
	Purpose   string    // LLM events only
	SessionID string
}

// LLMRequestEventData captures the data for a single backend request event.
type LLMRequestEventData struct {
	SessionID    string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	Cached       bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEventRecord is a stored LLM request event.
type LLMEventRecord struct {
	LLMRequestEventData
	ID        int
	Sequence  int64
	Timestamp time.Time
}

// UsageStat aggregates LLM usage for one purpose or model.
type UsageStat struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// GenerationData captures one generation run for the trace log.
type GenerationData struct {
	SessionID     string
	Title         string
	Model         string
	Quota         string
	Requested     int
	ModelItems    int
	SynthItems    int
	Shortfall     string
	WinningTier   string
	States        string
	TierOutcomes  string
	DraftPrompt   string
	DraftText     string
	ConvertPrompt string
	ConvertText   string
	DurationMs    int64
	ErrorMessage  string
}

// GenerationRecord is a stored generation trace.
type GenerationRecord struct {
	GenerationData
	ID        int
	Sequence  int64
	Timestamp time.Time
}

// EventRepo provides append access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records a backend call.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// GenerationRepo provides append access to generation traces.
type GenerationRepo interface {
	AppendGeneration(ctx context.Context, data GenerationData) error
}
