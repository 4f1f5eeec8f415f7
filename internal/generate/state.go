package generate

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/examforge/internal/extract"
	"github.com/abhisek/examforge/internal/normalize"
)

// State is a phase of one generation run.
type State int

const (
	StateDrafting State = iota
	StateConverting
	StateExtracting
	StateReconciling
	StateDone
)

var stateNames = [...]string{"drafting", "converting", "extracting", "reconciling", "done"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Transition is one recorded state change.
type Transition struct {
	From   State
	To     State
	Reason string
	At     time.Time
}

// Extraction sources.
const (
	SourceConversion = "conversion"
	SourceDraft      = "draft"
)

// Session is the transient view of one Generate call. It is never
// persisted as-is; the TraceSink receives a Trace built from it.
type Session struct {
	ID          string
	State       State
	Transitions []Transition

	// Extraction is the chain result for the text records came from.
	Extraction extract.Result

	// ExtractedFrom is SourceConversion or SourceDraft, or "" when
	// extraction never ran.
	ExtractedFrom string

	Report normalize.Report

	// Errors holds the recovered failures of this run.
	Errors []error

	logger *zap.Logger
}

func newSession(logger *zap.Logger) *Session {
	return &Session{
		ID:     uuid.NewString(),
		State:  StateDrafting,
		logger: logger,
	}
}

// enter moves the session to state to. Moving backwards is a bug.
func (s *Session) enter(to State, reason string) {
	if to <= s.State {
		panic("generate: invalid transition from " + s.State.String() + " to " + to.String())
	}
	s.Transitions = append(s.Transitions, Transition{From: s.State, To: to, Reason: reason, At: time.Now()})
	s.logger.Debug("generation state",
		zap.String("session", s.ID),
		zap.Stringer("from", s.State),
		zap.Stringer("to", to),
		zap.String("reason", reason),
	)
	s.State = to
}

// States returns the visited states in order, starting with drafting.
func (s *Session) States() []State {
	out := []State{StateDrafting}
	for _, t := range s.Transitions {
		out = append(out, t.To)
	}
	return out
}

func (s *Session) fail(err error) {
	s.Errors = append(s.Errors, err)
	s.logger.Warn("generation step recovered",
		zap.String("session", s.ID),
		zap.Stringer("state", s.State),
		zap.Error(err),
	)
}
