package exam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChoiceLetters are the labels of the four multiple-choice options.
var ChoiceLetters = []string{"A", "B", "C", "D"}

// QuestionRecord is one assembled exam item.
type QuestionRecord struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Prompt string `json:"prompt_text"`

	// Choices holds exactly four options when Kind is multiple_choice
	// and is nil otherwise.
	Choices []string `json:"choices,omitempty"`

	// Answer is a choice letter for multiple_choice, "true"/"false" for
	// true_false, and free text or key points otherwise.
	Answer Answer `json:"correct_answer"`

	Points      int    `json:"points"`
	Explanation string `json:"explanation,omitempty"`

	Scheduling SchedulingFields `json:"scheduling"`

	// RawMetadata is the item exactly as the extractor saw it. It is
	// owned by the record and never shared.
	RawMetadata json.RawMessage `json:"raw_metadata,omitempty"`
}

// Answer is either a single text or an ordered key-point list.
type Answer struct {
	Value     string
	KeyPoints []string
}

// TextAnswer returns a single-text Answer.
func TextAnswer(s string) Answer { return Answer{Value: s} }

// KeyPointsAnswer returns a key-point Answer.
func KeyPointsAnswer(points ...string) Answer {
	return Answer{KeyPoints: append([]string(nil), points...)}
}

// IsList reports whether a holds key points.
func (a Answer) IsList() bool { return len(a.KeyPoints) > 0 }

// IsEmpty reports whether a carries no text at all.
func (a Answer) IsEmpty() bool {
	return strings.TrimSpace(a.Text()) == ""
}

// Text returns the answer as one string. Key points are joined with "; ".
func (a Answer) Text() string {
	if a.IsList() {
		return strings.Join(a.KeyPoints, "; ")
	}
	return a.Value
}

// MarshalJSON encodes a as a JSON string or array.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.IsList() {
		return json.Marshal(a.KeyPoints)
	}
	return json.Marshal(a.Value)
}

// UnmarshalJSON accepts a JSON string, array of strings, bool or number.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Answer{Value: s}
	case '[':
		var items []any
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		points := make([]string, 0, len(items))
		for _, it := range items {
			points = append(points, fmt.Sprint(it))
		}
		*a = Answer{KeyPoints: points}
	default:
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*a = Answer{Value: fmt.Sprint(v)}
	}
	return nil
}

// SchedulingFields is the spaced-repetition bookkeeping carried by every
// record. This package only initializes it.
type SchedulingFields struct {
	ID           string     `json:"id"`
	EaseFactor   float64    `json:"ease_factor"`
	IntervalDays int        `json:"interval_days"`
	Repetitions  int        `json:"repetitions"`
	LastReview   *time.Time `json:"last_review"`
	NextReview   *time.Time `json:"next_review"`
	State        string     `json:"state"`
}

const (
	DefaultEaseFactor   = 2.5
	DefaultIntervalDays = 1
	ReviewStateNew      = "new"
)

// NewScheduling returns the construction-time scheduling defaults.
func NewScheduling() SchedulingFields {
	return SchedulingFields{
		ID:           uuid.NewString(),
		EaseFactor:   DefaultEaseFactor,
		IntervalDays: DefaultIntervalDays,
		State:        ReviewStateNew,
	}
}

// NewRecord creates a record of kind k with a fresh identifier, default
// points and scheduling fields. Callers fill in the content.
func NewRecord(k Kind) QuestionRecord {
	return QuestionRecord{
		ID:         uuid.NewString(),
		Kind:       k,
		Points:     k.DefaultPoints(),
		Scheduling: NewScheduling(),
	}
}

// Validate checks that every canonical field is populated.
func (r *QuestionRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	if !r.Kind.IsCanonical() {
		return fmt.Errorf("%w: kind %q is not canonical", ErrInvalidRecord, r.Kind)
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: empty prompt", ErrInvalidRecord)
	}
	if r.Points <= 0 {
		return fmt.Errorf("%w: points must be positive", ErrInvalidRecord)
	}
	if r.Answer.IsEmpty() {
		return fmt.Errorf("%w: empty answer", ErrInvalidRecord)
	}
	switch r.Kind {
	case KindMultipleChoice:
		if len(r.Choices) != len(ChoiceLetters) {
			return fmt.Errorf("%w: multiple_choice needs %d choices, has %d", ErrInvalidRecord, len(ChoiceLetters), len(r.Choices))
		}
		if LetterIndex(r.Answer.Value) < 0 {
			return fmt.Errorf("%w: answer %q is not a choice letter", ErrInvalidRecord, r.Answer.Value)
		}
	case KindTrueFalse:
		if r.Answer.Value != "true" && r.Answer.Value != "false" {
			return fmt.Errorf("%w: true_false answer %q", ErrInvalidRecord, r.Answer.Value)
		}
	default:
		if r.Choices != nil {
			return fmt.Errorf("%w: %s must not carry choices", ErrInvalidRecord, r.Kind)
		}
	}
	if r.Scheduling.ID == "" || r.Scheduling.State == "" {
		return fmt.Errorf("%w: incomplete scheduling fields", ErrInvalidRecord)
	}
	return nil
}

// LetterIndex returns the 0-based index of a choice letter, or -1.
func LetterIndex(letter string) int {
	for i, l := range ChoiceLetters {
		if letter == l {
			return i
		}
	}
	return -1
}

// CorrectChoice returns the text of the correct option of a
// multiple_choice record, or "" for other kinds.
func (r *QuestionRecord) CorrectChoice() string {
	if r.Kind != KindMultipleChoice {
		return ""
	}
	i := LetterIndex(r.Answer.Value)
	if i < 0 || i >= len(r.Choices) {
		return ""
	}
	return r.Choices[i]
}

// Clone returns a deep copy of r.
func (r QuestionRecord) Clone() QuestionRecord {
	out := r
	if r.Choices != nil {
		out.Choices = append([]string(nil), r.Choices...)
	}
	if r.Answer.KeyPoints != nil {
		out.Answer.KeyPoints = append([]string(nil), r.Answer.KeyPoints...)
	}
	if r.RawMetadata != nil {
		out.RawMetadata = append(json.RawMessage(nil), r.RawMetadata...)
	}
	if r.Scheduling.LastReview != nil {
		t := *r.Scheduling.LastReview
		out.Scheduling.LastReview = &t
	}
	if r.Scheduling.NextReview != nil {
		t := *r.Scheduling.NextReview
		out.Scheduling.NextReview = &t
	}
	return out
}
