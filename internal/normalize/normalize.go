// Package normalize turns extracted raw items into validated question
// records and enforces per-kind quotas.
package normalize

import (
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/extract"
)

// Field keys accepted on raw items, in preference order.
var (
	kindKeys        = []string{"kind", "type", "question_type", "questionType"}
	promptKeys      = []string{"prompt_text", "prompt", "question", "question_text", "text", "stem"}
	choiceKeys      = []string{"choices", "options", "alternatives"}
	answerKeys      = []string{"correct_answer", "correctAnswer", "answer", "correct", "solution"}
	explanationKeys = []string{"explanation", "rationale", "feedback"}
)

// DropReason says why an item did not become a record.
type DropReason string

const (
	DropUnrecognizedKind DropReason = "unrecognized_kind"
	DropNotRequested     DropReason = "not_requested"
	DropQuotaExhausted   DropReason = "quota_exhausted"
	DropEmptyPrompt      DropReason = "empty_prompt"
	DropDuplicate        DropReason = "duplicate"
	DropBadChoices       DropReason = "bad_choices"
	DropBadAnswer        DropReason = "bad_answer"
	DropMissingAnswer    DropReason = "missing_answer"
	DropInvalid          DropReason = "invalid"
)

// Report summarizes one Apply call.
type Report struct {
	Seen    int                `json:"seen"`
	Kept    map[exam.Kind]int  `json:"kept"`
	Dropped map[DropReason]int `json:"dropped"`
}

// KeptTotal returns the number of records produced.
func (r Report) KeptTotal() int {
	n := 0
	for _, c := range r.Kept {
		n += c
	}
	return n
}

// DroppedTotal returns the number of discarded items.
func (r Report) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// Config controls record construction.
type Config struct {
	// Points overrides the default points per kind.
	Points map[exam.Kind]int `yaml:"points"`
}

// Filter promotes raw items to records.
type Filter struct {
	cfg    Config
	logger *zap.Logger
}

// NewFilter creates a Filter.
func NewFilter(cfg Config, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{cfg: cfg, logger: logger}
}

// Apply keeps, in input order, at most quota[k] valid records of each
// kind k. Everything else is dropped and counted in the Report.
func (f *Filter) Apply(items []extract.RawItem, quota exam.QuotaSpec) ([]exam.QuestionRecord, Report) {
	rep := Report{
		Seen:    len(items),
		Kept:    map[exam.Kind]int{},
		Dropped: map[DropReason]int{},
	}
	seen := map[string]bool{}
	var out []exam.QuestionRecord

	for _, item := range items {
		rec, reason := f.promote(item, quota, rep.Kept, seen)
		if reason != "" {
			rep.Dropped[reason]++
			continue
		}
		rep.Kept[rec.Kind]++
		out = append(out, rec)
	}

	f.logger.Info("normalized extracted items",
		zap.Int("seen", rep.Seen),
		zap.Int("kept", rep.KeptTotal()),
		zap.Int("dropped", rep.DroppedTotal()),
		zap.Any("kept_by_kind", rep.Kept),
		zap.Any("dropped_by_reason", rep.Dropped),
	)
	return out, rep
}

func (f *Filter) promote(item extract.RawItem, quota exam.QuotaSpec, kept map[exam.Kind]int, seen map[string]bool) (exam.QuestionRecord, DropReason) {
	kind := exam.ResolveKind(item.String(kindKeys...))
	switch {
	case kind == exam.KindUnrecognized:
		return exam.QuestionRecord{}, DropUnrecognizedKind
	case quota[kind] <= 0:
		return exam.QuestionRecord{}, DropNotRequested
	case kept[kind] >= quota[kind]:
		return exam.QuestionRecord{}, DropQuotaExhausted
	}

	rec := exam.NewRecord(kind)
	rec.Prompt = item.String(promptKeys...)
	if rec.Prompt == "" {
		return exam.QuestionRecord{}, DropEmptyPrompt
	}
	key := exam.NormalizeText(rec.Prompt)
	if seen[key] {
		return exam.QuestionRecord{}, DropDuplicate
	}
	rec.Explanation = item.String(explanationKeys...)
	if p := f.cfg.Points[kind]; p > 0 {
		rec.Points = p
	}

	if reason := fillAnswer(&rec, item); reason != "" {
		return exam.QuestionRecord{}, reason
	}

	rec.RawMetadata = item.Raw()
	if err := rec.Validate(); err != nil {
		f.logger.Debug("dropping invalid record", zap.Error(err))
		return exam.QuestionRecord{}, DropInvalid
	}
	seen[key] = true
	return rec, ""
}

// fillAnswer sets the kind-specific answer fields of rec.
func fillAnswer(rec *exam.QuestionRecord, item extract.RawItem) DropReason {
	answer := item.String(answerKeys...)

	switch rec.Kind {
	case exam.KindMultipleChoice:
		choices := item.Strings(choiceKeys...)
		if len(choices) < len(exam.ChoiceLetters) {
			return DropBadChoices
		}
		choices = choices[:len(exam.ChoiceLetters)]
		for i, c := range choices {
			choices[i] = exam.StripChoiceLabel(c)
		}
		letter, ok := exam.ParseChoiceLetter(answer, choices)
		if !ok {
			return DropBadAnswer
		}
		rec.Choices = choices
		rec.Answer = exam.TextAnswer(letter)

	case exam.KindTrueFalse:
		if answer == "" {
			return DropMissingAnswer
		}
		v, ok := exam.ParseTrueFalse(answer)
		if !ok {
			return DropBadAnswer
		}
		rec.Answer = exam.TextAnswer(v)

	default:
		if item.IsList(answerKeys...) {
			if points := item.Strings(answerKeys...); len(points) > 0 {
				rec.Answer = exam.KeyPointsAnswer(points...)
				return ""
			}
		}
		if answer == "" {
			answer = rec.Explanation
		}
		if strings.TrimSpace(answer) == "" {
			return DropMissingAnswer
		}
		rec.Answer = exam.TextAnswer(answer)
	}
	return ""
}
