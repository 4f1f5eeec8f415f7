package normalize

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/extract"
)

func list(items ...any) []any { return items }

var ignoreGenerated = cmpopts.IgnoreFields(exam.QuestionRecord{}, "ID", "Scheduling", "RawMetadata")

func TestApply_MultipleChoiceAlias(t *testing.T) {
	items := []extract.RawItem{{
		"kind":           "mcq",
		"prompt_text":    "Q?",
		"choices":        list("A) 1", "B) 2", "C) 3", "D) 4"),
		"correct_answer": "B",
	}}

	recs, rep := NewFilter(Config{}, nil).Apply(items, exam.QuotaSpec{exam.KindMultipleChoice: 1})

	want := []exam.QuestionRecord{{
		Kind:    exam.KindMultipleChoice,
		Prompt:  "Q?",
		Choices: []string{"1", "2", "3", "4"},
		Answer:  exam.TextAnswer("B"),
		Points:  3,
	}}
	if diff := cmp.Diff(want, recs, ignoreGenerated); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, rep.Kept[exam.KindMultipleChoice])
	assert.Zero(t, rep.DroppedTotal())

	require.Len(t, recs, 1)
	assert.Equal(t, 2.5, recs[0].Scheduling.EaseFactor)
	assert.NotEmpty(t, recs[0].Scheduling.ID)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(recs[0].RawMetadata, &raw))
	assert.Equal(t, "mcq", raw["kind"])
}

func TestApply_QuotaCaps(t *testing.T) {
	var items []extract.RawItem
	for _, p := range []string{"One is one.", "Two is two.", "Three is three."} {
		items = append(items, extract.RawItem{"type": "True/False", "question": p, "answer": "yes"})
	}
	items = append(items, extract.RawItem{"kind": "essay", "prompt_text": "Discuss.", "correct_answer": "Anything."})

	recs, rep := NewFilter(Config{}, nil).Apply(items, exam.QuotaSpec{exam.KindTrueFalse: 2})

	require.Len(t, recs, 2)
	assert.Equal(t, "One is one.", recs[0].Prompt)
	assert.Equal(t, "true", recs[1].Answer.Value)
	assert.Equal(t, 1, rep.Dropped[DropQuotaExhausted])
	assert.Equal(t, 1, rep.Dropped[DropNotRequested])
	assert.Equal(t, 4, rep.Seen)
}

func TestApply_DropReasons(t *testing.T) {
	quota := exam.QuotaSpec{
		exam.KindMultipleChoice: 5,
		exam.KindTrueFalse:      5,
		exam.KindShortAnswer:    5,
	}
	tests := []struct {
		name   string
		item   extract.RawItem
		reason DropReason
	}{
		{"unknown kind", extract.RawItem{"kind": "matching", "prompt_text": "Q"}, DropUnrecognizedKind},
		{"missing kind", extract.RawItem{"prompt_text": "Q"}, DropUnrecognizedKind},
		{"empty prompt", extract.RawItem{"kind": "short", "prompt_text": "  ", "answer": "x"}, DropEmptyPrompt},
		{"three choices", extract.RawItem{"kind": "mcq", "prompt_text": "Q", "choices": list("a", "b", "c"), "answer": "A"}, DropBadChoices},
		{"unresolvable letter", extract.RawItem{"kind": "mcq", "prompt_text": "Q", "choices": list("a", "b", "c", "d"), "answer": "F"}, DropBadAnswer},
		{"tf without answer", extract.RawItem{"kind": "tf", "prompt_text": "Q"}, DropMissingAnswer},
		{"tf maybe", extract.RawItem{"kind": "tf", "prompt_text": "Q", "answer": "maybe"}, DropBadAnswer},
		{"short without answer", extract.RawItem{"kind": "short", "prompt_text": "Q"}, DropMissingAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, rep := NewFilter(Config{}, nil).Apply([]extract.RawItem{tt.item}, quota)
			assert.Empty(t, recs)
			assert.Equal(t, 1, rep.Dropped[tt.reason], "dropped: %v", rep.Dropped)
		})
	}
}

func TestApply_MultipleChoiceDetails(t *testing.T) {
	items := []extract.RawItem{
		{
			"kind":    "multiple choice",
			"prompt":  "Six choices, answer by text?",
			"options": list("alpha", "beta", "gamma", "delta", "epsilon", "zeta"),
			"answer":  "gamma",
		},
		{
			"kind":           "MCQ",
			"prompt_text":    "Answer is the fifth option",
			"choices":        list("a1", "b1", "c1", "d1", "e1"),
			"correct_answer": "e1",
		},
	}

	recs, rep := NewFilter(Config{}, nil).Apply(items, exam.QuotaSpec{exam.KindMultipleChoice: 2})

	require.Len(t, recs, 1)
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, recs[0].Choices)
	assert.Equal(t, "C", recs[0].Answer.Value)
	assert.Equal(t, 1, rep.Dropped[DropBadAnswer])
}

func TestApply_OpenKinds(t *testing.T) {
	items := []extract.RawItem{
		{"kind": "open-ended", "prompt_text": "Describe OOP.", "correct_answer": list("objects", "messages")},
		{"kind": "short answer", "prompt_text": "Define class.", "explanation": "A blueprint for objects."},
		{"kind": "cloze", "prompt_text": "A ____ is a blueprint.", "answer": "class"},
	}
	quota := exam.QuotaSpec{exam.KindOpenQuestion: 1, exam.KindShortAnswer: 1, exam.KindCloze: 1}

	recs, _ := NewFilter(Config{Points: map[exam.Kind]int{exam.KindOpenQuestion: 10}}, nil).Apply(items, quota)

	want := []exam.QuestionRecord{
		{Kind: exam.KindOpenQuestion, Prompt: "Describe OOP.", Answer: exam.KeyPointsAnswer("objects", "messages"), Points: 10},
		{Kind: exam.KindShortAnswer, Prompt: "Define class.", Answer: exam.TextAnswer("A blueprint for objects."), Explanation: "A blueprint for objects.", Points: 4},
		{Kind: exam.KindCloze, Prompt: "A ____ is a blueprint.", Answer: exam.TextAnswer("class"), Points: 2},
	}
	if diff := cmp.Diff(want, recs, ignoreGenerated); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_DropsDuplicatePrompts(t *testing.T) {
	items := []extract.RawItem{
		{"kind": "tf", "prompt_text": "The sky is blue.", "answer": "true"},
		{"kind": "tf", "prompt_text": "the  sky is BLUE", "answer": "true"},
	}

	recs, rep := NewFilter(Config{}, nil).Apply(items, exam.QuotaSpec{exam.KindTrueFalse: 2})

	assert.Len(t, recs, 1)
	assert.Equal(t, 1, rep.Dropped[DropDuplicate])
}

func TestApply_InvariantsHoldForEveryRecord(t *testing.T) {
	var items []extract.RawItem
	for _, alias := range []string{"mcq", "tf", "short", "essay", "card", "gap", "mc", "boolean"} {
		items = append(items, extract.RawItem{
			"kind":           alias,
			"prompt_text":    "Question about " + alias,
			"choices":        list("w", "x", "y", "z"),
			"correct_answer": "true",
		})
	}
	quota := exam.QuotaSpec{}
	for _, k := range exam.Kinds {
		quota[k] = 1
	}

	recs, rep := NewFilter(Config{}, nil).Apply(items, quota)

	for _, r := range recs {
		assert.NoError(t, r.Validate())
		assert.True(t, r.Kind.IsCanonical())
		if r.Kind != exam.KindMultipleChoice {
			assert.Nil(t, r.Choices)
		}
	}
	for k, n := range rep.Kept {
		assert.LessOrEqual(t, n, quota[k], "kind %s", k)
	}
}

func TestApply_LogsOneSummary(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := NewFilter(Config{}, zap.New(core))

	f.Apply([]extract.RawItem{{"kind": "matching"}}, exam.QuotaSpec{exam.KindCloze: 1})

	entries := logs.FilterMessage("normalized extracted items").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["dropped"])
}
