package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examforge/internal/exam"
)

var mcQuota = exam.QuotaSpec{exam.KindMultipleChoice: 1}

func TestChain_FullParse(t *testing.T) {
	text := "```json\n" + `{"questions": [{"kind": "mcq", "prompt_text": "Q?", "choices": ["1","2","3","4"], "correct_answer": "B", "points": 3}]}` + "\n```"

	res := NewChain(nil).Extract(text, mcQuota)

	require.Len(t, res.Items, 1)
	assert.Equal(t, TierFull, res.Tier)
	assert.Len(t, res.Outcomes, 1, "later tiers must not run")
	assert.Equal(t, "mcq", res.Items[0].String("kind"))
	assert.Equal(t, "3", res.Items[0].String("points"))
}

func TestChain_BareArray(t *testing.T) {
	res := NewChain(nil).Extract(`[{"kind":"tf","prompt_text":"Water is wet.","correct_answer":true}]`, mcQuota)

	require.Len(t, res.Items, 1)
	assert.Equal(t, TierFull, res.Tier)
	assert.Equal(t, "true", res.Items[0].String("correct_answer"))
}

func TestChain_BalancedMissingFinalBrace(t *testing.T) {
	text := `{"questions": [{"kind":"mcq","prompt_text":"Q?","choices":["A) 1","B) 2","C) 3","D) 4"],"correct_answer":"B"}`

	res := NewChain(nil).Extract(text, mcQuota)

	require.Len(t, res.Items, 1)
	assert.Equal(t, TierBalanced, res.Tier)
	assert.NotEmpty(t, res.Outcomes[0].Err, "full parse should have failed")
	assert.Equal(t, []string{"A) 1", "B) 2", "C) 3", "D) 4"}, res.Items[0].Strings("choices"))
}

func TestChain_BalancedTrailingGarbage(t *testing.T) {
	text := `Here you go: {"questions":[{"kind":"tf","prompt_text":"X {braced}","correct_answer":"true"}]} hope that helps }`

	res := NewChain(nil).Extract(text, mcQuota)

	require.Len(t, res.Items, 1)
	assert.Equal(t, TierBalanced, res.Tier)
	assert.Equal(t, "X {braced}", res.Items[0].String("prompt_text"))
}

func TestChain_BalancedTruncatedMidItem(t *testing.T) {
	text := `{"questions":[{"kind":"tf","prompt_text":"A","correct_answer":"true"},{"kind":"tf","prompt_text":"B","correct_ans`

	res := NewChain(nil).Extract(text, mcQuota)

	require.Len(t, res.Items, 1)
	assert.Equal(t, TierBalanced, res.Tier)
	assert.Equal(t, "A", res.Items[0].String("prompt_text"))
}

func TestChain_PatternFragments(t *testing.T) {
	text := `Questions:
{"kind":"tf","prompt_text":"Sky is blue","correct_answer":true}
{"kind":"mcq","prompt_text": broken}
{"type":"short","question":"Why?","answer":"Because"}
{"note": "not a question"}`

	res := NewChain(nil).Extract(text, mcQuota)

	require.Len(t, res.Items, 2)
	assert.Equal(t, TierPattern, res.Tier)
	assert.Equal(t, "Sky is blue", res.Items[0].String("prompt_text"))
	assert.Equal(t, "Why?", res.Items[1].String("prompt_text", "question"))
}

func TestChain_LineHeuristic(t *testing.T) {
	text := `Here are your questions.

1. What is encapsulation?
A) Bundling data and methods
B) Inheritance
C) Polymorphism
D) Abstraction
Correct answer: A

2) The sky is green.
Answer: false
Explanation: It is blue.

3. Explain inheritance
in your own words.
Answer: A class deriving from another.

4. An extra question beyond the quota.
Answer: x`

	quota := exam.QuotaSpec{exam.KindMultipleChoice: 1, exam.KindTrueFalse: 1, exam.KindShortAnswer: 1}
	res := NewChain(nil).Extract(text, quota)

	require.Len(t, res.Items, 4)
	assert.Equal(t, TierLine, res.Tier)

	mc := res.Items[0]
	assert.Equal(t, "multiple_choice", mc.String("kind"))
	assert.Equal(t, "What is encapsulation?", mc.String("prompt_text"))
	assert.Len(t, mc.Strings("choices"), 4)
	assert.Equal(t, "A", mc.String("correct_answer"))

	tf := res.Items[1]
	assert.Equal(t, "true_false", tf.String("kind"))
	assert.Equal(t, "false", tf.String("correct_answer"))
	assert.Equal(t, "It is blue.", tf.String("explanation"))

	short := res.Items[2]
	assert.Equal(t, "short_answer", short.String("kind"))
	assert.Equal(t, "Explain inheritance in your own words.", short.String("prompt_text"))

	assert.Empty(t, res.Items[3].String("kind"), "items past the quota get no kind")
}

func TestChain_NothingRecoverable(t *testing.T) {
	res := NewChain(nil).Extract("I'm sorry, I can't help with that.", mcQuota)

	assert.True(t, res.Unparsable())
	assert.Empty(t, res.Tier)
	assert.Len(t, res.Outcomes, 4)
}

type spyTier struct{ calls int }

func (s *spyTier) Name() string { return "spy" }

func (s *spyTier) Extract(string, exam.QuotaSpec) ([]RawItem, error) {
	s.calls++
	return nil, nil
}

func TestChain_StopsAtFirstSuccessfulTier(t *testing.T) {
	spy := &spyTier{}
	c := NewChain(nil, FullParse{}, spy)

	c.Extract(`{"questions":[{"kind":"mcq","prompt_text":"Q"}]}`, mcQuota)
	assert.Zero(t, spy.calls)

	c.Extract(`no json`, mcQuota)
	assert.Equal(t, 1, spy.calls)
}

func TestPositionalKind(t *testing.T) {
	quota := exam.QuotaSpec{exam.KindMultipleChoice: 2, exam.KindShortAnswer: 1, exam.KindCloze: 1}
	want := []exam.Kind{exam.KindMultipleChoice, exam.KindMultipleChoice, exam.KindShortAnswer, exam.KindCloze, ""}
	for i, k := range want {
		assert.Equal(t, k, positionalKind(i, quota), "item %d", i)
	}
}

func TestFirstObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"embedded", `Sure! {"score": 4, "rationale": "ok"} thanks`, `{"score": 4, "rationale": "ok"}`, true},
		{"escaped quote", `{"rationale": "said \"}\" loudly"}`, `{"rationale": "said \"}\" loudly"}`, true},
		{"truncated string", `{"score": 4, "rationale": "go`, `{"score": 4, "rationale": "go"}`, true},
		{"none", `Score: 4/6`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstObject(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawItem_Accessors(t *testing.T) {
	item := RawItem{
		"Kind":    "MCQ",
		"options": map[string]any{"B": "two", "A": "one", "D": "four", "C": "three"},
		"answer":  []any{"first", 2, ""},
		"empty":   "  ",
	}

	assert.Equal(t, "MCQ", item.String("kind"))
	assert.Equal(t, []string{"one", "two", "three", "four"}, item.Strings("choices", "options"))
	assert.Equal(t, "first; 2", item.String("empty", "answer"))
	assert.True(t, item.IsList("answer"))
	assert.False(t, item.IsList("Kind"))
	assert.Empty(t, item.String("missing"))

	raw := item.Raw()
	raw[0] = 'X'
	assert.NotEqual(t, raw, item.Raw(), "Raw must return a fresh copy")
}
