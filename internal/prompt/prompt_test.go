package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/llm"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		budget int
		want   string
	}{
		{"under budget", "short text", 100, "short text"},
		{"no budget", "anything at all", 0, "anything at all"},
		{"cut at word boundary", "alpha beta gamma delta", 13, "alpha beta"},
		{"cut exactly at space", "alpha beta gamma", 10, "alpha beta"},
		{"single long word", "supercalifragilistic", 5, "super"},
		{"multibyte runes", "perché così è", 9, "perché"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.text, tt.budget); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.budget, got, tt.want)
			}
		})
	}
}

func TestDraft_Template(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	quota := exam.QuotaSpec{exam.KindOpenQuestion: 1, exam.KindMultipleChoice: 2, exam.KindTrueFalse: 0}

	p := b.Draft("Encapsulation is the bundling of data and methods.", quota, "")

	if p.System == "" {
		t.Fatal("expected a system preamble")
	}
	if !strings.Contains(p.User, "Write 3 exam questions") {
		t.Errorf("missing total: %s", p.User)
	}
	mc := strings.Index(p.User, "- 2 of type multiple_choice")
	open := strings.Index(p.User, "- 1 of type open_question")
	if mc < 0 || open < 0 || mc > open {
		t.Errorf("kind blocks missing or out of order:\n%s", p.User)
	}
	if strings.Contains(p.User, "true_false") {
		t.Error("zero-quota kind should not get a block")
	}
	if !strings.Contains(p.User, "Correct answer: <letter>") {
		t.Error("missing multiple choice format")
	}
	if !strings.HasSuffix(p.User, "Encapsulation is the bundling of data and methods.\n\"\"\"") {
		t.Errorf("source text should come last:\n%s", p.User)
	}

	if again := b.Draft("Encapsulation is the bundling of data and methods.", quota, ""); again != p {
		t.Error("Draft is not deterministic")
	}
}

func TestDraft_TruncatesSource(t *testing.T) {
	b := NewBuilder(Config{SourceBudget: 10})
	p := b.Draft("first second third fourth", exam.QuotaSpec{exam.KindCloze: 1}, "")
	if !strings.Contains(p.User, "\"\"\"\nfirst\n\"\"\"") {
		t.Errorf("source not truncated:\n%s", p.User)
	}
}

func TestDraft_Override(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	p := b.Draft("ignored source", exam.QuotaSpec{exam.KindMultipleChoice: 1}, "  My own instruction.\n")
	if p.System != "" {
		t.Errorf("override should carry no system prompt, got %q", p.System)
	}
	if p.User != "  My own instruction.\n" {
		t.Errorf("override not verbatim: %q", p.User)
	}
	if p.Text() != p.User {
		t.Errorf("Text() = %q", p.Text())
	}
}

func TestPrompt_Request(t *testing.T) {
	p := Prompt{System: "sys", User: "user"}

	chat := p.Request(llm.ModeChat)
	if chat.System != "sys" || len(chat.Messages) != 1 || chat.Messages[0].Content != "user" {
		t.Errorf("unexpected chat request: %+v", chat)
	}

	completion := p.Request(llm.ModeCompletion)
	if completion.Mode != llm.ModeCompletion || completion.Prompt != "sys\n\nuser" {
		t.Errorf("unexpected completion request: %+v", completion)
	}
}

func TestConversion(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	p := b.Conversion("1. What is X?\nAnswer: Y", exam.QuotaSpec{exam.KindShortAnswer: 1, exam.KindMultipleChoice: 2})

	for _, want := range []string{
		`"kind" is one of: multiple_choice, short_answer.`,
		"Expected counts: multiple_choice=2,short_answer=1.",
		"Questions:\n1. What is X?\nAnswer: Y",
		`{"questions": [`,
	} {
		if !strings.Contains(p.User, want) {
			t.Errorf("conversion prompt missing %q:\n%s", want, p.User)
		}
	}
}

func TestRubric(t *testing.T) {
	b := NewBuilder(DefaultConfig())

	rec := exam.NewRecord(exam.KindOpenQuestion)
	rec.Prompt = "Describe encapsulation."
	rec.Answer = exam.KeyPointsAnswer("bundles data", "hides state")

	p := b.Rubric(rec, "It hides things.")
	for _, want := range []string{
		"Question: Describe encapsulation.",
		"- bundles data\n- hides state\n",
		"Maximum points: 6",
		"It hides things.",
		"Score: N/6",
	} {
		if !strings.Contains(p.User, want) {
			t.Errorf("rubric missing %q:\n%s", want, p.User)
		}
	}

	rec.Answer = exam.TextAnswer("Bundling data with methods.")
	p = b.Rubric(rec, "x")
	if !strings.Contains(p.User, "Expected answer: Bundling data with methods.") {
		t.Errorf("rubric missing expected answer:\n%s", p.User)
	}
}

func TestQuestionSetSchema_AcceptsConvertedSet(t *testing.T) {
	doc := map[string]any{
		"questions": []any{
			map[string]any{
				"kind":           "multiple_choice",
				"prompt_text":    "Q?",
				"choices":        []any{"1", "2", "3", "4"},
				"correct_answer": "B",
				"explanation":    "",
				"points":         3,
			},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	mock := llm.NewMockProvider(llm.MockResponse{Content: data})
	if _, err := mock.Generate(t.Context(), llm.Request{Schema: QuestionSetSchema}); err != nil {
		t.Fatalf("schema rejected a valid set: %v", err)
	}

	bad := llm.NewMockProvider(llm.MockText(`{"questions":[{"kind":"matching"}]}`))
	if _, err := bad.Generate(t.Context(), llm.Request{Schema: QuestionSetSchema}); err == nil {
		t.Fatal("schema accepted an invalid set")
	}
}
