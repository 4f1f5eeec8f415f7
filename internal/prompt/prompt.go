// Package prompt renders the instructions sent to the inference backend
// for drafting, conversion and answer scoring.
package prompt

import (
	"bytes"
	"strings"
	"text/template"
	"unicode"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/llm"
)

// Config controls prompt rendering.
type Config struct {
	// SourceBudget is the maximum number of source runes included in the
	// draft prompt. Zero disables truncation.
	SourceBudget int `yaml:"source_budget"`
}

// DefaultConfig returns the recommended prompt settings.
func DefaultConfig() Config {
	return Config{SourceBudget: 6000}
}

// Prompt is a rendered instruction. System is empty when the caller
// supplied its own instruction.
type Prompt struct {
	System string
	User   string
}

// Messages returns the prompt as a chat message list.
func (p Prompt) Messages() []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: p.User}}
}

// Text returns the prompt as one completion-mode string.
func (p Prompt) Text() string {
	if p.System == "" {
		return p.User
	}
	return p.System + "\n\n" + p.User
}

// Request builds a backend request for p in the given mode.
func (p Prompt) Request(mode llm.Mode) llm.Request {
	if mode == llm.ModeCompletion {
		return llm.Request{Mode: llm.ModeCompletion, Prompt: p.Text()}
	}
	return llm.Request{Mode: llm.ModeChat, System: p.System, Messages: p.Messages()}
}

// Builder renders prompts. It is safe for concurrent use.
type Builder struct {
	cfg Config
}

// NewBuilder creates a Builder.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// Truncate keeps the first budget runes of text, cut back to the last
// word boundary. The excess tail is discarded. A budget of zero or less
// returns text unchanged.
func Truncate(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	kept := runes[:budget]
	if !unicode.IsSpace(runes[budget]) {
		for i := len(kept) - 1; i > 0; i-- {
			if unicode.IsSpace(kept[i]) {
				kept = kept[:i]
				break
			}
		}
	}
	return strings.TrimRightFunc(string(kept), unicode.IsSpace)
}

// render executes a fixed template. Execution only fails on a template bug.
func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		panic("prompt: " + err.Error())
	}
	return buf.String()
}

// kindFormats is the literal layout requested for each kind in the draft.
var kindFormats = map[exam.Kind]string{
	exam.KindMultipleChoice: "1. <question>\n   A) <option>\n   B) <option>\n   C) <option>\n   D) <option>\n   Correct answer: <letter>",
	exam.KindTrueFalse:      "1. <statement>\n   Answer: true or false",
	exam.KindShortAnswer:    "1. <question>\n   Answer: <one or two sentences>",
	exam.KindOpenQuestion:   "1. <question>\n   Answer: <the key points a full answer covers>",
	exam.KindFlashcard:      "1. <term or concept>\n   Answer: <its definition>",
	exam.KindCloze:          "1. <sentence with ____ in place of a key term>\n   Answer: <the missing term>",
}

type kindBlock struct {
	Count  int
	Kind   exam.Kind
	Format string
}

func blocks(quota exam.QuotaSpec) []kindBlock {
	var out []kindBlock
	for _, k := range quota.Kinds() {
		out = append(out, kindBlock{
			Count:  quota[k],
			Kind:   k,
			Format: kindFormats[k],
		})
	}
	return out
}
