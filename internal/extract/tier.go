package extract

import (
	"errors"
	"regexp"
	"strings"

	"github.com/abhisek/examforge/internal/exam"
)

// Tier is one extraction strategy. Extract returns the items it found,
// or none. The error is diagnostic only and ends up in the trace.
type Tier interface {
	Name() string
	Extract(text string, quota exam.QuotaSpec) ([]RawItem, error)
}

// Tier names, strictest first.
const (
	TierFull     = "full"
	TierBalanced = "balanced"
	TierPattern  = "pattern"
	TierLine     = "line"
)

var errNoObject = errors.New("no JSON object found")

// DefaultTiers returns the fixed tier order used by generation.
func DefaultTiers() []Tier {
	return []Tier{FullParse{}, BalancedParse{}, PatternParse{}, LineParse{}}
}

// FullParse decodes the text between the first '{' and the last '}' as
// one document. A bare top-level array is accepted too.
type FullParse struct{}

func (FullParse) Name() string { return TierFull }

func (FullParse) Extract(text string, _ exam.QuotaSpec) ([]RawItem, error) {
	lo, hi := byte('{'), byte('}')
	obj := strings.IndexByte(text, '{')
	if arr := strings.IndexByte(text, '['); arr >= 0 && (obj < 0 || arr < obj) {
		lo, hi = '[', ']'
	}
	i := strings.IndexByte(text, lo)
	j := strings.LastIndexByte(text, hi)
	if i < 0 || j <= i {
		return nil, errNoObject
	}
	doc, err := decode(text[i : j+1])
	if err != nil {
		return nil, err
	}
	return itemsFrom(doc), nil
}

// BalancedParse finds the object that actually closes the first '{',
// ignoring trailing garbage, and auto-closes truncated output.
type BalancedParse struct{}

func (BalancedParse) Name() string { return TierBalanced }

func (BalancedParse) Extract(text string, _ exam.QuotaSpec) ([]RawItem, error) {
	s := scanBalanced(text)
	candidates := s.repairs
	if s.complete != "" {
		candidates = []string{s.complete}
	}
	if len(candidates) == 0 {
		return nil, errNoObject
	}
	var lastErr error
	for _, c := range candidates {
		doc, err := decode(c)
		if err != nil {
			lastErr = err
			continue
		}
		if items := itemsFrom(doc); len(items) > 0 {
			return items, nil
		}
	}
	return nil, lastErr
}

var (
	flatObject = regexp.MustCompile(`\{[^{}]*\}`)
	kindKey    = regexp.MustCompile(`(?i)"(?:kind|type|question_type|questionType)"\s*:`)
	promptKey  = regexp.MustCompile(`(?i)"(?:prompt_text|prompt|question|question_text|text|stem)"\s*:`)
)

// PatternParse decodes every flat object fragment that names a kind and
// a prompt. Fragments that fail to decode are dropped.
type PatternParse struct{}

func (PatternParse) Name() string { return TierPattern }

func (PatternParse) Extract(text string, _ exam.QuotaSpec) ([]RawItem, error) {
	var out []RawItem
	for _, frag := range flatObject.FindAllString(text, -1) {
		if !kindKey.MatchString(frag) || !promptKey.MatchString(frag) {
			continue
		}
		doc, err := decode(frag)
		if err != nil {
			continue
		}
		if m, ok := doc.(map[string]any); ok {
			out = append(out, RawItem(m))
		}
	}
	return out, nil
}

var (
	numberedLine = regexp.MustCompile(`^\s*(?:Q(?:uestion)?\s*)?(\d+)\s*[.)]\s*(.*)$`)
	choiceLine   = regexp.MustCompile(`^\s*\(?([A-Da-d])[.)]\s*(.*)$`)
	answerLine   = regexp.MustCompile(`(?i)(?:correct\s+answer|answer)\s*(?:is)?\s*[:\-]?\s*(.*)$`)
	explainLine  = regexp.MustCompile(`(?i)^\s*(?:explanation|rationale)\s*:\s*(.*)$`)
)

// positionalKinds is the order in which LineParse assigns kinds.
var positionalKinds = exam.Kinds

// LineParse walks numbered lines. Kinds are assigned by position: the
// Nth item gets the kind whose cumulative quota window contains N.
type LineParse struct{}

func (LineParse) Name() string { return TierLine }

func (LineParse) Extract(text string, quota exam.QuotaSpec) ([]RawItem, error) {
	var (
		items []RawItem
		cur   *lineItem
	)
	flush := func() {
		if cur != nil && strings.TrimSpace(cur.prompt) != "" {
			items = append(items, cur.raw(positionalKind(len(items), quota)))
		}
		cur = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			flush()
			cur = &lineItem{prompt: strings.TrimSpace(m[2])}
			continue
		}
		if cur == nil {
			continue
		}
		if m := explainLine.FindStringSubmatch(line); m != nil {
			cur.explanation = strings.TrimSpace(m[1])
			continue
		}
		if isAnswerLine(line) {
			if m := answerLine.FindStringSubmatch(line); m != nil {
				cur.answer = strings.TrimSpace(m[1])
			}
			continue
		}
		if m := choiceLine.FindStringSubmatch(line); m != nil {
			cur.choices = append(cur.choices, strings.TrimSpace(m[2]))
			continue
		}
		if len(cur.choices) == 0 && cur.answer == "" {
			cur.prompt = strings.TrimSpace(cur.prompt + " " + strings.TrimSpace(line))
		}
	}
	flush()
	return items, nil
}

func isAnswerLine(line string) bool {
	l := strings.ToLower(line)
	return strings.Contains(l, "correct answer") || strings.Contains(l, "answer:")
}

// positionalKind returns the kind for the n-th (0-based) item, or "" when
// n is past the end of the quota.
func positionalKind(n int, quota exam.QuotaSpec) exam.Kind {
	end := 0
	for _, k := range positionalKinds {
		end += max(quota[k], 0)
		if n < end {
			return k
		}
	}
	return ""
}

type lineItem struct {
	prompt      string
	choices     []string
	answer      string
	explanation string
}

func (l *lineItem) raw(kind exam.Kind) RawItem {
	item := RawItem{
		"kind":        string(kind),
		"prompt_text": l.prompt,
	}
	if len(l.choices) > 0 {
		choices := make([]any, len(l.choices))
		for i, c := range l.choices {
			choices[i] = c
		}
		item["choices"] = choices
	}
	if l.answer != "" {
		item["correct_answer"] = l.answer
	}
	if l.explanation != "" {
		item["explanation"] = l.explanation
	}
	return item
}
