// Package synth derives exam questions directly from source text. It
// never calls the inference backend and is fully deterministic apart
// from record identifiers.
package synth

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/prompt"
)

// Config controls sentence selection and record construction.
type Config struct {
	MinSentenceRunes int `yaml:"min_sentence_runes"`
	MaxSentenceRunes int `yaml:"max_sentence_runes"`
	MinWords         int `yaml:"min_words"`

	// MaxAnswerRunes bounds paragraph answers of open questions.
	MaxAnswerRunes int `yaml:"max_answer_runes"`

	// Points overrides the default points per kind.
	Points map[exam.Kind]int `yaml:"points"`
}

// DefaultConfig returns the standard synthesis settings.
func DefaultConfig() Config {
	return Config{
		MinSentenceRunes: 25,
		MaxSentenceRunes: 400,
		MinWords:         4,
		MaxAnswerRunes:   600,
	}
}

// PlaceholderSentence backs the generic pool used when the source has
// no usable sentences.
const PlaceholderSentence = "The source material provided for this exam is too short to derive specific questions from."

const placeholderConcept = "source material"

// Synthesizer builds fallback questions from source text.
type Synthesizer struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Synthesizer. Zero thresholds in cfg take their
// DefaultConfig values.
func New(cfg Config, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{cfg: cfg.withDefaults(), logger: logger}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MinSentenceRunes <= 0 {
		c.MinSentenceRunes = def.MinSentenceRunes
	}
	if c.MaxSentenceRunes <= 0 {
		c.MaxSentenceRunes = def.MaxSentenceRunes
	}
	if c.MinWords <= 0 {
		c.MinWords = def.MinWords
	}
	if c.MaxAnswerRunes <= 0 {
		c.MaxAnswerRunes = def.MaxAnswerRunes
	}
	return c
}

// material is everything derived from one source text.
type material struct {
	sentences   []string
	definitions []Definition
	concepts    []concept
	paragraphs  []string
	placeholder bool
}

type concept struct {
	term     string
	sentence string
	clause   string
}

func (s *Synthesizer) material(source string) material {
	m := material{sentences: s.cfg.sentences(source)}
	if len(m.sentences) == 0 {
		return material{
			sentences:   []string{PlaceholderSentence},
			concepts:    []concept{{term: placeholderConcept, sentence: PlaceholderSentence}},
			paragraphs:  []string{PlaceholderSentence},
			placeholder: true,
		}
	}

	m.definitions = Definitions(m.sentences)
	clauses := map[string]string{}
	for _, d := range m.definitions {
		clauses[strings.ToLower(d.Term)] = d.Clause
	}
	for _, term := range Concepts(source) {
		sentence := firstContaining(m.sentences, term)
		if sentence == "" {
			continue
		}
		m.concepts = append(m.concepts, concept{term: term, sentence: sentence, clause: clauses[strings.ToLower(term)]})
	}
	m.paragraphs = Paragraphs(source)
	return m
}

func firstContaining(sentences []string, term string) string {
	t := strings.ToLower(term)
	for _, s := range sentences {
		if strings.Contains(strings.ToLower(s), t) {
			return s
		}
	}
	return ""
}

// draft is a question before it becomes a record.
type draft struct {
	prompt      string
	choices     []string
	answer      exam.Answer
	explanation string
}

// Synthesize builds up to residual[k] records of each kind k. The
// returned shortfall holds the counts the source could not support.
func (s *Synthesizer) Synthesize(source string, residual exam.QuotaSpec) ([]exam.QuestionRecord, exam.QuotaSpec) {
	m := s.material(source)
	used := map[string]bool{}
	shortfall := exam.QuotaSpec{}
	var out []exam.QuestionRecord

	for _, k := range residual.Kinds() {
		want := residual[k]
		if m.placeholder {
			want = min(want, 1)
		}
		got := 0
		for _, d := range s.candidates(k, m) {
			if got == want {
				break
			}
			key := exam.NormalizeText(d.prompt)
			if key == "" || used[key] {
				continue
			}
			rec := s.record(k, d)
			if err := rec.Validate(); err != nil {
				s.logger.Debug("skipping synthesized record", zap.String("kind", string(k)), zap.Error(err))
				continue
			}
			used[key] = true
			out = append(out, rec)
			got++
		}
		if got < residual[k] {
			shortfall[k] = residual[k] - got
		}
	}

	s.logger.Debug("synthesized fallback questions",
		zap.Int("requested", residual.Total()),
		zap.Int("built", len(out)),
		zap.Bool("placeholder_pool", m.placeholder),
		zap.Stringer("shortfall", shortfall),
	)
	return out, shortfall
}

func (s *Synthesizer) record(k exam.Kind, d draft) exam.QuestionRecord {
	rec := exam.NewRecord(k)
	rec.Prompt = d.prompt
	rec.Choices = d.choices
	rec.Answer = d.answer
	rec.Explanation = d.explanation
	if p := s.cfg.Points[k]; p > 0 {
		rec.Points = p
	}
	return rec
}

func (s *Synthesizer) candidates(k exam.Kind, m material) []draft {
	switch k {
	case exam.KindMultipleChoice:
		return multipleChoice(m)
	case exam.KindTrueFalse:
		return trueFalse(m)
	case exam.KindShortAnswer:
		return shortAnswer(m)
	case exam.KindOpenQuestion:
		return s.openQuestion(m)
	case exam.KindFlashcard:
		return flashcards(m)
	case exam.KindCloze:
		return cloze(m)
	}
	return nil
}

func distractors(subject string) []string {
	return []string{
		fmt.Sprintf("(distractor) A claim the source does not make about %s", subject),
		fmt.Sprintf("(distractor) The opposite of what the source says about %s", subject),
		"(distractor) None of the above",
	}
}

func multipleChoice(m material) []draft {
	var out []draft
	for _, d := range m.definitions {
		out = append(out, draft{
			prompt:      fmt.Sprintf("What is %s?", d.Term),
			choices:     append([]string{d.Clause}, distractors(d.Term)...),
			answer:      exam.TextAnswer("A"),
			explanation: d.Sentence,
		})
	}
	for _, c := range m.concepts {
		blanked, ok := blank(c.sentence, c.term)
		if !ok {
			continue
		}
		out = append(out, draft{
			prompt:      fmt.Sprintf("Which term best completes this statement from the source material: \"%s\"", blanked),
			choices:     append([]string{c.term}, distractors("this statement")...),
			answer:      exam.TextAnswer("A"),
			explanation: c.sentence,
		})
	}
	skip := m.conceptWords()
	for _, sentence := range m.sentences {
		word, blanked, ok := keyword(sentence, skip)
		if !ok {
			continue
		}
		out = append(out, draft{
			prompt:      fmt.Sprintf("Which word best completes this statement from the source material: \"%s\"", blanked),
			choices:     append([]string{word}, distractors("this statement")...),
			answer:      exam.TextAnswer("A"),
			explanation: sentence,
		})
	}
	return out
}

func trueFalse(m material) []draft {
	var out []draft
	for i, sentence := range m.sentences {
		if i%2 == 0 {
			out = append(out, draft{
				prompt:      "True or false: " + sentence,
				answer:      exam.TextAnswer("true"),
				explanation: "True. This is stated in the source text.",
			})
			continue
		}
		out = append(out, draft{
			prompt:      "True or false: " + Falsify(sentence),
			answer:      exam.TextAnswer("false"),
			explanation: "False. The source states: " + sentence,
		})
	}
	return out
}

func shortAnswer(m material) []draft {
	var out []draft
	for _, c := range m.concepts {
		out = append(out, draft{
			prompt: fmt.Sprintf("Explain %s.", c.term),
			answer: exam.TextAnswer(c.sentence),
		})
	}
	for _, sentence := range m.sentences {
		out = append(out, draft{
			prompt: fmt.Sprintf("Explain the following statement in your own words: \"%s\"", sentence),
			answer: exam.TextAnswer(sentence),
		})
	}
	return out
}

func (s *Synthesizer) openQuestion(m material) []draft {
	var out []draft
	for _, p := range m.paragraphs {
		opening := firstSentence(p, s.cfg)
		if opening == "" {
			continue
		}
		out = append(out, draft{
			prompt: fmt.Sprintf("Describe and expand on this point from the source material: \"%s\"", opening),
			answer: exam.TextAnswer(prompt.Truncate(p, s.cfg.MaxAnswerRunes)),
		})
	}
	for _, c := range m.concepts {
		out = append(out, draft{
			prompt: fmt.Sprintf("Describe the role of %s in the source material.", c.term),
			answer: exam.TextAnswer(c.sentence),
		})
	}
	return out
}

func firstSentence(paragraph string, cfg Config) string {
	if m := cfg.sentences(paragraph); len(m) > 0 {
		return m[0]
	}
	return ""
}

func flashcards(m material) []draft {
	var out []draft
	for _, c := range m.concepts {
		back := c.clause
		if back == "" {
			back = c.sentence
		}
		out = append(out, draft{prompt: c.term, answer: exam.TextAnswer(back)})
	}
	for _, sentence := range m.sentences {
		words := strings.Fields(sentence)
		n := min(max(3, len(words)/2), len(words)-1)
		if n < 1 {
			continue
		}
		out = append(out, draft{
			prompt: fmt.Sprintf("Complete this statement from the source material: \"%s ...\"", strings.Join(words[:n], " ")),
			answer: exam.TextAnswer(sentence),
		})
	}
	return out
}

func cloze(m material) []draft {
	var out []draft
	for _, c := range m.concepts {
		blanked, ok := blank(c.sentence, c.term)
		if !ok {
			continue
		}
		out = append(out, draft{
			prompt: "Fill in the blank: " + blanked,
			answer: exam.TextAnswer(c.term),
		})
	}
	return out
}

const blankMarker = "_____"

// conceptWords holds the lower-cased concept terms and their words.
func (m material) conceptWords() map[string]bool {
	out := map[string]bool{}
	for _, c := range m.concepts {
		out[strings.ToLower(c.term)] = true
		for _, w := range strings.Fields(strings.ToLower(c.term)) {
			out[w] = true
		}
	}
	return out
}

// keyword picks the longest content word of sentence that is not in skip
// and returns it with the sentence blanked at that word. Ties go to the
// earlier word.
func keyword(sentence string, skip map[string]bool) (string, string, bool) {
	fields := strings.Fields(sentence)
	best, bestLen := -1, 0
	var word string
	for i, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) })
		n := utf8.RuneCountInString(w)
		if n < 4 || n <= bestLen || strings.IndexFunc(w, func(r rune) bool { return !unicode.IsLetter(r) }) >= 0 {
			continue
		}
		lw := strings.ToLower(w)
		if stopWords[lw] || skip[lw] {
			continue
		}
		best, bestLen, word = i, n, w
	}
	if best < 0 {
		return "", "", false
	}
	blanked := slices.Clone(fields)
	blanked[best] = strings.Replace(blanked[best], word, blankMarker, 1)
	return word, strings.Join(blanked, " "), true
}

// blank replaces the first case-insensitive occurrence of term in
// sentence.
func blank(sentence, term string) (string, bool) {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(term))
	if err != nil {
		return "", false
	}
	loc := re.FindStringIndex(sentence)
	if loc == nil {
		return "", false
	}
	return sentence[:loc[0]] + blankMarker + sentence[loc[1]:], true
}

var copula = regexp.MustCompile(`\b(is|are|was|were|can|will|has|have|does|do)(\s+not)?\b`)

var negations = map[string]string{
	"is":   "is not",
	"are":  "are not",
	"was":  "was not",
	"were": "were not",
	"can":  "cannot",
	"will": "will not",
	"has":  "has not",
	"have": "have not",
	"does": "does not",
	"do":   "do not",
}

// Falsify turns a true statement into a false one by negating its first
// copula, or by removing an existing negation. Statements without a
// copula get an "It is not the case that" prefix.
func Falsify(sentence string) string {
	loc := copula.FindStringSubmatchIndex(sentence)
	if loc == nil {
		return "It is not the case that " + lowerFirst(sentence)
	}
	verb := sentence[loc[2]:loc[3]]
	if loc[4] >= 0 {
		return sentence[:loc[0]] + verb + sentence[loc[1]:]
	}
	return sentence[:loc[0]] + negations[verb] + sentence[loc[1]:]
}

// lowerFirst lower-cases a sentence-opening stop word so the sentence
// reads naturally after a prefix. Names are left alone.
func lowerFirst(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 || !stopWords[strings.ToLower(fields[0])] {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}
