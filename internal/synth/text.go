package synth

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// headingRunes is the length below which an unpunctuated line is treated
// as a heading rather than a wrapped sentence.
const headingRunes = 60

// Paragraphs splits text on blank lines and collapses whitespace.
func Paragraphs(text string) []string {
	var out []string
	for _, block := range splitBlocks(text) {
		if p := strings.Join(strings.Fields(strings.Join(block, " ")), " "); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitBlocks groups non-empty lines into blank-line separated blocks.
func splitBlocks(text string) [][]string {
	var (
		blocks [][]string
		cur    []string
	)
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, strings.TrimSpace(line))
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

// Sentences splits text into candidate sentences with the default
// length filter.
func Sentences(text string) []string {
	return DefaultConfig().sentences(text)
}

func (c Config) sentences(text string) []string {
	var out []string
	for _, s := range rawSentences(text) {
		n := utf8.RuneCountInString(s)
		if n < c.MinSentenceRunes || n > c.MaxSentenceRunes || len(strings.Fields(s)) < c.MinWords {
			continue
		}
		out = append(out, s)
	}
	return out
}

// rawSentences splits on terminal punctuation and on line breaks that
// end a sentence or a heading. Wrapped lines are joined.
func rawSentences(text string) []string {
	var out []string
	for _, block := range splitBlocks(text) {
		var segs []string
		cur := ""
		for _, line := range block {
			if cur == "" {
				cur = line
			} else {
				cur += " " + line
			}
			if endsSentence(line) || utf8.RuneCountInString(line) < headingRunes {
				segs = append(segs, cur)
				cur = ""
			}
		}
		if cur != "" {
			segs = append(segs, cur)
		}
		for _, seg := range segs {
			out = append(out, splitTerminal(seg)...)
		}
	}
	return out
}

func endsSentence(s string) bool {
	s = strings.TrimRight(s, `"')]”’`)
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

// splitTerminal cuts s after '.', '!' or '?' when followed by space.
func splitTerminal(s string) []string {
	var out []string
	start := 0
	runes := []rune(s)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if seg := strings.TrimSpace(string(runes[start : i+1])); seg != "" {
			out = append(out, seg)
		}
		start = i + 1
	}
	if seg := strings.TrimSpace(string(runes[start:])); seg != "" {
		out = append(out, seg)
	}
	return out
}

// Definition is an "X is Y" statement found in a sentence.
type Definition struct {
	Term     string
	Clause   string
	Sentence string
}

var definitional = regexp.MustCompile(`^(?:(?:A|An|The)\s+)?(.{2,60}?)\s+(?:is defined as|can be defined as|refers to|means|is|are)\s+(.+?)[.!?]*$`)

// Definitions returns the definitional sentences among sentences.
func Definitions(sentences []string) []Definition {
	var out []Definition
	for _, s := range sentences {
		m := definitional.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		term, clause := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if !validTerm(term) || len(strings.Fields(clause)) < 2 {
			continue
		}
		if first := strings.ToLower(strings.Fields(clause)[0]); first == "not" || first == "also" {
			continue
		}
		out = append(out, Definition{Term: term, Clause: clause, Sentence: s})
	}
	return out
}

func validTerm(term string) bool {
	words := strings.Fields(term)
	if len(words) == 0 || len(words) > 6 {
		return false
	}
	if strings.ContainsAny(term, ",;:()") {
		return false
	}
	return !pronouns[strings.ToLower(words[0])] && !isStopPhrase(term)
}

var (
	capitalizedRun = regexp.MustCompile(`(?:^|[\s"'(“])(\p{Lu}[\p{L}\p{N}]*(?:\s+\p{Lu}[\p{L}\p{N}]*)*)`)
	quotedTerm     = regexp.MustCompile(`["“]([^"”\n]{3,60})["”]`)
	technicalToken = regexp.MustCompile(`\b(?:[a-z]+[A-Z][A-Za-z0-9]*|[A-Za-z][A-Za-z0-9]*(?:_[A-Za-z0-9]+)+|[A-Z]{2,}[0-9]*|[A-Za-z][A-Za-z0-9]*(?:\.[A-Za-z][A-Za-z0-9]*)+(?:\(\))?|[A-Za-z]+(?:-[A-Za-z]+)+)\b`)
)

// Concepts returns candidate key concepts in first-seen order. It
// combines definitional subjects, capitalized runs, quoted terms and
// technical tokens, deduplicated case-insensitively and stop-word
// filtered.
func Concepts(text string) []string {
	sentences := rawSentences(text)
	var found []string

	for _, d := range Definitions(sentences) {
		found = append(found, d.Term)
	}
	for _, s := range sentences {
		for _, m := range capitalizedRun.FindAllStringSubmatchIndex(s, -1) {
			run := s[m[2]:m[3]]
			// A lone capitalized word opening a sentence is just grammar.
			if m[2] == 0 && !strings.ContainsRune(run, ' ') {
				continue
			}
			found = append(found, run)
		}
	}
	for _, m := range quotedTerm.FindAllStringSubmatch(text, -1) {
		found = append(found, m[1])
	}
	found = append(found, technicalToken.FindAllString(text, -1)...)

	seen := map[string]bool{}
	var out []string
	for _, c := range found {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if seen[key] || utf8.RuneCountInString(c) < 3 || len(strings.Fields(c)) > 6 || isStopPhrase(c) {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func isStopPhrase(s string) bool {
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if !stopWords[strings.Trim(w, ".,;:!?\"'")] {
			return false
		}
	}
	return true
}

var pronouns = setOf("it", "this", "that", "there", "these", "those", "he", "she", "they", "we", "you", "i",
	"which", "what", "who", "here", "one", "each", "all", "some", "such", "its", "their")

var stopWords = setOf(
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "when", "while", "of", "at", "by",
	"for", "with", "about", "against", "between", "into", "through", "during", "before", "after",
	"above", "below", "to", "from", "up", "down", "in", "out", "on", "off", "over", "under", "again",
	"further", "once", "is", "are", "was", "were", "be", "been", "being", "have", "has", "had", "do",
	"does", "did", "can", "could", "should", "would", "will", "may", "might", "must", "not", "no",
	"nor", "only", "own", "same", "so", "than", "too", "very", "also", "however", "therefore",
	"thus", "because", "as", "until", "both", "more", "most", "other", "any", "few", "many", "much",
	"how", "why", "where", "whom", "whose", "chapter", "section", "figure", "table", "page", "e.g",
	"i.e", "etc",
	"it", "this", "that", "there", "these", "those", "he", "she", "they", "we", "you", "i",
	"which", "what", "who", "here", "one", "each", "all", "some", "such", "its", "their",
)

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
