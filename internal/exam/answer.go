package exam

import (
	"regexp"
	"strings"
	"unicode"
)

var trueFalseTokens = map[string]string{
	"true":      "true",
	"t":         "true",
	"yes":       "true",
	"y":         "true",
	"correct":   "true",
	"vero":      "true",
	"verdadero": "true",
	"vrai":      "true",
	"1":         "true",
	"false":     "false",
	"f":         "false",
	"no":        "false",
	"n":         "false",
	"incorrect": "false",
	"falso":     "false",
	"faux":      "false",
	"0":         "false",
}

// ParseTrueFalse normalizes a boolean answer token to "true" or "false".
// Only the first word counts, so "False, because ..." parses as false.
func ParseTrueFalse(s string) (string, bool) {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return "", false
	}
	v, ok := trueFalseTokens[fields[0]]
	return v, ok
}

var (
	letterPrefix = regexp.MustCompile(`^\(?([A-Da-d])(?:[.):]|\s*$)`)
	letterWord   = regexp.MustCompile(`(?i)^(?:option|choice|answer|letter)\s+\(?([A-D])\b`)
	choiceLabel  = regexp.MustCompile(`^\s*\(?[A-Da-d][.):]\s+`)
)

// StripChoiceLabel removes a leading "A) " style label from a choice.
func StripChoiceLabel(s string) string {
	return strings.TrimSpace(choiceLabel.ReplaceAllString(s, ""))
}

// ParseChoiceLetter resolves an answer to a choice letter. It accepts a
// bare letter, a labeled answer such as "b) 2" or "Option C", or the
// full text of one of choices.
func ParseChoiceLetter(s string, choices []string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if m := letterPrefix.FindStringSubmatch(s); m != nil {
		return strings.ToUpper(m[1]), true
	}
	if m := letterWord.FindStringSubmatch(s); m != nil {
		return strings.ToUpper(m[1]), true
	}
	want := foldText(StripChoiceLabel(s))
	for i, c := range choices {
		if i >= len(ChoiceLetters) {
			break
		}
		if foldText(StripChoiceLabel(c)) == want {
			return ChoiceLetters[i], true
		}
	}
	return "", false
}

// NormalizeText lower-cases s, drops surrounding punctuation and
// collapses internal whitespace.
func NormalizeText(s string) string {
	return foldText(s)
}

func foldText(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}
