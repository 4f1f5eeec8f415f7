package evaluate

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/abhisek/examforge/internal/extract"
)

var (
	scoreMarker   = regexp.MustCompile(`(?i)\bscore\s*[:=]?\s*(-?\d+(?:[.,]\d+)?)(?:\s*(?:/|out of)\s*(\d+(?:[.,]\d+)?))?`)
	fraction      = regexp.MustCompile(`(-?\d+(?:[.,]\d+)?)\s*(?:/|out of)\s*(\d+(?:[.,]\d+)?)`)
	leadingNumber = regexp.MustCompile(`^\s*(-?\d+(?:[.,]\d+)?)`)
	rationaleLine = regexp.MustCompile(`(?im)^\s*(?:rationale|feedback|reason|explanation)\s*:\s*(.+)$`)
)

const maxRationaleRunes = 300

// parseReply reads a score out of a rubric reply. It tries a JSON object
// first, then a "Score: N/M" or "N/M" marker, then a leading number.
// Marker denominators other than max are rescaled to max.
func parseReply(text string, maxPoints int) (score float64, rationale string, ok bool) {
	if obj, found := extract.FirstObject(text); found {
		if score, rationale, ok := parseJSONReply(obj, maxPoints); ok {
			return score, rationale, true
		}
	}

	rationale = replyRationale(text)
	if m := scoreMarker.FindStringSubmatch(text); m != nil {
		return scaled(m[1], m[2], maxPoints), rationale, true
	}
	if m := fraction.FindStringSubmatch(text); m != nil {
		return scaled(m[1], m[2], maxPoints), rationale, true
	}
	if m := leadingNumber.FindStringSubmatch(text); m != nil {
		return scaled(m[1], "", maxPoints), rationale, true
	}
	return 0, "", false
}

func parseJSONReply(obj string, maxPoints int) (float64, string, bool) {
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return 0, "", false
	}
	item := extract.RawItem(m)
	raw := item.String("score", "points", "grade", "mark")
	if raw == "" {
		return 0, "", false
	}
	rationale := item.String("rationale", "feedback", "reason", "explanation")

	if f := fraction.FindStringSubmatch(raw); f != nil {
		return scaled(f[1], f[2], maxPoints), rationale, true
	}
	n, ok := number(raw)
	if !ok {
		return 0, "", false
	}
	if d, ok := number(item.String("max_points", "max", "out_of")); ok && d > 0 && d != float64(maxPoints) {
		n = n / d * float64(maxPoints)
	}
	return n, rationale, true
}

func scaled(num, den string, maxPoints int) float64 {
	n, _ := number(num)
	if d, ok := number(den); ok && d > 0 && d != float64(maxPoints) {
		return n / d * float64(maxPoints)
	}
	return n
}

func number(s string) (float64, bool) {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// replyRationale returns the "Rationale:" line, or the reply itself when
// there is none.
func replyRationale(text string) string {
	if m := rationaleLine.FindStringSubmatch(text); m != nil {
		return clip(strings.TrimSpace(m[1]))
	}
	return clip(strings.TrimSpace(text))
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxRationaleRunes {
		return s
	}
	return string(r[:maxRationaleRunes]) + "..."
}

// Heuristic scores an answer by length alone: points scaled by
// words/fullCredit, floored to one decimal, and capped at a third of the
// points for answers of at most shortWords words.
func Heuristic(words, points int, cfg Config) float64 {
	full := cfg.FullCreditWords
	if full <= 0 {
		full = DefaultConfig().FullCreditWords
	}
	score := float64(points) * math.Min(1, float64(words)/float64(full))
	score = math.Floor(score*10) / 10
	if words <= cfg.ShortWords {
		score = math.Min(score, math.Floor(float64(points)/3))
	}
	return clamp(score, points)
}

func clamp(score float64, points int) float64 {
	switch {
	case score < 0:
		return 0
	case score > float64(points):
		return float64(points)
	}
	return math.Round(score*100) / 100
}
