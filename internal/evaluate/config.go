package evaluate

import "time"

// Config controls scoring.
type Config struct {
	// MinWords is the word count below which an open answer scores zero
	// without consulting the backend. An empty answer scores zero even
	// when MinWords is 0.
	MinWords int `yaml:"min_words"`

	// ShortWords caps the heuristic at a third of the points for answers
	// of at most this many words.
	ShortWords int `yaml:"short_words"`

	// FullCreditWords is the length at which the heuristic awards full
	// points.
	FullCreditWords int `yaml:"full_credit_words"`

	CallTimeout time.Duration `yaml:"call_timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`

	// Concurrency bounds parallel scoring in EvaluateAll.
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns the standard scoring settings.
func DefaultConfig() Config {
	return Config{
		MinWords:        3,
		ShortWords:      8,
		FullCreditWords: 40,
		CallTimeout:     30 * time.Second,
		MaxTokens:       256,
		Concurrency:     4,
	}
}
