package generate

import (
	"time"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/llm"
	"github.com/abhisek/examforge/internal/prompt"
	"github.com/abhisek/examforge/internal/synth"
)

// Config controls the Orchestrator.
type Config struct {
	// CallTimeout bounds each backend call. Zero means no extra bound
	// beyond the caller's context.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// Mode is the request shape used for drafting. Conversion is always
	// sent as chat.
	Mode llm.Mode `yaml:"mode"`

	DraftMaxTokens   int     `yaml:"draft_max_tokens"`
	ConvertMaxTokens int     `yaml:"convert_max_tokens"`
	Temperature      float64 `yaml:"temperature"`

	// Stop lists stop sequences for the drafting call.
	Stop []string `yaml:"stop"`

	// NativeSchema sends the question-set JSON Schema with the
	// conversion call.
	NativeSchema bool `yaml:"native_schema"`

	// Points overrides the default points per kind for model and
	// synthesized records alike.
	Points map[exam.Kind]int `yaml:"points"`

	Prompt prompt.Config `yaml:"prompt"`
	Synth  synth.Config  `yaml:"synth"`
}

// DefaultConfig returns the recommended orchestrator settings.
func DefaultConfig() Config {
	return Config{
		CallTimeout:      90 * time.Second,
		Mode:             llm.ModeChat,
		DraftMaxTokens:   2048,
		ConvertMaxTokens: 4096,
		Temperature:      0.7,
		Prompt:           prompt.DefaultConfig(),
		Synth:            synth.DefaultConfig(),
	}
}
