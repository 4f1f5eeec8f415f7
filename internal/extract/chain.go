package extract

import (
	"go.uber.org/zap"

	"github.com/abhisek/examforge/internal/exam"
)

// Outcome records what one tier produced for the trace.
type Outcome struct {
	Tier  string `json:"tier"`
	Items int    `json:"items"`
	Err   string `json:"error,omitempty"`
}

// Result is the output of a Chain run.
type Result struct {
	Items []RawItem

	// Tier is the name of the tier that produced Items, or "" when no
	// tier recovered anything.
	Tier string

	// Outcomes lists every tier that ran, in order.
	Outcomes []Outcome
}

// Unparsable reports whether no tier recovered a single item.
func (r Result) Unparsable() bool {
	return len(r.Items) == 0
}

// Chain runs tiers in order and stops at the first that yields items.
type Chain struct {
	tiers  []Tier
	logger *zap.Logger
}

// NewChain creates a Chain over tiers. With no tiers it uses
// DefaultTiers.
func NewChain(logger *zap.Logger, tiers ...Tier) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	return &Chain{tiers: tiers, logger: logger}
}

// Extract recovers raw items from text. An empty Result is a normal
// outcome, not an error.
func (c *Chain) Extract(text string, quota exam.QuotaSpec) Result {
	text = clean(text)
	var res Result
	for _, t := range c.tiers {
		items, err := t.Extract(text, quota)
		o := Outcome{Tier: t.Name(), Items: len(items)}
		if err != nil {
			o.Err = err.Error()
		}
		res.Outcomes = append(res.Outcomes, o)

		c.logger.Debug("extraction tier",
			zap.String("tier", o.Tier),
			zap.Int("items", o.Items),
			zap.String("error", o.Err),
		)

		if len(items) > 0 {
			res.Items = items
			res.Tier = t.Name()
			return res
		}
	}
	return res
}
