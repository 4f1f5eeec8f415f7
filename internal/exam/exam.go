package exam

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Provenance records where an item came from.
type Provenance string

const (
	ProvenanceModel       Provenance = "model"
	ProvenanceSynthesized Provenance = "synthesized"
)

// Item is a record tagged with its provenance.
type Item struct {
	Record     QuestionRecord `json:"record"`
	Provenance Provenance     `json:"provenance"`
}

// Exam is the exported form of one generation result.
type Exam struct {
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Quota     QuotaSpec `json:"quota"`
	Shortfall QuotaSpec `json:"shortfall,omitempty"`
	Items     []Item    `json:"items"`
}

// MaxPoints returns the sum of points across all items.
func (e *Exam) MaxPoints() int {
	total := 0
	for _, it := range e.Items {
		total += it.Record.Points
	}
	return total
}

// Find returns the item whose record ID is id.
func (e *Exam) Find(id string) (*Item, bool) {
	for i := range e.Items {
		if e.Items[i].Record.ID == id {
			return &e.Items[i], true
		}
	}
	return nil, false
}

// Save writes e as indented JSON to path.
func (e *Exam) Save(path string) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write exam: %w", err)
	}
	return nil
}

// Load reads an exam written by Save and validates every record.
func Load(path string) (*Exam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exam: %w", err)
	}
	var e Exam
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse exam: %w", err)
	}
	for i := range e.Items {
		if err := e.Items[i].Record.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
	}
	return &e, nil
}
