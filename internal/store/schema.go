package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	llmEventsTable   = "llm_request_events"
	generationsTable = "generation_traces"
	sequenceTable    = "global_sequence"
)

// eventColumns returns the columns every event table shares.
func eventColumns() (*schema.Column, []*schema.Column) {
	id := &schema.Column{Name: "id", Type: field.TypeInt, Increment: true}
	return id, []*schema.Column{
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "session_id", Type: field.TypeString, Default: ""},
	}
}

func text(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeString, Size: 1 << 20, Default: ""}
}

func str(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeString, Default: ""}
}

func integer(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeInt, Default: 0}
}

func newEventTable(name string, cols ...*schema.Column) *schema.Table {
	id, shared := eventColumns()
	t := schema.NewTable(name).AddPrimary(id)
	for _, c := range shared {
		t.AddColumn(c)
	}
	for _, c := range cols {
		t.AddColumn(c)
	}
	t.AddIndex(name+"_session_id", false, []string{"session_id"})
	t.AddIndex(name+"_timestamp", false, []string{"timestamp"})
	return t
}

func tables() []*schema.Table {
	llmEvents := newEventTable(llmEventsTable,
		str("provider"),
		str("model"),
		str("purpose"),
		integer("input_tokens"),
		integer("output_tokens"),
		&schema.Column{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		&schema.Column{Name: "success", Type: field.TypeBool},
		&schema.Column{Name: "cached", Type: field.TypeBool, Default: false},
		text("error_message"),
		text("request_body"),
		text("response_body"),
	)
	llmEvents.AddIndex(llmEventsTable+"_purpose", false, []string{"purpose"})

	generations := newEventTable(generationsTable,
		str("title"),
		str("model"),
		str("quota"),
		integer("requested"),
		integer("model_items"),
		integer("synth_items"),
		str("shortfall"),
		str("winning_tier"),
		text("states"),
		text("tier_outcomes"),
		text("draft_prompt"),
		text("draft_text"),
		text("convert_prompt"),
		text("convert_text"),
		&schema.Column{Name: "duration_ms", Type: field.TypeInt64, Default: 0},
		text("error_message"),
	)

	sequence := schema.NewTable(sequenceTable).
		AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt}).
		AddColumn(&schema.Column{Name: "next_val", Type: field.TypeInt64, Default: 1})

	return []*schema.Table{llmEvents, generations, sequence}
}

// migrate creates or upgrades the trace tables.
func migrate(ctx context.Context, drv *entsql.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, tables()...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
