package core

import "strings"

// Builder actions a modifier can be attached to.
const (
	ActionSelect      = "select"
	ActionInsert      = "insert"
	ActionUpdate      = "update"
	ActionDelete      = "delete"
	ActionInsertBatch = "insertbatch"
)

// Input holds the arguments of one builder call. Only the fields used by
// the action are meaningful.
type Input struct {
	Table    string
	Data     Row
	Rows     []Row
	Criteria Criteria
	Options  *SelectOptions
}

// Modifier rewrites the input of a builder call before SQL is generated.
type Modifier func(in Input, b *Builder) (Input, error)

// ModifiableBuilder runs per-action modifier chains in registration order
// before delegating to the embedded Builder.
type ModifiableBuilder struct {
	*Builder
	modifiers map[string][]Modifier
}

// NewModifiableBuilder wraps b. A nil b is replaced by NewBuilder().
func NewModifiableBuilder(b *Builder) *ModifiableBuilder {
	if b == nil {
		b = NewBuilder()
	}
	return &ModifiableBuilder{Builder: b, modifiers: make(map[string][]Modifier)}
}

// plain returns the wrapped builder, which runs no modifiers.
func (m *ModifiableBuilder) plain() SQLBuilder {
	return m.Builder
}

// AddModifier appends fn to the chain of action (case-insensitive).
func (m *ModifiableBuilder) AddModifier(action string, fn Modifier) *ModifiableBuilder {
	action = strings.ToLower(action)
	m.modifiers[action] = append(m.modifiers[action], fn)
	return m
}

// HasModifier reports whether action has at least one modifier.
func (m *ModifiableBuilder) HasModifier(action string) bool {
	return len(m.modifiers[strings.ToLower(action)]) > 0
}

func (m *ModifiableBuilder) modify(action string, in Input) (Input, error) {
	for _, fn := range m.modifiers[action] {
		out, err := fn(in, m.Builder)
		if err != nil {
			return Input{}, err
		}
		in = out
	}
	return in, nil
}

// Select applies the select modifiers, then builds.
func (m *ModifiableBuilder) Select(table string, criteria Criteria, opts *SelectOptions) (Statement, error) {
	in, err := m.modify(ActionSelect, Input{Table: table, Criteria: criteria, Options: opts})
	if err != nil {
		return Statement{}, err
	}
	return m.Builder.Select(in.Table, in.Criteria, in.Options)
}

// Insert applies the insert modifiers, then builds.
func (m *ModifiableBuilder) Insert(table string, data Row) (Statement, error) {
	in, err := m.modify(ActionInsert, Input{Table: table, Data: data})
	if err != nil {
		return Statement{}, err
	}
	return m.Builder.Insert(in.Table, in.Data)
}

// Update applies the update modifiers, then builds.
func (m *ModifiableBuilder) Update(table string, data Row, criteria Criteria) (Statement, error) {
	in, err := m.modify(ActionUpdate, Input{Table: table, Data: data, Criteria: criteria})
	if err != nil {
		return Statement{}, err
	}
	return m.Builder.Update(in.Table, in.Data, in.Criteria)
}

// Delete applies the delete modifiers, then builds.
func (m *ModifiableBuilder) Delete(table string, criteria Criteria) (Statement, error) {
	in, err := m.modify(ActionDelete, Input{Table: table, Criteria: criteria})
	if err != nil {
		return Statement{}, err
	}
	return m.Builder.Delete(in.Table, in.Criteria)
}

// InsertBatch applies the insertBatch modifiers, then builds.
func (m *ModifiableBuilder) InsertBatch(table string, rows []Row) (Statement, error) {
	in, err := m.modify(ActionInsertBatch, Input{Table: table, Rows: rows})
	if err != nil {
		return Statement{}, err
	}
	return m.Builder.InsertBatch(in.Table, in.Rows)
}
