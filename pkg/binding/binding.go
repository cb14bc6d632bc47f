// Package binding holds the persistent mapping from logical buttons to the
// physical inputs that drive them.
package binding

import (
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
)

// Store is the persistent integer store the table is kept in.
// GetInt returns def when key is absent. PutInt must be durable when it returns.
type Store interface {
	GetInt(key string, def int) int
	PutInt(key string, value int) error
}

// Table maps every logical button to exactly one physical input.
// Several logical buttons may share an input.
type Table struct {
	store  Store
	inputs [button.Count]button.Input
}

// New returns a table over store holding the identity mapping.
// Call Load to read persisted bindings.
func New(store Store) *Table {
	t := &Table{store: store}
	t.reset()
	return t
}

func (t *Table) reset() {
	for l := range t.inputs {
		t.inputs[l] = button.Input(l)
	}
}

// Load populates every entry from the store. Missing or out-of-range values
// fall back to the identity binding for that entry.
func (t *Table) Load() {
	for l := button.Logical(0); l < button.Count; l++ {
		identity := int(l)
		in, err := button.InputFromInt(t.store.GetInt(l.String(), identity))
		if err != nil {
			in = button.Input(identity)
		}
		t.inputs[l] = in
	}
}

// Bind sets the input of l and persists it before returning.
// The in-memory entry is updated even when the store write fails.
func (t *Table) Bind(l button.Logical, in button.Input) error {
	if !l.Valid() {
		return button.ErrUnknownButton
	}
	if !in.Valid() {
		return button.ErrUnknownInput
	}
	t.inputs[l] = in
	return t.store.PutInt(l.String(), int(in))
}

// Resolve returns the input bound to l.
func (t *Table) Resolve(l button.Logical) button.Input {
	if !l.Valid() {
		// Out-of-range roles resolve to an input nothing can assert.
		return button.InputCount
	}
	return t.inputs[l]
}

// Snapshot returns a copy of all bindings, indexed by logical button.
func (t *Table) Snapshot() [button.Count]button.Input {
	return t.inputs
}
