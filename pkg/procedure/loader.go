package procedure

import (
	"sync"

	"github.com/flexgraph-db/flexgraph/pkg/schema"
	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// Factory constructs a fresh Procedure instance. Registered factories are
// invoked once per Loader.Resolve call; procedures that need per-instance
// state (none of the built-ins do) get a new one each time.
type Factory func() Procedure

// Loader resolves a schema's registered procedure directory to concrete
// Procedure instances, by stable numeric id (§4.9). Reloading a live id
// is not supported; it requires restarting the process with a new
// registration.
type Loader struct {
	mu        sync.RWMutex
	factories map[uint8]Factory
}

// NewLoader returns a Loader with the built-in server procedure already
// registered at id 0.
func NewLoader() *Loader {
	l := &Loader{factories: make(map[uint8]Factory)}
	l.factories[0] = func() Procedure { return BuiltinServerProcedure{} }
	return l
}

// Register compiles in a procedure factory under id. id 0 is reserved
// for the built-in server procedure and cannot be overwritten.
func (l *Loader) Register(id uint8, kind Kind, factory Factory) error {
	if id == 0 {
		return types.Errorf(types.CodeSchemaConflict, "procedure.Loader.Register", "id 0 is reserved for the built-in server procedure")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.factories[id]; exists {
		return types.Errorf(types.CodeSchemaConflict, "procedure.Loader.Register", "procedure id %d already registered", id)
	}
	l.factories[id] = factory
	return nil
}

// Resolve instantiates the procedure registered under id.
func (l *Loader) Resolve(id uint8) (Procedure, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	factory, ok := l.factories[id]
	if !ok {
		return nil, types.Errorf(types.CodeNotFound, "procedure.Loader.Resolve", "no procedure registered for id %d", id)
	}
	return factory(), nil
}

// RegisterFromSchema walks s's procedure directory, registering factory
// for every declared name's id. Used at startup once compiled-in
// procedures have been matched up to their schema-declared names by the
// embedding application; this package has no way to discover that
// mapping on its own.
func (l *Loader) RegisterFromSchema(s *schema.Schema, byName map[string]struct {
	Kind    Kind
	Factory Factory
}) error {
	for _, name := range s.ProcedureNames() {
		id, err := s.ProcedureID(name)
		if err != nil {
			return err
		}
		entry, ok := byName[name]
		if !ok {
			return types.Errorf(types.CodeNotFound, "procedure.Loader.RegisterFromSchema", "no factory supplied for registered procedure %q", name)
		}
		if err := l.Register(id, entry.Kind, entry.Factory); err != nil {
			return err
		}
	}
	return nil
}
