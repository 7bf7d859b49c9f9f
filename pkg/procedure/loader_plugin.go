//go:build linux || darwin

package procedure

import (
	"path/filepath"
	"plugin"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// pluginSymbolName is the exported symbol every procedure plugin must
// define: a func() Procedure and its registration id and kind.
const pluginSymbolName = "FlexgraphProcedure"

// PluginEntry is the shape a procedure plugin's exported
// FlexgraphProcedure symbol must have.
type PluginEntry struct {
	ID      uint8
	Kind    Kind
	Factory Factory
}

// LoadPluginDir scans dir for *.so files built with buildmode=plugin,
// each exporting a FlexgraphProcedure PluginEntry, and registers them.
// Dynamic loading is a boundary concern (§4.9); the normal path is
// compiled-in registration via Register.
func (l *Loader) LoadPluginDir(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.so"))
	if err != nil {
		return types.Errorf(types.CodeInvalidInput, "procedure.Loader.LoadPluginDir", "glob %s: %w", dir, err)
	}
	for _, path := range matches {
		if err := l.loadPluginFile(path); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadPluginFile(path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		return types.Errorf(types.CodeInvalidInput, "procedure.Loader.LoadPluginDir", "open %s: %w", path, err)
	}
	sym, err := p.Lookup(pluginSymbolName)
	if err != nil {
		return types.Errorf(types.CodeInvalidInput, "procedure.Loader.LoadPluginDir", "%s: missing symbol %s: %w", path, pluginSymbolName, err)
	}
	entry, ok := sym.(*PluginEntry)
	if !ok {
		return types.Errorf(types.CodeInvalidInput, "procedure.Loader.LoadPluginDir", "%s: symbol %s has wrong type", path, pluginSymbolName)
	}
	return l.Register(entry.ID, entry.Kind, entry.Factory)
}
