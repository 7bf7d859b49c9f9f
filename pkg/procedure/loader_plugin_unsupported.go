//go:build !linux && !darwin

package procedure

import "github.com/flexgraph-db/flexgraph/pkg/types"

// LoadPluginDir is unavailable on platforms without Go's native
// buildmode=plugin support. Procedures must be compiled in via Register.
func (l *Loader) LoadPluginDir(dir string) error {
	return types.Errorf(types.CodeInvalidInput, "procedure.Loader.LoadPluginDir", "dynamic procedure loading is not supported on this platform")
}
