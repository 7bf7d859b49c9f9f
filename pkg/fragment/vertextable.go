package fragment

import (
	"github.com/flexgraph-db/flexgraph/pkg/pkindex"
	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// VertexTable is one vertex label's primary-key index plus its property
// columns.
type VertexTable struct {
	Label types.VLabel
	Name  string

	index      *pkindex.Index
	props      map[string]PropertyColumn
	propOrder  []string
}

func newVertexTable(def VertexLabelDef, dataDir string) (*VertexTable, error) {
	vt := &VertexTable{
		Label: def.Label,
		Name:  def.Name,
		index: pkindex.New(),
		props: make(map[string]PropertyColumn, len(def.Properties)),
	}
	for _, p := range def.Properties {
		col, err := newPropertyColumn(p.Type, p.Strategy, mappedColumnPath(dataDir, def.Name, p.Name))
		if err != nil {
			return nil, err
		}
		vt.props[p.Name] = col
		vt.propOrder = append(vt.propOrder, p.Name)
	}
	if def.MaxVNum > 0 {
		for _, col := range vt.props {
			col.Reserve(def.MaxVNum)
		}
	}
	return vt, nil
}

// VertexNum returns the number of vertices assigned in this label.
func (vt *VertexTable) VertexNum() int { return vt.index.Size() }

// Lookup resolves oid to its vid, ignoring insertion timestamps.
func (vt *VertexTable) Lookup(oid types.OID) (types.VID, error) {
	return vt.index.Lookup(oid)
}

// LookupAt resolves oid to its vid as visible at readTs, failing with
// types.ErrNotFound if the insert that created it has not yet become
// visible (§3 invariant 3).
func (vt *VertexTable) LookupAt(oid types.OID, readTs types.Timestamp) (types.VID, error) {
	return vt.index.LookupAt(oid, readTs)
}

// OIDAt returns the oid assigned to vid.
func (vt *VertexTable) OIDAt(vid types.VID) types.OID {
	return vt.index.OIDAt(vid)
}

// AddVertex inserts a new vertex with the given oid and initial property
// values, keyed by property name. Unknown property names fail with
// types.ErrInvalidInput; a duplicate oid fails with types.ErrDuplicateKey.
// The vertex is recorded as always visible; callers that must gate
// visibility behind a commit timestamp use AddVertexAt instead.
func (vt *VertexTable) AddVertex(oid types.OID, props map[string]any) (types.VID, error) {
	return vt.addVertex(oid, props, 0)
}

// AddVertexAt is AddVertex, recording ts as the timestamp at which the
// vertex becomes visible to a reader (§3 invariant 3).
func (vt *VertexTable) AddVertexAt(oid types.OID, props map[string]any, ts types.Timestamp) (types.VID, error) {
	return vt.addVertex(oid, props, ts)
}

func (vt *VertexTable) addVertex(oid types.OID, props map[string]any, ts types.Timestamp) (types.VID, error) {
	for name := range props {
		if _, ok := vt.props[name]; !ok {
			return types.InvalidVID, types.Errorf(types.CodeInvalidInput, "fragment.AddVertex", "unknown property %q on label %s", name, vt.Name)
		}
	}

	vid, err := vt.index.InsertAt(oid, ts)
	if err != nil {
		return types.InvalidVID, err
	}
	for name, v := range props {
		if err := vt.props[name].SetAny(vid, v); err != nil {
			return types.InvalidVID, err
		}
	}
	return vid, nil
}

// GetProperty returns the current value of a named property for vid.
func (vt *VertexTable) GetProperty(vid types.VID, name string) (any, error) {
	col, ok := vt.props[name]
	if !ok {
		return nil, types.Errorf(types.CodeInvalidInput, "fragment.GetProperty", "unknown property %q on label %s", name, vt.Name)
	}
	return col.GetAny(vid), nil
}

// SetProperty overwrites a named property for vid. Used by update
// transactions; insert-family transactions set values only at creation.
func (vt *VertexTable) SetProperty(vid types.VID, name string, v any) error {
	col, ok := vt.props[name]
	if !ok {
		return types.Errorf(types.CodeInvalidInput, "fragment.SetProperty", "unknown property %q on label %s", name, vt.Name)
	}
	return col.SetAny(vid, v)
}

// Iterate yields (vid, oid) for every vertex of this label, in vid
// order, ignoring insertion timestamps.
func (vt *VertexTable) Iterate(yield func(vid types.VID, oid types.OID) bool) {
	vt.index.Iterate(yield)
}

// IterateAt yields (vid, oid) for every vertex of this label visible at
// readTs, in vid order.
func (vt *VertexTable) IterateAt(readTs types.Timestamp, yield func(vid types.VID, oid types.OID) bool) {
	vt.index.IterateAt(readTs, yield)
}

// PropertyNames returns the declared property names in declaration order.
func (vt *VertexTable) PropertyNames() []string { return vt.propOrder }

// Column returns the underlying PropertyColumn for name, for the
// snapshot serializer.
func (vt *VertexTable) Column(name string) (PropertyColumn, bool) {
	c, ok := vt.props[name]
	return c, ok
}

// Index returns the underlying primary-key index, for the snapshot
// serializer.
func (vt *VertexTable) Index() *pkindex.Index { return vt.index }
