// Package fragment implements the mutable graph fragment. See doc.go.
package fragment

import "github.com/flexgraph-db/flexgraph/pkg/types"

// PropertyDef declares one property column of a vertex or edge label.
type PropertyDef struct {
	Name     string
	Type     types.PropertyType
	Strategy types.StorageStrategy
}

// VertexLabelDef declares one vertex label's shape, resolved to a numeric
// id by the schema layer before being handed to Fragment.
type VertexLabelDef struct {
	Label      types.VLabel
	Name       string
	PrimaryKey types.PropertyType
	Properties []PropertyDef
	MaxVNum    int
}

// EdgeLabelDef declares one (src, dst, edge) triplet's shape and
// adjacency strategy per direction.
type EdgeLabelDef struct {
	Triplet      types.Triplet
	Name         string
	Properties   []PropertyDef
	OutStrategy  types.AdjacencyStrategy
	InStrategy   types.AdjacencyStrategy
	PayloadBytes int // fixed per-edge payload size; 0 means no payload
}

// Config is the fully-resolved description Fragment is built from. The
// schema layer owns name-to-id assignment; Fragment works only with the
// resolved numeric ids.
type Config struct {
	VertexLabels []VertexLabelDef
	EdgeLabels   []EdgeLabelDef
	// DataDir is where Mapped-strategy property columns store their
	// backing bbolt files. Empty DataDir is only valid when no property
	// uses the Mapped strategy.
	DataDir string
}
