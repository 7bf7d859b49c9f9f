package txn

import "github.com/flexgraph-db/flexgraph/pkg/types"

// vertexPropKey identifies one vertex property's overlay slot.
type vertexPropKey struct {
	Label types.VLabel
	VID   types.VID
	Prop  string
}

// edgePropKey identifies one directed edge's overlay payload slot. Src
// and Dst are the endpoints in the direction the overlay was written
// for (out-direction or in-direction), matching how the caller looks
// it up.
type edgePropKey struct {
	Triplet types.Triplet
	Src     types.VID
	Dst     types.VID
}
