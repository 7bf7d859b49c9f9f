package snapshot

import (
	"fmt"
	"path/filepath"

	"github.com/flexgraph-db/flexgraph/pkg/fragment"
	"github.com/flexgraph-db/flexgraph/pkg/schema"
	"github.com/flexgraph-db/flexgraph/pkg/types"
	"github.com/flexgraph-db/flexgraph/pkg/version"
)

const catalogFile = "init_snapshot.bin"

func keysColumnPath(dir, labelName string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.keys.col", labelName))
}

func propertyColumnPath(dir, labelName, propName string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.col", labelName, propName))
}

func adjacencyPath(dir, srcName, dstName, edgeName, direction string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%s.%s.adj", srcName, dstName, edgeName, direction))
}

// Dump writes frag's entire state to dir: the catalog, every vertex
// label's keys column and property columns, and every adjacency
// triplet's out/in edge files.
func Dump(dir string, frag *fragment.Fragment) error {
	if err := frag.Serialize(filepath.Join(dir, catalogFile)); err != nil {
		return err
	}

	for _, label := range frag.VertexLabels() {
		vt, _ := frag.VertexTable(label)
		if err := vt.Index().Serialize(keysColumnPath(dir, vt.Name)); err != nil {
			return err
		}
		for _, prop := range vt.PropertyNames() {
			col, _ := vt.Column(prop)
			if err := col.Serialize(propertyColumnPath(dir, vt.Name, prop)); err != nil {
				return err
			}
		}
	}

	for _, triplet := range frag.Triplets() {
		srcVT, _ := frag.VertexTable(triplet.Src)
		dstVT, _ := frag.VertexTable(triplet.Dst)
		if at, ok := frag.OutAdjacency(triplet); ok {
			if err := at.Serialize(adjacencyPath(dir, srcVT.Name, dstVT.Name, at.Name, "out")); err != nil {
				return err
			}
		}
		if at, ok := frag.InAdjacency(triplet); ok {
			if err := at.Serialize(adjacencyPath(dir, srcVT.Name, dstVT.Name, at.Name, "in")); err != nil {
				return err
			}
		}
	}
	return nil
}

// Restore rebuilds a fragment from dir against sch's declared layout,
// failing with types.CodeIncompatibleSnapshot on any magic/version or
// shape mismatch.
func Restore(dir string, sch *schema.Schema, mgr *version.Manager) (*fragment.Fragment, error) {
	cfg := sch.Resolve(dir)

	counts, err := fragment.ReadCatalog(filepath.Join(dir, catalogFile))
	if err != nil {
		return nil, err
	}

	frag, err := fragment.New(cfg, mgr)
	if err != nil {
		return nil, err
	}

	for _, label := range frag.VertexLabels() {
		vt, _ := frag.VertexTable(label)
		if err := vt.Index().Deserialize(keysColumnPath(dir, vt.Name)); err != nil {
			return nil, err
		}
		if n, ok := counts[label]; ok && vt.Index().Size() != n {
			return nil, types.Errorf(types.CodeIncompatibleSnapshot, "snapshot.Restore",
				"label %s: catalog reports %d vertices, keys column has %d", vt.Name, n, vt.Index().Size())
		}
		for _, prop := range vt.PropertyNames() {
			col, _ := vt.Column(prop)
			if err := col.Deserialize(propertyColumnPath(dir, vt.Name, prop)); err != nil {
				return nil, err
			}
		}
	}

	for _, triplet := range frag.Triplets() {
		srcVT, _ := frag.VertexTable(triplet.Src)
		dstVT, _ := frag.VertexTable(triplet.Dst)
		if at, ok := frag.OutAdjacency(triplet); ok {
			if err := at.DeserializeAdjacency(adjacencyPath(dir, srcVT.Name, dstVT.Name, at.Name, "out")); err != nil {
				return nil, err
			}
		}
		if at, ok := frag.InAdjacency(triplet); ok {
			if err := at.DeserializeAdjacency(adjacencyPath(dir, srcVT.Name, dstVT.Name, at.Name, "in")); err != nil {
				return nil, err
			}
		}
	}
	return frag, nil
}
