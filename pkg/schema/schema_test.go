package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

func TestAddVertexLabelAssignsDenseIDs(t *testing.T) {
	s := New()
	person, err := s.AddVertexLabel("person", types.Int64, []PropertySpec{{Name: "v", Type: types.Int64}}, 0)
	require.NoError(t, err)
	assert.Equal(t, types.VLabel(0), person)

	company, err := s.AddVertexLabel("company", types.Int64, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, types.VLabel(1), company)
}

func TestAddVertexLabelRejectsRedefinition(t *testing.T) {
	s := New()
	_, err := s.AddVertexLabel("person", types.Int64, nil, 0)
	require.NoError(t, err)
	_, err = s.AddVertexLabel("person", types.Int64, nil, 0)
	assert.ErrorIs(t, err, types.ErrSchemaConflict)
}

func TestAddVertexLabelRejectsReservedAndSeparatorNames(t *testing.T) {
	s := New()
	_, err := s.AddVertexLabel("__wal__", types.Int64, nil, 0)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = s.AddVertexLabel("a/b", types.Int64, nil, 0)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = s.AddVertexLabel("a.b", types.Int64, nil, 0)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestAddEdgeLabelRequiresFixedWidthProperties(t *testing.T) {
	s := New()
	_, err := s.AddVertexLabel("person", types.Int64, nil, 0)
	require.NoError(t, err)

	_, err = s.AddEdgeLabel("person", "person", "knows",
		[]PropertySpec{{Name: "note", Type: types.LongString}},
		types.AdjacencyMultiple, types.AdjacencyMultiple)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestAddEdgeLabelComputesPayloadBytes(t *testing.T) {
	s := New()
	_, err := s.AddVertexLabel("person", types.Int64, nil, 0)
	require.NoError(t, err)

	triplet, err := s.AddEdgeLabel("person", "person", "knows",
		[]PropertySpec{{Name: "weight", Type: types.Int64}, {Name: "active", Type: types.Bool}},
		types.AdjacencyMultiple, types.AdjacencyMultiple)
	require.NoError(t, err)
	assert.Equal(t, types.VLabel(0), triplet.Src)

	cfg := s.Resolve("")
	require.Len(t, cfg.EdgeLabels, 1)
	assert.Equal(t, 9, cfg.EdgeLabels[0].PayloadBytes)
}

func TestAddEdgeLabelRejectsUnknownVertexLabel(t *testing.T) {
	s := New()
	_, err := s.AddEdgeLabel("person", "person", "knows", nil, types.AdjacencyMultiple, types.AdjacencyMultiple)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRegisterProcedureRejectsDuplicateNameOrID(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterProcedure("k_hop", "builtin", 1))
	assert.ErrorIs(t, s.RegisterProcedure("k_hop", "builtin", 2), types.ErrSchemaConflict)
	assert.ErrorIs(t, s.RegisterProcedure("other", "builtin", 1), types.ErrSchemaConflict)

	id, err := s.ProcedureID("k_hop")
	require.NoError(t, err)
	assert.Equal(t, uint8(1), id)
}

func TestResolveProducesFragmentConfig(t *testing.T) {
	s := New()
	_, err := s.AddVertexLabel("person", types.Int64, []PropertySpec{{Name: "v", Type: types.Int64}}, 0)
	require.NoError(t, err)
	_, err = s.AddEdgeLabel("person", "person", "knows", nil, types.AdjacencyMultiple, types.AdjacencyMultiple)
	require.NoError(t, err)

	cfg := s.Resolve("/tmp/data")
	require.Len(t, cfg.VertexLabels, 1)
	assert.Equal(t, "person", cfg.VertexLabels[0].Name)
	require.Len(t, cfg.EdgeLabels, 1)
	assert.Equal(t, "knows", cfg.EdgeLabels[0].Name)
}

func TestLoadYAMLBuildsSchemaFromFLEXShape(t *testing.T) {
	doc := `
types:
  vertex_types:
    - type_name: person
      primary_key: id
      properties:
        - property_name: id
          property_type: DT_SIGNED_INT64
        - property_name: v
          property_type: DT_SIGNED_INT64
  edge_types:
    - type_name: knows
      vertex_type_pair_relation:
        source_vertex: person
        destination_vertex: person
      out_strategy: multiple
      in_strategy: multiple
      properties:
        - property_name: weight
          property_type: DT_SIGNED_INT64
`
	s, err := LoadYAML(strings.NewReader(doc))
	require.NoError(t, err)

	label, err := s.VertexLabel("person")
	require.NoError(t, err)
	assert.Equal(t, types.VLabel(0), label)

	cfg := s.Resolve("")
	require.Len(t, cfg.VertexLabels, 1)
	require.Len(t, cfg.EdgeLabels, 1)
	assert.Equal(t, 8, cfg.EdgeLabels[0].PayloadBytes)
}
