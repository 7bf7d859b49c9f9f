package schema

import (
	"strings"
	"sync"

	"github.com/flexgraph-db/flexgraph/pkg/fragment"
	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// reserved names a declared label, property, or procedure may not use,
// alongside the path-separator characters rejected outright.
var reserved = map[string]bool{
	"__wal__":  true,
	"__meta__": true,
	"__tomb__": true,
}

// PropertySpec declares one property of a vertex or edge label.
type PropertySpec struct {
	Name     string
	Type     types.PropertyType
	Strategy types.StorageStrategy
}

type vertexLabelSpec struct {
	label      types.VLabel
	name       string
	primaryKey types.PropertyType
	properties []PropertySpec
	maxVNum    int
}

type edgeLabelSpec struct {
	edge         types.ELabel
	name         string
	srcName      string
	dstName      string
	properties   []PropertySpec
	outStrategy  types.AdjacencyStrategy
	inStrategy   types.AdjacencyStrategy
	payloadBytes int
}

type procedureSpec struct {
	name string
	path string
	id   uint8
}

// Schema is the declarative, immutable-after-init description of §4.1:
// vertex labels, edge-label triplets, and the registered-procedure
// directory. It is safe for concurrent reads once built; AddVertexLabel/
// AddEdgeLabel/RegisterProcedure are serialized by an internal lock but
// are meant to be called during a single-threaded startup phase.
type Schema struct {
	mu sync.Mutex

	vertexLabels map[string]*vertexLabelSpec
	vertexOrder  []string
	nextVLabel   int

	edgeLabels map[string]*edgeLabelSpec
	edgeOrder  []string
	nextELabel int

	procedures map[string]procedureSpec
	procByID   map[uint8]string
}

// New creates an empty schema.
func New() *Schema {
	return &Schema{
		vertexLabels: make(map[string]*vertexLabelSpec),
		edgeLabels:   make(map[string]*edgeLabelSpec),
		procedures:   make(map[string]procedureSpec),
		procByID:     make(map[uint8]string),
	}
}

func validateName(name string) error {
	if name == "" {
		return types.Errorf(types.CodeInvalidInput, "schema.validateName", "name must not be empty")
	}
	if strings.ContainsAny(name, "/\\.") {
		return types.Errorf(types.CodeInvalidInput, "schema.validateName", "name %q contains a path separator", name)
	}
	if reserved[name] {
		return types.Errorf(types.CodeInvalidInput, "schema.validateName", "name %q is reserved", name)
	}
	return nil
}

// AddVertexLabel declares a new vertex label with a primary-key type and
// zero or more user properties. Redefining an existing label name fails
// with SchemaConflict.
func (s *Schema) AddVertexLabel(name string, primaryKey types.PropertyType, props []PropertySpec, maxVNum int) (types.VLabel, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}
	if !primaryKey.IsIntegerKey() && primaryKey != types.ShortString {
		return 0, types.Errorf(types.CodeInvalidInput, "schema.AddVertexLabel", "primary key type %s is not a valid oid type", primaryKey)
	}
	for _, p := range props {
		if err := validateName(p.Name); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vertexLabels[name]; exists {
		return 0, types.Errorf(types.CodeSchemaConflict, "schema.AddVertexLabel", "vertex label %q already declared", name)
	}
	if s.nextVLabel >= 256 {
		return 0, types.Errorf(types.CodeSchemaConflict, "schema.AddVertexLabel", "vertex_label_num exceeds 256")
	}

	label := types.VLabel(s.nextVLabel)
	s.nextVLabel++
	s.vertexLabels[name] = &vertexLabelSpec{label: label, name: name, primaryKey: primaryKey, properties: props, maxVNum: maxVNum}
	s.vertexOrder = append(s.vertexOrder, name)
	return label, nil
}

// fixedWidthBytes returns the byte width of a fixed-width primitive
// property type, or 0 if t cannot appear in an edge's fixed-size
// payload record (the string kinds).
func fixedWidthBytes(t types.PropertyType) int {
	switch t {
	case types.Bool:
		return 1
	case types.Int32, types.UInt32, types.Float32, types.Date32:
		return 4
	case types.Int64, types.UInt64, types.Float64, types.Timestamp64:
		return 8
	default:
		return 0
	}
}

// AddEdgeLabel declares a new edge-label triplet between two already
// declared vertex labels. Edge properties must be fixed-width
// primitives, since §3's adjacency representation stores per-edge data
// as a fixed-size record, not a column. Redefining an existing
// (src, dst, edge) triplet fails with SchemaConflict.
func (s *Schema) AddEdgeLabel(srcName, dstName, edgeName string, props []PropertySpec, outStrategy, inStrategy types.AdjacencyStrategy) (types.Triplet, error) {
	if err := validateName(edgeName); err != nil {
		return types.Triplet{}, err
	}

	payloadBytes := 0
	for _, p := range props {
		if err := validateName(p.Name); err != nil {
			return types.Triplet{}, err
		}
		w := fixedWidthBytes(p.Type)
		if w == 0 {
			return types.Triplet{}, types.Errorf(types.CodeInvalidInput, "schema.AddEdgeLabel", "edge property %q has non-fixed-width type %s", p.Name, p.Type)
		}
		payloadBytes += w
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	srcSpec, ok := s.vertexLabels[srcName]
	if !ok {
		return types.Triplet{}, types.Errorf(types.CodeNotFound, "schema.AddEdgeLabel", "unknown src vertex label %q", srcName)
	}
	dstSpec, ok := s.vertexLabels[dstName]
	if !ok {
		return types.Triplet{}, types.Errorf(types.CodeNotFound, "schema.AddEdgeLabel", "unknown dst vertex label %q", dstName)
	}

	key := srcName + "/" + dstName + "/" + edgeName
	if _, exists := s.edgeLabels[key]; exists {
		return types.Triplet{}, types.Errorf(types.CodeSchemaConflict, "schema.AddEdgeLabel", "edge label %q already declared for (%s,%s)", edgeName, srcName, dstName)
	}
	if s.nextELabel >= 256 {
		return types.Triplet{}, types.Errorf(types.CodeSchemaConflict, "schema.AddEdgeLabel", "edge_label_num exceeds 256")
	}

	edge := types.ELabel(s.nextELabel)
	s.nextELabel++
	triplet := types.Triplet{Src: srcSpec.label, Dst: dstSpec.label, Edge: edge}
	s.edgeLabels[key] = &edgeLabelSpec{
		edge: edge, name: edgeName, srcName: srcName, dstName: dstName,
		properties: props, outStrategy: outStrategy, inStrategy: inStrategy, payloadBytes: payloadBytes,
	}
	s.edgeOrder = append(s.edgeOrder, key)
	return triplet, nil
}

// RegisterProcedure records name -> (path, id) in the procedure
// directory. Both name and id must be unique; ids are expected to be
// stable across restarts, per §4.1.
func (s *Schema) RegisterProcedure(name, path string, id uint8) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.procedures[name]; exists {
		return types.Errorf(types.CodeSchemaConflict, "schema.RegisterProcedure", "procedure %q already registered", name)
	}
	if owner, exists := s.procByID[id]; exists {
		return types.Errorf(types.CodeSchemaConflict, "schema.RegisterProcedure", "procedure id %d already registered to %q", id, owner)
	}
	s.procedures[name] = procedureSpec{name: name, path: path, id: id}
	s.procByID[id] = name
	return nil
}

// ProcedureID resolves a registered procedure's numeric id.
func (s *Schema) ProcedureID(name string) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spec, ok := s.procedures[name]
	if !ok {
		return 0, types.Errorf(types.CodeNotFound, "schema.ProcedureID", "unknown procedure %q", name)
	}
	return spec.id, nil
}

// ProcedureNames returns the registered procedure names in ascending
// procedure-id order, for the built-in SHOW_STORED_PROCEDURES admin
// command.
func (s *Schema) ProcedureNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.procedures))
	for id := 0; id < 256; id++ {
		if name, ok := s.procByID[uint8(id)]; ok {
			names = append(names, name)
		}
	}
	return names
}

// VertexLabel resolves a declared vertex label name to its id.
func (s *Schema) VertexLabel(name string) (types.VLabel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spec, ok := s.vertexLabels[name]
	if !ok {
		return 0, types.Errorf(types.CodeNotFound, "schema.VertexLabel", "unknown vertex label %q", name)
	}
	return spec.label, nil
}

// Resolve builds the fragment.Config that the storage engine runs
// against from this schema's declared labels.
func (s *Schema) Resolve(dataDir string) fragment.Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := fragment.Config{DataDir: dataDir}
	for _, name := range s.vertexOrder {
		v := s.vertexLabels[name]
		var props []fragment.PropertyDef
		for _, p := range v.properties {
			props = append(props, fragment.PropertyDef{Name: p.Name, Type: p.Type, Strategy: p.Strategy})
		}
		cfg.VertexLabels = append(cfg.VertexLabels, fragment.VertexLabelDef{
			Label: v.label, Name: v.name, PrimaryKey: v.primaryKey, Properties: props, MaxVNum: v.maxVNum,
		})
	}
	for _, key := range s.edgeOrder {
		e := s.edgeLabels[key]
		srcLabel := s.vertexLabels[e.srcName].label
		dstLabel := s.vertexLabels[e.dstName].label
		var props []fragment.PropertyDef
		for _, p := range e.properties {
			props = append(props, fragment.PropertyDef{Name: p.Name, Type: p.Type, Strategy: p.Strategy})
		}
		cfg.EdgeLabels = append(cfg.EdgeLabels, fragment.EdgeLabelDef{
			Triplet:      types.Triplet{Src: srcLabel, Dst: dstLabel, Edge: e.edge},
			Name:         e.name,
			Properties:   props,
			OutStrategy:  e.outStrategy,
			InStrategy:   e.inStrategy,
			PayloadBytes: e.payloadBytes,
		})
	}
	return cfg
}
