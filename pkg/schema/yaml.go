package schema

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// yamlDoc mirrors the shape GraphScope's FLEX engine uses for its graph
// schema files, trimmed to the fields this engine needs.
type yamlDoc struct {
	Types struct {
		VertexTypes []yamlVertexType `yaml:"vertex_types"`
		EdgeTypes   []yamlEdgeType   `yaml:"edge_types"`
	} `yaml:"types"`
}

type yamlVertexType struct {
	TypeName   string         `yaml:"type_name"`
	PrimaryKey string         `yaml:"primary_key"`
	MaxVNum    int            `yaml:"max_vertex_num"`
	Properties []yamlProperty `yaml:"properties"`
}

type yamlEdgeType struct {
	TypeName               string                `yaml:"type_name"`
	VertexTypePairRelation yamlVertexPairRelation `yaml:"vertex_type_pair_relation"`
	OutStrategy            string                `yaml:"out_strategy"`
	InStrategy             string                `yaml:"in_strategy"`
	Properties             []yamlProperty        `yaml:"properties"`
}

type yamlVertexPairRelation struct {
	Source      string `yaml:"source_vertex"`
	Destination string `yaml:"destination_vertex"`
}

type yamlProperty struct {
	PropertyName string `yaml:"property_name"`
	PropertyType string `yaml:"property_type"`
}

func parsePropertyType(s string) (types.PropertyType, error) {
	switch s {
	case "DT_BOOL":
		return types.Bool, nil
	case "DT_SIGNED_INT32":
		return types.Int32, nil
	case "DT_SIGNED_INT64":
		return types.Int64, nil
	case "DT_UNSIGNED_INT32":
		return types.UInt32, nil
	case "DT_UNSIGNED_INT64":
		return types.UInt64, nil
	case "DT_FLOAT":
		return types.Float32, nil
	case "DT_DOUBLE":
		return types.Float64, nil
	case "DT_DATE32":
		return types.Date32, nil
	case "DT_TIMESTAMP64":
		return types.Timestamp64, nil
	case "DT_STRING", "DT_STRING_SHORT":
		return types.ShortString, nil
	case "DT_STRING_LONG":
		return types.LongString, nil
	case "DT_STRING_DICT":
		return types.StringDict, nil
	default:
		return 0, types.Errorf(types.CodeInvalidInput, "schema.parsePropertyType", "unknown property type %q", s)
	}
}

func parseAdjacencyStrategy(s string) (types.AdjacencyStrategy, error) {
	switch s {
	case "", "multiple":
		return types.AdjacencyMultiple, nil
	case "single":
		return types.AdjacencySingle, nil
	case "none":
		return types.AdjacencyNone, nil
	default:
		return 0, types.Errorf(types.CodeInvalidInput, "schema.parseAdjacencyStrategy", "unknown adjacency strategy %q", s)
	}
}

func toProperties(yps []yamlProperty) ([]PropertySpec, error) {
	var out []PropertySpec
	for _, yp := range yps {
		pt, err := parsePropertyType(yp.PropertyType)
		if err != nil {
			return nil, err
		}
		out = append(out, PropertySpec{Name: yp.PropertyName, Type: pt, Strategy: types.Memory})
	}
	return out, nil
}

// LoadYAML builds a Schema from a GraphScope-FLEX-shaped schema file.
// This is schema declaration convenience for tests and for the
// out-of-scope bulk loader; it does not itself load any data.
func LoadYAML(r io.Reader) (*Schema, error) {
	var doc yamlDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, types.Errorf(types.CodeInvalidInput, "schema.LoadYAML", "decode: %w", err)
	}

	s := New()
	for _, vt := range doc.Types.VertexTypes {
		props, err := toProperties(vt.Properties)
		if err != nil {
			return nil, err
		}
		var pkType types.PropertyType = types.Int64
		for _, p := range props {
			if p.Name == vt.PrimaryKey {
				pkType = p.Type
				break
			}
		}
		if _, err := s.AddVertexLabel(vt.TypeName, pkType, props, vt.MaxVNum); err != nil {
			return nil, err
		}
	}
	for _, et := range doc.Types.EdgeTypes {
		props, err := toProperties(et.Properties)
		if err != nil {
			return nil, err
		}
		out, err := parseAdjacencyStrategy(et.OutStrategy)
		if err != nil {
			return nil, err
		}
		in, err := parseAdjacencyStrategy(et.InStrategy)
		if err != nil {
			return nil, err
		}
		if _, err := s.AddEdgeLabel(et.VertexTypePairRelation.Source, et.VertexTypePairRelation.Destination, et.TypeName, props, out, in); err != nil {
			return nil, err
		}
	}
	return s, nil
}
