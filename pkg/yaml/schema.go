package yaml

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaGenerator reflects a JSON schema from a configuration kind, pulling
// property descriptions from Go doc comments. Used by the generators under
// internal/schemagen.
type SchemaGenerator struct {
	obj  any
	base string
	root string
}

// NewSchemaGenerator creates a generator for obj. base is the module import
// path and root the filesystem path to the module root, used to harvest doc
// comments.
func NewSchemaGenerator(obj any, base, root string) *SchemaGenerator {
	return &SchemaGenerator{
		obj:  obj,
		base: base,
		root: root,
	}
}

// Generate reflects and serializes the schema.
func (g *SchemaGenerator) Generate() ([]byte, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
	}

	err := r.AddGoComments(g.base, g.root)
	if err != nil {
		return nil, fmt.Errorf("add go comments: %w", err)
	}

	js := r.Reflect(g.obj)

	data, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return append(data, '\n'), nil
}
