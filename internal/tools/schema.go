package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	invschema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// metaKeys are schema-dialect fields that mean nothing to a model.
var metaKeys = []string{"$schema", "$id"}

// SchemaFor reflects the parameter schema of the argument struct A.
// Field descriptions come from the jsonschema_description tag; fields without
// omitempty are required.
func SchemaFor[A any]() json.RawMessage {
	r := &invschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	data, err := json.Marshal(r.Reflect(new(A)))
	if err != nil {
		panic(fmt.Sprintf("tools: failed to marshal reflected schema: %v", err))
	}
	out, err := normalizeSchema(data)
	if err != nil {
		panic(fmt.Sprintf("tools: failed to normalize reflected schema: %v", err))
	}
	return out
}

// normalizeSchema strips meta fields and makes sure object schemas carry a
// properties map, which some providers require.
func normalizeSchema(raw json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage(`{"type":"object"}`)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema must be a JSON object: %w", err)
	}
	for _, key := range metaKeys {
		delete(doc, key)
	}
	if doc["type"] == "object" {
		if _, ok := doc["properties"]; !ok {
			doc["properties"] = map[string]any{}
		}
	}
	return json.Marshal(doc)
}

func compileSchema(name string, schema json.RawMessage) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	url := name + ".schema.json"
	if err := compiler.AddResource(url, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("failed to add schema for %s: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", name, err)
	}
	return compiled, nil
}
