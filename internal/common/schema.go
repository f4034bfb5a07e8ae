package common

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
)

// ReflectSchema returns the JSON schema of t as a generic map: inlined,
// with no $defs indirection and no additional properties allowed. Fields
// without omitempty are required.
func ReflectSchema(t reflect.Type) map[string]any {
	reflector := &jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: false,
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
	}
	schema := reflector.ReflectFromType(t)

	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}
