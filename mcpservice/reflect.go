package mcpservice

import (
	"encoding/json"
	"fmt"

	"github.com/ggoodman/mcp-ble-go/mcp"
	"github.com/invopop/jsonschema"
)

// ReflectSchema reflects a Go type T into the compact schema model. When
// allowAdditional is false, object schemas set additionalProperties=false.
func ReflectSchema[T any](allowAdditional bool) mcp.SchemaNode {
	r := &jsonschema.Reflector{
		DoNotReference:            true, // inline defs
		ExpandedStruct:            true, // put struct at root
		AllowAdditionalProperties: allowAdditional,
	}
	// Reflect from a zero value pointer to capture struct tags consistently
	s := r.Reflect(new(T))
	if s == nil {
		return mcp.SchemaNode{}
	}
	return fromReflected(s)
}

// fromReflected recursively maps a jsonschema.Schema to a SchemaNode. Members
// the schema model does not carry (refs, numeric bounds, patterns) are
// dropped.
func fromReflected(s *jsonschema.Schema) mcp.SchemaNode {
	if s == nil {
		return mcp.SchemaNode{}
	}
	n := mcp.SchemaNode{
		Type:        s.Type,
		Title:       s.Title,
		Description: s.Description,
		Format:      s.Format,
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		n.Properties = make(map[string]mcp.SchemaNode, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			n.Properties[el.Key] = fromReflected(el.Value)
		}
	}
	if len(s.Required) > 0 {
		n.Required = append([]string(nil), s.Required...)
	}
	if s.AdditionalProperties != nil {
		n.AdditionalProperties = mcp.Bool(s.AdditionalProperties != jsonschema.FalseSchema)
	}
	if s.Items != nil {
		items := fromReflected(s.Items)
		n.Items = &items
	}
	for _, v := range s.Enum {
		n.Enum = append(n.Enum, scalarString(v))
	}
	n.OneOf = fromReflectedList(s.OneOf)
	n.AnyOf = fromReflectedList(s.AnyOf)
	n.AllOf = fromReflectedList(s.AllOf)
	if s.Default != nil {
		n.Default = scalarString(s.Default)
	}
	return n
}

func fromReflectedList(in []*jsonschema.Schema) []mcp.SchemaNode {
	if len(in) == 0 {
		return nil
	}
	out := make([]mcp.SchemaNode, 0, len(in))
	for _, s := range in {
		out = append(out, fromReflected(s))
	}
	return out
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
