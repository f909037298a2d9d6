package mcp

import (
	"encoding/json"
	"slices"
)

// SchemaNode is the recursive JSON Schema subset used to describe tool input
// and output. Only populated members are serialized; AdditionalProperties is
// emitted only when explicitly set.
type SchemaNode struct {
	Type                 string                `json:"type,omitempty"`
	Title                string                `json:"title,omitempty"`
	Description          string                `json:"description,omitempty"`
	Properties           map[string]SchemaNode `json:"properties,omitempty"`
	Required             []string              `json:"required,omitempty"`
	AdditionalProperties *bool                 `json:"additionalProperties,omitempty"`
	Items                *SchemaNode           `json:"items,omitempty"`
	Enum                 []string              `json:"enum,omitempty"`
	OneOf                []SchemaNode          `json:"oneOf,omitempty"`
	AnyOf                []SchemaNode          `json:"anyOf,omitempty"`
	AllOf                []SchemaNode          `json:"allOf,omitempty"`
	Format               string                `json:"format,omitempty"`
	Default              string                `json:"default,omitempty"`
}

// Bool returns a pointer to v, for AdditionalProperties.
func Bool(v bool) *bool { return &v }

// IsZero reports whether no member of the schema is populated.
func (s SchemaNode) IsZero() bool {
	return s.Equal(SchemaNode{})
}

// Clone returns a deep copy of s sharing no memory with it.
func (s SchemaNode) Clone() SchemaNode {
	out := s
	if s.Properties != nil {
		out.Properties = make(map[string]SchemaNode, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = v.Clone()
		}
	}
	out.Required = slices.Clone(s.Required)
	out.Enum = slices.Clone(s.Enum)
	if s.AdditionalProperties != nil {
		out.AdditionalProperties = Bool(*s.AdditionalProperties)
	}
	if s.Items != nil {
		items := s.Items.Clone()
		out.Items = &items
	}
	out.OneOf = cloneNodes(s.OneOf)
	out.AnyOf = cloneNodes(s.AnyOf)
	out.AllOf = cloneNodes(s.AllOf)
	return out
}

func cloneNodes(in []SchemaNode) []SchemaNode {
	if in == nil {
		return nil
	}
	out := make([]SchemaNode, len(in))
	for i, n := range in {
		out[i] = n.Clone()
	}
	return out
}

// Equal reports structural equality. Nil and empty collections are equal,
// and Required is compared as a set.
func (s SchemaNode) Equal(o SchemaNode) bool {
	if s.Type != o.Type || s.Title != o.Title || s.Description != o.Description ||
		s.Format != o.Format || s.Default != o.Default {
		return false
	}
	if (s.AdditionalProperties == nil) != (o.AdditionalProperties == nil) {
		return false
	}
	if s.AdditionalProperties != nil && *s.AdditionalProperties != *o.AdditionalProperties {
		return false
	}
	if (s.Items == nil) != (o.Items == nil) {
		return false
	}
	if s.Items != nil && !s.Items.Equal(*o.Items) {
		return false
	}
	if len(s.Properties) != len(o.Properties) {
		return false
	}
	for k, v := range s.Properties {
		ov, ok := o.Properties[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	if !sameSet(s.Required, o.Required) || !slices.Equal(s.Enum, o.Enum) {
		return false
	}
	return nodesEqual(s.OneOf, o.OneOf) && nodesEqual(s.AnyOf, o.AnyOf) && nodesEqual(s.AllOf, o.AllOf)
}

func nodesEqual(a, b []SchemaNode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := slices.Clone(a), slices.Clone(b)
	slices.Sort(sa)
	slices.Sort(sb)
	return slices.Equal(sa, sb)
}

// String returns the compact JSON form of the schema.
func (s SchemaNode) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// String returns the compact tools/list form of the tool.
func (t Tool) String() string {
	b, err := json.Marshal(t)
	if err != nil {
		return "{}"
	}
	return string(b)
}
