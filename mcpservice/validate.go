package mcpservice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ggoodman/mcp-ble-go/mcp"
	"github.com/google/jsonschema-go/jsonschema"
)

// ErrInvalidArguments is returned when tools/call arguments do not satisfy the
// tool's input schema.
var ErrInvalidArguments = errors.New("mcpservice: invalid arguments")

// compileSchema converts a SchemaNode into a resolved validator.
func compileSchema(n mcp.SchemaNode) (*jsonschema.Resolved, error) {
	rs, err := toValidationSchema(n).Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve input schema: %w", err)
	}
	return rs, nil
}

func toValidationSchema(n mcp.SchemaNode) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:        n.Type,
		Title:       n.Title,
		Description: n.Description,
		Format:      n.Format,
	}
	if len(n.Properties) > 0 {
		s.Properties = make(map[string]*jsonschema.Schema, len(n.Properties))
		for k, v := range n.Properties {
			s.Properties[k] = toValidationSchema(v)
		}
	}
	if len(n.Required) > 0 {
		s.Required = append([]string(nil), n.Required...)
	}
	if n.AdditionalProperties != nil {
		if *n.AdditionalProperties {
			s.AdditionalProperties = &jsonschema.Schema{}
		} else {
			s.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
		}
	}
	if n.Items != nil {
		s.Items = toValidationSchema(*n.Items)
	}
	for _, e := range n.Enum {
		s.Enum = append(s.Enum, e)
	}
	s.OneOf = toValidationList(n.OneOf)
	s.AnyOf = toValidationList(n.AnyOf)
	s.AllOf = toValidationList(n.AllOf)
	return s
}

func toValidationList(in []mcp.SchemaNode) []*jsonschema.Schema {
	if len(in) == 0 {
		return nil
	}
	out := make([]*jsonschema.Schema, 0, len(in))
	for _, n := range in {
		out = append(out, toValidationSchema(n))
	}
	return out
}

// validateArgs checks raw against rs. Absent arguments validate as an empty
// object for object schemas and as null otherwise.
func validateArgs(rs *jsonschema.Resolved, schemaType string, raw json.RawMessage) error {
	var instance any
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		if schemaType == "object" {
			instance = map[string]any{}
		}
	default:
		if err := json.Unmarshal(raw, &instance); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
	}
	if err := rs.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}
