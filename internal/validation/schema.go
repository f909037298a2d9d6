package validation

import (
	"fmt"
	"sort"

	"github.com/ggoodman/mcp-ble-go/mcp"
)

// SchemaNode validates and normalizes a schema tree in-place. It de-duplicates
// Required preserving first-occurrence order and reports the first structural
// problem found, prefixed with its path.
func SchemaNode(s *mcp.SchemaNode) error {
	if s == nil {
		return fmt.Errorf("nil schema")
	}
	return walk(s, "#")
}

// walk normalizes the whole tree even after a problem is found and returns
// the first problem in traversal order.
func walk(s *mcp.SchemaNode, path string) error {
	var first error
	note := func(err error) {
		if first == nil && err != nil {
			first = err
		}
	}

	seen := map[string]struct{}{}
	var req []string
	for _, name := range s.Required {
		if len(s.Properties) > 0 {
			if _, ok := s.Properties[name]; !ok {
				note(fmt.Errorf("%s: required property missing: %s", path, name))
			}
		}
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			req = append(req, name)
		}
	}
	s.Required = req

	if len(s.Enum) > 1 {
		uniq := map[string]struct{}{}
		for _, v := range s.Enum {
			uniq[v] = struct{}{}
		}
		if len(uniq) != len(s.Enum) {
			note(fmt.Errorf("%s: duplicate enum values", path))
		}
	}
	if len(s.Properties) > 0 && s.Type != "" && s.Type != "object" {
		note(fmt.Errorf("%s: properties on %s schema", path, s.Type))
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := s.Properties[name]
		note(walk(&p, path+"/properties/"+name))
		s.Properties[name] = p
	}
	if s.Items != nil {
		note(walk(s.Items, path+"/items"))
	}
	for _, group := range []struct {
		kw   string
		list []mcp.SchemaNode
	}{
		{"oneOf", s.OneOf},
		{"anyOf", s.AnyOf},
		{"allOf", s.AllOf},
	} {
		for i := range group.list {
			note(walk(&group.list[i], fmt.Sprintf("%s/%s/%d", path, group.kw, i)))
		}
	}
	return first
}
