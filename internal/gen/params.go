package gen

import (
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// ParamLocation is where a resolved parameter travels.
type ParamLocation string

const (
	LocPath  ParamLocation = "path"
	LocQuery ParamLocation = "query"
)

// PrimitiveType is the resolved schema type of a parameter.
type PrimitiveType string

const (
	TypeString  PrimitiveType = "string"
	TypeNumber  PrimitiveType = "number"
	TypeBoolean PrimitiveType = "boolean"
)

// Param is a merged, fully-resolved operation parameter.
type Param struct {
	Name     string
	In       ParamLocation
	Required bool
	Type     PrimitiveType
}

// resolveParams merges path-item parameters with operation parameters keyed
// by (in, name); operation-level entries replace path-level ones entirely.
// An unresolvable or optional path parameter, or an unresolvable query
// parameter, makes the whole operation unsupported: partial signatures are
// never generated.
func resolveParams(item *openapi3.PathItem, op *openapi3.Operation) ([]Param, error) {
	merged := make(map[string]*openapi3.Parameter)
	for _, pref := range item.Parameters {
		if pref == nil || pref.Value == nil {
			continue
		}
		merged[paramKey(pref.Value.In, pref.Value.Name)] = pref.Value
	}
	for _, pref := range op.Parameters {
		if pref == nil || pref.Value == nil {
			continue
		}
		merged[paramKey(pref.Value.In, pref.Value.Name)] = pref.Value
	}

	params := make([]Param, 0, len(merged))
	for _, p := range merged {
		var loc ParamLocation
		switch p.In {
		case "path":
			loc = LocPath
		case "query":
			loc = LocQuery
		default:
			// Header and cookie parameters are outside the generated surface.
			continue
		}

		typ, ok := primitiveType(p.Schema)
		if loc == LocPath {
			if !ok {
				return nil, fmt.Errorf("path parameter %q has no primitive-resolvable type", p.Name)
			}
			if !p.Required {
				return nil, fmt.Errorf("path parameter %q is not required", p.Name)
			}
		}
		if loc == LocQuery && !ok {
			return nil, fmt.Errorf("query parameter %q has no primitive-resolvable type", p.Name)
		}

		params = append(params, Param{Name: p.Name, In: loc, Required: p.Required, Type: typ})
	}

	sort.Slice(params, func(i, j int) bool {
		if params[i].In != params[j].In {
			return params[i].In < params[j].In
		}
		return params[i].Name < params[j].Name
	})
	return params, nil
}

func paramKey(in, name string) string { return in + ":" + name }

// primitiveType maps a schema to string/number/boolean; anything else is
// unresolved.
func primitiveType(ref *openapi3.SchemaRef) (PrimitiveType, bool) {
	if ref == nil || ref.Value == nil {
		return "", false
	}
	switch ref.Value.Type {
	case "string":
		return TypeString, true
	case "integer", "number":
		return TypeNumber, true
	case "boolean":
		return TypeBoolean, true
	default:
		return "", false
	}
}
