package gen

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelBinding maps a schema name to a generated type produced by a sibling
// model-generation tool.
type ModelBinding struct {
	TypeName   string `yaml:"typeName"`
	ImportPath string `yaml:"importPath"`
}

// ModelIndex resolves schema references to model bindings. Built once per
// generation run and read-only afterwards; the empty index is a valid no-op
// resolver and generation proceeds fully without model integration, falling
// back to generic objects.
type ModelIndex struct {
	exact      map[string]ModelBinding
	normalized map[string]ModelBinding
}

// NewModelIndex snapshots the given bindings. Nil or empty input yields the
// no-op resolver.
func NewModelIndex(bindings map[string]ModelBinding) *ModelIndex {
	ix := &ModelIndex{
		exact:      make(map[string]ModelBinding, len(bindings)),
		normalized: make(map[string]ModelBinding, len(bindings)),
	}
	for name, b := range bindings {
		ix.exact[name] = b
		ix.normalized[normalizeModelName(name)] = b
	}
	return ix
}

// Resolve maps a schema reference (or bare schema name) to a binding:
// exact match first, then a case/separator-insensitive match. A miss is a
// valid terminal state, not an error.
func (ix *ModelIndex) Resolve(ref string) (ModelBinding, bool) {
	name := schemaNameFromRef(ref)
	if name == "" {
		return ModelBinding{}, false
	}
	if b, ok := ix.exact[name]; ok {
		return b, true
	}
	if b, ok := ix.normalized[normalizeModelName(name)]; ok {
		return b, true
	}
	return ModelBinding{}, false
}

func schemaNameFromRef(ref string) string {
	ref = strings.TrimSpace(ref)
	for _, prefix := range []string{"#/components/schemas/", "#/definitions/"} {
		if strings.HasPrefix(ref, prefix) {
			return ref[len(prefix):]
		}
	}
	if strings.ContainsAny(ref, "#/") {
		return ""
	}
	return ref
}

func normalizeModelName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// ParseModelIndex decodes an index document of the form
//
//	User:
//	  typeName: User
//	  importPath: example.com/models
//
// File reading belongs to the caller; the pipeline itself does no I/O.
func ParseModelIndex(data []byte) (map[string]ModelBinding, error) {
	var out map[string]ModelBinding
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("gen: parse model index: %w", err)
	}
	return out, nil
}
