// Package gen resolves a parsed OpenAPI document into unambiguous method
// descriptors: merged parameters, a single selected body representation, a
// classified response shape, and an optional model binding per operation.
// Every function here is pure over the document subtree; exclusion decisions
// go to the warning sink and never abort the run.
package gen

import (
	"sort"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MethodDescriptor is one synthesized client method. Owned by the
// synthesizer; the assembler and emitter consume it read-only.
type MethodDescriptor struct {
	Name          string
	HTTPMethod    string
	Path          string
	Group         string
	Summary       string
	PathParams    []Param
	QueryParams   []Param
	Body          Body
	ResponseShape ResponseShape
	// Model is nil when the response schema resolves to no generated type;
	// the method then falls back to a generic object.
	Model *ModelBinding
}

// methodOrder fixes verb iteration so output never depends on map order.
var methodOrder = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

func opForMethod(item *openapi3.PathItem, method string) *openapi3.Operation {
	switch method {
	case "GET":
		return item.Get
	case "POST":
		return item.Post
	case "PUT":
		return item.Put
	case "DELETE":
		return item.Delete
	case "PATCH":
		return item.Patch
	}
	return nil
}

// Synthesize produces one descriptor per eligible operation, sorted by path
// then verb. index may be the no-op resolver; sink may be nil.
func Synthesize(doc *openapi3.T, index *ModelIndex, sink Sink) ([]MethodDescriptor, error) {
	if doc == nil {
		return nil, &GenerationError{Reason: "nil document"}
	}
	if doc.Paths == nil {
		return nil, &GenerationError{Reason: "document has no paths container"}
	}
	if index == nil {
		index = NewModelIndex(nil)
	}

	pathKeys := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	var methods []MethodDescriptor
	for _, path := range pathKeys {
		item := doc.Paths[path]
		if item == nil {
			continue
		}
		for _, verb := range methodOrder {
			op := opForMethod(item, verb)
			if op == nil {
				continue
			}
			if md, ok := synthesizeOne(path, verb, item, op, index, sink); ok {
				methods = append(methods, md)
			}
		}
	}

	sort.Slice(methods, func(i, j int) bool {
		if methods[i].Path != methods[j].Path {
			return methods[i].Path < methods[j].Path
		}
		return methods[i].HTTPMethod < methods[j].HTTPMethod
	})

	// Method names must be unique within their group; the first holder in
	// sorted order keeps the name.
	seen := make(map[string]struct{}, len(methods))
	out := methods[:0]
	for _, md := range methods {
		key := md.Group + "." + md.Name
		if _, dup := seen[key]; dup {
			sink.emit(md.Path, md.HTTPMethod, md.Name, "duplicate method name in group, operation dropped")
			continue
		}
		seen[key] = struct{}{}
		out = append(out, md)
	}
	return out, nil
}

func synthesizeOne(path, verb string, item *openapi3.PathItem, op *openapi3.Operation, index *ModelIndex, sink Sink) (MethodDescriptor, bool) {
	opID := strings.TrimSpace(op.OperationID)
	if opID == "" {
		sink.emit(path, verb, "", "missing operationId")
		return MethodDescriptor{}, false
	}
	name, ok := sanitizeOperationID(opID)
	if !ok {
		sink.emit(path, verb, opID, "operationId has no alphanumeric content")
		return MethodDescriptor{}, false
	}

	params, err := resolveParams(item, op)
	if err != nil {
		sink.emit(path, verb, opID, err.Error())
		return MethodDescriptor{}, false
	}
	var pathParams, queryParams []Param
	for _, p := range params {
		if p.In == LocPath {
			pathParams = append(pathParams, p)
		} else {
			queryParams = append(queryParams, p)
		}
	}

	// Every placeholder needs a resolved path parameter and vice versa.
	placeholders := pathPlaceholders(path)
	if reason := matchPlaceholders(placeholders, pathParams); reason != "" {
		sink.emit(path, verb, opID, reason)
		return MethodDescriptor{}, false
	}

	body, err := selectBody(op.RequestBody)
	if err != nil {
		// The body is dropped; the operation itself survives.
		sink.emit(path, verb, opID, "request body dropped: "+err.Error())
		body = Body{Encoding: BodyNone}
	}

	shape, schemaRef := classifyResponse(op.Responses)
	var model *ModelBinding
	if schemaRef != "" {
		if b, found := index.Resolve(schemaRef); found {
			model = &b
		}
	}

	group := ""
	for _, t := range op.Tags {
		if t = strings.TrimSpace(t); t != "" {
			group = t
			break
		}
	}

	return MethodDescriptor{
		Name:          name,
		HTTPMethod:    verb,
		Path:          path,
		Group:         group,
		Summary:       strings.TrimSpace(op.Summary),
		PathParams:    pathParams,
		QueryParams:   queryParams,
		Body:          body,
		ResponseShape: shape,
		Model:         model,
	}, true
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// sanitizeOperationID turns an operationId into an exported Go identifier:
// non-alphanumeric runs become word breaks, each word is title-cased, and a
// digit-leading result gets an "Op" prefix. Returns false when nothing
// alphanumeric survives; such operations are dropped, not renamed.
func sanitizeOperationID(id string) (string, bool) {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, id)
	words := strings.FieldsFunc(mapped, func(r rune) bool { return r == '_' })
	if len(words) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteString(titleCaser.String(w))
	}
	name := b.String()
	if name[0] >= '0' && name[0] <= '9' {
		name = "Op" + name
	}
	return name, true
}

func pathPlaceholders(path string) []string {
	var out []string
	rest := path
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return out
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return out
		}
		out = append(out, rest[open+1:open+end])
		rest = rest[open+end+1:]
	}
}

func matchPlaceholders(placeholders []string, pathParams []Param) string {
	have := make(map[string]bool, len(pathParams))
	for _, p := range pathParams {
		have[p.Name] = true
	}
	for _, ph := range placeholders {
		if !have[ph] {
			return "path placeholder {" + ph + "} has no resolved path parameter"
		}
		delete(have, ph)
	}
	var left []string
	for name := range have {
		left = append(left, name)
	}
	if len(left) > 0 {
		sort.Strings(left)
		return "path parameter " + left[0] + " has no placeholder in the path template"
	}
	return ""
}
