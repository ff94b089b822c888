package gen

import (
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// ResponseShape classifies an operation's declared success response.
type ResponseShape string

const (
	// ShapeEmpty: no success content is declared (or 204).
	ShapeEmpty ResponseShape = "empty"
	// ShapeObject: a single structured value.
	ShapeObject ResponseShape = "object"
	// ShapeCollection: an array of structured values.
	ShapeCollection ResponseShape = "collection"
)

// successPreference orders which declared success status speaks for the
// operation when several are present.
var successPreference = []string{"200", "201", "202"}

// classifyResponse is total: every operation gets a defined shape even when
// response metadata is missing or malformed. It also reports the schema ref
// backing the shape (the item schema for collections) so a model can be
// bound, or "" when none is declared.
func classifyResponse(responses openapi3.Responses) (ResponseShape, string) {
	if len(responses) == 0 {
		return ShapeObject, ""
	}

	code := pickSuccessStatus(responses)
	if code == "" {
		// Permissive default: never block generation on odd response maps.
		return ShapeObject, ""
	}
	if code == "204" {
		return ShapeEmpty, ""
	}
	rref := responses[code]
	if rref == nil || rref.Value == nil || len(rref.Value.Content) == 0 {
		return ShapeEmpty, ""
	}

	media := firstMediaType(rref.Value.Content)
	if media == nil || media.Schema == nil {
		return ShapeObject, ""
	}
	if media.Schema.Value != nil && media.Schema.Value.Type == "array" {
		if items := media.Schema.Value.Items; items != nil {
			return ShapeCollection, items.Ref
		}
		return ShapeCollection, ""
	}
	return ShapeObject, media.Schema.Ref
}

func pickSuccessStatus(responses openapi3.Responses) string {
	for _, code := range successPreference {
		if _, ok := responses[code]; ok {
			return code
		}
	}
	// Any remaining 2xx, smallest first for determinism.
	var rest []string
	for code := range responses {
		if len(code) == 3 && code[0] == '2' {
			rest = append(rest, code)
		}
	}
	if len(rest) == 0 {
		return ""
	}
	sort.Strings(rest)
	return rest[0]
}

// firstMediaType returns the highest-priority media type present, reusing
// the body content ordering.
func firstMediaType(content openapi3.Content) *openapi3.MediaType {
	mimes := make([]string, 0, len(content))
	for mime := range content {
		mimes = append(mimes, mime)
	}
	sort.Slice(mimes, func(i, j int) bool {
		ri, rj := contentRank(mimes[i]), contentRank(mimes[j])
		if ri != rj {
			return ri < rj
		}
		return mimes[i] < mimes[j]
	})
	return content[mimes[0]]
}
