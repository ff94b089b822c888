package gen

import (
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// BodyEncoding is the serialization strategy for a request body.
type BodyEncoding string

const (
	// BodyNone: the operation carries no body.
	BodyNone BodyEncoding = "none"
	// BodyStructured: a generic key/value object encoded per the content type.
	BodyStructured BodyEncoding = "structured"
	// BodyPrimitive: a raw string body.
	BodyPrimitive BodyEncoding = "primitive"
)

// Body is the single selected request-body representation.
type Body struct {
	ContentType string
	Encoding    BodyEncoding
	Required    bool
}

// contentTypePriority fixes the selection order when an operation offers
// competing body representations. Unlisted types rank after all of these.
var contentTypePriority = []string{
	"multipart/form-data",
	"application/x-www-form-urlencoded",
	"application/json",
	"text/plain",
	"text/html",
	"application/xml",
}

func contentRank(mime string) int {
	for i, ct := range contentTypePriority {
		if ct == mime {
			return i
		}
	}
	return len(contentTypePriority)
}

// selectBody picks the highest-priority declared content type and derives
// its encoding. A body whose chosen schema cannot be encoded is dropped with
// an error the caller turns into a warning; the operation itself survives.
func selectBody(rb *openapi3.RequestBodyRef) (Body, error) {
	if rb == nil || rb.Value == nil || len(rb.Value.Content) == 0 {
		return Body{Encoding: BodyNone}, nil
	}

	mimes := make([]string, 0, len(rb.Value.Content))
	for mime := range rb.Value.Content {
		mimes = append(mimes, mime)
	}
	// Rank first, lexical order as the tiebreak so unlisted types stay
	// deterministic.
	sort.Slice(mimes, func(i, j int) bool {
		ri, rj := contentRank(mimes[i]), contentRank(mimes[j])
		if ri != rj {
			return ri < rj
		}
		return mimes[i] < mimes[j]
	})
	chosen := mimes[0]
	media := rb.Value.Content[chosen]

	encoding := BodyStructured
	if media != nil && media.Schema != nil && media.Schema.Value != nil {
		switch media.Schema.Value.Type {
		case "string", "":
			if media.Schema.Value.Type == "string" {
				encoding = BodyPrimitive
			}
		case "object":
		case "array", "integer", "number", "boolean":
			return Body{Encoding: BodyNone}, fmt.Errorf("unsupported body schema type %q for %s", media.Schema.Value.Type, chosen)
		}
	}
	return Body{ContentType: chosen, Encoding: encoding, Required: rb.Value.Required}, nil
}
