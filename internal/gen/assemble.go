package gen

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ClientModel is the assembled client surface handed to the emitter: a root
// entry point plus one sub-client per resource group, with lifecycle
// operations (Close, WithHeaders) emitted on the root.
type ClientModel struct {
	// Title is the API title, informational only.
	Title string
	// ClientName is the exported root client type, e.g. "PetstoreClient".
	ClientName string
	// Package is the generated package name.
	Package string
	// BaseURL is the first declared server URL, used as the default.
	BaseURL string
	// Root holds methods with no resource grouping.
	Root []MethodDescriptor
	// Groups are resource-scoped sub-clients, sorted by name.
	Groups []Group
}

// Group is one resource-scoped sub-client.
type Group struct {
	// Name is the exported accessor/type stem, e.g. "Pets".
	Name string
	// Tag is the original spec tag the group came from.
	Tag     string
	Methods []MethodDescriptor
}

// Assemble groups descriptors into a client model. Methods keep their sorted
// order inside each group.
func Assemble(doc *openapi3.T, methods []MethodDescriptor, packageName string) *ClientModel {
	cm := &ClientModel{Package: packageName}
	if doc != nil && doc.Info != nil {
		cm.Title = strings.TrimSpace(doc.Info.Title)
	}
	if doc != nil {
		for _, s := range doc.Servers {
			if s != nil && strings.TrimSpace(s.URL) != "" {
				cm.BaseURL = strings.TrimSpace(s.URL)
				break
			}
		}
	}
	cm.ClientName = clientTypeName(cm.Title)

	byTag := make(map[string][]MethodDescriptor)
	for _, md := range methods {
		if md.Group == "" {
			cm.Root = append(cm.Root, md)
			continue
		}
		byTag[md.Group] = append(byTag[md.Group], md)
	}

	tags := make([]string, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		name, ok := sanitizeOperationID(tag)
		if !ok {
			// Ungroupable tag: fold its methods into the root surface.
			cm.Root = append(cm.Root, byTag[tag]...)
			continue
		}
		cm.Groups = append(cm.Groups, Group{Name: name, Tag: tag, Methods: byTag[tag]})
	}
	sort.Slice(cm.Root, func(i, j int) bool {
		if cm.Root[i].Path != cm.Root[j].Path {
			return cm.Root[i].Path < cm.Root[j].Path
		}
		return cm.Root[i].HTTPMethod < cm.Root[j].HTTPMethod
	})
	return cm
}

func clientTypeName(title string) string {
	name, ok := sanitizeOperationID(title)
	if !ok {
		return "APIClient"
	}
	return name + "Client"
}
