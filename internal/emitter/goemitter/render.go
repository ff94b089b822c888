package goemitter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/swagger2client/internal/gen"
)

const runtimeImport = "github.com/mark3labs/swagger2client/pkg/client"

func renderDocGo(cm *gen.ClientModel) string {
	var b strings.Builder
	title := cm.Title
	if title == "" {
		title = "the source API"
	}
	fmt.Fprintf(&b, "// Package %s is a generated client for %s.\n", cm.Package, title)
	b.WriteString("//\n// Code generated by swagger2client. DO NOT EDIT.\n")
	fmt.Fprintf(&b, "package %s\n", cm.Package)
	return b.String()
}

func renderReadme(cm *gen.ClientModel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", cm.Package)
	fmt.Fprintf(&b, "Generated Go client for %s. Built with swagger2client; do not edit by hand.\n\n", cm.Title)
	b.WriteString("```go\n")
	fmt.Fprintf(&b, "cli, err := %s.New(client.Config{BaseURL: \"https://api.example.com\"})\n", cm.Package)
	b.WriteString("if err != nil {\n\tlog.Fatal(err)\n}\ndefer cli.Close()\n```\n")
	return b.String()
}

// renderClientGo renders the root client, sub-clients, and one method per
// descriptor into a single source file.
func renderClientGo(cm *gen.ClientModel) string {
	var body strings.Builder

	fmt.Fprintf(&body, "// %s is the root entry point for the generated API surface.\n", cm.ClientName)
	fmt.Fprintf(&body, "type %s struct {\n\tc *client.Client\n}\n\n", cm.ClientName)

	body.WriteString("// New builds the client from the merged configuration.\n")
	fmt.Fprintf(&body, "func New(cfg client.Config) (*%s, error) {\n", cm.ClientName)
	if cm.BaseURL != "" {
		body.WriteString("\tif cfg.BaseURL == \"\" {\n\t\tcfg.BaseURL = defaultBaseURL\n\t}\n")
	}
	body.WriteString("\tc, err := client.New(cfg)\n\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	fmt.Fprintf(&body, "\treturn &%s{c: c}, nil\n}\n\n", cm.ClientName)

	body.WriteString("// Close releases transport resources; redundant calls are no-ops.\n")
	fmt.Fprintf(&body, "func (c *%s) Close() error {\n\treturn c.c.Close()\n}\n\n", cm.ClientName)

	body.WriteString("// WithHeaders returns an independent client sharing the same transport\n// with the given headers merged over the existing ones.\n")
	fmt.Fprintf(&body, "func (c *%s) WithHeaders(headers map[string]string) *%s {\n\treturn &%s{c: c.c.WithHeaders(headers)}\n}\n\n",
		cm.ClientName, cm.ClientName, cm.ClientName)

	for _, g := range cm.Groups {
		fmt.Fprintf(&body, "// %s scopes the %q operations.\n", g.Name, g.Tag)
		fmt.Fprintf(&body, "func (c *%s) %s() *%sClient {\n\treturn &%sClient{c: c.c}\n}\n\n",
			cm.ClientName, g.Name, g.Name, g.Name)
	}

	imports := newImportSet()
	for _, md := range cm.Root {
		renderMethod(&body, cm.ClientName, md, imports)
	}
	for _, g := range cm.Groups {
		fmt.Fprintf(&body, "// %sClient carries the %q operations.\n", g.Name, g.Tag)
		fmt.Fprintf(&body, "type %sClient struct {\n\tc *client.Client\n}\n\n", g.Name)
		for _, md := range g.Methods {
			renderMethod(&body, g.Name+"Client", md, imports)
		}
	}

	var out strings.Builder
	out.WriteString("// Code generated by swagger2client. DO NOT EDIT.\n\n")
	fmt.Fprintf(&out, "package %s\n\n", cm.Package)
	out.WriteString("import (\n\t\"context\"\n")
	if imports.needURL {
		out.WriteString("\t\"net/url\"\n")
	}
	if imports.needStrconv {
		out.WriteString("\t\"strconv\"\n")
	}
	fmt.Fprintf(&out, "\n\t\"%s\"\n", runtimeImport)
	for _, path := range imports.sortedModels() {
		fmt.Fprintf(&out, "\t\"%s\"\n", path)
	}
	out.WriteString(")\n\n")
	if cm.BaseURL != "" {
		out.WriteString("// defaultBaseURL is the first server declared in the source document.\n")
		fmt.Fprintf(&out, "const defaultBaseURL = %q\n\n", cm.BaseURL)
	}
	out.WriteString(strings.TrimRight(body.String(), "\n"))
	out.WriteString("\n")
	return out.String()
}

type importSet struct {
	needURL     bool
	needStrconv bool
	models      map[string]struct{}
}

func newImportSet() *importSet { return &importSet{models: map[string]struct{}{}} }

func (s *importSet) sortedModels() []string {
	out := make([]string, 0, len(s.models))
	for p := range s.models {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func renderMethod(b *strings.Builder, recv string, md gen.MethodDescriptor, imports *importSet) {
	retType, decode := returnType(md, imports)

	var args []string
	args = append(args, "ctx context.Context")
	for _, p := range md.PathParams {
		args = append(args, argName(p.Name)+" "+goType(p.Type))
	}
	for _, p := range md.QueryParams {
		args = append(args, argName(p.Name)+" "+goType(p.Type))
	}
	bodyArg := ""
	switch md.Body.Encoding {
	case gen.BodyStructured:
		bodyArg = "body map[string]any"
	case gen.BodyPrimitive:
		bodyArg = "body string"
	}
	if bodyArg != "" {
		args = append(args, bodyArg)
	}

	if md.Summary != "" {
		fmt.Fprintf(b, "// %s %s\n", md.Name, lowerFirstWord(md.Summary))
	} else {
		fmt.Fprintf(b, "// %s calls %s %s.\n", md.Name, md.HTTPMethod, md.Path)
	}
	ret := "error"
	if retType != "" {
		ret = "(" + retType + ", error)"
	}
	fmt.Fprintf(b, "func (c *%s) %s(%s) %s {\n", recv, md.Name, strings.Join(args, ", "), ret)

	if len(md.QueryParams) > 0 {
		imports.needURL = true
		b.WriteString("\tq := make(url.Values)\n")
		for _, p := range md.QueryParams {
			fmt.Fprintf(b, "\tq.Set(%q, %s)\n", p.Name, formatExpr(p, imports))
		}
	}

	// Model-typed object returns are struct values, so the error path needs
	// an explicit zero value.
	fail := "nil, err"
	needZero := false
	switch {
	case retType == "":
		fail = "err"
	case md.ResponseShape == gen.ShapeObject && md.Model != nil:
		needZero = true
		fail = "zero, err"
	}
	assign := "resp, err"
	if retType == "" {
		assign = "_, err"
	}
	fmt.Fprintf(b, "\t%s := c.c.Do(ctx, client.Call{\n", assign)
	fmt.Fprintf(b, "\t\tMethod:       %q,\n", md.HTTPMethod)
	fmt.Fprintf(b, "\t\tPathTemplate: %q,\n", md.Path)
	if len(md.PathParams) > 0 {
		var pairs []string
		for _, p := range md.PathParams {
			pairs = append(pairs, fmt.Sprintf("%q: %s", p.Name, formatExpr(p, imports)))
		}
		fmt.Fprintf(b, "\t\tPathParams:   map[string]string{%s},\n", strings.Join(pairs, ", "))
	}
	if len(md.QueryParams) > 0 {
		b.WriteString("\t\tQueryParams:  q,\n")
	}
	switch md.Body.Encoding {
	case gen.BodyStructured:
		b.WriteString("\t\tBody:         body,\n")
		b.WriteString("\t\tBodyEncoding: client.EncodingStructured,\n")
		fmt.Fprintf(b, "\t\tContentType:  %q,\n", md.Body.ContentType)
	case gen.BodyPrimitive:
		b.WriteString("\t\tBody:         body,\n")
		b.WriteString("\t\tBodyEncoding: client.EncodingPrimitive,\n")
		fmt.Fprintf(b, "\t\tContentType:  %q,\n", md.Body.ContentType)
	}
	b.WriteString("\t})\n")
	if needZero {
		fmt.Fprintf(b, "\tif err != nil {\n\t\tvar zero %s\n\t\treturn %s\n\t}\n", retType, fail)
	} else {
		fmt.Fprintf(b, "\tif err != nil {\n\t\treturn %s\n\t}\n", fail)
	}
	if decode != "" {
		fmt.Fprintf(b, "\treturn %s\n", decode)
	} else {
		b.WriteString("\treturn nil\n")
	}
	b.WriteString("}\n\n")
}

// returnType reports the method's Go return type and the decode expression,
// or ("", "") for empty responses.
func returnType(md gen.MethodDescriptor, imports *importSet) (string, string) {
	if md.ResponseShape == gen.ShapeEmpty {
		return "", ""
	}
	elem := "map[string]any"
	if md.Model != nil {
		elem = modelType(md.Model, imports)
	}
	if md.ResponseShape == gen.ShapeCollection {
		return "[]" + elem, fmt.Sprintf("client.Collection[%s](resp)", elem)
	}
	return elem, fmt.Sprintf("client.Object[%s](resp)", elem)
}

func modelType(m *gen.ModelBinding, imports *importSet) string {
	if m.ImportPath == "" {
		return m.TypeName
	}
	imports.models[m.ImportPath] = struct{}{}
	parts := strings.Split(m.ImportPath, "/")
	return parts[len(parts)-1] + "." + m.TypeName
}

func goType(t gen.PrimitiveType) string {
	switch t {
	case gen.TypeNumber:
		return "float64"
	case gen.TypeBoolean:
		return "bool"
	default:
		return "string"
	}
}

func formatExpr(p gen.Param, imports *importSet) string {
	name := argName(p.Name)
	switch p.Type {
	case gen.TypeNumber:
		imports.needStrconv = true
		return fmt.Sprintf("strconv.FormatFloat(%s, 'f', -1, 64)", name)
	case gen.TypeBoolean:
		imports.needStrconv = true
		return fmt.Sprintf("strconv.FormatBool(%s)", name)
	default:
		return name
	}
}

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

// argName derives a parameter identifier: non-alphanumerics stripped, first
// rune lowered, keywords and digit-leading names prefixed.
func argName(name string) string {
	var b strings.Builder
	upperNext := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			if upperNext && r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			b.WriteRune(r)
			upperNext = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			upperNext = true
		default:
			upperNext = true
		}
	}
	out := b.String()
	if out == "" {
		return "param"
	}
	if out[0] >= 'A' && out[0] <= 'Z' {
		out = string(out[0]+('a'-'A')) + out[1:]
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "p" + out
	}
	if goKeywords[out] {
		out += "Param"
	}
	return out
}

func lowerFirstWord(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'A' && r[0] <= 'Z' && (len(r) < 2 || r[1] < 'A' || r[1] > 'Z') {
		r[0] += 'a' - 'A'
	}
	out := string(r)
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}
