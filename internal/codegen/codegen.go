// Package codegen projects a descriptor table into formatted Go struct
// source, for callers that want a typed Go view of decoded messages
// instead of the generic map[string]any surface internal/codec returns.
// This supplements the operations of spec.md §6 (out of scope for the
// wire glue itself) the way the original cbuf ships analogous
// generators for its other target languages.
package codegen

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/mvi-llc/wasm-cbuf/internal/codec"
	"github.com/mvi-llc/wasm-cbuf/internal/descriptor"
)

// goFieldType maps a descriptor.Element's canonical wire type to the
// Go type its generated struct field uses.
func goFieldType(el descriptor.Element) (string, error) {
	base, err := goScalarType(el)
	if err != nil {
		return "", err
	}
	if !el.IsArray {
		return base, nil
	}
	return "[]" + base, nil
}

func goScalarType(el descriptor.Element) (string, error) {
	if el.IsComplex {
		return goIdentifier(el.Type), nil
	}
	switch el.Type {
	case "string":
		return "string", nil
	case "bool":
		return "bool", nil
	case "uint8", "int8", "uint16", "int16", "uint32", "int32",
		"uint64", "int64", "float32", "float64":
		return el.Type, nil
	default:
		return "", fmt.Errorf("codegen: unsupported field type %q", el.Type)
	}
}

// goIdentifier turns a qualified cbuf name ("messages::foo") into an
// exported Go identifier ("Messages_Foo").
func goIdentifier(qualified string) string {
	parts := strings.Split(qualified, "::")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "_")
}

const structTemplate = `// {{.GoName}} is the generated Go projection of {{.Name}}.
type {{.GoName}} struct {
{{- range .Fields}}
	{{.GoName}} {{.GoType}} ` + "`" + `cbuf:"{{.WireName}}"` + "`" + `
{{- end}}
}
`

type templateField struct {
	GoName   string
	GoType   string
	WireName string
}

type templateStruct struct {
	Name   string
	GoName string
	Fields []templateField
}

var parsed = template.Must(template.New("struct").Parse(structTemplate))

// Generate renders schema's structs, in the order names lists, as a
// single formatted Go source file in the given package.
func Generate(packageName string, schema codec.SchemaMap, names []string) ([]byte, error) {
	var buf strings.Builder
	fmt.Fprintf(&buf, "package %s\n\n", packageName)

	for _, name := range names {
		desc, ok := schema[name]
		if !ok {
			return nil, fmt.Errorf("codegen: %q not present in schema", name)
		}
		ts, err := toTemplateStruct(desc)
		if err != nil {
			return nil, err
		}
		if err := parsed.Execute(&buf, ts); err != nil {
			return nil, fmt.Errorf("codegen: rendering %q: %w", name, err)
		}
		buf.WriteByte('\n')
	}

	out, err := imports.Process("generated_cbuf.go", []byte(buf.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("codegen: formatting generated source: %w", err)
	}
	return out, nil
}

// GenerateSorted is Generate over every struct in schema, in
// lexicographic qualified-name order, for callers without an explicit
// emission order to preserve.
func GenerateSorted(packageName string, schema codec.SchemaMap) ([]byte, error) {
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return Generate(packageName, schema, names)
}

func toTemplateStruct(desc *descriptor.Struct) (templateStruct, error) {
	ts := templateStruct{
		Name:   desc.Name,
		GoName: goIdentifier(desc.Name),
	}
	for _, el := range desc.Elements {
		gt, err := goFieldType(el)
		if err != nil {
			return templateStruct{}, fmt.Errorf("codegen: struct %q: %w", desc.Name, err)
		}
		ts.Fields = append(ts.Fields, templateField{
			GoName:   strings.ToUpper(el.Name[:1]) + el.Name[1:],
			GoType:   gt,
			WireName: el.Name,
		})
	}
	return ts, nil
}
