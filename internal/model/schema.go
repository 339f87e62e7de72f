package model

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/todo.schema.json
var schemaSource string

const schemaURL = "https://todoboard.local/schemas/todo.schema.json"

// Response schema names, one per $defs entry in todo.schema.json.
const (
	SchemaItem        = "item"
	SchemaList        = "list"
	SchemaListSummary = "listSummary"
	SchemaListDetail  = "listDetail"
	SchemaLists       = "lists"
	SchemaHealth      = "health"
)

var schemas = mustCompileSchemas()

func mustCompileSchemas() map[string]*jsonschema.Schema {
	compiled, err := compileSchemas()
	if err != nil {
		panic(fmt.Sprintf("model: compiling response schemas: %v", err))
	}
	return compiled
}

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaSource)); err != nil {
		return nil, err
	}

	names := []string{SchemaItem, SchemaList, SchemaListSummary, SchemaListDetail, SchemaLists, SchemaHealth}
	out := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		s, err := compiler.Compile(schemaURL + "#/$defs/" + name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// CheckSchema validates raw JSON against the named response schema without
// decoding it into a Go type.
func CheckSchema(name string, raw []byte) error {
	_, err := checkSchema(name, raw)
	return err
}

// checkSchema validates raw JSON against the named response schema and
// returns the decoded generic value.
func checkSchema(name string, raw []byte) (any, error) {
	schema, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("model: unknown schema %q", name)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ValidationError{Errors: []FieldError{{Field: "body", Message: "is required"}}}
	}
	doc, err := decodeGeneric(raw)
	if err != nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: "body", Message: "is not valid JSON"}}}
	}
	if err := schema.Validate(doc); err != nil {
		return nil, schemaError(err)
	}
	return doc, nil
}

// decodeGeneric decodes raw into the generic form the validator expects,
// keeping numbers as json.Number so integer checks are exact.
func decodeGeneric(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return doc, nil
}

func decodeChecked(name string, raw []byte, out any) (any, error) {
	doc, err := checkSchema(name, raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return doc, nil
}

// DecodeItem validates and decodes a single item.
func DecodeItem(raw []byte) (*TodoItem, error) {
	var item TodoItem
	if _, err := decodeChecked(SchemaItem, raw, &item); err != nil {
		return nil, err
	}
	if item.Tags == nil {
		item.Tags = []Tag{}
	}
	return &item, nil
}

// DecodeList validates and decodes a single list without counts or items.
func DecodeList(raw []byte) (*TodoList, error) {
	var list TodoList
	if _, err := decodeChecked(SchemaList, raw, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DecodeListSummaries validates and decodes the lists collection.
func DecodeListSummaries(raw []byte) ([]TodoListSummary, error) {
	var lists []TodoListSummary
	if _, err := decodeChecked(SchemaLists, raw, &lists); err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []TodoListSummary{}
	}
	return lists, nil
}

// DecodeListDetail validates and decodes a list with its items. When the
// payload carries no item_count it is derived from the items.
func DecodeListDetail(raw []byte) (*TodoListDetail, error) {
	var detail TodoListDetail
	doc, err := decodeChecked(SchemaListDetail, raw, &detail)
	if err != nil {
		return nil, err
	}
	if obj, ok := doc.(map[string]any); ok {
		if _, has := obj["item_count"]; !has {
			detail.ItemCount = len(detail.Items)
		}
	}
	for i := range detail.Items {
		if detail.Items[i].Tags == nil {
			detail.Items[i].Tags = []Tag{}
		}
	}
	return &detail, nil
}

// schemaError flattens a jsonschema validation tree into field errors keyed
// by dotted instance path.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	out := &ValidationError{}
	seen := make(map[string]bool)
	collectSchemaErrors(out, ve, seen)
	if !out.HasErrors() {
		out.Errors = append(out.Errors, FieldError{Field: "body", Message: ve.Message})
	}
	return out
}

func collectSchemaErrors(out *ValidationError, err *jsonschema.ValidationError, seen map[string]bool) {
	if len(err.Causes) == 0 {
		field := pointerToPath(err.InstanceLocation)
		if seen[field] {
			return
		}
		seen[field] = true
		out.Errors = append(out.Errors, FieldError{Field: field, Message: err.Message})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(out, cause, seen)
	}
}

// pointerToPath turns a JSON pointer such as "/items/0/status" into
// "items.0.status". The document root is reported as "body".
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return "body"
	}
	parts := strings.Split(ptr, "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return strings.Join(parts, ".")
}
