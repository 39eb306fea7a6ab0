package llmtool

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	genai "google.golang.org/genai"
)

// Struct tags read when deriving prompt fields and response schemas:
//
//	json:"name"            wire name ("-" skips the field)
//	prompt:"optional"      fields are required unless marked optional; "-" skips
//	prompt_desc:"..."      description shown to the model
//	prompt_type:"enum"     overrides the type shown in the prompt
const (
	tagPrompt = "prompt"
	tagDesc   = "prompt_desc"
	tagType   = "prompt_type"
)

// outputField is one exported, non-skipped struct field with its tags
// resolved.
type outputField struct {
	name     string
	required bool
	desc     string
	field    reflect.StructField
}

func outputFields(t reflect.Type) []outputField {
	out := make([]outputField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := wireName(f)
		required := true
		skip := name == ""
		for _, opt := range strings.Split(f.Tag.Get(tagPrompt), ",") {
			switch strings.TrimSpace(opt) {
			case "-", "omit":
				skip = true
			case "optional":
				required = false
			case "required":
				required = true
			}
		}
		if skip {
			continue
		}
		out = append(out, outputField{
			name:     name,
			required: required,
			desc:     strings.TrimSpace(f.Tag.Get(tagDesc)),
			field:    f,
		})
	}
	return out
}

// FieldsFromStruct lists v's fields for the OUTPUT section of a prompt.
func FieldsFromStruct(v any) ([]PromptField, error) {
	t, err := structOf(v)
	if err != nil {
		return nil, err
	}
	var fields []PromptField
	for _, of := range outputFields(t) {
		typ := strings.TrimSpace(of.field.Tag.Get(tagType))
		if typ == "" {
			typ = goTypeName(of.field.Type)
		}
		fields = append(fields, PromptField{
			Name:        of.name,
			Type:        typ,
			Required:    of.required,
			Description: of.desc,
		})
	}
	return fields, nil
}

func MustFieldsFromStruct(v any) []PromptField {
	fields, err := FieldsFromStruct(v)
	if err != nil {
		panic(err)
	}
	return fields
}

// SchemaFromStruct derives the response schema for v from the same tags.
// Property order follows field order.
func SchemaFromStruct(v any) (*genai.Schema, error) {
	t, err := structOf(v)
	if err != nil {
		return nil, err
	}
	return objectSchema(t), nil
}

func MustSchemaFromStruct(v any) *genai.Schema {
	s, err := SchemaFromStruct(v)
	if err != nil {
		panic(err)
	}
	return s
}

func objectSchema(t reflect.Type) *genai.Schema {
	s := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
	for _, of := range outputFields(t) {
		prop := valueSchema(of.field.Type)
		prop.Description = of.desc
		s.Properties[of.name] = prop
		s.PropertyOrdering = append(s.PropertyOrdering, of.name)
		if of.required {
			s.Required = append(s.Required, of.name)
		}
	}
	return s
}

func valueSchema(t reflect.Type) *genai.Schema {
	t = deref(t)
	switch t.Kind() {
	case reflect.Bool:
		return &genai.Schema{Type: genai.TypeBoolean}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &genai.Schema{Type: genai.TypeInteger}
	case reflect.Float32, reflect.Float64:
		return &genai.Schema{Type: genai.TypeNumber}
	case reflect.Slice, reflect.Array:
		return &genai.Schema{Type: genai.TypeArray, Items: valueSchema(t.Elem())}
	case reflect.Struct:
		return objectSchema(t)
	default:
		return &genai.Schema{Type: genai.TypeString}
	}
}

func structOf(v any) (reflect.Type, error) {
	if v == nil {
		return nil, fmt.Errorf("llmtool: struct is nil")
	}
	t := deref(reflect.TypeOf(v))
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("llmtool: expected struct, got %s", t.Kind())
	}
	return t, nil
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// wireName is the json tag name, or the Go name with a lowercase first
// letter when untagged. "" means skip.
func wireName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch strings.TrimSpace(name) {
	case "-":
		return ""
	case "":
		r, size := utf8.DecodeRuneInString(f.Name)
		return string(unicode.ToLower(r)) + f.Name[size:]
	}
	return strings.TrimSpace(name)
}

// goTypeName is the type shown to the model: named structs keep their name,
// slices are "[]elem", integers "int".
func goTypeName(t reflect.Type) string {
	t = deref(t)
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "float64"
	case reflect.Slice, reflect.Array:
		return "[]" + goTypeName(t.Elem())
	case reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return "object"
	}
	return t.Kind().String()
}
