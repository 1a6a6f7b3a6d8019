package flow

import (
	"reflect"
	"strconv"
	"strings"
)

type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the subset of JSON Schema understood by the text-generation service.
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Format      string             `json:"format,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Ordering    []string           `json:"-"` // property names in struct order
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	MinItems    *int64             `json:"minItems,omitempty"`
	MaxItems    *int64             `json:"maxItems,omitempty"`
}

// SchemaOf derives the Schema of v's type from its `json`, `validate` and `desc` struct tags.
func SchemaOf(v interface{}) *Schema {
	return schemaFor(reflect.TypeOf(v), nil)
}

func schemaFor(t reflect.Type, tags []string) *Schema {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var s *Schema
	switch t.Kind() {
	case reflect.Struct:
		s = objectSchema(t)
	case reflect.Slice, reflect.Array:
		before, after := splitDive(tags)
		s = &Schema{Type: TypeArray, Items: schemaFor(t.Elem(), after)}
		tags = before
	case reflect.String:
		s = &Schema{Type: TypeString}
	case reflect.Bool:
		s = &Schema{Type: TypeBoolean}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		s = &Schema{Type: TypeInteger}
	case reflect.Float32, reflect.Float64:
		s = &Schema{Type: TypeNumber}
	default:
		s = &Schema{Type: TypeString}
	}
	applyTags(s, tags)
	return s
}

func objectSchema(t reflect.Type) *Schema {
	s := &Schema{Type: TypeObject, Properties: make(map[string]*Schema)}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}

		tags := splitTags(f.Tag.Get("validate"))
		prop := schemaFor(f.Type, tags)
		prop.Description = f.Tag.Get("desc")
		s.Properties[name] = prop
		s.Ordering = append(s.Ordering, name)
		if isRequired(tags) {
			s.Required = append(s.Required, name)
		}
	}
	return s
}

func splitTags(tag string) []string {
	if tag == "" {
		return nil
	}
	return strings.Split(tag, ",")
}

// splitDive separates the tags of a collection from the tags of its elements.
func splitDive(tags []string) (before, after []string) {
	for i, tag := range tags {
		if tag == "dive" {
			return tags[:i], tags[i+1:]
		}
	}
	return tags, nil
}

func isRequired(tags []string) bool {
	before, _ := splitDive(tags)
	var required bool
	for _, tag := range before {
		switch {
		case tag == "omitempty":
			return false
		case tag == "required", tag == "notblank":
			required = true
		case strings.HasPrefix(tag, "min=") && tag != "min=0":
			required = true
		}
	}
	return required
}

func applyTags(s *Schema, tags []string) {
	for _, tag := range tags {
		if tag == "dive" {
			return
		}
		key, param := tag, ""
		if i := strings.Index(tag, "="); i >= 0 {
			key, param = tag[:i], tag[i+1:]
		}

		switch key {
		case "oneof":
			if s.Type == TypeString {
				s.Enum = strings.Fields(param)
			}
		case "url":
			s.Format = "uri"
		case "email":
			s.Format = "email"
		case "min", "gte":
			setBound(s, param, true)
		case "max", "lte":
			setBound(s, param, false)
		}
	}
}

func setBound(s *Schema, param string, lower bool) {
	switch s.Type {
	case TypeInteger, TypeNumber:
		f, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return
		}
		if lower {
			s.Minimum = &f
		} else {
			s.Maximum = &f
		}
	case TypeArray:
		n, err := strconv.ParseInt(param, 10, 64)
		if err != nil {
			return
		}
		if lower {
			s.MinItems = &n
		} else {
			s.MaxItems = &n
		}
	}
}
