package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-openapi/spec"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/validate"
	"sigs.k8s.io/yaml"
)

// Validator checks a decoded JSON value, returning the value to use in its
// place (with defaults applied) or a *ValidationError.
type Validator interface {
	Validate(data any) (any, error)
}

// PropertyLister is implemented by validators that declare a fixed set of
// top-level object properties. The command generator uses these to decide
// which arguments belong to which part of a request.
type PropertyLister interface {
	Properties() []string
}

// Properties returns the declared properties of v, or nil if v doesn't
// declare any.
func Properties(v Validator) []string {
	if pl, ok := v.(PropertyLister); ok {
		return pl.Properties()
	}

	return nil
}

// Schema is a compiled OpenAPI schema.
type Schema struct {
	spec      *spec.Schema
	validator *validate.SchemaValidator
}

var (
	_ Validator      = (*Schema)(nil)
	_ PropertyLister = (*Schema)(nil)
)

// Compile parses a YAML (or JSON) schema document.
func Compile(doc string) (*Schema, error) {
	var parsed any
	if err := yaml.UnmarshalStrict([]byte(doc), &parsed); err != nil {
		return nil, fmt.Errorf("yaml unmarshal schema: %w", err)
	}

	b, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	s := new(spec.Schema)
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("json unmarshal schema: %w", err)
	}

	if err := spec.ExpandSchema(s, s, nil); err != nil {
		return nil, fmt.Errorf("expand schema: %w", err)
	}

	return &Schema{
		spec:      s,
		validator: validate.NewSchemaValidator(s, nil, "", strfmt.Default),
	}, nil
}

// MustCompile is like Compile but panics if the document is invalid. It is
// meant for package-level schema declarations.
func MustCompile(doc string) *Schema {
	s, err := Compile(doc)
	if err != nil {
		panic(fmt.Sprintf("schema: MustCompile: %v", err))
	}

	return s
}

// Validate applies declared defaults to data and then validates it.
// json.Number values are validated as numbers and returned unchanged.
func (s *Schema) Validate(data any) (any, error) {
	data = applyDefaults(s.spec, data)

	result := s.validator.Validate(numbersAsFloats(data))
	if result.IsValid() {
		return data, nil
	}

	return nil, &ValidationError{Errors: fieldErrors(result.Errors)}
}

// Properties returns the sorted names of the schema's top-level properties.
func (s *Schema) Properties() []string {
	names := make([]string, 0, len(s.spec.Properties))
	for name := range s.spec.Properties {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// applyDefaults fills in missing object properties that declare a default,
// descending into nested objects. The input map is copied, never modified.
func applyDefaults(s *spec.Schema, data any) any {
	obj, ok := data.(map[string]any)
	if !ok || s == nil || len(s.Properties) == 0 {
		return data
	}

	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}

	for name, prop := range s.Properties {
		v, present := out[name]

		switch {
		case !present && prop.Default != nil:
			out[name] = copyJSON(prop.Default)
		case present && len(prop.Properties) > 0:
			p := prop
			out[name] = applyDefaults(&p, v)
		}
	}

	return out
}

// copyJSON deep-copies a decoded JSON value, so defaults handed out to one
// caller can't be modified through another.
func copyJSON(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, e := range vv {
			out[k] = copyJSON(e)
		}

		return out
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = copyJSON(e)
		}

		return out
	default:
		return v
	}
}

// numbersAsFloats returns a copy of v with every json.Number replaced by an
// int64 (when integral) or float64. The validator only treats json.Number as
// a number where the schema expects one, so a string property would otherwise
// accept it.
func numbersAsFloats(v any) any {
	switch vv := v.(type) {
	case json.Number:
		if i, err := vv.Int64(); err == nil {
			return i
		}

		f, err := vv.Float64()
		if err != nil {
			return vv.String()
		}

		return f
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, e := range vv {
			out[k] = numbersAsFloats(e)
		}

		return out
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = numbersAsFloats(e)
		}

		return out
	default:
		return v
	}
}

type anyValidator struct{}

// Any returns a Validator that accepts every value.
func Any() Validator {
	return anyValidator{}
}

func (anyValidator) Validate(data any) (any, error) {
	return data, nil
}

// Object returns a Validator that accepts any JSON object, the permissive
// shape used for responses with no declared structure.
func Object() Validator {
	return objectSchema
}

//nolint:gochecknoglobals
var objectSchema = MustCompile(`type: object`)
