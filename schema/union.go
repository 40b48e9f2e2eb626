package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Union is a discriminated union: the value of one field selects which
// variant validates the whole object.
type Union struct {
	discriminator string
	variants      map[any]Validator
}

var (
	_ Validator      = (*Union)(nil)
	_ PropertyLister = (*Union)(nil)
)

// OneOf returns a Union keyed on the discriminator field. Variant keys must
// be the JSON-decoded form of the discriminant (bool, string or float64).
// A json.Number discriminant matches its float64 key.
func OneOf(discriminator string, variants map[any]Validator) *Union {
	return &Union{discriminator: discriminator, variants: variants}
}

// Validate picks the variant matching data's discriminant and validates data
// with it. Missing or unknown discriminants fail validation.
func (u *Union) Validate(data any) (any, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, &ValidationError{Errors: []FieldError{{
			Message: fmt.Sprintf("expected an object with a %q field, got %T", u.discriminator, data),
		}}}
	}

	d, ok := obj[u.discriminator]
	if !ok {
		return nil, Errorf("", u.discriminator, "%s is required", u.discriminator)
	}

	if n, ok := d.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return nil, Errorf("", u.discriminator, "%s is not a valid number: %v", u.discriminator, err)
		}

		d = f
	}

	// only comparable values can be used as map keys
	switch d.(type) {
	case bool, string, float64:
	default:
		return nil, Errorf("", u.discriminator, "%s has unsupported type %T", u.discriminator, d)
	}

	v, ok := u.variants[d]
	if !ok {
		return nil, Errorf("", u.discriminator, "%s has unexpected value %v", u.discriminator, d)
	}

	return v.Validate(data)
}

// Properties returns the union of all variants' properties.
func (u *Union) Properties() []string {
	seen := map[string]struct{}{u.discriminator: {}}

	for _, v := range u.variants {
		for _, p := range Properties(v) {
			seen[p] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
