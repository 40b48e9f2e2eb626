package vaultcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/hairyhenderson/go-vaultcmd/schema"
)

// Definition declares a Vault endpoint. Definitions are plain data: they are
// never modified once a Command has been generated from them.
type Definition struct {
	// Name identifies the command in logs and trace spans.
	Name string
	// Method is the HTTP method (GET, POST, DELETE, LIST, ...).
	Method string
	// Path is the path template, relative to the API version, for example
	// "/sys/mounts/{{path}}".
	Path string

	PathSchema     schema.Validator
	QuerySchema    schema.Validator
	BodySchema     schema.Validator
	ResponseSchema schema.Validator

	// Strict rejects arguments not claimed by a placeholder or one of the
	// schemas. By default they are passed through verbatim, in the body for
	// methods that carry one and in the query string otherwise.
	Strict bool
}

// Args are the arguments to a command, keyed by name.
type Args map[string]any

// Command invokes one Vault endpoint. The returned value has passed the
// definition's response schema, if one was declared.
type Command func(ctx context.Context, args Args, opts ...CallOption) (any, error)

// Generate returns a Command that validates its arguments against def,
// resolves def's path template, sends the request with c's configuration,
// and validates the response.
func (c *Client) Generate(def Definition) Command {
	if def.Name == "" {
		def.Name = strings.ToLower(def.Method) + " " + def.Path
	}

	return func(ctx context.Context, args Args, opts ...CallOption) (any, error) {
		return c.do(ctx, def, args, opts)
	}
}

// buckets holds the arguments of one call, split by destination
type buckets struct {
	path, query, body map[string]any
	// unclaimed arguments, passed through after validation
	extra map[string]any
}

func splitArgs(def Definition, args Args) (*buckets, error) {
	normalized, err := normalizeArgs(args)
	if err != nil {
		return nil, err
	}

	b := &buckets{
		path:  map[string]any{},
		query: map[string]any{},
		body:  map[string]any{},
		extra: map[string]any{},
	}

	pathKeys := keySet(Placeholders(def.Path), schema.Properties(def.PathSchema))
	queryKeys := keySet(schema.Properties(def.QuerySchema))
	bodyKeys := keySet(schema.Properties(def.BodySchema))

	var unexpected []string

	for k, v := range normalized {
		switch {
		case pathKeys[k]:
			b.path[k] = v
		case queryKeys[k]:
			b.query[k] = v
		case bodyKeys[k]:
			b.body[k] = v
		case def.Strict:
			unexpected = append(unexpected, k)
		default:
			b.extra[k] = v
		}
	}

	if len(unexpected) > 0 {
		sort.Strings(unexpected)

		verr := &schema.ValidationError{Location: schema.LocationArgs}
		for _, k := range unexpected {
			verr.Errors = append(verr.Errors, schema.FieldError{
				Field:   k,
				Message: fmt.Sprintf("unexpected argument %s", k),
			})
		}

		return nil, verr
	}

	return b, nil
}

// normalizeArgs converts args to their JSON form, so that validation sees
// the same types ([]any, map[string]any) as it would on the wire. Numbers
// become json.Number, keeping their exact text for paths and query strings.
func normalizeArgs(args Args) (map[string]any, error) {
	if len(args) == 0 {
		return map[string]any{}, nil
	}

	v, err := toJSON(map[string]any(args))
	if err != nil {
		return nil, schema.Errorf(schema.LocationArgs, "", "arguments could not be converted to JSON: %v", err)
	}

	normalized, ok := v.(map[string]any)
	if !ok {
		return nil, schema.Errorf(schema.LocationArgs, "", "arguments could not be converted to JSON")
	}

	return normalized, nil
}

func toJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}

	return out, nil
}

func keySet(lists ...[]string) map[string]bool {
	set := map[string]bool{}

	for _, l := range lists {
		for _, k := range l {
			set[k] = true
		}
	}

	return set
}

// hasBody reports whether requests with this method carry a body
func hasBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// toArgs converts a request struct to Args using its JSON field names.
func toArgs(v any) (Args, error) {
	res, err := toJSON(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}

	if res == nil {
		return Args{}, nil
	}

	m, ok := res.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%T does not encode to a JSON object", v)
	}

	return m, nil
}
